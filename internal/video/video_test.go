package video

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/ivlev/quickcut/internal/config"
	"github.com/ivlev/quickcut/internal/source"
	"github.com/ivlev/quickcut/internal/timeline"
)

func argAfter(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func buildTimeline(t *testing.T, durations []float64, p timeline.TimingParams) *timeline.Timeline {
	t.Helper()
	slides := make([]source.Slide, len(durations))
	d := make(map[int]float64, len(durations))
	for i, v := range durations {
		slides[i] = source.Slide{Index: i}
		d[i] = v
	}
	tl, err := timeline.Build(slides, d, p)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	return tl
}

func TestBuildFFmpegArgs(t *testing.T) {
	params := config.SegmentParams{Duration: 4.5, FPS: 24, Filter: "scale=1280:720"}

	args := buildFFmpegArgs(640, 480, "seg.mp4", params, "libx264", 23)

	if argAfter(args, "-video_size") != "640x480" || argAfter(args, "-vf") != "scale=1280:720" {
		t.Errorf("Unexpected input args %v", args)
	}
	if argAfter(args, "-t") != "4.500" || argAfter(args, "-crf") != "23" {
		t.Errorf("Unexpected output args %v", args)
	}
	if args[len(args)-1] != "seg.mp4" {
		t.Errorf("Expected output path last, got %v", args)
	}

	vt := buildFFmpegArgs(640, 480, "seg.mp4", params, "h264_videotoolbox", 75)
	if argAfter(vt, "-b:v") != "7500k" {
		t.Errorf("Expected bitrate for videotoolbox, got %v", vt)
	}
}

func TestWriteRawRGBA(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 1))
	img.Set(1, 0, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := writeRawRGBA(&buf, img); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 8 || buf.Bytes()[4] != 255 {
		t.Errorf("Unexpected pixels %v", buf.Bytes())
	}

	gray := image.NewGray(image.Rect(0, 0, 3, 2))
	buf.Reset()
	if err := writeRawRGBA(&buf, gray); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 3*2*4 {
		t.Errorf("Expected converted frame, got %d bytes", buf.Len())
	}
}

func TestConcatWithTransitions(t *testing.T) {
	tl := buildTimeline(t, []float64{3.0, 2.0, 4.0}, timeline.TimingParams{PauseSeconds: 1.0, TransitionSeconds: 0.5})

	args, err := buildConcatArgs(ConcatJob{
		Segments:       []string{"s0.mp4", "s1.mp4", "s2.mp4"},
		Narration:      []string{"n0.mp3", "n1.mp3", "n2.mp3"},
		Timeline:       tl,
		Output:         "out.mp4",
		TransitionType: "fade",
		VideoEncoder:   "libx264",
		Quality:        23,
	})
	if err != nil {
		t.Fatalf("buildConcatArgs failed: %v", err)
	}

	graph := argAfter(args, "-filter_complex")
	for _, want := range []string{
		"[0:v][1:v]xfade=transition=fade:duration=0.500:offset=3.500[v1]",
		"[v1][2:v]xfade=transition=fade:duration=0.500:offset=6.000[v2]",
		"[3:a]adelay=delays=0:all=1[a0]",
		"[4:a]adelay=delays=3500:all=1[a1]",
		"[5:a]adelay=delays=6000:all=1[a2]",
		"[a0][a1][a2]amix=inputs=3:duration=longest:normalize=0,apad=whole_dur=11.000[narr]",
	} {
		if !strings.Contains(graph, want) {
			t.Errorf("Graph %q is missing %q", graph, want)
		}
	}

	if !strings.Contains(strings.Join(args, " "), "-map [v2] -map [narr]") {
		t.Errorf("Unexpected mapping %v", args)
	}
	if argAfter(args, "-t") != "11.000" || args[len(args)-1] != "out.mp4" {
		t.Errorf("Unexpected tail %v", args)
	}
}

func TestConcatWithoutTransitions(t *testing.T) {
	tl := buildTimeline(t, []float64{3.0, 2.0}, timeline.TimingParams{PauseSeconds: 1.0})

	args, err := buildConcatArgs(ConcatJob{
		Segments:       []string{"s0.mp4", "s1.mp4"},
		Narration:      []string{"n0.mp3", "n1.mp3"},
		Timeline:       tl,
		Output:         "out.mp4",
		TransitionType: "fade",
		VideoEncoder:   "libx264",
	})
	if err != nil {
		t.Fatalf("buildConcatArgs failed: %v", err)
	}

	graph := argAfter(args, "-filter_complex")
	if strings.Contains(graph, "xfade") || !strings.Contains(graph, "[0:v][1:v]concat=n=2:v=1:a=0[vconcat]") {
		t.Errorf("Expected plain concat, got %q", graph)
	}
	if !strings.Contains(graph, "[3:a]adelay=delays=4000:all=1[a1]") {
		t.Errorf("Expected second narration after the pause, got %q", graph)
	}
}

func TestConcatSingleSlideWithMusic(t *testing.T) {
	tl := buildTimeline(t, []float64{2.0}, timeline.TimingParams{PauseSeconds: 1.0, TransitionSeconds: 0.5})

	args, err := buildConcatArgs(ConcatJob{
		Segments:         []string{"s0.mp4"},
		Narration:        []string{"n0.mp3"},
		Timeline:         tl,
		Output:           "out.mp4",
		TransitionType:   "fade",
		BackgroundAudio:  "music.mp3",
		BackgroundVolume: 0.1,
		VideoEncoder:     "libx264",
	})
	if err != nil {
		t.Fatalf("buildConcatArgs failed: %v", err)
	}

	joined := strings.Join(args, " ")
	if !strings.Contains(joined, "-stream_loop -1 -i music.mp3") {
		t.Errorf("Expected looped music input, got %v", args)
	}
	graph := argAfter(args, "-filter_complex")
	if !strings.Contains(graph, "[2:a]volume='0.100000*") || !strings.Contains(graph, "[narr][bg_a]amix=inputs=2:duration=first") {
		t.Errorf("Unexpected music graph %q", graph)
	}
	if !strings.Contains(joined, "-map 0:v -map [aout]") {
		t.Errorf("Unexpected mapping %v", args)
	}
}

func TestConcatRejectsMismatch(t *testing.T) {
	tl := buildTimeline(t, []float64{1, 1}, timeline.TimingParams{})

	_, err := buildConcatArgs(ConcatJob{Segments: []string{"a"}, Timeline: tl})
	if !errors.Is(err, ErrSegmentMismatch) {
		t.Errorf("Expected ErrSegmentMismatch, got %v", err)
	}
	_, err = buildConcatArgs(ConcatJob{Segments: []string{"a", "b"}, Narration: []string{"n"}, Timeline: tl})
	if !errors.Is(err, ErrSegmentMismatch) {
		t.Errorf("Expected ErrSegmentMismatch, got %v", err)
	}
	if _, err := buildConcatArgs(ConcatJob{}); !errors.Is(err, ErrSegmentMismatch) {
		t.Errorf("Expected ErrSegmentMismatch for empty timeline, got %v", err)
	}
}

func TestLastLines(t *testing.T) {
	if got := lastLines("a\nb\nc\n", 2); got != "b\nc" {
		t.Errorf("Unexpected %q", got)
	}
}

func TestConcatSkipsSilentSlides(t *testing.T) {
	tl := buildTimeline(t, []float64{1.0, 2.0, 1.5}, timeline.TimingParams{PauseSeconds: 0.5})

	args, err := buildConcatArgs(ConcatJob{
		Segments:     []string{"s0.mp4", "s1.mp4", "s2.mp4"},
		Narration:    []string{"n0.mp3", "", "n2.mp3"},
		Timeline:     tl,
		Output:       "out.mp4",
		VideoEncoder: "libx264",
	})
	if err != nil {
		t.Fatalf("buildConcatArgs failed: %v", err)
	}

	if strings.Count(strings.Join(args, " "), "-i ") != 5 {
		t.Errorf("Expected five inputs, got %v", args)
	}
	graph := argAfter(args, "-filter_complex")
	if !strings.Contains(graph, "[4:a]adelay=delays=4000:all=1[a2]") || !strings.Contains(graph, "[a0][a2]amix=inputs=2") {
		t.Errorf("Unexpected audio graph %q", graph)
	}
}

func TestConcatMusicOnly(t *testing.T) {
	tl := buildTimeline(t, []float64{1.0, 1.0}, timeline.TimingParams{PauseSeconds: 0.5})

	args, err := buildConcatArgs(ConcatJob{
		Segments:         []string{"s0.mp4", "s1.mp4"},
		Narration:        []string{"", ""},
		Timeline:         tl,
		Output:           "out.mp4",
		BackgroundAudio:  "music.mp3",
		BackgroundVolume: 0.2,
		VideoEncoder:     "libx264",
	})
	if err != nil {
		t.Fatalf("buildConcatArgs failed: %v", err)
	}

	graph := argAfter(args, "-filter_complex")
	if !strings.HasPrefix(strings.SplitN(graph, ";", 2)[1], "[2:a]volume=") || !strings.Contains(graph, "apad=whole_dur=3.000[aout]") {
		t.Errorf("Unexpected audio graph %q", graph)
	}
	if argAfter(args, "-t") != "3.000" {
		t.Errorf("Expected total 3.000, got %v", args)
	}
}
