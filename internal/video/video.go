package video

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ivlev/quickcut/internal/config"
	"github.com/ivlev/quickcut/internal/timeline"
)

var ErrSegmentMismatch = errors.New("segments do not match timeline")

type VideoEncoder interface {
	EncodeSegment(ctx context.Context, img image.Image, videoPath string, params config.SegmentParams, encoderName string, quality int) error
	Concatenate(ctx context.Context, job ConcatJob) error
}

// ConcatJob describes the final assembly. Segments and Narration are aligned
// with Timeline.Entries; an empty narration path leaves that slide silent.
type ConcatJob struct {
	Segments  []string
	Narration []string
	Timeline  *timeline.Timeline
	Output    string
	TmpDir    string

	TransitionType   string
	BackgroundAudio  string
	BackgroundVolume float64

	VideoEncoder string
	Quality      int
}

type FFmpegEncoder struct{}

func (e *FFmpegEncoder) EncodeSegment(
	ctx context.Context,
	img image.Image,
	videoPath string,
	params config.SegmentParams,
	encoderName string,
	quality int,
) error {
	inputW, inputH := img.Bounds().Dx(), img.Bounds().Dy()

	args := buildFFmpegArgs(inputW, inputH, videoPath, params, encoderName, quality)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	var stderr strings.Builder
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe error: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("ffmpeg start error: %w", err)
	}

	if err := writeRawRGBA(stdin, img); err != nil {
		stdin.Close()
		cmd.Wait()
		return fmt.Errorf("write raw error: %w", err)
	}
	stdin.Close()

	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("ffmpeg segment error: %w: %s", err, lastLines(stderr.String(), 5))
	}

	return nil
}

// buildFFmpegArgs encodes one silent segment from a single raw RGBA frame;
// the filter is responsible for producing every frame of the segment.
func buildFFmpegArgs(
	inputW, inputH int,
	videoPath string,
	params config.SegmentParams,
	encoderName string,
	quality int,
) []string {
	args := []string{
		"-y",
		"-v", "error",
		"-f", "rawvideo",
		"-pixel_format", "rgba",
		"-video_size", fmt.Sprintf("%dx%d", inputW, inputH),
		"-i", "-",
		"-vf", params.Filter,
		"-t", fmt.Sprintf("%.3f", params.Duration),
		"-r", fmt.Sprintf("%d", params.FPS),
		"-an",
		"-pix_fmt", "yuv420p",
		"-c:v", encoderName,
	}
	args = append(args, qualityArgs(encoderName, quality)...)
	args = append(args, videoPath)
	return args
}

func qualityArgs(encoderName string, quality int) []string {
	switch encoderName {
	case "h264_videotoolbox":
		// VideoToolbox does not honour -q:v everywhere, use a bitrate.
		return []string{"-b:v", fmt.Sprintf("%dk", quality*100)}
	case "h264_nvenc":
		return []string{"-cq", fmt.Sprintf("%d", quality)}
	default: // libx264
		return []string{"-crf", fmt.Sprintf("%d", quality), "-preset", "medium"}
	}
}

func writeRawRGBA(w io.Writer, img image.Image) error {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != bounds.Dx()*4 || rgba.Rect.Min.X != 0 || rgba.Rect.Min.Y != 0 {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}
	_, err := w.Write(rgba.Pix)
	return err
}

func (e *FFmpegEncoder) Concatenate(ctx context.Context, job ConcatJob) error {
	args, err := buildConcatArgs(job)
	if err != nil {
		return err
	}

	if job.TmpDir != "" {
		// Keep the exact invocation for debugging failed runs.
		script := "ffmpeg " + strings.Join(args, " ") + "\n"
		os.WriteFile(filepath.Join(job.TmpDir, "concat.cmd"), []byte(script), 0644)
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg concat error: %w, output: %s", err, lastLines(string(out), 10))
	}
	return nil
}

// buildConcatArgs places every segment at its slide start and every
// narration at its narration start, both taken from the timeline.
func buildConcatArgs(job ConcatJob) ([]string, error) {
	tl := job.Timeline
	if tl == nil || len(tl.Entries) == 0 {
		return nil, fmt.Errorf("%w: empty timeline", ErrSegmentMismatch)
	}
	n := len(tl.Entries)
	if len(job.Segments) != n {
		return nil, fmt.Errorf("%w: %d segments for %d entries", ErrSegmentMismatch, len(job.Segments), n)
	}
	if len(job.Narration) != 0 && len(job.Narration) != n {
		return nil, fmt.Errorf("%w: %d narrations for %d entries", ErrSegmentMismatch, len(job.Narration), n)
	}

	args := []string{"-y", "-v", "error"}
	for _, p := range job.Segments {
		args = append(args, "-i", p)
	}
	// Slides without narration (empty captions) have no audio input.
	narrationInput := make(map[int]int)
	for i, p := range job.Narration {
		if p == "" {
			continue
		}
		narrationInput[i] = n + len(narrationInput)
		args = append(args, "-i", p)
	}
	bgIndex := -1
	if job.BackgroundAudio != "" {
		bgIndex = n + len(narrationInput)
		args = append(args, "-stream_loop", "-1", "-i", job.BackgroundAudio)
	}

	var graph []string
	videoOut := "0:v"

	// 1. Video: xfade at each slide start, or a plain concat without overlap.
	if n > 1 {
		if usesTransitions(job) {
			lastOut := "[0:v]"
			for i := 1; i < n; i++ {
				e := tl.Entries[i]
				outName := fmt.Sprintf("[v%d]", i)
				graph = append(graph, fmt.Sprintf("%s[%d:v]xfade=transition=%s:duration=%.3f:offset=%.3f%s",
					lastOut, i, job.TransitionType, e.Transition, e.SlideStart, outName))
				lastOut = outName
			}
			videoOut = lastOut
		} else {
			var inputs strings.Builder
			for i := 0; i < n; i++ {
				fmt.Fprintf(&inputs, "[%d:v]", i)
			}
			graph = append(graph, fmt.Sprintf("%sconcat=n=%d:v=1:a=0[vconcat]", inputs.String(), n))
			videoOut = "[vconcat]"
		}
	}

	// 2. Audio: each narration delayed to its start, mixed without
	// normalisation, padded to the full length.
	audioOut := ""
	if len(narrationInput) > 0 {
		var labels strings.Builder
		for i, e := range tl.Entries {
			input, ok := narrationInput[i]
			if !ok {
				continue
			}
			delay := int64(e.NarrationStart*1000 + 0.5)
			graph = append(graph, fmt.Sprintf("[%d:a]adelay=delays=%d:all=1[a%d]", input, delay, i))
			fmt.Fprintf(&labels, "[a%d]", i)
		}
		graph = append(graph, fmt.Sprintf("%samix=inputs=%d:duration=longest:normalize=0,apad=whole_dur=%.3f[narr]",
			labels.String(), len(narrationInput), tl.Total))
		audioOut = "[narr]"

		if bgIndex != -1 {
			graph = append(graph, fmt.Sprintf("[%d:a]%s[bg_a]", bgIndex, backgroundVolume(job.BackgroundVolume, tl.Total)))
			graph = append(graph, "[narr][bg_a]amix=inputs=2:duration=first:dropout_transition=3:normalize=0[aout]")
			audioOut = "[aout]"
		}
	} else if bgIndex != -1 {
		graph = append(graph, fmt.Sprintf("[%d:a]%s,apad=whole_dur=%.3f[aout]",
			bgIndex, backgroundVolume(job.BackgroundVolume, tl.Total), tl.Total))
		audioOut = "[aout]"
	}

	if len(graph) > 0 {
		args = append(args, "-filter_complex", strings.Join(graph, ";"))
	}

	args = append(args, "-map", videoOut)
	if audioOut != "" {
		args = append(args, "-map", audioOut, "-c:a", "aac", "-b:a", "192k")
	}

	args = append(args, "-c:v", job.VideoEncoder, "-pix_fmt", "yuv420p")
	args = append(args, qualityArgs(job.VideoEncoder, job.Quality)...)
	args = append(args, "-t", fmt.Sprintf("%.3f", tl.Total), "-movflags", "+faststart", job.Output)
	return args, nil
}

func usesTransitions(job ConcatJob) bool {
	if job.TransitionType == "" || job.TransitionType == "none" {
		return false
	}
	for _, e := range job.Timeline.Entries[1:] {
		if e.Transition <= 0 {
			return false
		}
	}
	return true
}

// backgroundVolume fades the music in and out around the whole video.
func backgroundVolume(volume, total float64) string {
	fadeIn, fadeOut := 5.0, 5.0
	if total < fadeIn+fadeOut {
		fadeIn = total * 0.1
		fadeOut = total * 0.1
	}
	return fmt.Sprintf("volume='%f*(if(lte(t,%f), 0.1 + 0.9*(t/%f), if(gte(t, %f), (%f-t)/%f, 1.0)))':eval=frame",
		volume, fadeIn, fadeIn, total-fadeOut, total, fadeOut)
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
