package subtitle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ivlev/quickcut/internal/source"
	"github.com/ivlev/quickcut/internal/timeline"
)

func TestTimestamp(t *testing.T) {
	tests := []struct {
		seconds float64
		sep     rune
		want    string
	}{
		{0, ',', "00:00:00,000"},
		{61.234, ',', "00:01:01,234"},
		{63.5, ',', "00:01:03,500"},
		{61.234, '.', "00:01:01.234"},
		{1.0009, ',', "00:00:01,000"},
		{3599.9999, ',', "00:59:59,999"},
		{90061.5, '.', "25:01:01.500"},
		{-3, ',', "00:00:00,000"},
	}

	for _, tt := range tests {
		if got := Timestamp(tt.seconds, tt.sep); got != tt.want {
			t.Errorf("Timestamp(%v) = %s, expected %s", tt.seconds, got, tt.want)
		}
	}
}

func TestGenerateSRTAndVTT(t *testing.T) {
	tl := &timeline.Timeline{
		Entries: []timeline.Entry{
			{SlideIndex: 0, NarrationStart: 61.234, NarrationEnd: 63.5, SlideStart: 61.234, SlideEnd: 64.5},
		},
		Total: 64.5,
	}
	slides := []source.Slide{{Index: 0, Caption: "Hello"}}

	srt, err := Generate(tl, slides, FormatSRT)
	if err != nil {
		t.Fatalf("Generate srt failed: %v", err)
	}
	if srt != "1\n00:01:01,234 --> 00:01:03,500\nHello\n\n" {
		t.Errorf("Unexpected SRT output: %q", srt)
	}

	vtt, err := Generate(tl, slides, FormatVTT)
	if err != nil {
		t.Fatalf("Generate vtt failed: %v", err)
	}
	if !strings.HasPrefix(vtt, "WEBVTT\n\n") {
		t.Errorf("VTT output must start with the header: %q", vtt)
	}
	if !strings.Contains(vtt, "00:01:01.234 --> 00:01:03.500") {
		t.Errorf("Unexpected VTT output: %q", vtt)
	}
}

func TestSequenceNumbersAreContiguous(t *testing.T) {
	tl := &timeline.Timeline{
		Entries: []timeline.Entry{
			{SlideIndex: 4, NarrationStart: 0, NarrationEnd: 1},
			{SlideIndex: 7, NarrationStart: 2, NarrationEnd: 3},
			{SlideIndex: 9, NarrationStart: 4, NarrationEnd: 5},
		},
	}
	slides := []source.Slide{{Index: 4, Caption: "a"}, {Index: 7, Caption: "b"}, {Index: 9, Caption: "c"}}

	cues, err := BuildCues(tl, slides)
	if err != nil {
		t.Fatalf("BuildCues failed: %v", err)
	}
	for i, c := range cues {
		if c.Sequence != i+1 {
			t.Errorf("Cue %d has sequence %d", i, c.Sequence)
		}
	}

	out, err := Render(cues, FormatSRT)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	blocks := strings.Split(strings.TrimSpace(out), "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("Expected 3 blocks, got %d", len(blocks))
	}
	for i, block := range blocks {
		first := strings.SplitN(block, "\n", 2)[0]
		if want := string(rune('1' + i)); first != want {
			t.Errorf("Block %d starts with %q, expected %q", i, first, want)
		}
	}
}

func TestMultilineCaption(t *testing.T) {
	cues := []Cue{{Sequence: 1, Start: 0, End: 2, Text: "line one\r\n\r\nline two\n"}}

	out, err := Render(cues, FormatSRT)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "1\n00:00:00,000 --> 00:00:02,000\nline one\nline two\n\n"
	if out != want {
		t.Errorf("Expected %q, got %q", want, out)
	}
}

func TestRenderErrors(t *testing.T) {
	cues := []Cue{{Sequence: 1, Start: 0, End: 1, Text: "x"}}
	if _, err := Render(cues, Format("ass")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Render(nil, FormatSRT); !errors.Is(err, ErrEmptyTimeline) {
		t.Errorf("Expected ErrEmptyTimeline, got %v", err)
	}
	if _, err := Generate(&timeline.Timeline{}, nil, FormatVTT); !errors.Is(err, ErrEmptyTimeline) {
		t.Errorf("Expected ErrEmptyTimeline, got %v", err)
	}
	if _, err := Generate(nil, nil, Format("txt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"srt", FormatSRT, false},
		{"VTT", FormatVTT, false},
		{" srt ", FormatSRT, false},
		{"ass", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrUnsupportedFormat) {
				t.Errorf("ParseFormat(%q): expected ErrUnsupportedFormat, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestWriteFileNextToVideo(t *testing.T) {
	dir := t.TempDir()
	video := filepath.Join(dir, "talk.mp4")

	path, err := WriteFile(video, FormatVTT, "WEBVTT\n\n")
	if err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if path != filepath.Join(dir, "talk.vtt") {
		t.Errorf("Unexpected path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "WEBVTT\n\n" {
		t.Errorf("Unexpected content %q, %v", data, err)
	}
}

func TestCuesMatchTimelineEnds(t *testing.T) {
	slides := []source.Slide{{Index: 0, Caption: "a"}, {Index: 1, Caption: "b"}}
	tl, err := timeline.Build(slides, map[int]float64{0: 2.0, 1: 3.0}, timeline.TimingParams{PauseSeconds: 1.0, TransitionSeconds: 0.5})
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	out, err := Generate(tl, slides, FormatSRT)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !strings.Contains(out, "00:00:02,500 --> 00:00:05,500") {
		t.Errorf("Second cue should follow the overlapped schedule: %q", out)
	}
}
