// Package subtitle renders a timeline into SRT or WebVTT text.
//
// Cues follow the narration window of each slide, the same window the
// burned-in captions use, so the file and the video never disagree.
package subtitle

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/ivlev/quickcut/internal/source"
	"github.com/ivlev/quickcut/internal/timeline"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported subtitle format")
	ErrEmptyTimeline     = errors.New("empty timeline")
)

type Format string

const (
	FormatSRT Format = "srt"
	FormatVTT Format = "vtt"
)

// ParseFormat accepts "srt" or "vtt" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatSRT:
		return FormatSRT, nil
	case FormatVTT:
		return FormatVTT, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
}

// Cue is one timed caption.
type Cue struct {
	Sequence int
	Start    float64
	End      float64
	Text     string
}

// BuildCues pairs every timeline entry with the caption of its slide.
// Sequence numbers run 1..n whatever the slide indices are.
func BuildCues(tl *timeline.Timeline, slides []source.Slide) ([]Cue, error) {
	if tl == nil || len(tl.Entries) == 0 {
		return nil, ErrEmptyTimeline
	}

	captions := make(map[int]string, len(slides))
	for _, s := range slides {
		captions[s.Index] = s.Caption
	}

	cues := make([]Cue, 0, len(tl.Entries))
	for i, e := range tl.Entries {
		text, ok := captions[e.SlideIndex]
		if !ok {
			return nil, fmt.Errorf("no caption for slide %d", e.SlideIndex)
		}
		cues = append(cues, Cue{
			Sequence: i + 1,
			Start:    e.NarrationStart,
			End:      e.NarrationEnd,
			Text:     text,
		})
	}
	return cues, nil
}

// Render serializes cues. VTT output starts with the WEBVTT header and keeps
// the sequence number as the cue identifier.
func Render(cues []Cue, format Format) (string, error) {
	if format != FormatSRT && format != FormatVTT {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
	if len(cues) == 0 {
		return "", ErrEmptyTimeline
	}

	sep := ','
	var b strings.Builder
	if format == FormatVTT {
		sep = '.'
		b.WriteString("WEBVTT\n\n")
	}

	for _, c := range cues {
		text := cueText(c.Text)
		if format == FormatVTT {
			text = strings.ReplaceAll(text, "-->", "->")
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n", c.Sequence, Timestamp(c.Start, sep), Timestamp(c.End, sep), text)
	}
	return b.String(), nil
}

// Generate builds and renders cues in one step.
func Generate(tl *timeline.Timeline, slides []source.Slide, format Format) (string, error) {
	if format != FormatSRT && format != FormatVTT {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
	cues, err := BuildCues(tl, slides)
	if err != nil {
		return "", err
	}
	return Render(cues, format)
}

// Timestamp formats seconds as HH:MM:SS<sep>mmm. Milliseconds are floored so a
// cue never ends after its narration; hours are not capped at 23.
func Timestamp(seconds float64, sep rune) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	// 1e-6 absorbs binary representation error such as 61.234*1000 = 61233.99999.
	total := int64(math.Floor(seconds*1000 + 1e-6))
	ms := total % 1000
	s := total / 1000
	return fmt.Sprintf("%02d:%02d:%02d%c%03d", s/3600, (s/60)%60, s%60, sep, ms)
}

// cueText keeps line breaks but drops blank lines, which would end the cue.
func cueText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// PathFor returns the subtitle path next to videoPath: same stem, format as
// extension.
func PathFor(videoPath string, format Format) string {
	return strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "." + string(format)
}

// WriteFile writes content next to videoPath and returns the path written.
func WriteFile(videoPath string, format Format, content string) (string, error) {
	path := PathFor(videoPath, format)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("write subtitles %s: %w", path, err)
	}
	return path, nil
}
