// Package manifest records what a run produced: the slides, their narration
// and the schedule built from them.
package manifest

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ivlev/quickcut/internal/source"
	"github.com/ivlev/quickcut/internal/timeline"
)

const Version = "1.0"

var ErrIncomplete = errors.New("manifest incomplete")

// Manifest is written next to the rendered video.
type Manifest struct {
	Version  string                `yaml:"version"`
	RunID    string                `yaml:"run_id"`
	Created  time.Time             `yaml:"created"`
	Video    string                `yaml:"video"`
	Language string                `yaml:"language"`
	Backend  string                `yaml:"backend"`
	Timing   timeline.TimingParams `yaml:"timing"`
	Slides   []Slide               `yaml:"slides"`
	Timeline *timeline.Timeline    `yaml:"timeline"`
}

// Slide is one slide with its narration.
type Slide struct {
	Index     int     `yaml:"index"`
	Name      string  `yaml:"name"`
	Image     string  `yaml:"image"`
	Caption   string  `yaml:"caption"`
	Audio     string  `yaml:"audio,omitempty"`
	Narration float64 `yaml:"narration"` // seconds
}

// New assembles a manifest for a finished schedule.
func New(video string, slides []source.Slide, audio map[int]string, durations map[int]float64, p timeline.TimingParams, tl *timeline.Timeline) *Manifest {
	m := &Manifest{
		Version:  Version,
		RunID:    uuid.NewString(),
		Created:  time.Now().UTC().Truncate(time.Second),
		Video:    video,
		Timing:   p,
		Timeline: tl,
		Slides:   make([]Slide, 0, len(slides)),
	}
	for _, s := range slides {
		m.Slides = append(m.Slides, Slide{
			Index:     s.Index,
			Name:      s.BaseName,
			Image:     s.ImagePath,
			Caption:   s.Caption,
			Audio:     audio[s.Index],
			Narration: durations[s.Index],
		})
	}
	return m
}

// SourceSlides converts the recorded slides back into pipeline slides.
func (m *Manifest) SourceSlides() []source.Slide {
	out := make([]source.Slide, len(m.Slides))
	for i, s := range m.Slides {
		out[i] = source.Slide{Index: s.Index, BaseName: s.Name, ImagePath: s.Image, Caption: s.Caption}
	}
	return out
}

// Durations returns the measured narration lengths keyed by slide index.
func (m *Manifest) Durations() map[int]float64 {
	d := make(map[int]float64, len(m.Slides))
	for _, s := range m.Slides {
		d[s.Index] = s.Narration
	}
	return d
}

// Rebuild schedules the recorded slides again, optionally with new timing.
func (m *Manifest) Rebuild(p *timeline.TimingParams) (*timeline.Timeline, error) {
	if len(m.Slides) == 0 {
		return nil, fmt.Errorf("%w: no slides", ErrIncomplete)
	}
	timing := m.Timing
	if p != nil {
		timing = *p
	}
	return timeline.Build(m.SourceSlides(), m.Durations(), timing)
}
