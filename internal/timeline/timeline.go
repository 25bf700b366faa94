// Package timeline turns per-slide narration durations into the absolute
// schedule shared by the video compositor and the subtitle writer.
//
// Each slide shows for its narration plus the configured pause. Adjacent
// slides overlap by the transition length, except that an overlap never
// reaches back past the start of the previous slide: such boundaries are
// clamped and reported as a Diagnostic.
package timeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/ivlev/quickcut/internal/source"
)

var (
	ErrInvalidTimingParams      = errors.New("invalid timing params")
	ErrMissingNarrationDuration = errors.New("missing narration duration")
	ErrInvalidNarrationDuration = errors.New("invalid narration duration")
	ErrNoEntries                = errors.New("timeline has no slides")
)

// MissingNarrationError names the slide that reached the timeline without a
// synthesized narration.
type MissingNarrationError struct {
	SlideIndex int
}

func (e *MissingNarrationError) Error() string {
	return fmt.Sprintf("%v for slide %d", ErrMissingNarrationDuration, e.SlideIndex)
}

func (e *MissingNarrationError) Unwrap() error {
	return ErrMissingNarrationDuration
}

// TimingParams are the run-wide pause and transition lengths in seconds.
type TimingParams struct {
	PauseSeconds      float64 `yaml:"pause_seconds"`
	TransitionSeconds float64 `yaml:"transition_seconds"`
}

func (p TimingParams) Validate() error {
	if !validSeconds(p.PauseSeconds) {
		return fmt.Errorf("%w: pause %v", ErrInvalidTimingParams, p.PauseSeconds)
	}
	if !validSeconds(p.TransitionSeconds) {
		return fmt.Errorf("%w: transition %v", ErrInvalidTimingParams, p.TransitionSeconds)
	}
	return nil
}

func validSeconds(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Entry is the schedule of one slide in absolute seconds.
type Entry struct {
	SlideIndex     int     `yaml:"slide_index"`
	NarrationStart float64 `yaml:"narration_start"`
	NarrationEnd   float64 `yaml:"narration_end"`
	SlideStart     float64 `yaml:"slide_start"`
	SlideEnd       float64 `yaml:"slide_end"`
	// Transition is the overlap with the previous slide, 0 for the first one.
	Transition float64 `yaml:"transition"`
}

// Duration is how long the slide is visible, overlaps included.
func (e Entry) Duration() float64 {
	return e.SlideEnd - e.SlideStart
}

// Diagnostic records a boundary whose transition was shortened.
type Diagnostic struct {
	SlideIndex int     `yaml:"slide_index"`
	Requested  float64 `yaml:"requested"`
	Applied    float64 `yaml:"applied"`
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("transition into slide %d shortened from %.3fs to %.3fs", d.SlideIndex, d.Requested, d.Applied)
}

type Timeline struct {
	Entries     []Entry      `yaml:"entries"`
	Total       float64      `yaml:"total"`
	Diagnostics []Diagnostic `yaml:"diagnostics,omitempty"`
}

// Build schedules slides in order. durations is keyed by Slide.Index and must
// hold a positive value for every slide.
func Build(slides []source.Slide, durations map[int]float64, p TimingParams) (*Timeline, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if len(slides) == 0 {
		return nil, ErrNoEntries
	}

	tl := &Timeline{Entries: make([]Entry, 0, len(slides))}
	for i, slide := range slides {
		d, ok := durations[slide.Index]
		if !ok {
			return nil, &MissingNarrationError{SlideIndex: slide.Index}
		}
		if !(d > 0) || math.IsInf(d, 0) {
			return nil, fmt.Errorf("%w: slide %d has %v", ErrInvalidNarrationDuration, slide.Index, d)
		}

		e := Entry{SlideIndex: slide.Index}
		if i > 0 {
			prev := tl.Entries[i-1]
			applied := p.TransitionSeconds
			if limit := prev.Duration(); applied > limit {
				applied = limit
				tl.Diagnostics = append(tl.Diagnostics, Diagnostic{
					SlideIndex: slide.Index,
					Requested:  p.TransitionSeconds,
					Applied:    applied,
				})
			}
			e.SlideStart = math.Max(0, prev.SlideEnd-applied)
			e.Transition = applied
		}
		e.NarrationStart = e.SlideStart
		e.NarrationEnd = e.NarrationStart + d
		e.SlideEnd = e.NarrationEnd + p.PauseSeconds
		tl.Entries = append(tl.Entries, e)
	}

	tl.Total = tl.Entries[len(tl.Entries)-1].SlideEnd
	return tl, nil
}

// Offsets returns the absolute start of every slide, the xfade offsets of the
// final concatenation.
func (tl *Timeline) Offsets() []float64 {
	offsets := make([]float64, len(tl.Entries))
	for i, e := range tl.Entries {
		offsets[i] = e.SlideStart
	}
	return offsets
}
