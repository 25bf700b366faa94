// Package tts wraps external text-to-speech programs. Each backend writes an
// audio file and reports its measured duration; nothing else about the audio
// matters to the timeline.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ivlev/quickcut/internal/system"
)

var ErrUnknownMethod = errors.New("unknown tts method")

type Request struct {
	Text     string
	Language string
	Voice    string
	Speed    float64
}

type Result struct {
	AudioPath string
	Duration  float64
}

type Synthesizer interface {
	// Synthesize writes speech for req to outPath (or a sibling with the
	// backend's native extension) and returns where it went.
	Synthesize(ctx context.Context, req Request, outPath string) (Result, error)
	Name() string
}

// Runner executes an external program and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Prober measures an audio file in seconds.
type Prober func(ctx context.Context, path string) (float64, error)

func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// Backend holds what every command-line backend needs.
type Backend struct {
	Run   Runner
	Probe Prober
}

func (b Backend) withDefaults() Backend {
	if b.Run == nil {
		b.Run = ExecRunner
	}
	if b.Probe == nil {
		b.Probe = system.GetAudioDuration
	}
	return b
}

func (b Backend) result(ctx context.Context, path string) (Result, error) {
	d, err := b.Probe(ctx, path)
	if err != nil {
		return Result{}, err
	}
	return Result{AudioPath: path, Duration: d}, nil
}

// New selects a backend by method name. offline forces espeak.
func New(method string, offline bool, b Backend) (Synthesizer, error) {
	b = b.withDefaults()
	if offline {
		return &Espeak{Backend: b}, nil
	}
	switch strings.ToLower(method) {
	case "edge", "":
		return &Chain{Synthesizers: []Synthesizer{&Edge{Backend: b}, &Google{Backend: b}}}, nil
	case "gtts", "google":
		return &Google{Backend: b}, nil
	case "espeak", "pyttsx3", "offline":
		return &Espeak{Backend: b}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
}

// Chain tries synthesizers in order and returns the first success.
type Chain struct {
	Synthesizers []Synthesizer
	// OnFallback, if set, is told about every backend that failed.
	OnFallback func(name string, err error)
}

func (c *Chain) Name() string {
	names := make([]string, len(c.Synthesizers))
	for i, s := range c.Synthesizers {
		names[i] = s.Name()
	}
	return strings.Join(names, "+")
}

func (c *Chain) Synthesize(ctx context.Context, req Request, outPath string) (Result, error) {
	var errs []error
	for _, s := range c.Synthesizers {
		res, err := s.Synthesize(ctx, req, outPath)
		if err == nil {
			return res, nil
		}
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		if c.OnFallback != nil {
			c.OnFallback(s.Name(), err)
		}
	}
	return Result{}, errors.Join(errs...)
}

// EstimateDuration guesses narration length from the word count, 0.3s per
// word and at least a second, scaled by speed.
func EstimateDuration(text string, speed float64) float64 {
	d := float64(len(strings.Fields(text))) * 0.3
	if d < 1.0 {
		d = 1.0
	}
	if speed > 0 {
		d /= speed
	}
	return d
}
