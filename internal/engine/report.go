package engine

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ivlev/quickcut/internal/config"
	"github.com/ivlev/quickcut/internal/source"
	"github.com/ivlev/quickcut/internal/timeline"
	"github.com/ivlev/quickcut/internal/tts"
)

// Report collects what a run produced and the non-fatal problems it met.
type Report struct {
	Slides       []source.Slide
	Skipped      []string
	Timeline     *timeline.Timeline
	Output       string
	SubtitlePath string
	ManifestPath string

	Elapsed     time.Duration
	NarrateTime time.Duration
	EncodeTime  time.Duration
	ConcatTime  time.Duration
}

// PrintWarnings lists skipped text files and shortened transitions.
func (r *Report) PrintWarnings(w io.Writer) {
	for _, name := range r.Skipped {
		fmt.Fprintf(w, "[!] Skipped %s: no .jpg, .jpeg or .png with the same name\n", name)
	}
	if r.Timeline == nil {
		return
	}
	for _, d := range r.Timeline.Diagnostics {
		fmt.Fprintf(w, "[!] %s\n", d)
	}
}

func (p *VideoProject) logStats(r *Report) {
	slides := len(r.Slides)
	fps := float64(slides) / r.Elapsed.Seconds()

	p.printf(
		"--- [PERFORMANCE REPORT] ---\n"+
			"Build: %s\n"+
			"Total Time: %.2fs\n"+
			"Narration (TTS): %.2fs\n"+
			"Encoding (GPU/CPU): %.2fs\n"+
			"Concatenation: %.2fs\n"+
			"Slides per second: %.2f\n"+
			"----------------------------\n",
		p.Config.BuildVersion, r.Elapsed.Seconds(), r.NarrateTime.Seconds(), r.EncodeTime.Seconds(), r.ConcatTime.Seconds(), fps,
	)

	logEntry := fmt.Sprintf("[%s] Build: %s | Input: %s | Slides: %d | Video: %.2fs | Total: %.2fs | TTS: %.2fs | Encode: %.2fs\n",
		time.Now().Format("2006-01-02 15:04:05"),
		p.Config.BuildVersion,
		filepath.Base(p.Config.InputDir),
		slides,
		r.Timeline.Total,
		r.Elapsed.Seconds(),
		r.NarrateTime.Seconds(),
		r.EncodeTime.Seconds(),
	)

	logPath := filepath.Join(filepath.Dir(p.Config.OutputVideo), "benchmark.log")
	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		p.Logger.Warn("benchmark log not written", "path", logPath, "error", err)
		return
	}
	defer f.Close()
	f.WriteString(logEntry)
}

// Plan pairs the slides and schedules them with word-count estimates instead
// of synthesized narration. Nothing is written.
func Plan(cfg *config.Config) (*Report, map[int]float64, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	pairing, err := source.PairSlides(cfg.InputDir)
	if err != nil {
		return nil, nil, err
	}

	estimates := make(map[int]float64, len(pairing.Slides))
	for _, s := range pairing.Slides {
		estimates[s.Index] = tts.EstimateDuration(s.Caption, cfg.Speed)
	}

	tl, err := timeline.Build(pairing.Slides, estimates, cfg.TimingParams())
	if err != nil {
		return nil, nil, err
	}
	return &Report{
		Slides:   pairing.Slides,
		Skipped:  pairing.Skipped,
		Timeline: tl,
		Output:   cfg.OutputVideo,
	}, estimates, nil
}
