package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/quickcut/internal/config"
	"github.com/ivlev/quickcut/internal/effects"
	"github.com/ivlev/quickcut/internal/manifest"
	"github.com/ivlev/quickcut/internal/source"
	"github.com/ivlev/quickcut/internal/subtitle"
	"github.com/ivlev/quickcut/internal/system"
	"github.com/ivlev/quickcut/internal/timeline"
	"github.com/ivlev/quickcut/internal/tts"
	"github.com/ivlev/quickcut/internal/video"
)

var ErrOutputLocked = errors.New("output is being written by another run")

type VideoProject struct {
	Config  *config.Config
	Synth   tts.Synthesizer
	Encoder video.VideoEncoder
	Effect  effects.Effect
	Logger  *slog.Logger
	// Out receives the human progress lines.
	Out io.Writer
	// HasFilter reports ffmpeg filter support; defaults to system.CheckFilterSupport.
	HasFilter func(name string) bool

	tempDir string
	outMu   sync.Mutex
}

func NewVideoProject(cfg *config.Config, synth tts.Synthesizer, ve video.VideoEncoder, eff effects.Effect, logger *slog.Logger) *VideoProject {
	if logger == nil {
		logger = slog.Default()
	}
	return &VideoProject{
		Config:    cfg,
		Synth:     synth,
		Encoder:   ve,
		Effect:    eff,
		Logger:    logger,
		Out:       os.Stdout,
		HasFilter: system.CheckFilterSupport,
	}
}

type RenderResult struct {
	Index int
	Image *image.RGBA
}

// Run builds the narrated video described by Config.
func (p *VideoProject) Run(ctx context.Context) (*Report, error) {
	startTime := time.Now()
	cfg := p.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.VideoEncoder == "" {
		cfg.VideoEncoder = system.GetBestH264Encoder()
	}
	if cfg.Quality <= 0 {
		cfg.Quality = system.DefaultQuality(cfg.VideoEncoder)
	}

	pairing, err := source.PairSlides(cfg.InputDir)
	if err != nil {
		return nil, err
	}
	report := &Report{Slides: pairing.Slides, Skipped: pairing.Skipped, Output: cfg.OutputVideo}
	for _, name := range pairing.Skipped {
		p.Logger.Warn("text file has no matching image", "file", name)
	}

	if dir := filepath.Dir(cfg.OutputVideo); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}
	lock := flock.New(cfg.OutputVideo + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock output: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrOutputLocked, cfg.OutputVideo)
	}
	defer func() {
		lock.Unlock()
		os.Remove(lock.Path())
	}()

	p.tempDir, err = os.MkdirTemp("", "quickcut_"+uuid.NewString()[:8]+"_")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(p.tempDir)

	slides := pairing.Slides
	p.printf("--- [QUICKCUT] ---\n")
	p.printf("[*] Source: %s | Slides: %d | Skipped: %d\n", cfg.InputDir, len(slides), len(pairing.Skipped))
	p.printf("[*] Resolution: %dx%d @ %d FPS | Voice: %s (%s)\n", cfg.Width, cfg.Height, cfg.FPS, p.Synth.Name(), cfg.Language)
	p.printf("-----------------------------\n")

	// 1. Narration, all slides before any scheduling.
	narrateStart := time.Now()
	narration, err := p.Narrate(ctx, slides)
	if err != nil {
		return nil, err
	}
	report.NarrateTime = time.Since(narrateStart)

	durations := make(map[int]float64, len(narration))
	for idx, res := range narration {
		durations[idx] = res.Duration
	}

	// 2. Timeline, one sequential pass.
	tl, err := timeline.Build(slides, durations, cfg.TimingParams())
	if err != nil {
		return nil, err
	}
	report.Timeline = tl
	for _, d := range tl.Diagnostics {
		p.Logger.Warn("transition shortened", "slide", d.SlideIndex, "requested", d.Requested, "applied", d.Applied)
	}

	// 3. Subtitles never abort the video.
	if cfg.GenerateSubtitles {
		report.SubtitlePath = p.writeSubtitles(tl, slides)
	}

	// 4. Segments.
	encodeStart := time.Now()
	segments, err := p.encodeSegments(ctx, slides, tl)
	if err != nil {
		return nil, err
	}
	report.EncodeTime = time.Since(encodeStart)

	// 5. Final assembly.
	p.printf("[*] Assembling final video (%.2fs)...\n", tl.Total)
	concatStart := time.Now()
	audio := make([]string, len(slides))
	for i, s := range slides {
		audio[i] = narration[s.Index].AudioPath
	}
	err = p.Encoder.Concatenate(ctx, video.ConcatJob{
		Segments:         segments,
		Narration:        audio,
		Timeline:         tl,
		Output:           cfg.OutputVideo,
		TmpDir:           p.tempDir,
		TransitionType:   cfg.TransitionType,
		BackgroundAudio:  cfg.MusicPath,
		BackgroundVolume: cfg.MusicVolume,
		VideoEncoder:     cfg.VideoEncoder,
		Quality:          cfg.Quality,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble final video: %w", err)
	}
	report.ConcatTime = time.Since(concatStart)

	if cfg.ManifestPath != "" {
		if err := p.writeManifest(slides, narration, durations, tl); err != nil {
			p.Logger.Warn("manifest not written", "path", cfg.ManifestPath, "error", err)
		} else {
			report.ManifestPath = cfg.ManifestPath
		}
	}

	report.Elapsed = time.Since(startTime)
	if cfg.ShowStats {
		p.logStats(report)
	}
	return report, nil
}

// Narrate synthesizes every caption concurrently and returns the results keyed
// by slide index. Slides with an empty caption stay silent for the estimated
// length of an empty narration.
func (p *VideoProject) Narrate(ctx context.Context, slides []source.Slide) (map[int]tts.Result, error) {
	cfg := p.Config
	results := make([]tts.Result, len(slides))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers(len(slides)))

	for i, slide := range slides {
		i, slide := i, slide
		g.Go(func() error {
			if strings.TrimSpace(slide.Caption) == "" {
				results[i] = tts.Result{Duration: tts.EstimateDuration("", cfg.Speed)}
				p.Logger.Warn("empty caption, slide stays silent", "slide", slide.BaseName)
				return nil
			}
			req := tts.Request{
				Text:     slide.Caption,
				Language: cfg.Language,
				Voice:    cfg.TTSVoice,
				Speed:    cfg.Speed,
			}
			outPath := filepath.Join(p.scratchDir(), fmt.Sprintf("narration_%04d.mp3", slide.Index))
			res, err := p.Synth.Synthesize(ctx, req, outPath)
			if err != nil {
				return fmt.Errorf("narrate slide %s: %w", slide.BaseName, err)
			}
			results[i] = res
			p.printf("[>] Narrated: %s (%.2fs)\n", slide.BaseName, res.Duration)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[int]tts.Result, len(slides))
	for i, slide := range slides {
		out[slide.Index] = results[i]
	}
	return out, nil
}

// encodeSegments renders and encodes one silent segment per timeline entry.
// Rendering (CPU) and encoding (ffmpeg) run in separate pools joined by a
// channel.
func (p *VideoProject) encodeSegments(ctx context.Context, slides []source.Slide, tl *timeline.Timeline) ([]string, error) {
	cfg := p.Config
	pageCount := len(slides)
	src := source.NewSlideSource(slides)
	defer src.Close()

	burn := cfg.BurnCaptions
	if burn && !p.hasFilter("drawtext") {
		p.Logger.Warn("ffmpeg has no drawtext filter, captions are not burned in")
		burn = false
	}
	effect := p.Effect
	if effect == nil {
		effect = effects.New(cfg.ZoomMode)
	}
	if burn {
		effect = &effects.CaptionEffect{Base: effect}
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan int)
	renderResults := make(chan *RenderResult, pageCount)
	results := make([]string, pageCount)

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < pageCount; i++ {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	// 1. Render pool.
	var wgRender sync.WaitGroup
	numRenderWorkers := p.workers(pageCount)
	for w := 0; w < numRenderWorkers; w++ {
		wgRender.Add(1)
		g.Go(func() error {
			defer wgRender.Done()
			for i := range jobs {
				img, err := src.RenderPage(i, cfg.Width, cfg.Height)
				if err != nil {
					return fmt.Errorf("render slide %s: %w", slides[i].BaseName, err)
				}
				renderResults <- &RenderResult{Index: i, Image: img}
			}
			return nil
		})
	}
	g.Go(func() error {
		wgRender.Wait()
		close(renderResults)
		return nil
	})

	// 2. Encode pool. Four parallel encoders keep GPUs from running out of
	// sessions.
	numEncodeWorkers := 4
	if numEncodeWorkers > pageCount {
		numEncodeWorkers = pageCount
	}
	for w := 0; w < numEncodeWorkers; w++ {
		g.Go(func() error {
			for res := range renderResults {
				if ctx.Err() != nil {
					system.PutImage(res.Image)
					continue
				}
				segPath, err := p.encodeOne(ctx, effect, burn, slides, tl, res)
				system.PutImage(res.Image)
				if err != nil {
					return err
				}
				results[res.Index] = segPath
				p.printf("[>] Ready: %d/%d\n", res.Index+1, pageCount)
			}
			return ctx.Err()
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (p *VideoProject) encodeOne(ctx context.Context, effect effects.Effect, burn bool, slides []source.Slide, tl *timeline.Timeline, res *RenderResult) (string, error) {
	cfg := p.Config
	i := res.Index
	entry := tl.Entries[i]

	// The zoom settles before the outgoing transition.
	fade := 0.0
	if i+1 < len(tl.Entries) {
		fade = tl.Entries[i+1].Transition
	}

	params := config.SegmentParams{
		Width:        cfg.Width,
		Height:       cfg.Height,
		FPS:          cfg.FPS,
		Duration:     entry.Duration(),
		ZoomMode:     cfg.ZoomMode,
		ZoomSpeed:    cfg.ZoomSpeed,
		FadeDuration: fade,
		PageIndex:    i,
	}

	if burn && strings.TrimSpace(slides[i].Caption) != "" {
		captionPath := filepath.Join(p.scratchDir(), fmt.Sprintf("caption_%04d.txt", i))
		text := effects.WrapCaption(slides[i].Caption, cfg.CaptionFontSize, cfg.Width)
		if err := os.WriteFile(captionPath, []byte(text), 0644); err != nil {
			return "", fmt.Errorf("write caption: %w", err)
		}
		params.CaptionFile = captionPath
		params.CaptionStart = entry.NarrationStart - entry.SlideStart
		params.CaptionEnd = entry.NarrationEnd - entry.SlideStart
		params.CaptionFontSize = cfg.CaptionFontSize
		params.CaptionPosition = cfg.CaptionPosition
		params.CaptionFont = cfg.CaptionFont
	}
	params.Filter = effect.GenerateFilter(params)

	segPath := filepath.Join(p.scratchDir(), fmt.Sprintf("s%d.mp4", i))
	if err := p.Encoder.EncodeSegment(ctx, res.Image, segPath, params, cfg.VideoEncoder, cfg.Quality); err != nil {
		return "", fmt.Errorf("encode slide %s: %w", slides[i].BaseName, err)
	}
	return segPath, nil
}

func (p *VideoProject) writeSubtitles(tl *timeline.Timeline, slides []source.Slide) string {
	format, err := subtitle.ParseFormat(p.Config.SubtitleFormat)
	if err != nil {
		p.Logger.Warn("subtitles skipped", "error", err)
		return ""
	}
	content, err := subtitle.Generate(tl, slides, format)
	if err != nil {
		p.Logger.Warn("subtitles skipped", "error", err)
		return ""
	}
	path, err := subtitle.WriteFile(p.Config.OutputVideo, format, content)
	if err != nil {
		p.Logger.Warn("subtitles skipped", "error", err)
		return ""
	}
	p.printf("[*] Subtitles: %s\n", path)
	return path
}

func (p *VideoProject) writeManifest(slides []source.Slide, narration map[int]tts.Result, durations map[int]float64, tl *timeline.Timeline) error {
	// Audio inside the scratch directory is gone after the run.
	audio := make(map[int]string, len(narration))
	for idx, res := range narration {
		if res.AudioPath != "" && !strings.HasPrefix(res.AudioPath, p.tempDir) {
			audio[idx] = res.AudioPath
		}
	}
	m := manifest.New(p.Config.OutputVideo, slides, audio, durations, p.Config.TimingParams(), tl)
	m.Language = p.Config.Language
	m.Backend = p.Synth.Name()
	if dir := filepath.Dir(p.Config.ManifestPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create manifest directory: %w", err)
		}
	}
	return manifest.Write(m, p.Config.ManifestPath)
}

func (p *VideoProject) workers(jobs int) int {
	n := p.Config.Workers
	if n <= 0 {
		n = system.RecommendedWorkers()
	}
	if n > jobs {
		n = jobs
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (p *VideoProject) hasFilter(name string) bool {
	if p.HasFilter == nil {
		return system.CheckFilterSupport(name)
	}
	return p.HasFilter(name)
}

func (p *VideoProject) scratchDir() string {
	if p.tempDir == "" {
		return os.TempDir()
	}
	return p.tempDir
}

func (p *VideoProject) printf(format string, args ...any) {
	if p.Out == nil {
		return
	}
	p.outMu.Lock()
	defer p.outMu.Unlock()
	fmt.Fprintf(p.Out, format, args...)
}
