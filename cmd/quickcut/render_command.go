package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ivlev/quickcut/internal/config"
	"github.com/ivlev/quickcut/internal/effects"
	"github.com/ivlev/quickcut/internal/engine"
	"github.com/ivlev/quickcut/internal/tts"
	"github.com/ivlev/quickcut/internal/ttscache"
	"github.com/ivlev/quickcut/internal/video"
)

// runFlags mirrors the Config fields settable from the command line. Only
// flags the user actually passed override the loaded configuration.
type runFlags struct {
	output         string
	width, height  int
	fps, workers   int
	pause          float64
	transition     float64
	transitionType string
	zoomMode       string
	zoomSpeed      float64
	language       string
	speed          float64
	ttsMethod      string
	voice          string
	offline        bool
	burn           bool
	fontSize       int
	position       string
	font           string
	subtitles      bool
	subtitleFormat string
	music          string
	musicVolume    float64
	manifest       string
	cacheDir       string
	quality        int
	stats          bool
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	d := config.Default()
	fs.StringVarP(&f.output, "output", "o", "", "Output video (default output/<input>_<timestamp>.mp4)")
	fs.IntVar(&f.width, "width", d.Width, "Video width")
	fs.IntVar(&f.height, "height", d.Height, "Video height")
	fs.IntVar(&f.fps, "fps", d.FPS, "Frames per second")
	fs.IntVar(&f.workers, "workers", 0, "Parallel narration and render workers (0 = by CPU and memory)")
	fs.Float64Var(&f.pause, "pause", d.Pause, "Silence after each narration (seconds)")
	fs.Float64Var(&f.transition, "transition", d.Transition, "Crossfade between slides (seconds)")
	fs.StringVar(&f.transitionType, "transition-type", d.TransitionType, "xfade transition: fade, wipeleft, slideup, dissolve, none")
	fs.StringVar(&f.zoomMode, "zoom-mode", d.ZoomMode, "Camera: none, center, top-left, top-right, bottom-left, bottom-right, random")
	fs.Float64Var(&f.zoomSpeed, "zoom-speed", d.ZoomSpeed, "Zoom speed per frame")
	fs.StringVarP(&f.language, "lang", "l", d.Language, "Narration language (see 'quickcut languages')")
	fs.Float64Var(&f.speed, "speed", d.Speed, "Speech speed factor")
	fs.StringVar(&f.ttsMethod, "tts", d.TTSMethod, "Speech backend: edge, gtts, espeak")
	fs.StringVar(&f.voice, "voice", "", "Edge voice (default: first voice of the language)")
	fs.BoolVar(&f.offline, "offline-tts", false, "Force the offline espeak backend")
	fs.BoolVar(&f.burn, "captions", false, "Burn captions into the video")
	fs.IntVar(&f.fontSize, "font-size", d.CaptionFontSize, "Caption font size")
	fs.StringVar(&f.position, "caption-position", d.CaptionPosition, "Caption position: top, middle, bottom")
	fs.StringVar(&f.font, "font", "", "Caption font name or font file")
	fs.BoolVar(&f.subtitles, "subtitles", false, "Write a subtitle file next to the video")
	fs.StringVar(&f.subtitleFormat, "subtitle-format", d.SubtitleFormat, "Subtitle format: srt, vtt")
	fs.StringVar(&f.music, "music", "", "Background music, looped under the narration")
	fs.Float64Var(&f.musicVolume, "music-volume", d.MusicVolume, "Background music volume")
	fs.StringVar(&f.manifest, "manifest", "", "Write a run manifest (YAML) to this path")
	fs.StringVar(&f.cacheDir, "cache-dir", "", "Reuse narration from this cache directory")
	fs.IntVar(&f.quality, "quality", 0, "Quality (0 = auto; x264 CRF, VideoToolbox bitrate = Q*100 kbit/s)")
	fs.BoolVar(&f.stats, "stats", false, "Print a performance report")
}

func (f *runFlags) apply(fs *pflag.FlagSet, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("output", func() { cfg.OutputVideo = f.output })
	set("width", func() { cfg.Width = f.width })
	set("height", func() { cfg.Height = f.height })
	set("fps", func() { cfg.FPS = f.fps })
	set("workers", func() { cfg.Workers = f.workers })
	set("pause", func() { cfg.Pause = f.pause })
	set("transition", func() { cfg.Transition = f.transition })
	set("transition-type", func() { cfg.TransitionType = f.transitionType })
	set("zoom-mode", func() { cfg.ZoomMode = f.zoomMode })
	set("zoom-speed", func() { cfg.ZoomSpeed = f.zoomSpeed })
	set("lang", func() { cfg.Language = f.language })
	set("speed", func() { cfg.Speed = f.speed })
	set("tts", func() { cfg.TTSMethod = f.ttsMethod })
	set("voice", func() { cfg.TTSVoice = f.voice })
	set("offline-tts", func() { cfg.OfflineTTS = f.offline })
	set("captions", func() { cfg.BurnCaptions = f.burn })
	set("font-size", func() { cfg.CaptionFontSize = f.fontSize })
	set("caption-position", func() { cfg.CaptionPosition = f.position })
	set("font", func() { cfg.CaptionFont = f.font })
	set("subtitles", func() { cfg.GenerateSubtitles = f.subtitles })
	set("subtitle-format", func() { cfg.SubtitleFormat = f.subtitleFormat })
	set("music", func() { cfg.MusicPath = f.music })
	set("music-volume", func() { cfg.MusicVolume = f.musicVolume })
	set("manifest", func() { cfg.ManifestPath = f.manifest })
	set("cache-dir", func() { cfg.CacheDir = f.cacheDir })
	set("quality", func() { cfg.Quality = f.quality })
	set("stats", func() { cfg.ShowStats = f.stats })
}

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "render <input-dir>",
		Short: "Narrate every slide and render the video",
		Long: "Pairs every {name}.txt in the input directory with {name}.jpg, .jpeg or .png,\n" +
			"narrates the text and renders one slide per caption in natural order.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			if len(args) == 1 {
				cfg.InputDir = args[0]
			}
			if cfg.InputDir == "" {
				return fmt.Errorf("input directory is required. Example: quickcut render ./slides")
			}
			flags.apply(cmd.Flags(), cfg)
			if cfg.OutputVideo == "" {
				cfg.OutputVideo = defaultOutputPath(cfg.InputDir, time.Now())
			}
			if cfg.Language != "" && !tts.IsKnownLanguage(cfg.Language) {
				fmt.Fprintf(cmd.ErrOrStderr(), "[!] Language %q is not in the tested list, trying anyway\n", cfg.Language)
			}

			logger, err := ctx.logger()
			if err != nil {
				return err
			}

			synth, closeSynth, err := buildSynthesizer(cfg, logger)
			if err != nil {
				return err
			}
			defer closeSynth()

			project := engine.NewVideoProject(cfg, synth, &video.FFmpegEncoder{}, effects.New(cfg.ZoomMode), logger)
			project.Out = cmd.OutOrStdout()

			report, err := project.Run(cmd.Context())
			if err != nil {
				return err
			}
			report.PrintWarnings(cmd.ErrOrStderr())
			fmt.Fprintf(cmd.OutOrStdout(), "[+++] Done! Video: %s (%.2fs, %d slides)\n", report.Output, report.Timeline.Total, len(report.Slides))
			return nil
		},
	}

	flags.register(cmd.Flags())
	return cmd
}

// buildSynthesizer picks the speech backend and wraps it with the narration
// cache when one is configured.
func buildSynthesizer(cfg *config.Config, logger *slog.Logger) (tts.Synthesizer, func(), error) {
	synth, err := tts.New(cfg.TTSMethod, cfg.OfflineTTS, tts.Backend{})
	if err != nil {
		return nil, nil, err
	}
	if chain, ok := synth.(*tts.Chain); ok {
		chain.OnFallback = func(name string, err error) {
			logger.Warn("speech backend failed, falling back", "backend", name, "error", err)
		}
	}

	if cfg.CacheDir == "" {
		return synth, func() {}, nil
	}
	store, err := ttscache.Open(cfg.CacheDir)
	if err != nil {
		return nil, nil, err
	}
	cached := &ttscache.Synthesizer{Next: synth, Store: store, Logger: logger}
	return cached, func() { store.Close() }, nil
}

// defaultOutputPath names the video after the input directory.
func defaultOutputPath(inputDir string, now time.Time) string {
	abs, err := filepath.Abs(inputDir)
	if err != nil {
		abs = inputDir
	}
	cleanName := strings.ReplaceAll(filepath.Base(abs), " ", "_")
	timestamp := now.Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}
