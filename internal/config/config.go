package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/ivlev/quickcut/internal/subtitle"
	"github.com/ivlev/quickcut/internal/timeline"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	InputDir       string  `yaml:"input_dir" toml:"input_dir"`
	OutputVideo    string  `yaml:"output" toml:"output"`
	Width          int     `yaml:"width" toml:"width"`
	Height         int     `yaml:"height" toml:"height"`
	FPS            int     `yaml:"fps" toml:"fps"`
	Workers        int     `yaml:"workers" toml:"workers"`
	Pause          float64 `yaml:"pause" toml:"pause"`
	Transition     float64 `yaml:"transition" toml:"transition"`
	TransitionType string  `yaml:"transition_type" toml:"transition_type"`
	ZoomMode       string  `yaml:"zoom_mode" toml:"zoom_mode"`
	ZoomSpeed      float64 `yaml:"zoom_speed" toml:"zoom_speed"`

	Language   string  `yaml:"language" toml:"language"`
	Speed      float64 `yaml:"speed" toml:"speed"`
	TTSMethod  string  `yaml:"tts_method" toml:"tts_method"`
	TTSVoice   string  `yaml:"tts_voice" toml:"tts_voice"`
	OfflineTTS bool    `yaml:"offline_tts" toml:"offline_tts"`

	BurnCaptions    bool   `yaml:"burn_captions" toml:"burn_captions"`
	CaptionFontSize int    `yaml:"caption_font_size" toml:"caption_font_size"`
	CaptionPosition string `yaml:"caption_position" toml:"caption_position"`
	CaptionFont     string `yaml:"caption_font" toml:"caption_font"`

	GenerateSubtitles bool   `yaml:"generate_subtitles" toml:"generate_subtitles"`
	SubtitleFormat    string `yaml:"subtitle_format" toml:"subtitle_format"`

	MusicPath   string  `yaml:"music" toml:"music"`
	MusicVolume float64 `yaml:"music_volume" toml:"music_volume"`

	ManifestPath string `yaml:"manifest" toml:"manifest"`
	CacheDir     string `yaml:"cache_dir" toml:"cache_dir"`

	VideoEncoder string `yaml:"video_encoder" toml:"video_encoder"`
	Quality      int    `yaml:"quality" toml:"quality"`
	ShowStats    bool   `yaml:"show_stats" toml:"show_stats"`
	LogFormat    string `yaml:"log_format" toml:"log_format"`
	LogLevel     string `yaml:"log_level" toml:"log_level"`
	BuildVersion string `yaml:"-" toml:"-"`
}

// SegmentParams describes one slide segment handed to an effect and the encoder.
type SegmentParams struct {
	Width, Height int
	FPS           int
	Duration      float64
	ZoomMode      string
	ZoomSpeed     float64
	FadeDuration  float64
	PageIndex     int
	Filter        string

	// Burned caption, in seconds relative to the segment start.
	CaptionFile     string
	CaptionStart    float64
	CaptionEnd      float64
	CaptionFontSize int
	CaptionPosition string
	CaptionFont     string
}

// Default mirrors the defaults of the command line.
func Default() *Config {
	return &Config{
		Width:           1280,
		Height:          720,
		FPS:             24,
		Pause:           1.0,
		Transition:      0.5,
		TransitionType:  "fade",
		ZoomMode:        "none",
		ZoomSpeed:       0.001,
		Language:        "en",
		Speed:           1.0,
		TTSMethod:       "edge",
		CaptionFontSize: 30,
		CaptionPosition: "bottom",
		SubtitleFormat:  "srt",
		MusicVolume:     0.1,
		LogFormat:       "auto",
		LogLevel:        "info",
	}
}

// Load reads a YAML or TOML file, chosen by extension, on top of Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	default:
		return nil, fmt.Errorf("%w: unknown config extension %q", ErrInvalidConfig, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays QUICKCUT_* environment variables.
func (c *Config) ApplyEnv() error {
	str := map[string]*string{
		"QUICKCUT_LANGUAGE":   &c.Language,
		"QUICKCUT_TTS_METHOD": &c.TTSMethod,
		"QUICKCUT_TTS_VOICE":  &c.TTSVoice,
		"QUICKCUT_FONT":       &c.CaptionFont,
		"QUICKCUT_CACHE_DIR":  &c.CacheDir,
		"QUICKCUT_MUSIC":      &c.MusicPath,
		"QUICKCUT_LOG_FORMAT": &c.LogFormat,
		"QUICKCUT_LOG_LEVEL":  &c.LogLevel,
	}
	for key, dst := range str {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	floats := map[string]*float64{
		"QUICKCUT_PAUSE":      &c.Pause,
		"QUICKCUT_TRANSITION": &c.Transition,
		"QUICKCUT_SPEED":      &c.Speed,
	}
	for key, dst := range floats {
		v, ok := os.LookupEnv(key)
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v)
		}
		*dst = f
	}
	return nil
}

// TimingParams returns the timing subset used by the timeline. Transition
// type "none" means slides are cut, so there is no overlap to schedule.
func (c *Config) TimingParams() timeline.TimingParams {
	p := timeline.TimingParams{
		PauseSeconds:      c.Pause,
		TransitionSeconds: c.Transition,
	}
	if strings.EqualFold(c.TransitionType, "none") && validTransition(c.Transition) {
		p.TransitionSeconds = 0
	}
	return p
}

func validTransition(v float64) bool {
	return v >= 0
}

// Validate rejects values that would make the run fail halfway.
func (c *Config) Validate() error {
	if err := c.TimingParams().Validate(); err != nil {
		return err
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("%w: resolution %dx%d", ErrInvalidConfig, c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("%w: fps %d", ErrInvalidConfig, c.FPS)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("%w: speed must be positive, got %v", ErrInvalidConfig, c.Speed)
	}
	if c.MusicVolume < 0 {
		return fmt.Errorf("%w: music volume %v", ErrInvalidConfig, c.MusicVolume)
	}
	switch c.CaptionPosition {
	case "top", "middle", "bottom":
	default:
		return fmt.Errorf("%w: caption position %q", ErrInvalidConfig, c.CaptionPosition)
	}
	if c.GenerateSubtitles {
		if _, err := subtitle.ParseFormat(c.SubtitleFormat); err != nil {
			return err
		}
	}
	return nil
}
