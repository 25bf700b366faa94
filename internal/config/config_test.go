package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/ivlev/quickcut/internal/subtitle"
	"github.com/ivlev/quickcut/internal/timeline"
)

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quickcut.yaml")
	content := "pause: 0.5\ntransition: 0.25\nlanguage: fr\nburn_captions: true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Pause != 0.5 || cfg.Transition != 0.25 || cfg.Language != "fr" || !cfg.BurnCaptions {
		t.Errorf("Unexpected config: %+v", cfg)
	}
	// Untouched fields keep their defaults.
	if cfg.Width != 1280 || cfg.Height != 720 || cfg.TTSMethod != "edge" {
		t.Errorf("Defaults lost: %+v", cfg)
	}
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quickcut.toml")
	content := "width = 1920\nheight = 1080\nsubtitle_format = \"vtt\"\ngenerate_subtitles = true\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Width != 1920 || cfg.Height != 1080 || cfg.SubtitleFormat != "vtt" || !cfg.GenerateSubtitles {
		t.Errorf("Unexpected config: %+v", cfg)
	}
}

func TestLoadUnknownExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quickcut.ini")
	if err := os.WriteFile(path, []byte("x=1"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("QUICKCUT_TTS_VOICE", "en-GB-SoniaNeural")
	t.Setenv("QUICKCUT_PAUSE", "2.5")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}
	if cfg.TTSVoice != "en-GB-SoniaNeural" || cfg.Pause != 2.5 {
		t.Errorf("Env not applied: %+v", cfg)
	}

	t.Setenv("QUICKCUT_SPEED", "fast")
	if err := cfg.ApplyEnv(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("Expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"negative pause", func(c *Config) { c.Pause = -1 }, timeline.ErrInvalidTimingParams},
		{"negative transition", func(c *Config) { c.Transition = -0.5 }, timeline.ErrInvalidTimingParams},
		{"zero speed", func(c *Config) { c.Speed = 0 }, ErrInvalidConfig},
		{"bad resolution", func(c *Config) { c.Width = 0 }, ErrInvalidConfig},
		{"bad position", func(c *Config) { c.CaptionPosition = "left" }, ErrInvalidConfig},
		{"bad subtitle format", func(c *Config) {
			c.GenerateSubtitles = true
			c.SubtitleFormat = "ass"
		}, subtitle.ErrUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == nil {
				if err != nil {
					t.Errorf("Unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestTimingParamsWithoutTransition(t *testing.T) {
	cfg := Default()
	if p := cfg.TimingParams(); p.TransitionSeconds != 0.5 || p.PauseSeconds != 1.0 {
		t.Errorf("Unexpected params %+v", p)
	}

	cfg.TransitionType = "none"
	if p := cfg.TimingParams(); p.TransitionSeconds != 0 {
		t.Errorf("Expected no overlap for cuts, got %+v", p)
	}

	cfg.Transition = -1
	if err := cfg.Validate(); !errors.Is(err, timeline.ErrInvalidTimingParams) {
		t.Errorf("Expected negative transition to stay invalid, got %v", err)
	}
}
