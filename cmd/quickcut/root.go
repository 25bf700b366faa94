package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ivlev/quickcut/internal/config"
	"github.com/ivlev/quickcut/internal/logging"
)

type commandContext struct {
	configFlag *string
	envFlag    *string
	levelFlag  *string
	formatFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, envFlag, levelFlag, formatFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		envFlag:    envFlag,
		levelFlag:  levelFlag,
		formatFlag: formatFlag,
	}
}

// ensureConfig loads, in order of precedence from low to high: defaults, the
// config file, the .env file, QUICKCUT_* variables. Flags are applied by the
// commands on top.
func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		envPath := strings.TrimSpace(*c.envFlag)
		if envPath == "" {
			envPath = ".env"
		}
		// godotenv does not override variables that are already set.
		if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			c.configErr = fmt.Errorf("load %s: %w", envPath, err)
			return
		}

		cfg, err := config.Load(strings.TrimSpace(*c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.ApplyEnv(); err != nil {
			c.configErr = err
			return
		}
		if v := strings.TrimSpace(*c.levelFlag); v != "" {
			cfg.LogLevel = v
		}
		if v := strings.TrimSpace(*c.formatFlag); v != "" {
			cfg.LogFormat = v
		}
		cfg.BuildVersion = version
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger() (*slog.Logger, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
}

func newRootCommand() *cobra.Command {
	var configFlag, envFlag, levelFlag, formatFlag string

	ctx := newCommandContext(&configFlag, &envFlag, &levelFlag, &formatFlag)

	rootCmd := &cobra.Command{
		Use:           "quickcut",
		Short:         "Turn a folder of slides and captions into a narrated video",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file (.yaml or .toml)")
	rootCmd.PersistentFlags().StringVar(&envFlag, "env-file", "", "Environment file with QUICKCUT_* overrides (default .env)")
	rootCmd.PersistentFlags().StringVar(&levelFlag, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "log-format", "", "Log format: auto, text, json")

	rootCmd.AddCommand(newRenderCommand(ctx))
	rootCmd.AddCommand(newPlanCommand(ctx))
	rootCmd.AddCommand(newSubtitlesCommand())
	rootCmd.AddCommand(newLanguagesCommand())
	rootCmd.AddCommand(newVoicesCommand())

	return rootCmd
}
