package main

import (
	"fmt"
	"os"

	"github.com/newthinker/tradermood/internal/app"
	"github.com/newthinker/tradermood/internal/config"
	"github.com/newthinker/tradermood/internal/logger"
	"github.com/newthinker/tradermood/internal/trace"
	"go.uber.org/zap"
)

// loadConfig reads --config, or falls back to defaults. adjust runs before
// validation so flag overrides are checked like file values.
func loadConfig(log *zap.Logger, adjust func(*config.Config)) (*config.Config, error) {
	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Debug("no config file specified, using defaults")
	}

	if adjust != nil {
		adjust(cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func newLogger() (*zap.Logger, error) {
	return logger.New(debug, logLevel)
}

// newApp builds the application with tracing attached when configured.
func newApp(cfg *config.Config, log *zap.Logger) (*app.App, error) {
	a, err := app.New(cfg, log)
	if err != nil {
		return nil, err
	}

	tracer, err := trace.New(cfg.Tracing.Enabled, Version, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("creating tracer: %w", err)
	}
	a.SetTracer(tracer)
	return a, nil
}
