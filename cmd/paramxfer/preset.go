package main

import (
	"context"
	"fmt"
	"time"

	"github.com/kolkov/paramxfer/internal/config"
	"github.com/kolkov/paramxfer/internal/logging"
	"github.com/kolkov/paramxfer/internal/plugin"
	"github.com/kolkov/paramxfer/internal/preset"
	"github.com/kolkov/paramxfer/internal/watch"
)

// applyPreset loads the configured preset into p and, when preset.watch is
// set, starts a watcher that reapplies it on every change. The returned stop
// function is always non-nil.
func applyPreset(ctx context.Context, cfg *config.Config, p *plugin.Plugin, logger *logging.Logger, onReload func(watch.Result)) (func(), error) {
	noop := func() {}
	if cfg.Preset.Path == "" {
		return noop, nil
	}

	pr, err := preset.Load(cfg.Preset.Path)
	if err != nil {
		return noop, err
	}
	applied, err := preset.Apply(pr, p)
	if err != nil {
		return noop, fmt.Errorf("failed to apply preset: %w", err)
	}
	logger.Info("preset applied",
		"path", cfg.Preset.Path,
		"name", pr.Name,
		"version", pr.Version,
		"parameters", applied,
	)

	if !cfg.Preset.Watch {
		return noop, nil
	}

	opts := []watch.Option{
		watch.WithDebounce(time.Duration(cfg.Preset.DebounceMs) * time.Millisecond),
		watch.WithLogger(logger),
	}
	if onReload != nil {
		opts = append(opts, watch.WithReloadCallback(onReload))
	}
	w, err := watch.New(cfg.Preset.Path, p, opts...)
	if err != nil {
		return noop, err
	}
	w.Start(ctx)
	return w.Stop, nil
}
