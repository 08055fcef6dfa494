// monitor.go implements the 'paramxfer monitor' command.
package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/kolkov/paramxfer/internal/config"
	"github.com/kolkov/paramxfer/internal/monitor"
	"github.com/kolkov/paramxfer/internal/plugin"
	"github.com/kolkov/paramxfer/internal/watch"
)

func newMonitorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Show live parameter changes in a terminal UI",
		Long: `Monitor runs the plugin one block per tick and lists the parameters that
changed most recently, with their target and smoothed values.

Keys: s prompts for an index=value assignment, r sets a random parameter,
c sets every parameter to 0, q quits.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"preset":     "preset.path",
				"watch":      "preset.watch",
				"refresh-ms": "monitor.refresh_ms",
			})
		},
		RunE: runMonitor,
	}

	flags := cmd.Flags()
	flags.String("preset", "", "preset file to apply (overrides preset.path)")
	flags.Bool("watch", false, "reapply the preset when the file changes")
	flags.Int("refresh-ms", 0, "tick interval in milliseconds (overrides monitor.refresh_ms)")

	return cmd
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The TUI owns the terminal: without a log dir, logs would corrupt it.
	if cfg.Logging.Dir == "" {
		cfg.Logging.Dir = config.ConfigDir()
	}
	logger, err := newRunLogger(cfg, "monitor")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	p, err := plugin.New(cfg.PluginConfig())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	reloads := make(chan watch.Result, 4)
	stopWatch, err := applyPreset(ctx, cfg, p, logger, func(r watch.Result) {
		select {
		case reloads <- r:
		default:
		}
	})
	if err != nil {
		return err
	}
	defer stopWatch()

	m := monitor.New(p, monitor.Options{
		Refresh:   time.Duration(cfg.Monitor.RefreshMs) * time.Millisecond,
		Rows:      cfg.Monitor.Rows,
		BlockSize: cfg.Audio.BlockSize,
	})
	logger.Info("monitor started", "parameters", p.ParameterCount())
	err = monitor.Run(ctx, m, reloads)

	stats := p.Stats()
	logger.Info("monitor stopped", "blocks", stats.Blocks, "changes", stats.Changes)
	return err
}
