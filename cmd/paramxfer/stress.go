// stress.go implements the 'paramxfer stress' command.
package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/kolkov/paramxfer/internal/stress"
)

// errStressFailed makes the process exit non-zero when a run finds violations.
var errStressFailed = errors.New("stress run found violations")

func newStressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stress",
		Short: "Run concurrent writers against a clearing drainer and verify the result",
		Long: `Stress starts one goroutine per writer, each rewriting its own range of
parameters for a number of rounds, while the main goroutine drains with
clear=true until every writer is done. It then checks that:

  - no drained value was one that was never written
  - per parameter, drained values never went backwards
  - every parameter ends at its writer's last value

The exit status is non-zero if any check fails.`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"writers":    "stress.writers",
				"per-writer": "stress.per_writer",
				"rounds":     "stress.rounds",
			})
		},
		RunE: runStress,
	}

	flags := cmd.Flags()
	flags.Int("writers", 0, "number of writer goroutines (overrides stress.writers)")
	flags.Int("per-writer", 0, "parameters owned by each writer (overrides stress.per_writer)")
	flags.Int("rounds", 0, "rewrites per writer (overrides stress.rounds)")

	return cmd
}

func runStress(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newRunLogger(cfg, "stress")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	scfg := stress.Config{
		Writers:   cfg.Stress.Writers,
		PerWriter: cfg.Stress.PerWriter,
		Rounds:    cfg.Stress.Rounds,
	}
	logger.Info("stress started",
		"writers", scfg.Writers,
		"per_writer", scfg.PerWriter,
		"rounds", scfg.Rounds,
	)

	report, err := stress.Run(cmd.Context(), scfg)
	if report != nil {
		report.Print(cmd.OutOrStdout())
		logger.Info("stress finished",
			"passed", report.Passed(),
			"writes", report.Writes,
			"drains", report.Drains,
			"pairs", report.Pairs,
			"invalid", report.Invalid,
			"regressions", report.Regressions,
			"mismatches", report.Mismatches,
			"duration", report.Duration.String(),
		)
	}
	if err != nil {
		return err
	}
	if !report.Passed() {
		logger.Error("stress failed", "mismatches", report.Mismatches, "invalid", report.Invalid)
		return errStressFailed
	}
	return nil
}
