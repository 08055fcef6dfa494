// Package main implements the paramxfer CLI.
//
// paramxfer drives the lock-free parameter transfer through a small
// synthesizer shell. The control side (presets, file watching, the monitor's
// keys) publishes parameter values; the audio side drains the changes once
// per block, smooths them and renders.
//
// Usage:
//
//	paramxfer render --blocks 200 --out out.raw     # Offline render to raw float32 PCM
//	paramxfer stress --writers 8 --rounds 10000     # Concurrency stress run
//	paramxfer monitor --preset pad.yaml --watch     # Live terminal view
//	paramxfer version                               # Show version information
//
// Settings come from flags, PARAMXFER_* environment variables and
// $XDG_CONFIG_HOME/paramxfer/config.yaml, in that order of precedence.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
