// render.go implements the 'paramxfer render' command.
package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kolkov/paramxfer/internal/plugin"
	"github.com/kolkov/paramxfer/internal/preset"
)

type renderOptions struct {
	blocks     int
	out        string
	realtime   bool
	sets       []string
	savePreset string
}

func newRenderCmd() *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render the synth offline to raw float32 PCM",
		Long: `Render runs the plugin for a number of blocks and writes the output as
interleaved little-endian float32 samples (2 channels).

Parameters come from --preset and --set. With --watch and --realtime the
preset file is reapplied whenever it changes while rendering.`,
		Example: `  paramxfer render --blocks 400 --out out.raw
  paramxfer render --set 1=0.5 --set 3=0.25 --out - | aplay -f FLOAT_LE -c 2 -r 44100
  paramxfer render --preset pad.yaml --watch --realtime --blocks 10000 --out out.raw`,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return bindFlags(cmd, map[string]string{
				"block-size": "audio.block_size",
				"preset":     "preset.path",
				"watch":      "preset.watch",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.blocks, "blocks", 100, "number of blocks to render")
	flags.StringVarP(&opts.out, "out", "o", "out.raw", "output file (- for stdout)")
	flags.BoolVar(&opts.realtime, "realtime", false, "pace blocks at the audio rate")
	flags.StringArrayVar(&opts.sets, "set", nil, "set a parameter before rendering, as index=value (repeatable)")
	flags.StringVar(&opts.savePreset, "save-preset", "", "write the final parameter values to a preset file")
	flags.Int("block-size", 0, "frames per block (overrides audio.block_size)")
	flags.String("preset", "", "preset file to apply (overrides preset.path)")
	flags.Bool("watch", false, "reapply the preset when the file changes")

	return cmd
}

func runRender(cmd *cobra.Command, opts renderOptions) error {
	if opts.blocks < 0 {
		return fmt.Errorf("--blocks must be non-negative, got %d", opts.blocks)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newRunLogger(cfg, "render")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Close() }()

	p, err := plugin.New(cfg.PluginConfig())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stopWatch, err := applyPreset(ctx, cfg, p, logger, nil)
	if err != nil {
		return err
	}
	defer stopWatch()

	for _, s := range opts.sets {
		index, value, err := preset.ParseAssignment(s)
		if err != nil {
			return err
		}
		if err := p.SetParameter(index, value); err != nil {
			return err
		}
	}

	out, closeOut, err := openOutput(cmd, opts.out)
	if err != nil {
		return err
	}
	defer closeOut()

	w := newPCMWriter(out, p.Info().Outputs, cfg.Audio.BlockSize)
	blockDur := time.Duration(float64(cfg.Audio.BlockSize) / cfg.Audio.SampleRate * float64(time.Second))
	var ticker *time.Ticker
	if opts.realtime {
		ticker = time.NewTicker(blockDur)
		defer ticker.Stop()
	}

	start := time.Now()
	rendered := 0
render:
	for ; rendered < opts.blocks; rendered++ {
		if ctx.Err() != nil {
			break
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				break render
			case <-ticker.C:
			}
		}
		p.Process(w.block)
		if err := w.WriteBlock(); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	if ctx.Err() != nil {
		logger.Warn("render interrupted", "blocks", rendered, "requested", opts.blocks)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	stats := p.Stats()
	logger.Info("render finished",
		"blocks", stats.Blocks,
		"frames", stats.Frames,
		"changes", stats.Changes,
		"host_sets", stats.HostSets,
		"out", opts.out,
		"elapsed", time.Since(start).String(),
	)

	if opts.savePreset != "" {
		values := make([]float32, p.ParameterCount())
		p.Transfer().Snapshot(values)
		if err := preset.Save(opts.savePreset, preset.Capture("render", values)); err != nil {
			return err
		}
		logger.Info("preset saved", "path", opts.savePreset)
	}
	return nil
}

func openOutput(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "-" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// pcmWriter interleaves planar blocks into little-endian float32 frames.
type pcmWriter struct {
	w     *bufio.Writer
	block [][]float32
	buf   []byte
}

func newPCMWriter(w io.Writer, channels, frames int) *pcmWriter {
	block := make([][]float32, channels)
	for i := range block {
		block[i] = make([]float32, frames)
	}
	return &pcmWriter{
		w:     bufio.NewWriter(w),
		block: block,
		buf:   make([]byte, 4*channels*frames),
	}
}

// WriteBlock encodes the current block.
func (pw *pcmWriter) WriteBlock() error {
	channels := len(pw.block)
	for ch, samples := range pw.block {
		for i, s := range samples {
			off := 4 * (i*channels + ch)
			binary.LittleEndian.PutUint32(pw.buf[off:], math.Float32bits(s))
		}
	}
	_, err := pw.w.Write(pw.buf)
	return err
}

func (pw *pcmWriter) Flush() error {
	return pw.w.Flush()
}
