// Package plugin models the host-facing shell around the parameter transfer:
// the host (control side) sets and reads parameters by index, and the audio
// side drains the changes once per block, smooths them and renders audio.
//
// # Threading
//
// SetParameter and GetParameter may be called from any goroutine at any time.
// Process, SetSampleRate and Reset belong to the audio goroutine and must not
// run concurrently with each other. Stats may be read from anywhere.
package plugin

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/kolkov/paramxfer/internal/smooth"
	"github.com/kolkov/paramxfer/internal/synth"
	"github.com/kolkov/paramxfer/transfer"
)

// Defaults for Config fields left at their zero value.
const (
	DefaultParameterCount = 100
	DefaultSampleRate     = 44100
)

// Info is the static metadata a host asks for.
type Info struct {
	Name       string
	Vendor     string
	UniqueID   int32
	Version    int32
	Category   string
	Inputs     int
	Outputs    int
	Parameters int
	// F64Precision is false: the plugin processes float32 only.
	F64Precision bool
}

// Config controls plugin construction. Zero fields take defaults.
type Config struct {
	ParameterCount  int
	SampleRate      float32
	BaseFrequency   float32
	SmoothingMode   smooth.Mode
	SmoothingFactor float32
	// RampSamples is the ramp length for smooth.Linear.
	RampSamples int
}

// Stats is a snapshot of processing counters.
type Stats struct {
	// Blocks counts Process calls.
	Blocks uint64
	// Frames counts rendered sample frames.
	Frames uint64
	// Changes counts (index, value) pairs applied from drains.
	Changes uint64
	// HostSets counts accepted SetParameter calls.
	HostSets uint64
	// Rejected counts SetParameter/GetParameter calls refused for bad indices.
	Rejected uint64
}

// Plugin is the transfer_and_smooth instrument.
type Plugin struct {
	params  *transfer.Transfer
	states  []smooth.Smoother
	synth   *synth.Synth
	outputs int

	blocks   atomic.Uint64
	frames   atomic.Uint64
	changes  atomic.Uint64
	hostSets atomic.Uint64
	rejected atomic.Uint64
}

// New creates a plugin from cfg.
func New(cfg Config) (*Plugin, error) {
	if cfg.ParameterCount == 0 {
		cfg.ParameterCount = DefaultParameterCount
	}
	if cfg.ParameterCount < 0 {
		return nil, fmt.Errorf("%w: parameter count %d", ErrInvalidConfig, cfg.ParameterCount)
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if !validRate(cfg.SampleRate) {
		return nil, fmt.Errorf("%w: %w %v", ErrInvalidConfig, ErrInvalidSampleRate, cfg.SampleRate)
	}

	states := make([]smooth.Smoother, cfg.ParameterCount)
	for i := range states {
		if cfg.SmoothingMode == smooth.Linear {
			states[i] = smooth.NewLinear(cfg.RampSamples)
		} else {
			states[i] = smooth.New(cfg.SmoothingFactor)
		}
	}

	return &Plugin{
		params:  transfer.New(cfg.ParameterCount),
		states:  states,
		synth:   synth.New(cfg.BaseFrequency, cfg.SampleRate),
		outputs: 2,
	}, nil
}

// Info returns the plugin metadata.
func (p *Plugin) Info() Info {
	return Info{
		Name:       "transfer_and_smooth",
		Vendor:     "Loonies",
		UniqueID:   0x500007,
		Version:    100,
		Category:   "Synth",
		Inputs:     0,
		Outputs:    p.outputs,
		Parameters: p.params.Len(),
	}
}

// ParameterCount returns the number of parameters.
func (p *Plugin) ParameterCount() int {
	return p.params.Len()
}

// Transfer exposes the underlying parameter transfer.
func (p *Plugin) Transfer() *transfer.Transfer {
	return p.params
}

// SetParameter publishes a new value for index from the control side.
//
// Out-of-range indices are rejected with an *IndexError and never reach the
// transfer.
func (p *Plugin) SetParameter(index int, value float32) error {
	if index < 0 || index >= p.params.Len() {
		p.rejected.Add(1)
		return newIndexError("set", index, p.params.Len())
	}
	p.params.Set(index, value)
	p.hostSets.Add(1)
	return nil
}

// GetParameter returns the last value published for index.
func (p *Plugin) GetParameter(index int) (float32, error) {
	if index < 0 || index >= p.params.Len() {
		p.rejected.Add(1)
		return 0, newIndexError("get", index, p.params.Len())
	}
	return p.params.Get(index), nil
}

// SetSampleRate updates the processing sample rate.
func (p *Plugin) SetSampleRate(rate float32) error {
	if !validRate(rate) {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRate, rate)
	}
	p.synth.SetSampleRate(rate)
	return nil
}

// SampleRate returns the current sample rate.
func (p *Plugin) SampleRate() float32 {
	return p.synth.SampleRate()
}

// Smoothed returns the current smoothed value of index as seen by the audio
// side. Only call from the audio goroutine.
func (p *Plugin) Smoothed(index int) float32 {
	return p.states[index].Value()
}

// Process renders one block into outputs. The block length is the length of
// the shortest channel.
//
// Every parameter changed since the previous block is drained, its smoother
// retargeted, and the synth run. Process never blocks and never allocates.
func (p *Plugin) Process(outputs [][]float32) {
	it := p.params.Drain(true)
	var applied uint64
	for {
		index, value, ok := it.Next()
		if !ok {
			break
		}
		p.states[index].SetTarget(value)
		applied++
	}

	frames := blockLen(outputs)
	p.synth.Process(outputs, frames, p.states)

	p.blocks.Add(1)
	//nolint:gosec // G115: frames is a non-negative slice length.
	p.frames.Add(uint64(frames))
	p.changes.Add(applied)
}

// Reset snaps every smoother to the current parameter value, discarding
// pending glides and change marks.
func (p *Plugin) Reset() {
	it := p.params.Drain(true)
	for {
		if _, _, ok := it.Next(); !ok {
			break
		}
	}
	for i := range p.states {
		p.states[i].Reset(p.params.Get(i))
	}
}

// Stats returns a snapshot of the processing counters.
func (p *Plugin) Stats() Stats {
	return Stats{
		Blocks:   p.blocks.Load(),
		Frames:   p.frames.Load(),
		Changes:  p.changes.Load(),
		HostSets: p.hostSets.Load(),
		Rejected: p.rejected.Load(),
	}
}

func blockLen(outputs [][]float32) int {
	if len(outputs) == 0 {
		return 0
	}
	n := len(outputs[0])
	for _, ch := range outputs[1:] {
		n = min(n, len(ch))
	}
	return n
}

func validRate(rate float32) bool {
	return rate > 0 && !math.IsInf(float64(rate), 0) && !math.IsNaN(float64(rate))
}
