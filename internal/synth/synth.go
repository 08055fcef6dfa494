// Package synth is a small additive synthesizer used to consume parameter
// values on the real-time side: parameter p is the amplitude of a sine at
// p times the base frequency.
package synth

import (
	"math"

	"github.com/kolkov/paramxfer/internal/smooth"
)

// DefaultBaseFrequency is the fundamental in Hz.
const DefaultBaseFrequency = 5.0

const twoPi = 2 * math.Pi

// Synth sums one sine partial per parameter.
//
// Not safe for concurrent use; it lives on the audio goroutine.
type Synth struct {
	baseFrequency float32
	sampleRate    float32
	phase         float32 // in [0, 1)
}

// New creates a synth. Non-positive values fall back to the defaults
// (5 Hz base, 44100 Hz sample rate).
func New(baseFrequency, sampleRate float32) *Synth {
	s := &Synth{baseFrequency: DefaultBaseFrequency, sampleRate: 44100}
	if baseFrequency > 0 {
		s.baseFrequency = baseFrequency
	}
	if sampleRate > 0 {
		s.sampleRate = sampleRate
	}
	return s
}

// SetSampleRate changes the rate used to advance the phase. Non-positive
// rates are ignored.
func (s *Synth) SetSampleRate(rate float32) {
	if rate > 0 {
		s.sampleRate = rate
	}
}

// SampleRate returns the current sample rate.
func (s *Synth) SampleRate() float32 {
	return s.sampleRate
}

// Phase returns the current phase in [0, 1).
func (s *Synth) Phase() float32 {
	return s.phase
}

// Process fills every channel in outputs with frames samples, advancing each
// smoother once per sample. Channels shorter than frames are filled up to
// their length. Partials whose smoothed amplitude is exactly zero are skipped.
func (s *Synth) Process(outputs [][]float32, frames int, amps []smooth.Smoother) {
	inc := s.baseFrequency / s.sampleRate
	for i := 0; i < frames; i++ {
		var sum float32
		for p := range amps {
			amp := amps[p].Next()
			if amp != 0 {
				sum += float32(math.Sin(float64(s.phase*float32(p)*twoPi))) * amp
			}
		}
		for _, ch := range outputs {
			if i < len(ch) {
				ch[i] = sum
			}
		}
		s.phase = fract(s.phase + inc)
	}
}

func fract(x float32) float32 {
	return x - float32(math.Floor(float64(x)))
}
