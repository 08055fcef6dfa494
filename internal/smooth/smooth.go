// Package smooth provides per-parameter smoothing applied after values are
// drained from the transfer, so parameter jumps do not produce zipper noise.
//
// A Smoother is owned by the real-time goroutine and is not safe for
// concurrent use.
package smooth

// DefaultFactor is the one-pole coefficient used when none is configured.
const DefaultFactor = 0.01

// Mode selects the smoothing curve.
type Mode int

const (
	// OnePole moves a fixed fraction of the remaining distance each sample.
	OnePole Mode = iota
	// Linear reaches the target in a fixed number of samples.
	Linear
)

// String returns the config name of the mode.
func (m Mode) String() string {
	switch m {
	case OnePole:
		return "one_pole"
	case Linear:
		return "linear"
	default:
		return "unknown"
	}
}

// ParseMode converts a config name into a Mode.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "one_pole", "onepole", "":
		return OnePole, true
	case "linear":
		return Linear, true
	default:
		return OnePole, false
	}
}

// Smoother glides from its current state toward a target value.
type Smoother struct {
	mode   Mode
	state  float32
	target float32

	// factor is the one-pole coefficient in (0, 1].
	factor float32

	// Linear ramp.
	rampLen   int
	remaining int
	step      float32
}

// New creates a one-pole smoother. factor outside (0, 1] falls back to
// DefaultFactor.
func New(factor float32) Smoother {
	if factor <= 0 || factor > 1 {
		factor = DefaultFactor
	}
	return Smoother{mode: OnePole, factor: factor}
}

// NewLinear creates a smoother that ramps to each new target over samples
// samples. samples < 1 jumps immediately.
func NewLinear(samples int) Smoother {
	if samples < 1 {
		samples = 1
	}
	return Smoother{mode: Linear, rampLen: samples, factor: DefaultFactor}
}

// Mode returns the smoothing mode.
func (s *Smoother) Mode() Mode {
	return s.mode
}

// SetTarget sets the value to glide toward.
func (s *Smoother) SetTarget(value float32) {
	s.target = value
	if s.mode == Linear {
		s.remaining = s.rampLen
		s.step = (value - s.state) / float32(s.rampLen)
	}
}

// Target returns the current target.
func (s *Smoother) Target() float32 {
	return s.target
}

// Next advances one sample and returns the smoothed value.
func (s *Smoother) Next() float32 {
	switch s.mode {
	case Linear:
		if s.remaining > 0 {
			s.remaining--
			if s.remaining == 0 {
				s.state = s.target
			} else {
				s.state += s.step
			}
		}
	default:
		s.state += (s.target - s.state) * s.factor
	}
	return s.state
}

// Value returns the current state without advancing.
func (s *Smoother) Value() float32 {
	return s.state
}

// Reset jumps state and target to value.
func (s *Smoother) Reset(value float32) {
	s.state = value
	s.target = value
	s.remaining = 0
	s.step = 0
}
