// Package sync defines the immutable per-step clock snapshot passed to
// every model's Process call.
package sync

import "github.com/cloe-sim/cloe-go/internal/duration"

// Sync is a read-only snapshot of simulation time, constructed only by the
// Clock and passed by value. Nothing other than the Clock may mutate the
// state it was built from.
type Sync struct {
	step             int64
	stepWidth        duration.Duration
	time             duration.Duration
	eta              duration.Duration
	etaKnown         bool
	realtimeFactor   float64
	achievableFactor float64
}

// New constructs a Sync snapshot. Intended for use by Clock only; exported
// so tests can construct fixtures directly.
func New(step int64, stepWidth duration.Duration, realtimeFactor, achievableFactor float64) Sync {
	return Sync{
		step:             step,
		stepWidth:        stepWidth,
		time:             duration.FromNanoseconds(stepWidth.Nanoseconds() * step),
		realtimeFactor:   realtimeFactor,
		achievableFactor: achievableFactor,
	}
}

// WithETA returns a copy of s with the ETA field set.
func (s Sync) WithETA(eta duration.Duration) Sync {
	s.eta = eta
	s.etaKnown = true
	return s
}

// Step returns the monotonic step index, starting at 0.
func (s Sync) Step() int64 { return s.step }

// StepWidth returns the fixed step width for the run.
func (s Sync) StepWidth() duration.Duration { return s.stepWidth }

// Time returns the current simulation time, step*stepWidth.
func (s Sync) Time() duration.Duration { return s.time }

// ETA returns the estimated wall-clock completion time and whether one is
// known.
func (s Sync) ETA() (duration.Duration, bool) { return s.eta, s.etaKnown }

// RealtimeFactor returns the user-configured target realtime factor.
func (s Sync) RealtimeFactor() float64 { return s.realtimeFactor }

// AchievableRealtimeFactor returns the factor actually achieved over the
// previous step, computed from wall-clock elapsed time.
func (s Sync) AchievableRealtimeFactor() float64 { return s.achievableFactor }

// IsRealtimeFactorUnlimited reports whether the target realtime factor
// should be treated as unbounded. Per the resolved Open Question, any
// non-positive factor (including exactly zero) is unbounded; pausing is
// the exclusive responsibility of the Simulation Driver's state machine.
func (s Sync) IsRealtimeFactorUnlimited() bool {
	return s.realtimeFactor <= 0.0
}
