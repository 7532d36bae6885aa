// Package clock owns the authoritative simulation time and produces the
// immutable Sync snapshots handed to every model's Process call.
package clock

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/cloe-sim/cloe-go/internal/duration"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
)

// Clock is the single mutator of simulation time. Advance is called exactly
// once per step, only from the Step Executor's goroutine; Current may be
// read from any goroutine (e.g. a probe/status handler) because the step
// counter is stored atomically, mirroring the teacher's atomic logical
// clock discipline.
type Clock struct {
	step             atomic.Int64
	stepWidth        duration.Duration
	realtimeFactor   float64
	lastStepWall     time.Time
	achievableFactor atomic.Value // float64
}

// New constructs a Clock with the given (already-negotiated) step width and
// target realtime factor. stepWidth must be the lowest common multiple of
// every participating model's resolution; it is computed by the caller
// (the run command, via NegotiateStepWidth, before the Simulation Driver
// is constructed) and rejected here if not positive.
func New(stepWidth duration.Duration, realtimeFactor float64) (*Clock, error) {
	if stepWidth <= 0 {
		return nil, fmt.Errorf("clock: step width must be positive, got %v", stepWidth)
	}
	c := &Clock{
		stepWidth:      stepWidth,
		realtimeFactor: realtimeFactor,
	}
	c.achievableFactor.Store(float64(0))
	return c, nil
}

// Current returns a Sync snapshot for the current step without advancing.
func (c *Clock) Current() cloesync.Sync {
	step := c.step.Load()
	af, _ := c.achievableFactor.Load().(float64)
	return cloesync.New(step, c.stepWidth, c.realtimeFactor, af)
}

// Advance moves the clock forward by exactly one step width and returns the
// new Sync. The scheduler never skips: time always advances by precisely
// stepWidth between successive step executions.
func (c *Clock) Advance() cloesync.Sync {
	step := c.step.Add(1)
	af, _ := c.achievableFactor.Load().(float64)
	return cloesync.New(step, c.stepWidth, c.realtimeFactor, af)
}

// StepWidth returns the fixed step width for the run.
func (c *Clock) StepWidth() duration.Duration { return c.stepWidth }

// RecordStepWallTime computes the achievable realtime factor from the
// wall-clock duration the previous step actually took, and stores it for
// the next Current()/Advance() call to report. Called by the Step Executor
// at the end of phase 8 (timing commit).
func (c *Clock) RecordStepWallTime(wall time.Duration) {
	now := time.Now()
	if !c.lastStepWall.IsZero() && wall > 0 {
		simulated := c.stepWidth.Seconds()
		achieved := simulated / wall.Seconds()
		c.achievableFactor.Store(achieved)
	}
	c.lastStepWall = now
}

// NegotiateStepWidth computes the lowest common multiple of the given model
// resolutions, rejecting any negative resolution. A resolution of zero
// means "every step" and is ignored in the LCM computation.
func NegotiateStepWidth(resolutions []duration.Duration) (duration.Duration, error) {
	var lcm int64
	for _, r := range resolutions {
		ns := r.Nanoseconds()
		if ns < 0 {
			return 0, fmt.Errorf("clock: negative model resolution %v", r)
		}
		if ns == 0 {
			continue
		}
		if lcm == 0 {
			lcm = ns
			continue
		}
		lcm = lcmInt64(lcm, ns)
	}
	if lcm == 0 {
		return 0, fmt.Errorf("clock: no model declared a positive resolution")
	}
	return duration.FromNanoseconds(lcm), nil
}

func gcdInt64(a, b int64) int64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func lcmInt64(a, b int64) int64 {
	return a / gcdInt64(a, b) * b
}
