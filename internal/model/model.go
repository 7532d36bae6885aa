// Package model defines the uniform lifecycle state machine shared by every
// simulator, vehicle, component and controller in a run.
package model

import (
	"fmt"

	"github.com/cloe-sim/cloe-go/internal/duration"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
)

// State is one of the total order of allowed lifecycle states.
type State int

const (
	Uninitialized State = iota
	Connected
	Enrolled
	Running
	Paused
	Stopped
	Disconnected
	Aborted
)

func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Connected:
		return "Connected"
	case Enrolled:
		return "Enrolled"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Stopped:
		return "Stopped"
	case Disconnected:
		return "Disconnected"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// transitions enumerates the allowed moves out of each non-terminal state.
// Aborted is reachable from any non-terminal state and is therefore not
// listed as a source key requiring explicit permission.
var transitions = map[State][]State{
	Uninitialized: {Connected},
	Connected:     {Enrolled},
	Enrolled:      {Running},
	Running:       {Paused, Stopped},
	Paused:        {Running, Stopped},
	Stopped:       {Disconnected, Uninitialized}, // Uninitialized via reset()
	Disconnected:  {Uninitialized}, // via reset()
}

// CanTransition reports whether moving from `from` to `to` is permitted.
// Aborted is always permitted from any non-terminal state.
func CanTransition(from, to State) bool {
	if to == Aborted {
		return from != Aborted
	}
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Registrar is the interface models use in Enroll to register event/action
// factories, API handlers and data-broker signals. Implemented by the
// Trigger Registrar; kept as a narrow interface here to avoid an import
// cycle between model and trigger.
type Registrar interface {
	RegisterEventFactory(name string, factory any)
	RegisterActionFactory(name string, factory any)
}

// Resolutioner is optionally implemented by a simulator, vehicle or
// controller to declare the step resolution it requires. The run command
// gathers every participating model's resolution after assembly, before the
// Simulation Driver is constructed, and negotiates the run's fixed step
// width as their lowest common multiple (clock.NegotiateStepWidth); models
// that don't implement this
// interface are assumed to accept any step width.
type Resolutioner interface {
	Resolution() duration.Duration
}

// Model is the lifecycle-bearing entity every simulator, vehicle, component
// and controller implements.
type Model interface {
	// Name returns the model's configured name.
	Name() string

	// Connect acquires external resources. Idempotent; only valid from
	// Uninitialized. Failures are fatal to the run unless the driver is in
	// a tolerant reconnect phase.
	Connect() error

	// Enroll registers API handlers, event/action factories and signals.
	// Called exactly once per run after all models are connected.
	Enroll(r Registrar) error

	// Start performs final pre-run initialization with Sync known.
	Start(s cloesync.Sync) error

	// Process advances the model up to s.Time() and returns the time
	// actually reached. If the returned time is strictly less than
	// s.Time(), the model was not ready and the step is incomplete.
	Process(s cloesync.Sync) (duration.Duration, error)

	// Pause and Resume are cooperative; Process is not called while paused.
	Pause(s cloesync.Sync) error
	Resume(s cloesync.Sync) error

	// Stop requests graceful termination at the current sync.
	Stop(s cloesync.Sync) error

	// Reset returns a Stopped/Disconnected model to Uninitialized without
	// reconstruction.
	Reset() error

	// Disconnect releases resources acquired in Connect.
	Disconnect() error

	// Abort is immediate, safe to call from any goroutine concurrently with
	// Process, and must cause an in-flight Process to return promptly.
	Abort()

	// State returns the model's current lifecycle state.
	State() State
}

// Base is an embeddable struct providing the checked state-transition
// machinery; concrete models embed it and only implement Process (and
// whichever of Connect/Enroll/Start/Pause/Resume/Stop/Reset/Disconnect they
// need to override — Base's defaults are no-ops that merely transition
// state, matching the teacher's "explicit error return, not exceptions"
// style applied one level down from the engine to each model).
type Base struct {
	name  string
	state State
}

// NewBase constructs a Base in state Uninitialized.
func NewBase(name string) Base {
	return Base{name: name, state: Uninitialized}
}

func (b *Base) Name() string   { return b.name }
func (b *Base) State() State   { return b.state }

// Transition moves the model to `to`, returning an error if the move is not
// permitted by the state machine.
func (b *Base) Transition(to State) error {
	if !CanTransition(b.state, to) {
		return fmt.Errorf("model %q: illegal transition %s -> %s", b.name, b.state, to)
	}
	b.state = to
	return nil
}

// ForceAbort unconditionally moves to Aborted, bypassing the transition
// table (Abort must work from any state, including mid-Process).
func (b *Base) ForceAbort() {
	b.state = Aborted
}

func (b *Base) Connect() error {
	if b.state == Connected {
		return nil
	}
	return b.Transition(Connected)
}
func (b *Base) Enroll(_ Registrar) error      { return b.Transition(Enrolled) }
func (b *Base) Start(_ cloesync.Sync) error   { return b.Transition(Running) }
func (b *Base) Pause(_ cloesync.Sync) error   { return b.Transition(Paused) }
func (b *Base) Resume(_ cloesync.Sync) error  { return b.Transition(Running) }
func (b *Base) Stop(_ cloesync.Sync) error    { return b.Transition(Stopped) }
func (b *Base) Disconnect() error             { return b.Transition(Disconnected) }
func (b *Base) Reset() error                  { return b.Transition(Uninitialized) }
func (b *Base) Abort()                        { b.ForceAbort() }
