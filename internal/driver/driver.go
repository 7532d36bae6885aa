// Package driver implements the Simulation Driver: the outer state machine
// that owns the run from Connecting through Disconnecting, firing the
// driver's own nil events (start/stop/pause/resume/failure) and repeatedly
// invoking the Step Executor while Running.
package driver

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/cloe-sim/cloe-go/internal/callback"
	"github.com/cloe-sim/cloe-go/internal/cloeerr"
	"github.com/cloe-sim/cloe-go/internal/model"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// Phase is one of the driver's outer states. Distinct from model.State:
// the driver's own lifecycle is one level up from any single model's.
type Phase int

const (
	Connecting Phase = iota
	Starting
	Running
	Paused
	Stopping
	Disconnecting
	Success
	Failure
	Aborted
)

func (p Phase) String() string {
	switch p {
	case Connecting:
		return "Connecting"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Paused:
		return "Paused"
	case Stopping:
		return "Stopping"
	case Disconnecting:
		return "Disconnecting"
	case Success:
		return "Success"
	case Failure:
		return "Failure"
	case Aborted:
		return "Aborted"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

func (p Phase) terminal() bool {
	return p == Success || p == Failure || p == Aborted
}

// StepRunner is the narrow interface the driver needs from the Step
// Executor, kept separate to avoid an import cycle and to let tests supply
// a stub.
type StepRunner interface {
	RunStep(ctx context.Context) (cloesync.Sync, error)
}

// Driver owns the enrolled model set (in enrollment order, across every
// group) and the outer state machine. Abort propagates to every model in
// reverse enrollment order, per SPEC_FULL.md §5's cancellation contract.
type Driver struct {
	log *slog.Logger

	registrar *trigger.Registrar
	executor  StepRunner
	models    []model.Model // enrollment order, across simulators+vehicles+controllers

	// phase is atomic so Phase() can be queried from another goroutine
	// (e.g. a probe/status handler) while Run executes concurrently.
	phase atomic.Int32

	abortRequested  atomic.Bool
	stopRequested   atomic.Bool
	pauseRequested  atomic.Bool
	resumeRequested atomic.Bool

	// wake unblocks the Paused phase's select as soon as any Request* call
	// lands, the same buffered-signal-channel idiom the Trigger Registrar
	// uses for its staging buffer.
	wake chan struct{}

	cleanupErrs []error
}

// New constructs a Driver in phase Connecting over the given models
// (Connect/Enroll/Start all happen inside Run) and wires the
// driver-fired nil events onto dedicated Direct callbacks — one per kind,
// since each nil event's Kind() is the bare kind name (no per-signal
// multiplicity the way evaluate/transition have).
func New(registrar *trigger.Registrar, executor StepRunner, models []model.Model) *Driver {
	for _, kind := range []string{"start", "stop", "pause", "resume", "failure"} {
		registrar.RegisterCallback(kind, callback.NewDirect())
	}
	d := &Driver{
		log:       slog.Default().With("component", "driver"),
		registrar: registrar,
		executor:  executor,
		models:    models,
		wake:      make(chan struct{}, 1),
	}
	d.setPhase(Connecting)
	return d
}

// Phase returns the driver's current outer state.
func (d *Driver) Phase() Phase { return Phase(d.phase.Load()) }

func (d *Driver) setPhase(p Phase) { d.phase.Store(int32(p)) }

func (d *Driver) signalWake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// RequestStop, RequestPause, RequestResume and RequestAbort are the four
// user-issued actions named in SPEC_FULL.md §4.8; each is safe to call
// concurrently with Run (set-then-checked at the top of the next step),
// except RequestAbort which additionally calls Abort on every model
// immediately, since abort must be safe to call from any goroutine
// concurrently with Process and must not wait for the next step boundary.
func (d *Driver) RequestStop() {
	d.stopRequested.Store(true)
	d.signalWake()
}

func (d *Driver) RequestPause() {
	d.pauseRequested.Store(true)
	d.signalWake()
}

func (d *Driver) RequestResume() {
	d.resumeRequested.Store(true)
	d.signalWake()
}

func (d *Driver) RequestAbort() {
	d.abortRequested.Store(true)
	d.signalWake()
	for i := len(d.models) - 1; i >= 0; i-- {
		d.models[i].Abort()
	}
}

// Run drives the full lifecycle to completion, returning the terminal
// phase and the originating error (nil on Success). Exactly one phase is
// active at a time; transitions are not interruptible except by abort,
// checked at the top of every phase and at every step boundary.
func (d *Driver) Run(ctx context.Context) (Phase, error) {
	for {
		phase := d.Phase()
		if d.abortRequested.Load() && !phase.terminal() {
			return d.enterAborted(fmt.Errorf("abort requested"))
		}

		switch phase {
		case Connecting:
			if err := d.runConnecting(); err != nil {
				return d.enterFailure(err)
			}
			d.setPhase(Starting)

		case Starting:
			if err := d.runStarting(); err != nil {
				return d.enterFailure(err)
			}
			d.setPhase(Running)
			d.fireNil("start")

		case Running:
			if d.stopRequested.Load() {
				d.setPhase(Stopping)
				continue
			}
			if d.pauseRequested.Swap(false) {
				d.setPhase(Paused)
				d.fireNil("pause")
				continue
			}
			sync, err := d.executor.RunStep(ctx)
			if err != nil {
				if cloeerr.IsAborted(err) {
					return d.enterAborted(err)
				}
				d.fireNil("failure")
				return d.enterFailure(err)
			}
			_ = sync

		case Paused:
			if d.stopRequested.Load() {
				d.setPhase(Stopping)
				continue
			}
			if d.resumeRequested.Swap(false) {
				d.setPhase(Running)
				d.fireNil("resume")
				continue
			}
			select {
			case <-ctx.Done():
				return d.enterAborted(fmt.Errorf("context cancelled while paused: %w", ctx.Err()))
			case <-d.wake:
			}

		case Stopping:
			d.fireNil("stop")
			d.runStopping()
			d.setPhase(Disconnecting)

		case Disconnecting:
			d.runDisconnecting()
			return d.enterSuccess()

		default:
			return phase, fmt.Errorf("driver: unreachable phase %s", phase)
		}
	}
}

// Reset returns a Stopped/Disconnected driver to Connecting on the same
// plugin set, per SPEC_FULL.md §4.8's reset() contract.
func (d *Driver) Reset() error {
	phase := d.Phase()
	if phase != Success && phase != Failure && phase != Aborted {
		return fmt.Errorf("driver: reset only valid from a terminal phase, got %s", phase)
	}
	for _, m := range d.models {
		if err := m.Reset(); err != nil {
			return fmt.Errorf("driver: reset model %q: %w", m.Name(), err)
		}
	}
	d.setPhase(Connecting)
	d.abortRequested.Store(false)
	d.stopRequested.Store(false)
	d.pauseRequested.Store(false)
	d.resumeRequested.Store(false)
	d.cleanupErrs = nil
	return nil
}

func (d *Driver) runConnecting() error {
	for _, m := range d.models {
		if err := m.Connect(); err != nil {
			return cloeerr.Connection(m.Name(), "connect failed", err)
		}
	}
	for _, m := range d.models {
		if err := m.Enroll(d.registrar); err != nil {
			return cloeerr.Connection(m.Name(), "enroll failed", err)
		}
	}
	return nil
}

func (d *Driver) runStarting() error {
	sync := cloesync.New(0, 0, 0, 0)
	for _, m := range d.models {
		if err := m.Start(sync); err != nil {
			return cloeerr.Connection(m.Name(), "start failed", err)
		}
	}
	return nil
}

// runStopping requests every model stop, best-effort: individual failures
// are recorded but do not mask the originating failure or abort reason,
// per SPEC_FULL.md §4.8's invariant on Failure/Aborted cleanup.
func (d *Driver) runStopping() {
	sync := cloesync.New(0, 0, 0, 0)
	for i := len(d.models) - 1; i >= 0; i-- {
		if err := d.models[i].Stop(sync); err != nil {
			d.cleanupErrs = append(d.cleanupErrs, fmt.Errorf("stop %q: %w", d.models[i].Name(), err))
		}
	}
}

func (d *Driver) runDisconnecting() {
	for i := len(d.models) - 1; i >= 0; i-- {
		if err := d.models[i].Disconnect(); err != nil {
			d.cleanupErrs = append(d.cleanupErrs, fmt.Errorf("disconnect %q: %w", d.models[i].Name(), err))
		}
	}
	if len(d.cleanupErrs) > 0 {
		d.log.Warn("cleanup errors during disconnect", "count", len(d.cleanupErrs), "errors", d.cleanupErrs)
	}
}

func (d *Driver) fireNil(kind string) {
	cb, ok := d.registrar.Callbacks()[kind]
	if !ok {
		return
	}
	direct, ok := cb.(interface {
		Fire(ctx trigger.ActionContext, value any) error
	})
	if !ok {
		return
	}
	ac := &nilActionContext{registrar: d.registrar}
	if err := direct.Fire(ac, nil); err != nil {
		d.log.Error("nil event action failed", "event", kind, "error", err)
	}
}

func (d *Driver) enterSuccess() (Phase, error) {
	d.setPhase(Success)
	return Success, nil
}

func (d *Driver) enterFailure(cause error) (Phase, error) {
	d.log.Error("run failed", "error", cause, "phase_at_failure", d.Phase())
	d.setPhase(Stopping)
	d.runStopping()
	d.runDisconnecting()
	d.setPhase(Failure)
	return Failure, cause
}

func (d *Driver) enterAborted(cause error) (Phase, error) {
	d.log.Warn("run aborted", "reason", cause)
	d.runStopping()
	d.runDisconnecting()
	d.setPhase(Aborted)
	return Aborted, cloeerr.Aborted(cause.Error())
}

// nilActionContext implements trigger.ActionContext for the driver's own
// nil-event firing, where there is no per-step Sync snapshot yet available
// (e.g. "start" fires before the first step).
type nilActionContext struct {
	registrar *trigger.Registrar
}

func (c *nilActionContext) Sync() cloesync.Sync { return cloesync.New(0, 0, 0, 0) }
func (c *nilActionContext) InsertTrigger(t *trigger.Trigger) error {
	return c.registrar.InsertTrigger(t)
}
