// Package executor implements the Step Executor: the nine-phase per-tick
// pipeline described in SPEC_FULL.md §4.7, wiring the Clock, the
// model/vehicle graph, and trigger dispatch into one fixed-step cycle.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cloe-sim/cloe-go/internal/callback"
	"github.com/cloe-sim/cloe-go/internal/clock"
	"github.com/cloe-sim/cloe-go/internal/cloeerr"
	"github.com/cloe-sim/cloe-go/internal/duration"
	"github.com/cloe-sim/cloe-go/internal/model"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
	"github.com/cloe-sim/cloe-go/internal/telemetry"
	"github.com/cloe-sim/cloe-go/internal/trigger"
	"github.com/cloe-sim/cloe-go/internal/trigger/builtin"
)

// SignalSource is optionally implemented by a simulator, vehicle or
// controller to expose named scalar/string signals for evaluate and
// transition triggers. Queried once per step during the event harvest
// phase, after every model has processed.
type SignalSource interface {
	Signals() map[string]any
}

// Config bundles everything RunStep needs beyond what the executor already
// owns, collected at construction time.
type Config struct {
	Clock      *clock.Clock
	Registrar  *trigger.Registrar
	Telemetry  *telemetry.SimulationPerformance
	Simulators []model.Model
	Vehicles   []model.Model
	Controllers []model.Model
	// RetryBudget bounds how many extra Process passes within one step a
	// lagging model gets before the step is declared stalled.
	RetryBudget int
}

// actionContext implements trigger.ActionContext for one RunStep call.
type actionContext struct {
	sync      cloesync.Sync
	registrar *trigger.Registrar
}

func (c *actionContext) Sync() cloesync.Sync { return c.sync }
func (c *actionContext) InsertTrigger(t *trigger.Trigger) error {
	return c.registrar.InsertTrigger(t)
}

// StepExecutor runs the fixed-step pipeline. It holds no lifecycle state of
// its own (Running/Paused/etc. are the Simulation Driver's concern); RunStep
// always executes phases 1-9 unconditionally and leaves pause handling to
// the caller not invoking RunStep while paused.
type StepExecutor struct {
	log *slog.Logger

	clock     *clock.Clock
	registrar *trigger.Registrar
	perf      *telemetry.SimulationPerformance

	simulators  []model.Model
	vehicles    []model.Model
	controllers []model.Model

	timed      *callback.Timed
	retryBudget int

	aborted bool
}

// New constructs a StepExecutor, registering the built-in time/next
// callback wiring (a Timed heap for "time", an Alias decorator rewriting
// "next" into "time" at insertion) and a fallback Direct-callback factory
// for the per-signal "evaluate:<signal>" and "transition:<signal>" kinds
// that can't be registered until a stackfile names them.
func New(cfg Config) *StepExecutor {
	timed := callback.NewTimed()
	cfg.Registrar.RegisterCallback("time", timed)
	cfg.Registrar.RegisterCallback("next", callback.NewAlias(timed, builtin.NewNextRewrite(func() duration.Duration {
		return cfg.Clock.Current().Time()
	})))
	cfg.Registrar.SetFallbackCallback(func(kind string) trigger.Callback {
		return callback.NewDirect()
	})

	retry := cfg.RetryBudget
	if retry <= 0 {
		retry = 8
	}

	return &StepExecutor{
		log:         slog.Default().With("component", "executor"),
		clock:       cfg.Clock,
		registrar:   cfg.Registrar,
		perf:        cfg.Telemetry,
		simulators:  cfg.Simulators,
		vehicles:    cfg.Vehicles,
		controllers: cfg.Controllers,
		timed:       timed,
		retryBudget: retry,
	}
}

// Abort marks the executor aborted; the next RunStep call returns an
// Aborted RuntimeError instead of running phase 2 onward (phase 1: the
// pre-step abort check).
func (e *StepExecutor) Abort() { e.aborted = true }

// RunStep executes exactly one fixed-step tick and returns the Sync
// snapshot the step completed at. Per SPEC_FULL.md §4.7's nine phases:
//  1. pre-step abort check
//  2. simulators process
//  3. vehicles process
//  4. controllers process
//  5. event harvest (collect named signals from every model)
//  6. trigger dispatch (time/next heap, evaluate/transition Direct buckets)
//  7. progress decision (retry lagging models up to the retry budget, else
//     escalate to StepStalled)
//  8. timing commit (telemetry + clock wall-time bookkeeping)
//  9. realtime pacing (sleep to the configured realtime factor)
//
// The numbers name the phases; the code runs them in this order: 1, then
// the clock advance and a drain of staged triggers, then 2-4 with 7's
// retries applied per model, then 5 and 6 together, then 9, then 8.
func (e *StepExecutor) RunStep(ctx context.Context) (cloesync.Sync, error) {
	// Phase 1: pre-step abort check.
	if e.aborted {
		return cloesync.Sync{}, cloeerr.Aborted("executor aborted before step")
	}
	if err := ctx.Err(); err != nil {
		return cloesync.Sync{}, cloeerr.Aborted(fmt.Sprintf("context cancelled: %v", err))
	}

	stepStart := time.Now()
	sync := e.clock.Advance()

	n, err := e.registrar.Drain(sync.Step())
	if err != nil {
		return sync, cloeerr.Trigger("draining staged triggers", err)
	}
	if n > 0 {
		e.log.Debug("drained staged triggers", "count", n, "step", sync.Step())
	}

	samples, err := e.processAndRetry(ctx, sync)
	if err != nil {
		return sync, err
	}

	ac := &actionContext{sync: sync, registrar: e.registrar}
	if err := e.dispatchTriggers(ac, sync); err != nil {
		return sync, cloeerr.Trigger("dispatching triggers", err)
	}

	cycleWall := duration.FromNanoseconds(time.Since(stepStart).Nanoseconds())
	padding := e.pace(sync, cycleWall)
	if e.perf != nil {
		e.perf.CommitStep(sync.Step(), samples, cycleWall+padding, padding)
	}
	e.clock.RecordStepWallTime(time.Since(stepStart))

	return sync, nil
}

// processAndRetry runs phases 2-4 (simulators, vehicles, controllers) and
// implements phase 7's progress decision: any model whose Process call
// returns a time short of the step target is retried, up to the retry
// budget, before the step is declared stalled.
func (e *StepExecutor) processAndRetry(ctx context.Context, sync cloesync.Sync) ([]telemetry.Sample, error) {
	groups := []struct {
		name   string
		models []model.Model
	}{
		{"simulator", e.simulators},
		{"vehicle", e.vehicles},
		{"controller", e.controllers},
	}

	samples := make([]telemetry.Sample, 0, len(e.simulators)+len(e.vehicles)+len(e.controllers))
	lagging := make(map[string]bool)

	for _, g := range groups {
		for _, m := range g.models {
			lastReached, ms, err := e.processOneWithRetry(ctx, m, sync)
			if err != nil {
				return nil, cloeerr.ModelFailure(m.Name(), fmt.Sprintf("%s process failed", g.name), err)
			}
			samples = append(samples, telemetry.Sample{Label: m.Name(), Milliseconds: ms})
			if lastReached < sync.Time() {
				lagging[m.Name()] = true
			}
		}
	}

	if len(lagging) > 0 {
		names := make([]string, 0, len(lagging))
		for n := range lagging {
			names = append(names, n)
		}
		return nil, cloeerr.StepStalled(sync.Step(), names)
	}
	return samples, nil
}

func (e *StepExecutor) processOneWithRetry(ctx context.Context, m model.Model, sync cloesync.Sync) (duration.Duration, float64, error) {
	start := time.Now()
	reached, err := m.Process(sync)
	if err != nil {
		return 0, 0, err
	}
	for attempt := 0; reached < sync.Time() && attempt < e.retryBudget; attempt++ {
		if err := ctx.Err(); err != nil {
			return reached, msSince(start), nil
		}
		reached, err = m.Process(sync)
		if err != nil {
			return 0, msSince(start), err
		}
	}
	return reached, msSince(start), nil
}

func msSince(start time.Time) float64 {
	return duration.FromNanoseconds(time.Since(start).Nanoseconds()).Milliseconds()
}

// dispatchTriggers fires the Timed heap and every auto-vivified Direct
// bucket (evaluate:<signal>, transition:<signal>, and any model-specific
// kind registered directly) with the signal values harvested from every
// model implementing SignalSource. Buckets are visited in sorted-kind
// order rather than Callbacks()'s native map order, so that which bucket
// runs first is a deterministic function of the kind name and not of Go's
// randomized map iteration — each bucket's own Direct.Fire then applies
// the (source-tag, insertion-order) tie-break within it.
func (e *StepExecutor) dispatchTriggers(ac *actionContext, sync cloesync.Sync) error {
	if err := e.timed.Fire(ac, sync.Time()); err != nil {
		return err
	}

	signals := e.harvestSignals()
	callbacks := e.registrar.Callbacks()
	kinds := make([]string, 0, len(callbacks))
	for kind := range callbacks {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)

	var firstErr error
	for _, kind := range kinds {
		d, ok := callbacks[kind].(*callback.Direct)
		if !ok {
			continue // Timed/Alias already fired explicitly above.
		}
		name, ok := signalNameFor(kind)
		if !ok {
			continue // not a signal-keyed kind (e.g. a nil event bucket fired by the driver)
		}
		value, ok := signals[name]
		if !ok {
			continue // signal not yet published this step
		}
		if err := d.Fire(ac, value); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *StepExecutor) harvestSignals() map[string]any {
	out := make(map[string]any)
	for _, group := range [][]model.Model{e.simulators, e.vehicles, e.controllers} {
		for _, m := range group {
			if src, ok := m.(SignalSource); ok {
				for k, v := range src.Signals() {
					out[k] = v
				}
			}
		}
	}
	return out
}

// signalNameFor extracts the signal/stream name from an auto-vivified
// "evaluate:<signal>" or "transition:<signal>" kind string.
func signalNameFor(kind string) (string, bool) {
	for _, prefix := range []string{"evaluate:", "transition:"} {
		if len(kind) > len(prefix) && kind[:len(prefix)] == prefix {
			return kind[len(prefix):], true
		}
	}
	return "", false
}

// pace implements phase 9: realtime pacing. If the configured realtime
// factor is unlimited (<=0, per the resolved Open Question), no sleep is
// ever performed and pause remains the exclusive responsibility of the
// Simulation Driver's state machine. Otherwise, the executor sleeps for
// however long is needed so that wall-clock step duration matches
// stepWidth/realtimeFactor, never sleeping a negative amount.
func (e *StepExecutor) pace(sync cloesync.Sync, cycleWall duration.Duration) duration.Duration {
	if sync.IsRealtimeFactorUnlimited() {
		return 0
	}
	target := duration.FromSeconds(sync.StepWidth().Seconds() / sync.RealtimeFactor())
	if cycleWall >= target {
		return 0
	}
	pad := target - cycleWall
	time.Sleep(pad.AsStdlib())
	return pad
}
