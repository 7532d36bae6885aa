// Package demobasic provides the built-in plugin bindings registered
// without dynamic library loading, per SPEC_FULL.md §4.2's "built-in
// factories may be registered without library loading; they share the
// same factory interface". These stand in for the compiled-binary
// simulator/controller/component plugins a real deployment loads from
// disk, giving `cloe run`/`check`/`probe`/`dump` something to actually
// execute against out of the box.
//
// Grounded on eclipse/cloe's own demo plugins (original_source's
// plugins/demo_stuck/src/demo_stuck.cpp): a controller that advances by a
// fixed progress-per-step and optionally stops progressing past a
// configured time, used upstream to test stall detection; DemoController
// here reproduces that exact config shape and behavior. DemoSimulator and
// DemoEgoSensor have no direct upstream analog (demo_stuck only ships a
// controller) and are grounded instead on SPEC_FULL.md §4.1/§4.4's own
// contracts (Process advances to sync.Time(), components expose
// ActiveState/Signals).
package demobasic

import (
	"encoding/json"
	"fmt"

	"github.com/cloe-sim/cloe-go/internal/component"
	"github.com/cloe-sim/cloe-go/internal/duration"
	"github.com/cloe-sim/cloe-go/internal/model"
	"github.com/cloe-sim/cloe-go/internal/plugin"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
)

// Register installs every demobasic binding into r.
func Register(r *plugin.Registry) error {
	for _, f := range []plugin.Factory{
		NewSimulatorFactory(),
		NewControllerFactory(),
		NewEgoSensorFactory(),
	} {
		if err := r.Register(f); err != nil {
			return err
		}
	}
	return nil
}

// --- simulator ---

// SimulatorConfig configures DemoSimulator.
type SimulatorConfig struct {
	// SpeedRampKmphPerSec is how fast the simulated ego speed ramps toward
	// TargetKmph, used to exercise evaluate-event scenarios (S3).
	SpeedRampKmphPerSec float64 `json:"speed_ramp_kmph_per_sec"`
	TargetKmph          float64 `json:"target_kmph"`
}

// DemoSimulator advances instantly every step (it has no external process
// to wait on) and exposes a ramping "v_kmph" signal for evaluate/transition
// triggers to observe.
type DemoSimulator struct {
	model.Base
	cfg   SimulatorConfig
	speed float64
}

func (s *DemoSimulator) Process(sync cloesync.Sync) (duration.Duration, error) {
	dt := sync.StepWidth().Seconds()
	step := s.cfg.SpeedRampKmphPerSec * dt
	switch {
	case s.speed < s.cfg.TargetKmph:
		s.speed += step
		if s.speed > s.cfg.TargetKmph {
			s.speed = s.cfg.TargetKmph
		}
	case s.speed > s.cfg.TargetKmph:
		s.speed -= step
		if s.speed < s.cfg.TargetKmph {
			s.speed = s.cfg.TargetKmph
		}
	}
	return sync.Time(), nil
}

// Signals implements executor.SignalSource.
func (s *DemoSimulator) Signals() map[string]any {
	return map[string]any{"v_kmph": s.speed}
}

type simulatorFactory struct{ cfg SimulatorConfig }

// NewSimulatorFactory constructs the "demobasic/simulator" binding.
func NewSimulatorFactory() plugin.Factory {
	return &simulatorFactory{cfg: SimulatorConfig{SpeedRampKmphPerSec: 30, TargetKmph: 0}}
}

func (f *simulatorFactory) Manifest() plugin.Manifest {
	return plugin.Manifest{Binding: "demobasic/simulator", Type: plugin.TypeSimulator, TypeVersion: "1.0"}
}

func (f *simulatorFactory) Clone() plugin.Factory { cp := *f; return &cp }

func (f *simulatorFactory) Make(config any) (any, error) {
	cfg := f.cfg
	if err := decodeArgs(config, &cfg); err != nil {
		return nil, fmt.Errorf("demobasic/simulator: %w", err)
	}
	return &DemoSimulator{Base: model.NewBase("demobasic/simulator"), cfg: cfg}, nil
}

func (f *simulatorFactory) ArgsSchema() string {
	return `{speed_ramp_kmph_per_sec?: number, target_kmph?: number}`
}

// --- controller ---

// ControllerConfig mirrors eclipse/cloe's demo_stuck plugin: progress a
// fixed amount per step, optionally halting forever once halt_progress_at
// is reached (used to exercise the StepStalled scenario, S6).
type ControllerConfig struct {
	ProgressPerStep duration.Duration `json:"-"`
	HaltProgressAt  duration.Duration `json:"-"`

	ProgressPerStepMs float64 `json:"progress_per_step_ms"`
	HaltProgressAtMs  float64 `json:"halt_progress_at_ms"`
}

// DemoController advances by config.ProgressPerStep each call and, when
// config.HaltProgressAt is positive, stops advancing once its time has
// reached or passed HaltProgressAt (matching demo_stuck.cpp's
// `time_ < halt_progress_at_` guard) — so a stackfile can deliberately
// configure a controller that never catches up, to exercise stall
// detection and abort.
type DemoController struct {
	model.Base
	cfg  ControllerConfig
	time duration.Duration
}

func (c *DemoController) Process(sync cloesync.Sync) (duration.Duration, error) {
	if c.cfg.HaltProgressAt <= 0 || c.time < c.cfg.HaltProgressAt {
		c.time += c.cfg.ProgressPerStep
	}
	return c.time, nil
}

type controllerFactory struct{ cfg ControllerConfig }

// NewControllerFactory constructs the "demobasic/controller" binding.
func NewControllerFactory() plugin.Factory {
	return &controllerFactory{cfg: ControllerConfig{ProgressPerStepMs: 20}}
}

func (f *controllerFactory) Manifest() plugin.Manifest {
	return plugin.Manifest{Binding: "demobasic/controller", Type: plugin.TypeController, TypeVersion: "1.0"}
}

func (f *controllerFactory) Clone() plugin.Factory { cp := *f; return &cp }

func (f *controllerFactory) Make(config any) (any, error) {
	cfg := f.cfg
	if err := decodeArgs(config, &cfg); err != nil {
		return nil, fmt.Errorf("demobasic/controller: %w", err)
	}
	cfg.ProgressPerStep = duration.FromSeconds(cfg.ProgressPerStepMs / 1000)
	cfg.HaltProgressAt = duration.FromSeconds(cfg.HaltProgressAtMs / 1000)
	return &DemoController{Base: model.NewBase("demobasic/controller"), cfg: cfg}, nil
}

func (f *controllerFactory) ArgsSchema() string {
	return `{progress_per_step_ms?: number, halt_progress_at_ms?: number}`
}

// --- component ---

// EgoSensorConfig configures DemoEgoSensor.
type EgoSensorConfig struct {
	InitialStation float64 `json:"initial_station_m"`
}

// DemoEgoSensor is a minimal EgoSensor component: it reports a station
// coordinate advancing with simulation time at a fixed 10 m/s, enough for
// a controller or trigger to observe ego progress.
type DemoEgoSensor struct {
	component.Base
	cfg     EgoSensorConfig
	station float64
}

func (e *DemoEgoSensor) Process(sync cloesync.Sync) (duration.Duration, error) {
	e.station = e.cfg.InitialStation + 10*sync.Time().Seconds()
	return sync.Time(), nil
}

func (e *DemoEgoSensor) ActiveState() (json.RawMessage, error) {
	return e.EgoState()
}

func (e *DemoEgoSensor) EgoState() (json.RawMessage, error) {
	return json.Marshal(map[string]float64{"station_m": e.station})
}

type egoSensorFactory struct{ cfg EgoSensorConfig }

// NewEgoSensorFactory constructs the "demobasic/ego_sensor" binding.
func NewEgoSensorFactory() plugin.Factory {
	return &egoSensorFactory{}
}

func (f *egoSensorFactory) Manifest() plugin.Manifest {
	return plugin.Manifest{Binding: "demobasic/ego_sensor", Type: plugin.TypeComponent, TypeVersion: "1.0"}
}

func (f *egoSensorFactory) Clone() plugin.Factory { cp := *f; return &cp }

func (f *egoSensorFactory) Make(config any) (any, error) {
	cfg := f.cfg
	if err := decodeArgs(config, &cfg); err != nil {
		return nil, fmt.Errorf("demobasic/ego_sensor: %w", err)
	}
	return &DemoEgoSensor{Base: component.NewBase("demobasic/ego_sensor"), cfg: cfg}, nil
}

func (f *egoSensorFactory) ArgsSchema() string {
	return `{initial_station_m?: number}`
}

// decodeArgs unmarshals config (expected to be json.RawMessage, []byte,
// or nil) into dst, leaving dst at its zero/default value when config
// carries no bytes — every stackfile entry's `args` is optional.
func decodeArgs(config any, dst any) error {
	var raw []byte
	switch v := config.(type) {
	case nil:
		return nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported config type %T", config)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}
