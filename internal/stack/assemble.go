package stack

import (
	"fmt"
	"sync/atomic"

	"github.com/cloe-sim/cloe-go/internal/component"
	"github.com/cloe-sim/cloe-go/internal/model"
	"github.com/cloe-sim/cloe-go/internal/plugin"
	"github.com/cloe-sim/cloe-go/internal/vehicle"
)

// vehicleIDs is the process-wide monotonic vehicle id counter, mirroring
// component.NextID's discipline one level up (vehicles share the same
// "process-wide monotonic counter, acceptable to scope to the driver
// instance" design note as components).
var vehicleIDs atomic.Uint64

func nextVehicleID() uint64 { return vehicleIDs.Add(1) }

// Assembled is the model graph a validated Config produces: the three
// plugin-execution-phase groups (§4.7) plus the concrete *vehicle.Vehicle
// values Vehicles also appears as, for callers that need to query
// components directly (e.g. a probe command listing signals.json).
type Assembled struct {
	Simulators  []model.Model
	Vehicles    []model.Model
	Controllers []model.Model

	VehicleGraphs []*vehicle.Vehicle
}

// Assemble builds the Vehicle & Component Graph and the three model
// groups the Step Executor fans Process out to, from a validated Config
// and the plugin Registry bindings resolve against. It does not call
// Connect/Enroll/Start — that is the Simulation Driver's job — it only
// constructs the model instances and wires the named component maps.
func Assemble(cfg *Config, registry *plugin.Registry) (*Assembled, error) {
	out := &Assembled{}

	for _, s := range cfg.Simulators {
		m, err := makeModel(registry, s.Binding, s.Args)
		if err != nil {
			return nil, fmt.Errorf("stack: assembling simulator %q: %w", displayName(s.Name, s.Binding), err)
		}
		out.Simulators = append(out.Simulators, m)
	}

	for _, v := range cfg.Vehicles {
		veh := vehicle.New(nextVehicleID(), v.Name)
		for key, c := range v.Components {
			inst, err := makeModel(registry, c.Binding, c.Args)
			if err != nil {
				return nil, fmt.Errorf("stack: assembling vehicle %q component %q: %w", v.Name, key, err)
			}
			comp, ok := inst.(component.Component)
			if !ok {
				return nil, fmt.Errorf("stack: binding %q does not produce a Component", c.Binding)
			}
			if err := veh.Add(key, comp); err != nil {
				return nil, fmt.Errorf("stack: vehicle %q: %w", v.Name, err)
			}
		}
		out.Vehicles = append(out.Vehicles, veh)
		out.VehicleGraphs = append(out.VehicleGraphs, veh)
	}

	for _, c := range cfg.Controllers {
		m, err := makeModel(registry, c.Binding, c.Args)
		if err != nil {
			return nil, fmt.Errorf("stack: assembling controller for vehicle %q: %w", c.Vehicle, err)
		}
		out.Controllers = append(out.Controllers, m)
	}

	return out, nil
}

func makeModel(registry *plugin.Registry, binding string, args any) (model.Model, error) {
	f, err := registry.Get(binding)
	if err != nil {
		return nil, err
	}
	inst, err := f.Clone().Make(args)
	if err != nil {
		return nil, fmt.Errorf("binding %q: %w", binding, err)
	}
	m, ok := inst.(model.Model)
	if !ok {
		return nil, fmt.Errorf("binding %q does not produce a model.Model", binding)
	}
	return m, nil
}

func displayName(name, binding string) string {
	if name != "" {
		return name
	}
	return binding
}
