// Package vehicle implements the named component graph each Vehicle model
// fans Process out to once per step.
package vehicle

import (
	"fmt"

	"github.com/cloe-sim/cloe-go/internal/component"
	"github.com/cloe-sim/cloe-go/internal/duration"
	"github.com/cloe-sim/cloe-go/internal/model"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
)

// UnknownComponentError is raised when an unknown key is queried on a
// Vehicle; it enumerates the available keys so callers can self-correct.
type UnknownComponentError struct {
	Vehicle   string
	Key       string
	Available []string
}

func (e *UnknownComponentError) Error() string {
	return fmt.Sprintf("vehicle %q has no component %q (available: %v)", e.Vehicle, e.Key, e.Available)
}

// Vehicle holds a string->Component mapping. Keys include both canonical
// component names and user-defined aliases; multiple keys may alias the
// same underlying Component (shared ownership). Per step, Process invokes
// each distinct component exactly once, deduplicated by id, in insertion
// order — the same ordered-map-plus-slice, id-dedup discipline the teacher
// uses for its flow-token bookkeeping, applied here to component ids.
type Vehicle struct {
	model.Base
	id uint64

	components map[string]component.Component
	order      []string // insertion order of keys, for deterministic fan-out
	started    bool
}

// New constructs an empty Vehicle with the given id and name.
func New(id uint64, name string) *Vehicle {
	return &Vehicle{
		Base:       model.NewBase(name),
		id:         id,
		components: make(map[string]component.Component),
	}
}

// ID returns the vehicle's unique id.
func (v *Vehicle) ID() uint64 { return v.id }

// Size returns the number of keys (not distinct components) in the vehicle.
func (v *Vehicle) Size() int { return len(v.components) }

// Has reports whether the vehicle has a component under the given key.
func (v *Vehicle) Has(key string) bool {
	_, ok := v.components[key]
	return ok
}

// Add inserts a component under a new key. Fails with an error if the key
// already exists (use Emplace to overwrite) or if the vehicle has already
// been started.
func (v *Vehicle) Add(key string, c component.Component) error {
	if v.started {
		return fmt.Errorf("vehicle %q: cannot add component %q after start", v.Name(), key)
	}
	if v.Has(key) {
		return fmt.Errorf("vehicle %q: component %q already exists", v.Name(), key)
	}
	v.Emplace(key, c)
	return nil
}

// Emplace inserts or overwrites a component under the given key, creating an
// alias if another key already maps to the same underlying component.
func (v *Vehicle) Emplace(key string, c component.Component) {
	if _, exists := v.components[key]; !exists {
		v.order = append(v.order, key)
	}
	v.components[key] = c
}

// Get returns the component stored under key, or an UnknownComponentError
// enumerating the available keys.
func (v *Vehicle) Get(key string) (component.Component, error) {
	c, ok := v.components[key]
	if !ok {
		return nil, &UnknownComponentError{Vehicle: v.Name(), Key: key, Available: v.Keys()}
	}
	return c, nil
}

// Keys returns the vehicle's keys in insertion order.
func (v *Vehicle) Keys() []string {
	out := make([]string, len(v.order))
	copy(out, v.order)
	return out
}

// Start marks the vehicle started: subsequent Add calls are rejected. Start
// also transitions the embedded lifecycle state via Base.
func (v *Vehicle) Start(s cloesync.Sync) error {
	if err := v.Base.Start(s); err != nil {
		return err
	}
	v.started = true
	return nil
}

// Process fans out to each distinct component exactly once, in insertion
// order, deduplicated by id (since multiple keys may alias one component).
// If any component's returned time is less than the target, Process
// returns that earlier time so the step loop can retry or escalate.
func (v *Vehicle) Process(s cloesync.Sync) (duration.Duration, error) {
	seen := make(map[uint64]bool, len(v.components))
	reached := s.Time()
	for _, key := range v.order {
		c := v.components[key]
		if seen[c.ID()] {
			continue
		}
		seen[c.ID()] = true
		t, err := c.Process(s)
		if err != nil {
			return 0, fmt.Errorf("vehicle %q: component %q: %w", v.Name(), key, err)
		}
		if t < reached {
			reached = t
		}
	}
	return reached, nil
}
