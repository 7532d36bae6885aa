// Package component defines the Component model and the capability
// interfaces vehicles and controllers use to query typed views of it.
package component

import (
	"encoding/json"
	"sync/atomic"

	"github.com/cloe-sim/cloe-go/internal/duration"
	"github.com/cloe-sim/cloe-go/internal/model"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
)

// globalID is the process-wide monotonic component id counter. Ids start at
// 1; 0 is never a valid id. Scoped to the process rather than to a driver
// instance, per the teacher's UUIDv7Generator/FixedGenerator interchangeable
// pattern, generalized here to integers: NewCounterFrom gives tests a
// deterministic, isolated sequence instead of reaching into package state.
var globalID atomic.Uint64

// IDGenerator produces component ids. The default package-level generator
// is process-wide monotonic; tests that need isolation construct their own
// with NewCounterFrom.
type IDGenerator struct {
	counter atomic.Uint64
}

// NewCounterFrom creates an IDGenerator whose first Next() returns start+1.
func NewCounterFrom(start uint64) *IDGenerator {
	g := &IDGenerator{}
	g.counter.Store(start)
	return g
}

// Next returns the next unique id from this generator.
func (g *IDGenerator) Next() uint64 {
	return g.counter.Add(1)
}

// NextID returns the next id from the process-wide global generator.
func NextID() uint64 {
	return globalID.Add(1)
}

// Component is a Model with a process-wide-unique id and a JSON state
// serializer. It is owned by zero or more Vehicles via shared references;
// multiple Vehicle keys may alias the same Component.
type Component interface {
	model.Model
	// ID returns the unique numeric id of this component.
	ID() uint64
	// ActiveState returns the JSON representation of the component's
	// current state.
	ActiveState() (json.RawMessage, error)
}

// Base is an embeddable struct providing the Component contract on top of
// model.Base: an id assigned at construction and a default Process that
// simply reports the target time (overridden by real sensors/actuators).
type Base struct {
	model.Base
	id uint64
}

// NewBase constructs a component Base with a freshly allocated global id.
func NewBase(name string) Base {
	return Base{Base: model.NewBase(name), id: NextID()}
}

// NewBaseWithGenerator constructs a component Base using the given
// generator instead of the global counter (for deterministic tests).
func NewBaseWithGenerator(name string, gen *IDGenerator) Base {
	return Base{Base: model.NewBase(name), id: gen.Next()}
}

func (b *Base) ID() uint64 { return b.id }

// Process is the Component default: report the target time reached. Real
// components override this.
func (b *Base) Process(s cloesync.Sync) (duration.Duration, error) {
	return s.Time(), nil
}

// EgoSensor is the capability view for components reporting the state of
// the vehicle's own ego entity.
type EgoSensor interface {
	Component
	EgoState() (json.RawMessage, error)
}

// ObjectSensor is the capability view for components reporting detected
// world objects.
type ObjectSensor interface {
	Component
	Objects() (json.RawMessage, error)
}

// LaneSensor is the capability view for components reporting lane boundary
// geometry.
type LaneSensor interface {
	Component
	LaneBoundaries() (json.RawMessage, error)
}

// Actuator is the capability view for components accepting control input
// from a controller.
type Actuator interface {
	Component
	Actuate(cmd json.RawMessage) error
}
