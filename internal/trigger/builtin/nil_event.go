// Package builtin provides the built-in event and action factories named
// in SPEC_FULL.md §4.6: time/next/start/stop/pause/resume/failure/
// evaluate/transition events, and log/bundle/insert/push_release/command
// actions.
package builtin

import (
	"encoding/json"

	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// nilEvent is a stateless event fired by the driver itself (start, stop,
// pause, resume, failure) carrying no data; Matches always returns true
// when fired, since the driver only fires the kind at the moment it
// actually happens.
type nilEvent struct {
	kind string
}

func (e *nilEvent) Kind() string       { return e.kind }
func (e *nilEvent) Matches(_ any) bool { return true }

// MarshalJSON renders the long form `{"name": "<kind>"}`; a nil event
// carries no config to lose.
func (e *nilEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name string `json:"name"`
	}{Name: e.kind})
}

// nilEventFactory is parameterized by name, realizing the original source's
// DEFINE_NIL_EVENT macro (one factory definition shared by all five
// stateless driver events) as a single Go constructor instead of five
// hand-duplicated types.
type nilEventFactory struct {
	name string
}

// NewNilEvent constructs an EventFactory for a stateless, driver-fired
// event kind.
func NewNilEvent(name string) trigger.EventFactory {
	return &nilEventFactory{name: name}
}

func (f *nilEventFactory) Name() string { return f.name }

func (f *nilEventFactory) New(_ json.RawMessage) (trigger.Event, error) {
	return &nilEvent{kind: f.name}, nil
}

func (f *nilEventFactory) FromInline(_ string) (trigger.Event, error) {
	return &nilEvent{kind: f.name}, nil
}

// RegisterNilEvents registers the five driver-fired nil events on r.
func RegisterNilEvents(r *trigger.Registrar) {
	for _, name := range []string{"start", "stop", "pause", "resume", "failure"} {
		r.RegisterEventFactory(name, NewNilEvent(name))
	}
}
