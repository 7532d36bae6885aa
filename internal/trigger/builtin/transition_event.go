package builtin

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// transitionEvent is a two-state edge detector over an enum-typed value
// stream, modeled directly on original_source/runtime/include/cloe/trigger/
// transition_event.hpp's Transition<T>: it fires only on the step the
// stream moves from From to To, using an internal "ready" flag so a stream
// that dwells in From for many steps does not re-fire, and a stream that
// never passes through From does not fire when it reaches To by other
// means.
type transitionEvent struct {
	signal   string
	from, to string
	ready    bool
}

// Signal returns the name of the host-threaded state stream this event
// watches.
func (e *transitionEvent) Signal() string { return e.signal }

// Kind encodes the signal name so the registrar routes every transition
// event watching the same stream to one shared Direct callback
// (auto-vivified on first sight), while transitions over different streams
// land in separate buckets. Mirrors original_source's per-stream
// DirectCallback<Transition<T>, T> registered under "<model>/<signal>".
func (e *transitionEvent) Kind() string { return "transition:" + e.signal }

// Matches implements callback.Matcher. value must be a string (or a
// fmt.Stringer-compatible enum value coerced by the caller to string
// before threading it in).
func (e *transitionEvent) Matches(value any) bool {
	s, ok := value.(string)
	if !ok {
		return false
	}
	switch {
	case s == e.from:
		e.ready = true
		return false
	case s == e.to && e.ready:
		e.ready = false
		return true
	default:
		// Any other state resets readiness: the edge must be observed
		// directly from From to To on the very next differing sample.
		if s != e.to {
			e.ready = false
		}
		return false
	}
}

// MarshalJSON renders the long form `{"name":"transition","signal":...,
// "from":...,"to":...}`, the inverse of transitionEventFactory.New. The
// internal "ready" edge-detector state is not part of a trigger's
// specification and is intentionally dropped.
func (e *transitionEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string `json:"name"`
		Signal string `json:"signal"`
		From   string `json:"from"`
		To     string `json:"to"`
	}{Name: "transition", Signal: e.signal, From: e.from, To: e.to})
}

type transitionEventConfig struct {
	Signal string `json:"signal"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type transitionEventFactory struct{}

// NewTransitionEventFactory constructs the "transition" EventFactory.
func NewTransitionEventFactory() trigger.EventFactory { return &transitionEventFactory{} }

func (f *transitionEventFactory) Name() string { return "transition" }

func (f *transitionEventFactory) New(config json.RawMessage) (trigger.Event, error) {
	var c transitionEventConfig
	if err := json.Unmarshal(config, &c); err != nil {
		return nil, fmt.Errorf("transition event: %w", err)
	}
	if c.From == "" || c.To == "" {
		return nil, fmt.Errorf("transition event: both \"from\" and \"to\" are required")
	}
	signal := c.Signal
	if signal == "" {
		signal = "state"
	}
	return &transitionEvent{signal: signal, from: c.From, to: c.To}, nil
}

// FromInline parses "[<signal>:]<from>-><to>", e.g.
// "acc_state:Active->Override" or bare "Active->Override" (signal
// defaults to "state" for setups with a single canonical state stream).
func (f *transitionEventFactory) FromInline(arg string) (trigger.Event, error) {
	signal := "state"
	rest := arg
	if idx := strings.IndexByte(arg, ':'); idx >= 0 {
		signal = arg[:idx]
		rest = arg[idx+1:]
	}
	parts := strings.SplitN(rest, "->", 2)
	if len(parts) != 2 {
		return nil, fmt.Errorf("transition event: expected \"from->to\", got %q", arg)
	}
	return &transitionEvent{signal: signal, from: parts[0], to: parts[1]}, nil
}
