package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/cloe-sim/cloe-go/internal/duration"
	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// timeEvent fires once when sync.Time() >= Target. Implements
// callback.TimedEvent via TargetTime().
type timeEvent struct {
	target duration.Duration
}

func (e *timeEvent) Kind() string                  { return "time" }
func (e *timeEvent) TargetTime() duration.Duration { return e.target }

// MarshalJSON renders the long form `{"name":"time","at":...}`, the inverse
// of timeEventFactory.New, so a fired or unfired timeEvent round-trips
// through a stackfile's trigger JSON without losing its target time.
func (e *timeEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name string `json:"name"`
		At   string `json:"at"`
	}{Name: "time", At: e.target.String()})
}

type timeEventConfig struct {
	At string `json:"at"`
}

type timeEventFactory struct{}

// NewTimeEventFactory constructs the "time" EventFactory.
func NewTimeEventFactory() trigger.EventFactory { return &timeEventFactory{} }

func (f *timeEventFactory) Name() string { return "time" }

func (f *timeEventFactory) New(config json.RawMessage) (trigger.Event, error) {
	var c timeEventConfig
	if err := json.Unmarshal(config, &c); err != nil {
		return nil, fmt.Errorf("time event: %w", err)
	}
	return f.FromInline(c.At)
}

func (f *timeEventFactory) FromInline(arg string) (trigger.Event, error) {
	d, err := duration.Parse(arg)
	if err != nil {
		return nil, fmt.Errorf("time event: invalid target time %q: %w", arg, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("time event: target time must be non-negative, got %v", d)
	}
	return &timeEvent{target: d}, nil
}

// nextEvent is the alias event: at insertion, callback.Alias rewrites it to
// an absolute timeEvent by adding the current sync time to Delta.
type nextEvent struct {
	delta duration.Duration
}

func (e *nextEvent) Kind() string { return "next" }

// Delta returns the offset from "now" this alias should resolve to.
func (e *nextEvent) Delta() duration.Duration { return e.delta }

// MarshalJSON renders the long form `{"name":"next","delta":...}`. Only
// reachable before the Alias rewrite replaces a Trigger's Event in place;
// once rewritten the Trigger carries a *timeEvent instead.
func (e *nextEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string `json:"name"`
		Delta string `json:"delta"`
	}{Name: "next", Delta: e.delta.String()})
}

type nextEventFactory struct{}

// NewNextEventFactory constructs the "next" EventFactory. A bare "next"
// (no argument) means "the very next step".
func NewNextEventFactory() trigger.EventFactory { return &nextEventFactory{} }

func (f *nextEventFactory) Name() string { return "next" }

func (f *nextEventFactory) New(config json.RawMessage) (trigger.Event, error) {
	var c struct {
		Delta string `json:"delta"`
	}
	if err := json.Unmarshal(config, &c); err != nil {
		return nil, fmt.Errorf("next event: %w", err)
	}
	return f.FromInline(c.Delta)
}

func (f *nextEventFactory) FromInline(arg string) (trigger.Event, error) {
	if arg == "" {
		return &nextEvent{delta: 0}, nil
	}
	d, err := duration.Parse(arg)
	if err != nil {
		return nil, fmt.Errorf("next event: invalid delta %q: %w", arg, err)
	}
	return &nextEvent{delta: d}, nil
}

// NewNextRewrite returns the callback.Alias RewriteFunc that resolves a
// nextEvent to an absolute timeEvent given the current sync time. The
// executor package supplies `now` at insertion time (current step's time),
// matching original_source's NextCallback adding sync.time() at emplace.
func NewNextRewrite(now func() duration.Duration) func(ev trigger.Event) (trigger.Event, error) {
	return func(ev trigger.Event) (trigger.Event, error) {
		ne, ok := ev.(*nextEvent)
		if !ok {
			return nil, fmt.Errorf("next event rewrite: unexpected event type %T", ev)
		}
		return &timeEvent{target: now() + ne.delta}, nil
	}
}
