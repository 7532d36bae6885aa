// Package trigger implements the Trigger Registrar: name-keyed event/action
// factories, trigger parsing and validation, and the routing of inserted
// triggers to the callback registered for their event's kind.
package trigger

import (
	"encoding/json"
	"fmt"

	"github.com/cloe-sim/cloe-go/internal/idhash"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
)

// SourceTag is the provenance of a trigger, used as the primary tie-break
// key when multiple triggers fire in the same step (filesystem before
// network before model before instance before transient).
type SourceTag int

const (
	SourceFilesystem SourceTag = iota
	SourceNetwork
	SourceModel
	SourceInstance
	SourceTransient
)

func (s SourceTag) String() string {
	switch s {
	case SourceFilesystem:
		return "filesystem"
	case SourceNetwork:
		return "network"
	case SourceModel:
		return "model"
	case SourceInstance:
		return "instance"
	case SourceTransient:
		return "transient"
	default:
		return "unknown"
	}
}

// Outcome is returned by Action.Execute and tells the dispatch layer how to
// treat the trigger that fired.
type Outcome int

const (
	// OutcomeNone: no special handling; sticky triggers remain armed,
	// non-sticky triggers are removed as usual.
	OutcomeNone Outcome = iota
	// OutcomeUnpin: remove the trigger regardless of stickiness. No
	// built-in action returns it; the Direct callback honours it for sticky
	// triggers.
	OutcomeUnpin
)

// Event is the minimal contract every event kind satisfies. Kind-specific
// behavior (direct predicate matching, timed target time, alias rewriting)
// is exposed through the narrower interfaces in the callback package that
// a concrete event type additionally implements.
type Event interface {
	// Kind returns the event-factory name this event was constructed from
	// (e.g. "time", "next", "evaluate", "transition", "start").
	Kind() string
}

// ActionContext is threaded to Action.Execute: the sync snapshot the action
// is running under, and a way to insert new triggers (staged for the next
// step, never the current one — see InsertTrigger).
type ActionContext interface {
	Sync() cloesync.Sync
	// InsertTrigger stages t for insertion; per the resolved ordering Open
	// Question, it becomes eligible to fire no earlier than the next step.
	InsertTrigger(t *Trigger) error
}

// Action is the behavior side of a Trigger.
type Action interface {
	// Kind returns the action-factory name this action was constructed from.
	Kind() string
	// Execute runs the action and returns an outcome.
	Execute(ctx ActionContext) (Outcome, error)
	// IsSignificant reports whether this action can terminate, reset, or
	// otherwise perturb the run. Significant actions must never be
	// concealed (Trigger.Conceal must be false).
	IsSignificant() bool
}

// Trigger is the triple (Event, Action, flags) described in SPEC_FULL.md §3.
type Trigger struct {
	// ID is a content-addressed identifier over (Label, Event, Action,
	// Sticky, Conceal, Optional, Source), computed once at construction.
	// Two triggers parsed from equivalent JSON always share an ID, giving
	// SPEC_FULL.md §8's parse→marshal→parse round trip a stable identity
	// to check equality against.
	ID       string
	Label    string
	Event    Event
	Action   Action
	Sticky   bool
	Conceal  bool
	Optional bool
	Source   SourceTag

	// insertedAtStep records the step at which Drain took this trigger off
	// the staging buffer, exposed through InsertedAtStep; nothing in this
	// package enforces eligibility with it.
	insertedAtStep int64
	staged         bool
}

// triggerIdentity is the value idhash.Hash runs over; marshaled through the
// same Event/Action MarshalJSON implementations the wire form uses, so the
// id is stable under any parse/marshal round trip that preserves meaning.
type triggerIdentity struct {
	Label    string `json:"label,omitempty"`
	Event    Event  `json:"event"`
	Action   Action `json:"action"`
	Sticky   bool   `json:"sticky,omitempty"`
	Conceal  bool   `json:"conceal,omitempty"`
	Optional bool   `json:"optional,omitempty"`
	Source   string `json:"source"`
}

// NewTrigger constructs a Trigger, validating conceal/significant per
// SPEC_FULL.md §4.5: "conceal ⇒ ¬action.is_significant()".
func NewTrigger(label string, ev Event, ac Action, sticky, conceal, optional bool, source SourceTag) (*Trigger, error) {
	if conceal && ac.IsSignificant() {
		return nil, fmt.Errorf("trigger: cannot conceal a significant action %q", ac.Kind())
	}
	id, err := idhash.Hash(triggerIdentity{
		Label:    label,
		Event:    ev,
		Action:   ac,
		Sticky:   sticky,
		Conceal:  conceal,
		Optional: optional,
		Source:   source.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("trigger: computing id: %w", err)
	}
	return &Trigger{
		ID:       id,
		Label:    label,
		Event:    ev,
		Action:   ac,
		Sticky:   sticky,
		Conceal:  conceal,
		Optional: optional,
		Source:   source,
	}, nil
}

// MarshalJSON renders the trigger as its JSON wire form, mirroring the
// stackfile `triggers` entry shape. Event and Action are marshaled through
// their own MarshalJSON (the long-form `{"name": ..., ...config}` object),
// not reduced to Event.Kind()/Action.Kind() — a trigger's kind alone drops
// its target time, predicate, or action config and cannot be re-parsed.
func (t *Trigger) MarshalJSON() ([]byte, error) {
	eventJSON, err := json.Marshal(t.Event)
	if err != nil {
		return nil, fmt.Errorf("trigger: marshal event: %w", err)
	}
	actionJSON, err := json.Marshal(t.Action)
	if err != nil {
		return nil, fmt.Errorf("trigger: marshal action: %w", err)
	}
	return json.Marshal(struct {
		ID       string          `json:"id,omitempty"`
		Label    string          `json:"label,omitempty"`
		Event    json.RawMessage `json:"event"`
		Action   json.RawMessage `json:"action"`
		Sticky   bool            `json:"sticky,omitempty"`
		Conceal  bool            `json:"conceal,omitempty"`
		Optional bool            `json:"optional,omitempty"`
		Source   string          `json:"source"`
	}{
		ID:       t.ID,
		Label:    t.Label,
		Event:    eventJSON,
		Action:   actionJSON,
		Sticky:   t.Sticky,
		Conceal:  t.Conceal,
		Optional: t.Optional,
		Source:   t.Source.String(),
	})
}
