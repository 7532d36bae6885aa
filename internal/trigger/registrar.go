package trigger

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// EventFactory constructs Event values by name. Long-form construction
// takes a JSON schema-validated config object; inline-string construction
// takes the "<argument>" part of "<name>=<argument>" (or "" for bare
// "<name>").
type EventFactory interface {
	Name() string
	New(config json.RawMessage) (Event, error)
	FromInline(arg string) (Event, error)
}

// ActionFactory constructs Action values by name, symmetric to EventFactory.
type ActionFactory interface {
	Name() string
	New(config json.RawMessage) (Action, error)
	FromInline(arg string) (Action, error)
}

// Callback is the narrow interface the Registrar routes inserted triggers
// to. Concrete storage disciplines (direct list, timed heap, alias
// decorator) live in the callback package and implement this interface,
// avoiding an import cycle between trigger and callback.
type Callback interface {
	Insert(t *Trigger) error
}

// Registrar maintains the event/action factory tables and routes inserted
// triggers to the callback registered for their event kind. It also owns
// the thread-safe staging buffer insertions from other goroutines (e.g. an
// HTTP handler) land in, drained once per step by the Step Executor —
// directly modeled on the teacher's eventQueue: an unbounded mutex-guarded
// FIFO with a buffered (capacity 1) signal channel for context-aware
// blocking waits.
type Registrar struct {
	mu             sync.Mutex
	eventFactories  map[string]EventFactory
	actionFactories map[string]ActionFactory
	callbacks       map[string]Callback

	stagingMu sync.Mutex
	staging   []*Trigger
	signal    chan struct{}
	closed    bool

	currentStep int64

	fallback func(kind string) Callback
}

// NewRegistrar constructs an empty Registrar.
func NewRegistrar() *Registrar {
	return &Registrar{
		eventFactories:  make(map[string]EventFactory),
		actionFactories: make(map[string]ActionFactory),
		callbacks:       make(map[string]Callback),
		staging:         make([]*Trigger, 0, 64),
		signal:          make(chan struct{}, 1),
	}
}

// RegisterEventFactory registers an event factory under its name. Satisfies
// model.Registrar (the `any` parameter there is asserted to EventFactory
// here).
func (r *Registrar) RegisterEventFactory(name string, factory any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.eventFactories[name] = factory.(EventFactory)
}

// RegisterActionFactory registers an action factory under its name.
func (r *Registrar) RegisterActionFactory(name string, factory any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.actionFactories[name] = factory.(ActionFactory)
}

// RegisterCallback registers the callback that triggers whose event has the
// given kind should be routed to. Called once per event kind during setup.
func (r *Registrar) RegisterCallback(eventKind string, cb Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[eventKind] = cb
}

// SetFallbackCallback installs the factory used to auto-vivify a callback
// for event kinds that were never explicitly registered — namely the
// per-signal "evaluate:<signal>" and per-stream "transition:<signal>"
// kinds, whose signal names aren't known until a stackfile is parsed. The
// first trigger seen for a given kind causes fn(kind) to be called once;
// the result is cached and reused for every later trigger and Fire call
// against that same kind, mirroring original_source's pattern of one
// DirectCallback per uniquely-named registration.
func (r *Registrar) SetFallbackCallback(fn func(kind string) Callback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = fn
}

// Callbacks returns a snapshot of every currently registered (or
// auto-vivified) (kind -> Callback) pair, for a caller that needs to fire
// each one with its own current value once per step.
func (r *Registrar) Callbacks() map[string]Callback {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]Callback, len(r.callbacks))
	for k, v := range r.callbacks {
		out[k] = v
	}
	return out
}

// triggerJSON mirrors a stackfile `triggers[]` entry.
type triggerJSON struct {
	Label    string          `json:"label"`
	Event    json.RawMessage `json:"event"`
	Action   json.RawMessage `json:"action"`
	Sticky   bool            `json:"sticky"`
	Conceal  bool            `json:"conceal"`
	Optional bool            `json:"optional"`
	Source   string          `json:"source"`
}

// Parse builds a Trigger from a JSON trigger object. Per SPEC_FULL.md
// §4.5: resolve event, resolve action, apply flags, validate
// conceal⇒¬significant. If construction fails and optional is true, the
// error is swallowed (caller should log) and (nil, nil) is returned meaning
// "no trigger, not an error".
func (r *Registrar) Parse(raw json.RawMessage) (*Trigger, error) {
	var tj triggerJSON
	if err := json.Unmarshal(raw, &tj); err != nil {
		return nil, fmt.Errorf("trigger: invalid trigger JSON: %w", err)
	}

	ev, err := r.resolveEvent(tj.Event)
	if err != nil {
		if tj.Optional {
			return nil, nil
		}
		return nil, fmt.Errorf("trigger: resolving event: %w", err)
	}

	ac, err := r.resolveAction(tj.Action)
	if err != nil {
		if tj.Optional {
			return nil, nil
		}
		return nil, fmt.Errorf("trigger: resolving action: %w", err)
	}

	source := parseSource(tj.Source)
	t, err := NewTrigger(tj.Label, ev, ac, tj.Sticky, tj.Conceal, tj.Optional, source)
	if err != nil {
		if tj.Optional {
			return nil, nil
		}
		return nil, err
	}
	return t, nil
}

func parseSource(s string) SourceTag {
	switch s {
	case "filesystem":
		return SourceFilesystem
	case "network":
		return SourceNetwork
	case "model":
		return SourceModel
	case "instance":
		return SourceInstance
	case "transient":
		return SourceTransient
	default:
		return SourceInstance
	}
}

// resolveEvent accepts either a long-form object whose config fields sit
// beside "name" (e.g. `{"name":"time","at":"0.1"}`) or a bare inline string
// `"time=0.1"` / `"start"`.
func (r *Registrar) resolveEvent(raw json.RawMessage) (Event, error) {
	name, inline, config, err := r.splitNameAndArg(raw)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	f, ok := r.eventFactories[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown event %q", name)
	}
	if inline {
		return f.FromInline(config)
	}
	return f.New(json.RawMessage(config))
}

// ResolveActionJSON resolves a single event/action JSON fragment (long or
// inline form) to an Action, exported for use by composite action
// factories such as bundle and push_release that need to resolve a nested
// action without going through the full Parse(trigger) path.
func (r *Registrar) ResolveActionJSON(raw json.RawMessage) (Action, error) {
	return r.resolveAction(raw)
}

func (r *Registrar) resolveAction(raw json.RawMessage) (Action, error) {
	name, inline, config, err := r.splitNameAndArg(raw)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	f, ok := r.actionFactories[name]
	r.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown action %q", name)
	}
	if inline {
		return f.FromInline(config)
	}
	return f.New(json.RawMessage(config))
}

// splitNameAndArg implements the two accepted forms for events/actions:
// a bare/quoted inline string "<name>" or "<name>=<argument>", or a JSON
// object {"name": "...", ...rest is config...}.
func (r *Registrar) splitNameAndArg(raw json.RawMessage) (name string, inline bool, arg string, err error) {
	trimmed := strings.TrimSpace(string(raw))
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false, "", fmt.Errorf("invalid inline string: %w", err)
		}
		if idx := strings.IndexByte(s, '='); idx >= 0 {
			return s[:idx], true, s[idx+1:], nil
		}
		return s, true, "", nil
	}

	var obj struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", false, "", fmt.Errorf("invalid event/action object: %w", err)
	}
	if obj.Name == "" {
		return "", false, "", fmt.Errorf("event/action object missing \"name\"")
	}
	return obj.Name, false, string(raw), nil
}

// InsertTrigger always stages the trigger on the thread-safe buffer,
// whichever goroutine calls it; the next Drain routes it to the callback
// registered for its event's kind and reports a kind with no callback.
// Implements trigger.ActionContext.InsertTrigger and is also the entry
// point used by the stackfile loader for initial triggers.
func (r *Registrar) InsertTrigger(t *Trigger) error {
	r.stagingMu.Lock()
	defer r.stagingMu.Unlock()
	if r.closed {
		return fmt.Errorf("trigger: registrar closed")
	}
	r.staging = append(r.staging, t)
	select {
	case r.signal <- struct{}{}:
	default:
	}
	return nil
}

// Wait returns a channel that signals when staged insertions may be
// available, for context-aware draining at the top of a step.
func (r *Registrar) Wait() <-chan struct{} {
	return r.signal
}

// Drain removes and routes every currently staged trigger to its callback,
// stamping each with the given step so "not eligible before step k+1" can
// be enforced by the caller if desired. Returns the number of triggers
// routed and the first routing error encountered (routing continues for
// the rest; callers typically treat "unknown event" as a TriggerError which
// is fatal unless the trigger was optional, already filtered out in Parse).
func (r *Registrar) Drain(step int64) (int, error) {
	r.stagingMu.Lock()
	batch := r.staging
	r.staging = make([]*Trigger, 0, 64)
	r.stagingMu.Unlock()

	var firstErr error
	for _, t := range batch {
		t.insertedAtStep = step
		t.staged = true
		kind := t.Event.Kind()

		r.mu.Lock()
		cb, ok := r.callbacks[kind]
		if !ok && r.fallback != nil {
			cb = r.fallback(kind)
			r.callbacks[kind] = cb
			ok = true
		}
		r.mu.Unlock()

		if !ok {
			if firstErr == nil {
				firstErr = fmt.Errorf("trigger: unknown event kind %q", kind)
			}
			continue
		}
		if err := cb.Insert(t); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return len(batch), firstErr
}

// Close stops further insertions and wakes any blocked waiters, mirroring
// the teacher's eventQueue.Close discipline.
func (r *Registrar) Close() {
	r.stagingMu.Lock()
	defer r.stagingMu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	close(r.signal)
}

// InsertedAtStep returns the step at which t was staged (0 if never
// staged), used by tests asserting the "not eligible before next step"
// invariant.
func (t *Trigger) InsertedAtStep() (int64, bool) {
	return t.insertedAtStep, t.staged
}
