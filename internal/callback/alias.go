package callback

import "github.com/cloe-sim/cloe-go/internal/trigger"

// RewriteFunc rewrites an incoming event into the event the wrapped
// callback actually understands (e.g. "next[=Δ]" -> "time(now+Δ)").
type RewriteFunc func(ev trigger.Event) (trigger.Event, error)

// Alias decorates a target callback, rewriting the incoming trigger's event
// on insertion before delegating. Modeled directly on
// original_source/engine/src/utility/time_event.hpp's NextCallback, which
// rewrites "next" to an absolute "time" event by adding the current sync
// time at insertion.
type Alias struct {
	target  trigger.Callback
	rewrite RewriteFunc
}

// NewAlias constructs an Alias wrapping target, using rewrite to transform
// each inserted trigger's event before delegating.
func NewAlias(target trigger.Callback, rewrite RewriteFunc) *Alias {
	return &Alias{target: target, rewrite: rewrite}
}

// Insert rewrites t.Event in place, then delegates to the target callback.
// Implements trigger.Callback.
func (a *Alias) Insert(t *trigger.Trigger) error {
	rewritten, err := a.rewrite(t.Event)
	if err != nil {
		return err
	}
	t.Event = rewritten
	return a.target.Insert(t)
}
