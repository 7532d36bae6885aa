// Package callback implements the three trigger storage disciplines named
// in SPEC_FULL.md §4.6: Direct (flat list), Timed (priority queue over
// target time), and Alias (event-rewriting decorator).
package callback

import (
	"log/slog"
	"sort"

	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// Matcher is implemented by event types usable with Direct: given the
// value the host fired the event kind with, report whether the trigger
// should fire now. Stateful events (e.g. transition edge detectors) mutate
// their own internal state in Matches.
type Matcher interface {
	Matches(value any) bool
}

// Direct is the flat-list callback: every queued trigger is evaluated every
// time the kind fires with a value. Grounded on the teacher's
// matchWhen-then-extractBindings two-phase dispatch (internal/engine/matcher.go),
// generalized from a single when-clause comparison to an arbitrary
// Matcher.Matches call per trigger.
type Direct struct {
	log       *slog.Logger
	triggers  []*trigger.Trigger
}

// NewDirect constructs an empty Direct callback.
func NewDirect() *Direct {
	return &Direct{log: slog.Default().With("component", "trigger")}
}

// Insert appends t to the flat list. Implements trigger.Callback.
func (d *Direct) Insert(t *trigger.Trigger) error {
	d.triggers = append(d.triggers, t)
	return nil
}

// Fire evaluates every queued trigger's event predicate against value. Of
// those whose predicate matches, actions run in (source-tag,
// insertion-order) order — SourceTag is the primary tie-break key, and
// sort.SliceStable preserves each matched trigger's relative insertion
// order within a source. Matched non-sticky triggers (and any trigger
// whose action returns OutcomeUnpin) are removed; the rest remain armed.
func (d *Direct) Fire(ctx trigger.ActionContext, value any) error {
	var matched, remaining []*trigger.Trigger
	for _, t := range d.triggers {
		m, ok := t.Event.(Matcher)
		if !ok || !m.Matches(value) {
			remaining = append(remaining, t)
			continue
		}
		matched = append(matched, t)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Source < matched[j].Source
	})

	var firstErr error
	for _, t := range matched {
		outcome, err := t.Action.Execute(ctx)
		if err != nil {
			d.log.Error("action execution failed", "action", t.Action.Kind(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
		if t.Sticky && outcome != trigger.OutcomeUnpin {
			remaining = append(remaining, t)
		}
	}
	d.triggers = remaining
	return firstErr
}

// Len reports the number of currently queued triggers.
func (d *Direct) Len() int { return len(d.triggers) }
