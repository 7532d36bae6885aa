package builtin

import (
	"encoding/json"
	"testing"

	"github.com/cloe-sim/cloe-go/internal/command"
	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// roundTrip parses raw, marshals the resulting Trigger, and re-parses that
// marshaled form, returning both triggers for comparison.
func roundTrip(t *testing.T, r *trigger.Registrar, raw string) (*trigger.Trigger, *trigger.Trigger) {
	t.Helper()
	first, err := r.Parse(json.RawMessage(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	marshaled, err := json.Marshal(first)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := r.Parse(marshaled)
	if err != nil {
		t.Fatalf("re-parse of %s: %v", marshaled, err)
	}
	return first, second
}

// TestTriggerRoundTripPreservesID exercises SPEC_FULL.md §8's round-trip
// invariant directly: parsing a trigger to its JSON form and back yields an
// equivalent trigger. Equivalence is checked via Trigger.ID, a
// content-addressed hash over the trigger's meaning-bearing fields, so two
// triggers compare equal iff their (label, event, action, flags, source)
// all agree.
func TestTriggerRoundTripPreservesID(t *testing.T) {
	r := trigger.NewRegistrar()
	RegisterAll(r, command.NewExecutor(true), NewNopControlRequester())

	cases := []string{
		`{"event":"time=1.5","action":"stop","source":"instance"}`,
		`{"event":{"name":"evaluate","signal":"v_kmph","operator":">=","value":90},"action":"fail","sticky":true,"source":"model"}`,
		`{"event":{"name":"transition","signal":"acc_state","from":"Active","to":"Override"},"action":{"name":"log","level":"warn","msg":"override"},"source":"network"}`,
		`{"event":"start","action":{"name":"command","executable":"/bin/true","mode":"async","verbosity":"always","ignore_failure":true}}`,
	}

	for _, raw := range cases {
		first, second := roundTrip(t, r, raw)
		if first.ID == "" {
			t.Fatalf("%s: expected non-empty id", raw)
		}
		if first.ID != second.ID {
			t.Errorf("%s: round trip changed id: %s -> %s", raw, first.ID, second.ID)
		}
	}
}

// TestTriggerRoundTripTimeEventPreservesTarget is the reviewer's specific
// regression case: a lossy Event marshal that drops the "time" event's
// target would make the re-parsed trigger fire at t=0 instead of the
// original target, or fail to parse at all.
func TestTriggerRoundTripTimeEventPreservesTarget(t *testing.T) {
	r := trigger.NewRegistrar()
	RegisterAll(r, command.NewExecutor(true), NewNopControlRequester())

	first, second := roundTrip(t, r, `{"event":"time=12.5","action":"stop"}`)
	firstTarget := first.Event.(*timeEvent).TargetTime()
	secondTarget := second.Event.(*timeEvent).TargetTime()
	if firstTarget != secondTarget {
		t.Errorf("target time changed across round trip: %v -> %v", firstTarget, secondTarget)
	}
	if firstTarget.Seconds() != 12.5 {
		t.Errorf("target = %v, want 12.5s", firstTarget)
	}
}

// TestTriggerRoundTripEvaluateEventPreservesPredicate is the reviewer's
// other specific regression case: Kind()-based marshaling produced
// "evaluate:v_kmph>=90", which splitNameAndArg would re-split on the first
// "=" into a bogus event name instead of re-parsing as an evaluate event.
func TestTriggerRoundTripEvaluateEventPreservesPredicate(t *testing.T) {
	r := trigger.NewRegistrar()
	RegisterAll(r, command.NewExecutor(true), NewNopControlRequester())

	raw := `{"event":{"name":"evaluate","signal":"v_kmph","operator":">=","value":90},"action":"stop"}`
	_, second := roundTrip(t, r, raw)
	ev := second.Event.(*evaluateEvent)
	if !ev.Matches(91.0) || ev.Matches(89.0) {
		t.Error("re-parsed evaluate event lost its predicate")
	}
}
