package cli

import (
	"encoding/json"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/cloe-sim/cloe-go/internal/command"
	"github.com/cloe-sim/cloe-go/internal/trigger"
	"github.com/cloe-sim/cloe-go/internal/trigger/builtin"
)

// TestTriggerJSONGolden pins the exact wire shape a parsed trigger
// round-trips to in triggers.json: the stop action resolved from its
// inline form, rendered through Trigger.MarshalJSON.
func TestTriggerJSONGolden(t *testing.T) {
	registrar := trigger.NewRegistrar()
	builtin.RegisterAll(registrar, command.NewExecutor(true), builtin.NewNopControlRequester())

	raw := []byte(`{"event": "time=0.2", "action": "stop", "source": "instance"}`)
	tr, err := registrar.Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if tr == nil {
		t.Fatal("expected a non-nil trigger")
	}

	out, err := json.MarshalIndent([]*trigger.Trigger{tr}, "", "  ")
	if err != nil {
		t.Fatal(err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "triggers_stop", out)
}
