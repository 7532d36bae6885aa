package executor

import (
	"context"
	"testing"

	"github.com/cloe-sim/cloe-go/internal/callback"
	"github.com/cloe-sim/cloe-go/internal/clock"
	"github.com/cloe-sim/cloe-go/internal/duration"
	"github.com/cloe-sim/cloe-go/internal/model"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
	"github.com/cloe-sim/cloe-go/internal/telemetry"
	"github.com/cloe-sim/cloe-go/internal/trigger"
	"github.com/cloe-sim/cloe-go/internal/trigger/builtin"
)

// kmphStream publishes one value of v_kmph per step, advancing on every
// harvestSignals call (exactly once per completed step).
type kmphStream struct {
	model.Base
	values []float64
	idx    int
}

func (m *kmphStream) Process(s cloesync.Sync) (duration.Duration, error) { return s.Time(), nil }

func (m *kmphStream) Signals() map[string]any {
	v := m.values[m.idx]
	if m.idx < len(m.values)-1 {
		m.idx++
	}
	return map[string]any{"v_kmph": v}
}

func TestStickyEvaluatePredicateFiresOnEveryMatch(t *testing.T) {
	ex, r, _ := newExecutor(t, []model.Model{&kmphStream{
		Base:   model.NewBase("host"),
		values: []float64{0, 30, 60, 90, 120, 90, 60},
	}})
	fired := 0
	r.RegisterActionFactory("count", countAction(&fired))
	tr, err := r.Parse([]byte(`{"event":"evaluate=v_kmph>=90","action":"count","sticky":true}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.InsertTrigger(tr); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 7; i++ {
		if _, err := ex.RunStep(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if fired != 3 {
		t.Errorf("fired = %d, want 3 (S3 scenario: indices 3,4,5)", fired)
	}
}

// accStateStream publishes one value of acc_state per step.
type accStateStream struct {
	model.Base
	values []string
	idx    int
}

func (m *accStateStream) Process(s cloesync.Sync) (duration.Duration, error) { return s.Time(), nil }

func (m *accStateStream) Signals() map[string]any {
	v := m.values[m.idx]
	if m.idx < len(m.values)-1 {
		m.idx++
	}
	return map[string]any{"acc_state": v}
}

func TestTransitionEdgeDetectorFiresOnce(t *testing.T) {
	ex, r, _ := newExecutor(t, []model.Model{&accStateStream{
		Base:   model.NewBase("host"),
		values: []string{"Inactive", "Inactive", "Active", "Override", "Active"},
	}})
	fired := 0
	r.RegisterActionFactory("count", countAction(&fired))
	tr, err := r.Parse([]byte(`{"event":"transition=acc_state:Active->Override","action":"count"}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.InsertTrigger(tr); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := ex.RunStep(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if fired != 1 {
		t.Errorf("fired = %d, want exactly 1 (S4 scenario)", fired)
	}
}

func TestPushReleasePressThenRelease(t *testing.T) {
	c, err := clock.New(duration.FromSeconds(0.02), 0)
	if err != nil {
		t.Fatal(err)
	}
	r := trigger.NewRegistrar()
	builtin.RegisterAll(r, nil, builtin.NewNopControlRequester())
	r.RegisterCallback("start", callback.NewDirect())

	fired := 0
	r.RegisterActionFactory("count", countAction(&fired))

	perf := telemetry.New()
	ex := New(Config{Clock: c, Registrar: r, Telemetry: perf})

	tr, err := r.Parse([]byte(`{"event":"start","action":{"name":"push_release","duration":"0.06s","buttons":["hmi.set"],"action":"count"}}`))
	if err != nil {
		t.Fatal(err)
	}
	if err := r.InsertTrigger(tr); err != nil {
		t.Fatal(err)
	}

	ac := &startActionContext{registrar: r}
	startCb := r.Callbacks()["start"].(*callback.Direct)
	if err := startCb.Fire(ac, nil); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for i := 0; i < 6; i++ {
		if _, err := ex.RunStep(ctx); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		switch i + 1 {
		case 1:
			if fired != 1 {
				t.Errorf("after step 1: fired = %d, want 1 (press)", fired)
			}
		case 3:
			if fired != 1 {
				t.Errorf("after step 3: fired = %d, want still 1 (release not due yet)", fired)
			}
		case 4:
			if fired != 2 {
				t.Errorf("after step 4: fired = %d, want 2 (release, S5 scenario)", fired)
			}
		}
	}
	if fired != 2 {
		t.Errorf("final fired = %d, want 2", fired)
	}
}

type startActionContext struct {
	registrar *trigger.Registrar
}

func (a *startActionContext) Sync() cloesync.Sync { return cloesync.Sync{} }
func (a *startActionContext) InsertTrigger(t *trigger.Trigger) error {
	return a.registrar.InsertTrigger(t)
}
