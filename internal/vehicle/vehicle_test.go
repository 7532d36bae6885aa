package vehicle

import (
	"encoding/json"
	"testing"

	"github.com/cloe-sim/cloe-go/internal/component"
	"github.com/cloe-sim/cloe-go/internal/duration"
	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
)

type fakeComponent struct {
	component.Base
	reachedFraction float64 // fraction of target time this component reaches
	calls           int
}

func newFakeComponent(name string, gen *component.IDGenerator, frac float64) *fakeComponent {
	return &fakeComponent{Base: component.NewBaseWithGenerator(name, gen), reachedFraction: frac}
}

func (f *fakeComponent) ActiveState() (json.RawMessage, error) { return json.RawMessage(`{}`), nil }

func (f *fakeComponent) Process(s cloesync.Sync) (duration.Duration, error) {
	f.calls++
	return duration.FromNanoseconds(int64(float64(s.Time().Nanoseconds()) * f.reachedFraction)), nil
}

func TestAddDuplicateKeyFails(t *testing.T) {
	gen := component.NewCounterFrom(0)
	v := New(1, "ego")
	c := newFakeComponent("sensor", gen, 1.0)
	if err := v.Add("default_sensor", c); err != nil {
		t.Fatal(err)
	}
	if err := v.Add("default_sensor", c); err == nil {
		t.Error("expected duplicate key error")
	}
}

func TestEmplaceCreatesAlias(t *testing.T) {
	gen := component.NewCounterFrom(0)
	v := New(1, "ego")
	c := newFakeComponent("sensor", gen, 1.0)
	v.Emplace("canonical_name", c)
	v.Emplace("user_alias", c)
	if v.Size() != 2 {
		t.Fatalf("size = %d, want 2 keys", v.Size())
	}

	sync := cloesync.New(5, duration.FromNanoseconds(20_000_000), 1, 1)
	if _, err := v.Process(sync); err != nil {
		t.Fatal(err)
	}
	if c.calls != 1 {
		t.Errorf("aliased component processed %d times, want exactly 1 (dedup by id)", c.calls)
	}
}

func TestGetUnknownKeyListsAvailable(t *testing.T) {
	v := New(1, "ego")
	gen := component.NewCounterFrom(0)
	v.Emplace("a", newFakeComponent("a", gen, 1))
	_, err := v.Get("missing")
	if err == nil {
		t.Fatal("expected error")
	}
	uce, ok := err.(*UnknownComponentError)
	if !ok {
		t.Fatalf("wrong error type: %T", err)
	}
	if len(uce.Available) != 1 || uce.Available[0] != "a" {
		t.Errorf("available = %v", uce.Available)
	}
}

func TestProcessReturnsEarliestLaggingTime(t *testing.T) {
	v := New(1, "ego")
	gen := component.NewCounterFrom(0)
	v.Emplace("fast", newFakeComponent("fast", gen, 1.0))
	v.Emplace("slow", newFakeComponent("slow", gen, 0.5))

	sync := cloesync.New(10, duration.FromNanoseconds(20_000_000), 1, 1)
	reached, err := v.Process(sync)
	if err != nil {
		t.Fatal(err)
	}
	want := duration.FromNanoseconds(sync.Time().Nanoseconds() / 2)
	if reached != want {
		t.Errorf("reached = %v, want %v (the lagging component's time)", reached, want)
	}
}

func TestAddAfterStartFails(t *testing.T) {
	v := New(1, "ego")
	if err := v.Connect(); err != nil {
		t.Fatal(err)
	}
	if err := v.Enroll(nil); err != nil {
		t.Fatal(err)
	}
	if err := v.Start(cloesync.Sync{}); err != nil {
		t.Fatal(err)
	}
	gen := component.NewCounterFrom(0)
	if err := v.Add("late", newFakeComponent("late", gen, 1)); err == nil {
		t.Error("expected error adding component after start")
	}
}
