package plugin

import "testing"

type stubFactory struct {
	manifest Manifest
	config   any
}

func (s *stubFactory) Manifest() Manifest { return s.manifest }
func (s *stubFactory) Clone() Factory     { cp := *s; return &cp }
func (s *stubFactory) Make(config any) (any, error) {
	s.config = config
	return config, nil
}

func TestIsCompatible(t *testing.T) {
	if !IsCompatible(TypeSimulator, "1.0") {
		t.Error("simulator 1.0 should be compatible")
	}
	if IsCompatible(TypeSimulator, "9.9") {
		t.Error("simulator 9.9 should not be compatible")
	}
	if IsCompatible(Type("bogus"), "1.0") {
		t.Error("unknown type should not be compatible")
	}
}

func TestRegisterRejectsIncompatibleVersion(t *testing.T) {
	r := NewRegistry()
	f := &stubFactory{manifest: Manifest{Binding: "demo", Type: TypeController, TypeVersion: "0.1"}}
	if err := r.Register(f); err == nil {
		t.Fatal("expected incompatible-version registration to fail")
	}
}

func TestRegisterAndGet(t *testing.T) {
	r := NewRegistry()
	f := &stubFactory{manifest: Manifest{Binding: "demo", Type: TypeController, TypeVersion: "1.0"}}
	if err := r.Register(f); err != nil {
		t.Fatal(err)
	}
	got, err := r.Get("demo")
	if err != nil {
		t.Fatal(err)
	}
	if got.Manifest().Binding != "demo" {
		t.Errorf("binding = %q", got.Manifest().Binding)
	}
}

func TestGetUnknownBindingFails(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Get("missing"); err == nil {
		t.Fatal("expected error for unknown binding")
	}
}

func TestBindingsListsRegistered(t *testing.T) {
	r := NewRegistry()
	_ = r.Register(&stubFactory{manifest: Manifest{Binding: "a", Type: TypeComponent, TypeVersion: "1.0"}})
	_ = r.Register(&stubFactory{manifest: Manifest{Binding: "b", Type: TypeComponent, TypeVersion: "2.0"}})
	names := r.Bindings()
	if len(names) != 2 {
		t.Fatalf("bindings = %v, want 2 entries", names)
	}
}
