// Package plugin implements the Plugin Registry: a compatibility-checked,
// name-keyed table of model factories, with built-in factories registered
// by explicit Register calls (e.g. demobasic.Register) and an optional
// dynamic-loading path for out-of-tree bindings.
package plugin

import (
	"fmt"
	"log/slog"
	"plugin"
	"sync"

	"github.com/cloe-sim/cloe-go/internal/cloeerr"
)

// Type is one of the three plugin kinds the host recognizes.
type Type string

const (
	TypeSimulator  Type = "simulator"
	TypeController Type = "controller"
	TypeComponent  Type = "component"
)

// Manifest is the discovery payload every plugin (built-in or dynamically
// loaded) exposes: its type, an opaque type-version string the host
// compares against its compatibility table, and the binding name it
// registers under.
type Manifest struct {
	Binding     string
	Type        Type
	TypeVersion string
}

// Factory produces model instances from validated configuration. The
// config type is intentionally `any`: each factory knows its own concrete
// configuration struct and type-asserts internally, mirroring the
// teacher's pattern of small, self-describing construction entry points
// rather than a single god-schema.
type Factory interface {
	Manifest() Manifest
	// Clone returns a copy of the factory with its current configuration,
	// so the same binding can be instantiated multiple times (e.g. one
	// vehicle per simulator output) without aliasing configuration state.
	Clone() Factory
	// Make constructs a model instance from the given configuration.
	Make(config any) (any, error)
}

// supportedVersions is the host's compatibility table: for each Type, the
// set of type_version strings this build of the core understands. Modeled
// on original_source/stack/include/cloe/plugin_loader.hpp's
// is_compatible/is_type_known pair.
var supportedVersions = map[Type]map[string]bool{
	TypeSimulator:  {"1.0": true, "2.0": true},
	TypeController: {"1.0": true, "2.0": true},
	TypeComponent:  {"1.0": true, "2.0": true},
}

// IsTypeKnown reports whether t is one of the three recognized plugin
// types.
func IsTypeKnown(t Type) bool {
	_, ok := supportedVersions[t]
	return ok
}

// IsCompatible reports whether (t, version) is accepted by this build.
func IsCompatible(t Type, version string) bool {
	versions, ok := supportedVersions[t]
	if !ok {
		return false
	}
	return versions[version]
}

// Registry is the name-keyed factory table. Built-in factories are
// registered directly via Register; out-of-tree factories are loaded from
// a `.so` built with `-buildmode=plugin` via LoadDynamic. Both paths
// produce the same Factory interface value, so the Step Executor and
// Vehicle/Component construction code never need to know which path a
// binding came from.
type Registry struct {
	mu       sync.Mutex
	log      *slog.Logger
	factories map[string]Factory
	failures  []error
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		log:       slog.Default().With("component", "registry"),
		factories: make(map[string]Factory),
	}
}

// Register adds a built-in factory under its manifest's binding name,
// rejecting it up front if its (type, type_version) is not supported.
func (r *Registry) Register(f Factory) error {
	m := f.Manifest()
	if !IsTypeKnown(m.Type) {
		return cloeerr.PluginLoad(m.Binding, fmt.Sprintf("unknown plugin type %q", m.Type), nil)
	}
	if !IsCompatible(m.Type, m.TypeVersion) {
		return cloeerr.PluginLoad(m.Binding, fmt.Sprintf("incompatible type_version %q for type %q", m.TypeVersion, m.Type), nil)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[m.Binding] = f
	return nil
}

// LoadDynamic opens a Go plugin shared object at path and registers the
// Factory its exported `New` symbol constructs. A plugin failing to load
// is recorded as a structured PluginLoadError and does not affect other
// plugins already registered (SPEC_FULL.md §4.2: "other plugins are
// unaffected").
func (r *Registry) LoadDynamic(path string) error {
	p, err := plugin.Open(path)
	if err != nil {
		loadErr := cloeerr.PluginLoad(path, "failed to open plugin", err)
		r.failures = append(r.failures, loadErr)
		return loadErr
	}
	sym, err := p.Lookup("New")
	if err != nil {
		loadErr := cloeerr.PluginLoad(path, "plugin does not export \"New\"", err)
		r.failures = append(r.failures, loadErr)
		return loadErr
	}
	ctor, ok := sym.(func() Factory)
	if !ok {
		loadErr := cloeerr.PluginLoad(path, "plugin's \"New\" has the wrong signature", nil)
		r.failures = append(r.failures, loadErr)
		return loadErr
	}
	if err := r.Register(ctor()); err != nil {
		r.failures = append(r.failures, err)
		return err
	}
	return nil
}

// Get returns the factory registered under binding, or a PluginLoadError if
// none is registered (the "requested binding is unavailable" case).
func (r *Registry) Get(binding string) (Factory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.factories[binding]
	if !ok {
		return nil, cloeerr.PluginLoad(binding, "binding not registered", nil)
	}
	return f, nil
}

// Failures returns every LoadDynamic error recorded so far, for a
// `plugins.ignore_missing`-tolerant caller to inspect before deciding
// whether any stack entry actually depended on a binding that failed.
func (r *Registry) Failures() []error {
	return r.failures
}

// Bindings returns every currently registered binding name.
func (r *Registry) Bindings() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	return out
}
