// Package stack implements the Config/Stack Compiler: stackfile parsing,
// left-to-right merge of multiple stackfiles, and schema validation against
// a CUE schema the core composes from its own keys plus each plugin's
// self-declared argument sub-schema, per SPEC_FULL.md §4.10.
package stack

import "encoding/json"

// SimulatorSpec is one entry in a stackfile's `simulators` array.
type SimulatorSpec struct {
	Binding string          `json:"binding"`
	Name    string          `json:"name,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// ComponentSpec is one entry in a vehicle's `components` map.
type ComponentSpec struct {
	Binding string          `json:"binding"`
	Name    string          `json:"name,omitempty"`
	From    string          `json:"from,omitempty"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// VehicleFrom names the simulator (and its index or name within that
// simulator's declared vehicles) a vehicle is sourced from.
type VehicleFrom struct {
	Simulator string `json:"simulator"`
	Index     *int   `json:"index,omitempty"`
	Name      string `json:"name,omitempty"`
}

// VehicleSpec is one entry in a stackfile's `vehicles` array.
type VehicleSpec struct {
	Name       string                   `json:"name"`
	From       VehicleFrom              `json:"from"`
	Components map[string]ComponentSpec `json:"components,omitempty"`
}

// ControllerSpec is one entry in a stackfile's `controllers` array.
type ControllerSpec struct {
	Binding string          `json:"binding"`
	Vehicle string          `json:"vehicle"`
	Args    json.RawMessage `json:"args,omitempty"`
}

// ServerSpec is the stackfile's `server` key, passed through to the
// (external, non-goal) webserver unchanged.
type ServerSpec struct {
	Listen       string `json:"listen,omitempty"`
	Port         int    `json:"port,omitempty"`
	StaticPrefix string `json:"static_prefix,omitempty"`
}

// OutputSpec is `engine.output`: where persisted artifacts are written.
type OutputSpec struct {
	PathPrefix string            `json:"path_prefix,omitempty"`
	Files      map[string]string `json:"files,omitempty"`
}

// EngineTriggersSpec is `engine.triggers`.
type EngineTriggersSpec struct {
	IgnoreSource []string `json:"ignore_source,omitempty"`
}

// EnginePluginsSpec is `engine.plugins`.
type EnginePluginsSpec struct {
	IgnoreMissing bool `json:"ignore_missing,omitempty"`
}

// WatchdogSpec is `engine.watchdog`: per-phase deadlines (state_transition
// default and per-model overrides). The key is parsed, validated and
// merged, but nothing reads it during a run: no deadline is enforced and
// no run is aborted by it.
type WatchdogSpec struct {
	StateTransitionMs int            `json:"state_transition_ms,omitempty"`
	Overrides         map[string]int `json:"overrides,omitempty"`
}

// EngineSpec is the stackfile's `engine` key.
type EngineSpec struct {
	PollingIntervalMs int                 `json:"polling_interval_ms,omitempty"`
	Output            OutputSpec          `json:"output,omitempty"`
	Triggers          EngineTriggersSpec  `json:"triggers,omitempty"`
	PluginPath        []string            `json:"plugin_path,omitempty"`
	Plugins           EnginePluginsSpec   `json:"plugins,omitempty"`
	KeepAlive         bool                `json:"keep_alive,omitempty"`
	Watchdog          *WatchdogSpec       `json:"watchdog,omitempty"`
}

// Config is the merged, in-memory representation of one or more stackfiles,
// shared by JSON and YAML sources alike: YAML decodes to the same
// map[string]any tree encoding/json produces, so Merge/Validate need only
// understand one shape.
type Config struct {
	Version     string           `json:"version"`
	Simulators  []SimulatorSpec  `json:"simulators,omitempty"`
	Vehicles    []VehicleSpec    `json:"vehicles,omitempty"`
	Controllers []ControllerSpec `json:"controllers,omitempty"`
	Triggers    []json.RawMessage `json:"triggers,omitempty"`
	Server      *ServerSpec      `json:"server,omitempty"`
	Engine      *EngineSpec      `json:"engine,omitempty"`
}
