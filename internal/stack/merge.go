package stack

import "encoding/json"

// Merge combines overlay onto base left-to-right: scalar and object keys
// present in overlay replace base's, while the four array-valued keys
// (simulators, vehicles, controllers, triggers) concatenate, per
// SPEC_FULL.md §4.10. base may be nil (first stackfile in the list).
func Merge(base, overlay *Config) *Config {
	if base == nil {
		return overlay
	}
	if overlay == nil {
		return base
	}

	merged := *base

	if overlay.Version != "" {
		merged.Version = overlay.Version
	}
	merged.Simulators = append(append([]SimulatorSpec{}, base.Simulators...), overlay.Simulators...)
	merged.Vehicles = append(append([]VehicleSpec{}, base.Vehicles...), overlay.Vehicles...)
	merged.Controllers = append(append([]ControllerSpec{}, base.Controllers...), overlay.Controllers...)
	merged.Triggers = append(append([]json.RawMessage{}, base.Triggers...), overlay.Triggers...)

	if overlay.Server != nil {
		merged.Server = overlay.Server
	}
	if overlay.Engine != nil {
		merged.Engine = mergeEngine(base.Engine, overlay.Engine)
	}

	return &merged
}

// mergeEngine merges the engine sub-object field by field rather than
// wholesale replacement, so one stackfile can raise keep_alive while
// another only adjusts polling_interval_ms.
func mergeEngine(base, overlay *EngineSpec) *EngineSpec {
	if base == nil {
		return overlay
	}
	merged := *base
	if overlay.PollingIntervalMs != 0 {
		merged.PollingIntervalMs = overlay.PollingIntervalMs
	}
	if overlay.Output.PathPrefix != "" {
		merged.Output.PathPrefix = overlay.Output.PathPrefix
	}
	if overlay.Output.Files != nil {
		if merged.Output.Files == nil {
			merged.Output.Files = make(map[string]string, len(overlay.Output.Files))
		}
		for k, v := range overlay.Output.Files {
			merged.Output.Files[k] = v
		}
	}
	if len(overlay.Triggers.IgnoreSource) > 0 {
		merged.Triggers.IgnoreSource = append(append([]string{}, base.Triggers.IgnoreSource...), overlay.Triggers.IgnoreSource...)
	}
	if len(overlay.PluginPath) > 0 {
		merged.PluginPath = append(append([]string{}, base.PluginPath...), overlay.PluginPath...)
	}
	if overlay.Plugins.IgnoreMissing {
		merged.Plugins.IgnoreMissing = true
	}
	if overlay.KeepAlive {
		merged.KeepAlive = true
	}
	if overlay.Watchdog != nil {
		merged.Watchdog = overlay.Watchdog
	}
	return &merged
}
