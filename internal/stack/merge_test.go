package stack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeConcatenatesArrayKeys(t *testing.T) {
	base := &Config{
		Version:    "4.0",
		Simulators: []SimulatorSpec{{Binding: "vtd", Name: "sim0"}},
		Vehicles:   []VehicleSpec{{Name: "ego"}},
	}
	overlay := &Config{
		Simulators: []SimulatorSpec{{Binding: "nop", Name: "sim1"}},
		Triggers:   []json.RawMessage{[]byte(`{"event":"start","action":"log"}`)},
	}

	merged := Merge(base, overlay)

	require.Len(t, merged.Simulators, 2)
	assert.Equal(t, "sim0", merged.Simulators[0].Name)
	assert.Equal(t, "sim1", merged.Simulators[1].Name)
	require.Len(t, merged.Vehicles, 1, "vehicles not touched by overlay should survive untouched")
	require.Len(t, merged.Triggers, 1)
}

func TestMergeOverridesScalarFields(t *testing.T) {
	base := &Config{Version: "4.0", Engine: &EngineSpec{PollingIntervalMs: 20, KeepAlive: true}}
	overlay := &Config{Version: "4.1", Engine: &EngineSpec{PollingIntervalMs: 50}}

	merged := Merge(base, overlay)

	assert.Equal(t, "4.1", merged.Version, "later stackfile's version wins")
	assert.Equal(t, 50, merged.Engine.PollingIntervalMs, "later stackfile's polling interval wins")
	assert.True(t, merged.Engine.KeepAlive, "field absent from overlay is preserved from base")
}

func TestMergeNilBaseReturnsOverlay(t *testing.T) {
	overlay := &Config{Version: "4.0"}
	merged := Merge(nil, overlay)
	assert.Same(t, overlay, merged)
}

func TestMergeEnginePluginPathConcatenates(t *testing.T) {
	base := &Config{Engine: &EngineSpec{PluginPath: []string{"/opt/cloe/plugins"}}}
	overlay := &Config{Engine: &EngineSpec{PluginPath: []string{"./build/plugins"}}}

	merged := Merge(base, overlay)

	assert.Equal(t, []string{"/opt/cloe/plugins", "./build/plugins"}, merged.Engine.PluginPath)
}
