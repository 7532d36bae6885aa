package stack

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cloe-sim/cloe-go/internal/cloeerr"
	"github.com/cloe-sim/cloe-go/internal/plugin"
)

const baseStackJSON = `{
  "version": "4.0",
  "simulators": [{"binding": "vtd", "name": "vtd0"}],
  "vehicles": [{"name": "ego", "from": {"simulator": "vtd0"}}]
}`

const overlayStackYAML = `
controllers:
  - binding: basic
    vehicle: ego
engine:
  keep_alive: true
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCompileMergesJSONAndYAMLStackfiles(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.json", baseStackJSON)
	overlay := writeFile(t, dir, "overlay.yaml", overlayStackYAML)

	cfg, err := Compile([]string{base, overlay}, nil)
	require.NoError(t, err)

	require.Len(t, cfg.Simulators, 1)
	require.Len(t, cfg.Controllers, 1)
	require.Equal(t, "basic", cfg.Controllers[0].Binding)
	require.NotNil(t, cfg.Engine)
	require.True(t, cfg.Engine.KeepAlive)
}

func TestCompileRejectsStructurallyInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.json", `{"version": "4.0"}`) // no simulators

	_, err := Compile([]string{path}, nil)
	require.Error(t, err)
	require.True(t, cloeerr.IsConfiguration(err))
}

func TestCompileValidatesAgainstPluginSchema(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "stack.json", `{
		"version": "4.0",
		"simulators": [{"binding": "vtd", "name": "vtd0", "args": {"speed": "fast"}}]
	}`)

	registry := plugin.NewRegistry()
	require.NoError(t, registry.Register(&schemaFactory{
		manifest: plugin.Manifest{Binding: "vtd", Type: plugin.TypeSimulator, TypeVersion: "1.0"},
		schema:   "{speed: number}",
	}))

	_, err := Compile([]string{path}, registry)
	require.Error(t, err, "args.speed is a string but the plugin's schema requires a number")
	require.True(t, cloeerr.IsConfiguration(err))
}

type schemaFactory struct {
	manifest plugin.Manifest
	schema   string
}

func (f *schemaFactory) Manifest() plugin.Manifest { return f.manifest }
func (f *schemaFactory) Clone() plugin.Factory      { cp := *f; return &cp }
func (f *schemaFactory) Make(config any) (any, error) { return config, nil }
func (f *schemaFactory) ArgsSchema() string           { return f.schema }
