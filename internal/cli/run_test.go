package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// demobasicStack writes a minimal but complete stackfile wiring the
// built-in demobasic simulator/controller/ego_sensor bindings, with a
// `stop` trigger so `run` actually reaches a terminal phase instead of
// looping forever (none of the demobasic models has a natural stopping
// condition on its own).
func demobasicStack(t *testing.T, dir string, extra map[string]any) string {
	t.Helper()
	cfg := map[string]any{
		"version": "4",
		"simulators": []map[string]any{
			{"binding": "demobasic/simulator", "name": "sim1"},
		},
		"vehicles": []map[string]any{
			{
				"name": "ego",
				"from": map[string]any{"simulator": "sim1"},
				"components": map[string]any{
					"cloe::default_ego_sensor": map[string]any{"binding": "demobasic/ego_sensor"},
				},
			},
		},
		"controllers": []map[string]any{
			{"binding": "demobasic/controller", "vehicle": "ego"},
		},
		"triggers": []map[string]any{
			{"event": "time=0.1", "action": "stop", "source": "instance"},
		},
	}
	for k, v := range extra {
		cfg[k] = v
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "stack.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunReachesSuccessWithStopTrigger(t *testing.T) {
	dir := t.TempDir()
	stackPath := demobasicStack(t, dir, nil)

	root := &RootOptions{OutputDir: dir}
	cmd := NewRunCommand(root)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{stackPath})

	err := cmd.Execute()
	require.NoError(t, err)

	for _, name := range []string{"config.json", "triggers.json", "report.json", "timing.csv", "journal.db"} {
		_, statErr := os.Stat(filepath.Join(dir, name))
		require.NoError(t, statErr, "expected %s to be persisted", name)
	}
}

func TestRunFailsOnUnknownBinding(t *testing.T) {
	dir := t.TempDir()
	cfg := map[string]any{
		"version":    "4",
		"simulators": []map[string]any{{"binding": "nonexistent/binding"}},
	}
	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	path := filepath.Join(dir, "stack.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	root := &RootOptions{OutputDir: dir}
	cmd := NewRunCommand(root)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{path})

	err = cmd.Execute()
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	require.Equal(t, ExitConfigurationError, exitErr.Code)
}

func TestRunMissingStackfileArgs(t *testing.T) {
	root := &RootOptions{OutputDir: t.TempDir()}
	cmd := NewRunCommand(root)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
}
