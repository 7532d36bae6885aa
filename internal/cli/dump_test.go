package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDumpWritesConfigAndTriggers(t *testing.T) {
	dir := t.TempDir()
	stackPath := demobasicStack(t, dir, nil)

	root := &RootOptions{OutputDir: dir}
	cmd := NewDumpCommand(root)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{stackPath})

	require.NoError(t, cmd.Execute())

	configData, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	var cfg map[string]any
	require.NoError(t, json.Unmarshal(configData, &cfg))
	require.Equal(t, "4", cfg["version"])

	triggersData, err := os.ReadFile(filepath.Join(dir, "triggers.json"))
	require.NoError(t, err)
	var triggers []map[string]any
	require.NoError(t, json.Unmarshal(triggersData, &triggers))
	require.Len(t, triggers, 1)
	action, ok := triggers[0]["action"].(map[string]any)
	require.True(t, ok, "action should marshal as a long-form object, got %#v", triggers[0]["action"])
	require.Equal(t, "stop", action["name"])
	require.NotEmpty(t, triggers[0]["id"])
}

func TestDumpAppliesEngineTriggersIgnoreSource(t *testing.T) {
	dir := t.TempDir()
	stackPath := demobasicStack(t, dir, map[string]any{
		"engine": map[string]any{
			"triggers": map[string]any{"ignore_source": []string{"instance"}},
		},
	})

	root := &RootOptions{OutputDir: dir}
	cmd := NewDumpCommand(root)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{stackPath})

	require.NoError(t, cmd.Execute())

	triggersData, err := os.ReadFile(filepath.Join(dir, "triggers.json"))
	require.NoError(t, err)
	var triggers []map[string]any
	require.NoError(t, json.Unmarshal(triggersData, &triggers))
	require.Empty(t, triggers, "the sole \"instance\"-sourced trigger should have been dropped by ignore_source")
}

func TestDumpHistoryListsPastRuns(t *testing.T) {
	dir := t.TempDir()
	stackPath := demobasicStack(t, dir, nil)

	runCmd := NewRunCommand(&RootOptions{OutputDir: dir})
	runBuf := &bytes.Buffer{}
	runCmd.SetOut(runBuf)
	runCmd.SetErr(runBuf)
	runCmd.SetArgs([]string{stackPath})
	require.NoError(t, runCmd.Execute())

	root := &RootOptions{OutputDir: dir, JSON: true}
	cmd := NewDumpCommand(root)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--history"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Data struct {
			Runs []struct {
				ID      string `json:"id"`
				Outcome string `json:"outcome"`
			} `json:"runs"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	require.Len(t, resp.Data.Runs, 1)
	require.Equal(t, "Success", resp.Data.Runs[0].Outcome)
}

func TestDumpDoesNotRunTheSimulation(t *testing.T) {
	// A dump of a stack with no stop trigger must still return promptly:
	// dump never drives the Simulation Driver, so forever-running demobasic
	// models never get a chance to hang it.
	dir := t.TempDir()
	stackPath := demobasicStack(t, dir, map[string]any{"triggers": []map[string]any{}})

	root := &RootOptions{OutputDir: dir}
	cmd := NewDumpCommand(root)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{stackPath})

	require.NoError(t, cmd.Execute())
}
