package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUsageListsBuiltinBindings(t *testing.T) {
	root := &RootOptions{JSON: true}
	cmd := NewUsageCommand(root)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Data []bindingInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))

	var names []string
	for _, b := range resp.Data {
		names = append(names, b.Binding)
	}
	assert.Contains(t, names, "demobasic/simulator")
	assert.Contains(t, names, "demobasic/controller")
	assert.Contains(t, names, "demobasic/ego_sensor")
}

func TestUsageOneUnknownBindingFails(t *testing.T) {
	root := &RootOptions{}
	cmd := NewUsageCommand(root)
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"nonexistent/binding"})

	err := cmd.Execute()
	require.Error(t, err)
}
