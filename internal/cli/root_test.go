package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "cloe", cmd.Use)
	assert.Contains(t, cmd.Long, "co-simulation")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	names := []string{"version", "check", "dump", "usage", "probe", "run"}

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	logLevel := cmd.PersistentFlags().Lookup("log-level")
	require.NotNil(t, logLevel)
	assert.Equal(t, "info", logLevel.DefValue)

	strict := cmd.PersistentFlags().Lookup("strict")
	require.NotNil(t, strict)
	assert.Equal(t, "false", strict.DefValue)
}

func TestRootRejectsInvalidLogLevel(t *testing.T) {
	cmd := NewRootCommand()
	buf := &bytes.Buffer{}
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--log-level", "bogus", "version"})

	err := cmd.Execute()
	require.Error(t, err)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ExitConfigurationError, exitErr.Code)
}
