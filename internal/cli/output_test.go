package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloe-sim/cloe-go/internal/cloeerr"
)

func TestOutputFormatterJSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{JSON: true, Writer: buf}

	require.NoError(t, f.Success(map[string]string{"result": "success"}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatterJSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{JSON: true, Writer: buf}

	require.NoError(t, f.Error("E001", "compilation failed"))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E001", resp.Error.Code)
	assert.Equal(t, "compilation failed", resp.Error.Message)
}

func TestOutputFormatterTextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Writer: buf}

	require.NoError(t, f.Success("All stacks valid"))
	assert.Contains(t, buf.String(), "All stacks valid")
}

func TestOutputFormatterTextError(t *testing.T) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	f := &OutputFormatter{Writer: out, ErrWriter: errOut}

	require.NoError(t, f.Error("E001", "compilation failed"))
	assert.Contains(t, errOut.String(), "E001")
	assert.Contains(t, errOut.String(), "compilation failed")
	assert.Empty(t, out.String())
}

func TestWrapExitErrorDerivesCodeFromRuntimeError(t *testing.T) {
	err := WrapExitError("run failed", cloeerr.Aborted("signal"))
	assert.Equal(t, ExitAborted, err.Code)
	assert.ErrorContains(t, err, "run failed")
}

func TestGetExitCodeUnwrapsExitError(t *testing.T) {
	wrapped := NewExitError(ExitConfigurationError, "bad flag")
	assert.Equal(t, ExitConfigurationError, GetExitCode(wrapped))
}

func TestGetExitCodeDefaultsOnOrdinaryError(t *testing.T) {
	assert.Equal(t, ExitRuntimeFailure, GetExitCode(errors.New("boom")))
}

func TestGetExitCodeSuccessOnNil(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
}
