package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/cloe-sim/cloe-go/internal/cloeerr"
)

// Exit codes, per SPEC_FULL.md §6: 0 success, 1 configuration error
// (includes plugin load failures), 2 runtime failure, 3 aborted.
const (
	ExitSuccess             = 0
	ExitConfigurationError  = 1
	ExitRuntimeFailure      = 2
	ExitAborted             = 3
)

// ExitError pairs an error with the exit code the root command should
// return for it, mirroring the teacher's ExitError/WrapExitError pair but
// deriving the code from cloeerr.ExitCode when the wrapped error is a
// cloeerr.RuntimeError instead of requiring every call site to pick one.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error { return e.Err }

// WrapExitError wraps err, deriving its exit code from cloeerr.ExitCode.
func WrapExitError(message string, err error) *ExitError {
	return &ExitError{Code: cloeerr.ExitCode(err), Message: message, Err: err}
}

// NewExitError constructs an ExitError with an explicit code, for CLI-level
// failures (bad flags, missing files) that never touch cloeerr.RuntimeError.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// GetExitCode extracts the process exit code from err. An error this package
// didn't itself wrap is mapped by cloeerr.ExitCode, which yields
// ExitRuntimeFailure for anything that is not a cloeerr.RuntimeError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return cloeerr.ExitCode(err)
}

// OutputFormatter renders command results as either human-readable text or
// a stable CLIResponse JSON envelope, selected by the --json flag.
type OutputFormatter struct {
	JSON      bool
	Writer    io.Writer
	ErrWriter io.Writer
}

// CLIResponse is the JSON envelope every command emits in JSON mode.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError is the error half of CLIResponse.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success renders data, either as the "data" field of a CLIResponse or by
// its fmt.Stringer/plain text form.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.JSON {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error renders a failure in the configured format. It does not itself
// determine the process exit code; callers return an *ExitError for that.
func (f *OutputFormatter) Error(code, message string) error {
	if f.JSON {
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(CLIResponse{Status: "error", Error: &CLIError{Code: code, Message: message}})
	}
	fmt.Fprintf(f.ErrWriter, "error [%s]: %s\n", code, message)
	return nil
}
