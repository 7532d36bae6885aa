// Package cloeerr defines the structured error taxonomy used across the
// core and the exit-code mapping the CLI applies to it.
package cloeerr

import (
	"errors"
	"fmt"
)

// Code categorizes a RuntimeError into one of the seven taxonomy entries.
type Code string

const (
	// CodeConfiguration: validation failed before any model connected.
	CodeConfiguration Code = "CONFIGURATION_ERROR"
	// CodePluginLoad: a requested binding is unavailable or incompatible.
	CodePluginLoad Code = "PLUGIN_LOAD_ERROR"
	// CodeConnection: a simulator/controller failed to connect.
	CodeConnection Code = "CONNECTION_ERROR"
	// CodeStepStalled: no model completed the target time within the retry budget.
	CodeStepStalled Code = "STEP_STALLED"
	// CodeTrigger: invalid trigger construction or execution.
	CodeTrigger Code = "TRIGGER_ERROR"
	// CodeModelFailure: a model's process() raised.
	CodeModelFailure Code = "MODEL_FAILURE"
	// CodeAborted: external abort (signal, watchdog).
	CodeAborted Code = "ABORTED"
)

// RuntimeError is the one error type carrying every taxonomy entry, modeled
// directly on the engine's RuntimeError/RuntimeErrorCode pattern: a code, a
// message, and a bag of structured context fields for diagnostics.
type RuntimeError struct {
	Code    Code
	Message string

	// Model is the name of the model involved, when applicable.
	Model string
	// Binding is the plugin binding name involved, when applicable.
	Binding string
	// Step is the step index at which the error occurred, when applicable.
	Step int64

	Details map[string]string
	Cause   error
}

func (e *RuntimeError) Error() string {
	switch {
	case e.Model != "" && e.Step != 0:
		return fmt.Sprintf("%s: %s (model=%s, step=%d)", e.Code, e.Message, e.Model, e.Step)
	case e.Model != "":
		return fmt.Sprintf("%s: %s (model=%s)", e.Code, e.Message, e.Model)
	case e.Binding != "":
		return fmt.Sprintf("%s: %s (binding=%s)", e.Code, e.Message, e.Binding)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

func (e *RuntimeError) Unwrap() error { return e.Cause }

func isCode(err error, code Code) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}

// IsConfiguration reports whether err is (or wraps) a ConfigurationError.
func IsConfiguration(err error) bool { return isCode(err, CodeConfiguration) }

// IsPluginLoad reports whether err is (or wraps) a PluginLoadError.
func IsPluginLoad(err error) bool { return isCode(err, CodePluginLoad) }

// IsConnection reports whether err is (or wraps) a ConnectionError.
func IsConnection(err error) bool { return isCode(err, CodeConnection) }

// IsStepStalled reports whether err is (or wraps) a StepStalled error.
func IsStepStalled(err error) bool { return isCode(err, CodeStepStalled) }

// IsTrigger reports whether err is (or wraps) a TriggerError.
func IsTrigger(err error) bool { return isCode(err, CodeTrigger) }

// IsModelFailure reports whether err is (or wraps) a ModelFailure error.
func IsModelFailure(err error) bool { return isCode(err, CodeModelFailure) }

// IsAborted reports whether err is (or wraps) an Aborted error.
func IsAborted(err error) bool { return isCode(err, CodeAborted) }

// Configuration constructs a ConfigurationError.
func Configuration(msg string, cause error) *RuntimeError {
	return &RuntimeError{Code: CodeConfiguration, Message: msg, Cause: cause}
}

// PluginLoad constructs a PluginLoadError for the given binding.
func PluginLoad(binding, msg string, cause error) *RuntimeError {
	return &RuntimeError{Code: CodePluginLoad, Message: msg, Binding: binding, Cause: cause}
}

// Connection constructs a ConnectionError for the given model.
func Connection(model, msg string, cause error) *RuntimeError {
	return &RuntimeError{Code: CodeConnection, Message: msg, Model: model, Cause: cause}
}

// StepStalled constructs a StepStalled error at the given step, naming the
// models that failed to reach the target time.
func StepStalled(step int64, laggingModels []string) *RuntimeError {
	return &RuntimeError{
		Code:    CodeStepStalled,
		Message: fmt.Sprintf("no model reached target time within retry budget (lagging: %v)", laggingModels),
		Step:    step,
		Details: map[string]string{"lagging_models": fmt.Sprint(laggingModels)},
	}
}

// Trigger constructs a TriggerError. It carries no optional-trigger marker;
// whether the error is dropped or escalated is decided by the caller.
func Trigger(msg string, cause error) *RuntimeError {
	return &RuntimeError{Code: CodeTrigger, Message: msg, Cause: cause}
}

// ModelFailure constructs a ModelFailure error for the given model.
func ModelFailure(model, msg string, cause error) *RuntimeError {
	return &RuntimeError{Code: CodeModelFailure, Message: msg, Model: model, Cause: cause}
}

// Aborted constructs an Aborted error, e.g. from a signal or watchdog.
func Aborted(msg string) *RuntimeError {
	return &RuntimeError{Code: CodeAborted, Message: msg}
}

// ExitCode maps an error (possibly nil, possibly wrapping a RuntimeError)
// to the CLI's four exit codes: 0 success, 1 configuration error, 2
// runtime failure, 3 aborted.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var re *RuntimeError
	if errors.As(err, &re) {
		switch re.Code {
		case CodeConfiguration, CodePluginLoad:
			return 1
		case CodeAborted:
			return 3
		default:
			return 2
		}
	}
	return 2
}
