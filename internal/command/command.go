// Package command implements the Command Executor: scoped sub-process
// launching used by the `command` trigger action, grounded on
// original_source/engine/src/utility/command.cpp's CommandExecuter and
// runtime/include/cloe/utility/command.hpp's Command schema.
package command

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
)

// Mode selects how a command's subprocess is launched.
type Mode int

const (
	// Sync blocks until the subprocess exits and collects stdout/stderr.
	Sync Mode = iota
	// Async runs in the background; Executor.Wait joins it at scope exit.
	Async
	// Detach is fire-and-forget: no wait, ever.
	Detach
)

// String renders the Mode the way it's spelled in a stackfile's
// `mode` field, the inverse of builtin.parseMode.
func (m Mode) String() string {
	switch m {
	case Async:
		return "async"
	case Detach:
		return "detach"
	default:
		return "sync"
	}
}

// Verbosity controls when captured output is logged.
type Verbosity int

const (
	Never Verbosity = iota
	OnError
	Always
)

// String renders the Verbosity the way it's spelled in a stackfile's
// `verbosity` field, the inverse of builtin.parseVerbosity.
func (v Verbosity) String() string {
	switch v {
	case Always:
		return "always"
	case Never:
		return "never"
	default:
		return "on_error"
	}
}

// Spec describes one `command` action invocation.
type Spec struct {
	Executable    string
	Args          []string
	Mode          Mode
	Verbosity     Verbosity
	IgnoreFailure bool
}

// Executor runs Specs. A single Executor may be globally disabled, in which
// case Run is a no-op that only logs what would have run — used by run's
// --no-commands flag and by callers that only parse triggers (dump, tests).
// There is no stackfile key for it.
type Executor struct {
	log      *slog.Logger
	disabled bool

	mu      sync.Mutex
	pending []*exec.Cmd // Async commands awaiting Wait
}

// NewExecutor constructs an Executor. If disabled is true, Run never
// launches a subprocess.
func NewExecutor(disabled bool) *Executor {
	return &Executor{
		log:      slog.Default().With("component", "command"),
		disabled: disabled,
	}
}

// Run executes spec according to its Mode. A failure to start is an error
// unless IgnoreFailure is set, in every Mode. In Sync mode, non-zero exit
// is also an error unless IgnoreFailure is set, and captured output is
// logged per Verbosity. An Async command's exit status is returned by
// Wait, which neither consults IgnoreFailure nor logs captured output; a
// Detach command's exit status and output are discarded.
func (e *Executor) Run(ctx context.Context, spec Spec) error {
	if e.disabled {
		e.log.Info("command execution disabled; skipping", "executable", spec.Executable, "args", spec.Args)
		return nil
	}

	cmd := exec.CommandContext(ctx, spec.Executable, spec.Args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	switch spec.Mode {
	case Detach:
		if err := cmd.Start(); err != nil {
			return e.concludeError(spec, err)
		}
		go func() {
			_ = cmd.Wait() // Detach: result is intentionally discarded.
		}()
		return nil

	case Async:
		if err := cmd.Start(); err != nil {
			return e.concludeError(spec, err)
		}
		e.mu.Lock()
		e.pending = append(e.pending, cmd)
		e.mu.Unlock()
		return nil

	default: // Sync
		err := cmd.Run()
		e.logOutput(spec, stdout.String(), stderr.String(), err)
		return e.concludeError(spec, err)
	}
}

// Wait blocks until every Async command launched so far has exited,
// releasing resources acquired by Run at scope exit (the Async contract:
// "run in background; join at scope exit").
func (e *Executor) Wait() error {
	e.mu.Lock()
	pending := e.pending
	e.pending = nil
	e.mu.Unlock()

	var firstErr error
	for _, cmd := range pending {
		if err := cmd.Wait(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (e *Executor) logOutput(spec Spec, stdout, stderr string, runErr error) {
	switch spec.Verbosity {
	case Always:
		e.log.Info("command output", "executable", spec.Executable, "stdout", stdout, "stderr", stderr)
	case OnError:
		if runErr != nil {
			e.log.Warn("command failed", "executable", spec.Executable, "stdout", stdout, "stderr", stderr, "error", runErr)
		}
	case Never:
		// no-op
	}
}

func (e *Executor) concludeError(spec Spec, err error) error {
	if err == nil {
		return nil
	}
	if spec.IgnoreFailure {
		e.log.Warn("command failed but ignore_failure is set", "executable", spec.Executable, "error", err)
		return nil
	}
	return fmt.Errorf("command %q failed: %w", spec.Executable, err)
}
