package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cloe-sim/cloe-go/internal/command"
	"github.com/cloe-sim/cloe-go/internal/duration"
	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// --- log ---

type logAction struct {
	level string
	msg   string
	log   *slog.Logger
}

func (a *logAction) Kind() string        { return "log" }
func (a *logAction) IsSignificant() bool { return false }

// MarshalJSON renders the long form `{"name":"log","level":...,"msg":...}`,
// the inverse of logActionFactory.New.
func (a *logAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name  string `json:"name"`
		Level string `json:"level"`
		Msg   string `json:"msg"`
	}{Name: "log", Level: a.level, Msg: a.msg})
}

func (a *logAction) Execute(_ trigger.ActionContext) (trigger.Outcome, error) {
	switch a.level {
	case "debug":
		a.log.Debug(a.msg)
	case "warn":
		a.log.Warn(a.msg)
	case "error":
		a.log.Error(a.msg)
	default:
		a.log.Info(a.msg)
	}
	return trigger.OutcomeNone, nil
}

type logActionFactory struct{ log *slog.Logger }

// NewLogActionFactory constructs the "log" ActionFactory.
func NewLogActionFactory() trigger.ActionFactory {
	return &logActionFactory{log: slog.Default().With("component", "trigger")}
}

func (f *logActionFactory) Name() string { return "log" }

func (f *logActionFactory) New(config json.RawMessage) (trigger.Action, error) {
	var c struct {
		Level string `json:"level"`
		Msg   string `json:"msg"`
	}
	if err := json.Unmarshal(config, &c); err != nil {
		return nil, fmt.Errorf("log action: %w", err)
	}
	return &logAction{level: c.Level, msg: c.Msg, log: f.log}, nil
}

// FromInline parses "<level>:<message>", e.g. "info: hit" or "warn:fast".
func (f *logActionFactory) FromInline(arg string) (trigger.Action, error) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == ':' {
			level := arg[:i]
			msg := arg[i+1:]
			if len(msg) > 0 && msg[0] == ' ' {
				msg = msg[1:]
			}
			return &logAction{level: level, msg: msg, log: f.log}, nil
		}
	}
	return &logAction{level: "info", msg: arg, log: f.log}, nil
}

// --- bundle ---

type bundleAction struct {
	children []trigger.Action
}

func (a *bundleAction) Kind() string { return "bundle" }

func (a *bundleAction) IsSignificant() bool {
	for _, c := range a.children {
		if c.IsSignificant() {
			return true
		}
	}
	return false
}

func (a *bundleAction) Execute(ctx trigger.ActionContext) (trigger.Outcome, error) {
	for _, c := range a.children {
		if _, err := c.Execute(ctx); err != nil {
			return trigger.OutcomeNone, fmt.Errorf("bundle: child action %q: %w", c.Kind(), err)
		}
	}
	return trigger.OutcomeNone, nil
}

// MarshalJSON renders the long form `{"name":"bundle","actions":[...]}`,
// recursing into each child's own MarshalJSON so nested config survives.
func (a *bundleAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name    string           `json:"name"`
		Actions []trigger.Action `json:"actions"`
	}{Name: "bundle", Actions: a.children})
}

type bundleActionFactory struct {
	registrar *trigger.Registrar
}

// NewBundleActionFactory constructs the "bundle" ActionFactory. It needs
// the registrar to resolve each child action by name.
func NewBundleActionFactory(r *trigger.Registrar) trigger.ActionFactory {
	return &bundleActionFactory{registrar: r}
}

func (f *bundleActionFactory) Name() string { return "bundle" }

func (f *bundleActionFactory) New(config json.RawMessage) (trigger.Action, error) {
	var c struct {
		Actions []json.RawMessage `json:"actions"`
	}
	if err := json.Unmarshal(config, &c); err != nil {
		return nil, fmt.Errorf("bundle action: %w", err)
	}
	children := make([]trigger.Action, 0, len(c.Actions))
	for _, raw := range c.Actions {
		ac, err := f.registrar.ResolveActionJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("bundle action: child: %w", err)
		}
		children = append(children, ac)
	}
	return &bundleAction{children: children}, nil
}

func (f *bundleActionFactory) FromInline(_ string) (trigger.Action, error) {
	return nil, fmt.Errorf("bundle action: inline form not supported, use long form with \"actions\"")
}

// --- insert ---

type insertAction struct {
	triggers []*trigger.Trigger
}

func (a *insertAction) Kind() string        { return "insert" }
func (a *insertAction) IsSignificant() bool { return false }

// MarshalJSON renders the long form `{"name":"insert","triggers":[...]}`,
// recursing into each child Trigger's own MarshalJSON.
func (a *insertAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string             `json:"name"`
		Triggers []*trigger.Trigger `json:"triggers"`
	}{Name: "insert", Triggers: a.triggers})
}

func (a *insertAction) Execute(ctx trigger.ActionContext) (trigger.Outcome, error) {
	for _, t := range a.triggers {
		if err := ctx.InsertTrigger(t); err != nil {
			return trigger.OutcomeNone, fmt.Errorf("insert action: %w", err)
		}
	}
	return trigger.OutcomeNone, nil
}

type insertActionFactory struct {
	registrar *trigger.Registrar
}

// NewInsertActionFactory constructs the "insert" ActionFactory.
func NewInsertActionFactory(r *trigger.Registrar) trigger.ActionFactory {
	return &insertActionFactory{registrar: r}
}

func (f *insertActionFactory) Name() string { return "insert" }

func (f *insertActionFactory) New(config json.RawMessage) (trigger.Action, error) {
	var c struct {
		Triggers []json.RawMessage `json:"triggers"`
	}
	if err := json.Unmarshal(config, &c); err != nil {
		return nil, fmt.Errorf("insert action: %w", err)
	}
	triggers := make([]*trigger.Trigger, 0, len(c.Triggers))
	for _, raw := range c.Triggers {
		t, err := f.registrar.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("insert action: %w", err)
		}
		if t != nil {
			triggers = append(triggers, t)
		}
	}
	return &insertAction{triggers: triggers}, nil
}

func (f *insertActionFactory) FromInline(_ string) (trigger.Action, error) {
	return nil, fmt.Errorf("insert action: inline form not supported, use long form with \"triggers\"")
}

// --- push_release ---

// pushReleaseAction inserts two `next`-aliased triggers on construction
// deferral: a press at the next step and a release `duration` later, both
// wrapping the same underlying action. Modeled on SPEC_FULL.md §4.6's
// description; since insertion must happen through the registrar (to land
// in the staging buffer, not fire within the current step), the actual
// insertion happens in Execute rather than New.
type pushReleaseAction struct {
	duration duration.Duration
	buttons  []string
	inner    trigger.Action
}

func (a *pushReleaseAction) Kind() string        { return "push_release" }
func (a *pushReleaseAction) IsSignificant() bool { return a.inner.IsSignificant() }

// MarshalJSON renders the long form `{"name":"push_release","duration":...,
// "buttons":...,"action":...}`, the inverse of pushReleaseActionFactory.New.
func (a *pushReleaseAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string         `json:"name"`
		Duration string         `json:"duration"`
		Buttons  []string       `json:"buttons,omitempty"`
		Action   trigger.Action `json:"action"`
	}{Name: "push_release", Duration: a.duration.String(), Buttons: a.buttons, Action: a.inner})
}

func (a *pushReleaseAction) Execute(ctx trigger.ActionContext) (trigger.Outcome, error) {
	// Press fires on the very next step ("next" with zero delta).
	press, err := trigger.NewTrigger("push_release:press", &nextEvent{delta: 0}, a.inner, false, false, false, trigger.SourceInstance)
	if err != nil {
		return trigger.OutcomeNone, err
	}
	release, err := trigger.NewTrigger("push_release:release", &nextEvent{delta: a.duration}, a.inner, false, false, false, trigger.SourceInstance)
	if err != nil {
		return trigger.OutcomeNone, err
	}
	if err := ctx.InsertTrigger(press); err != nil {
		return trigger.OutcomeNone, err
	}
	if err := ctx.InsertTrigger(release); err != nil {
		return trigger.OutcomeNone, err
	}
	return trigger.OutcomeNone, nil
}

type pushReleaseActionFactory struct {
	registrar *trigger.Registrar
}

// NewPushReleaseActionFactory constructs the "push_release" ActionFactory.
func NewPushReleaseActionFactory(r *trigger.Registrar) trigger.ActionFactory {
	return &pushReleaseActionFactory{registrar: r}
}

func (f *pushReleaseActionFactory) Name() string { return "push_release" }

func (f *pushReleaseActionFactory) New(config json.RawMessage) (trigger.Action, error) {
	var c struct {
		Duration string          `json:"duration"`
		Buttons  []string        `json:"buttons"`
		Action   json.RawMessage `json:"action"`
	}
	if err := json.Unmarshal(config, &c); err != nil {
		return nil, fmt.Errorf("push_release action: %w", err)
	}
	d, err := duration.Parse(c.Duration)
	if err != nil {
		return nil, fmt.Errorf("push_release action: invalid duration: %w", err)
	}
	inner, err := f.registrar.ResolveActionJSON(c.Action)
	if err != nil {
		return nil, fmt.Errorf("push_release action: inner action: %w", err)
	}
	return &pushReleaseAction{duration: d, buttons: c.Buttons, inner: inner}, nil
}

func (f *pushReleaseActionFactory) FromInline(_ string) (trigger.Action, error) {
	return nil, fmt.Errorf("push_release action: inline form not supported")
}

// --- command ---

type commandAction struct {
	executor *command.Executor
	spec     command.Spec
}

func (a *commandAction) Kind() string        { return "command" }
func (a *commandAction) IsSignificant() bool { return true }

// MarshalJSON renders the long form `{"name":"command","executable":...,
// "args":...,"mode":...,"verbosity":...,"ignore_failure":...}`, the inverse
// of commandActionFactory.New.
func (a *commandAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name          string   `json:"name"`
		Executable    string   `json:"executable"`
		Args          []string `json:"args,omitempty"`
		Mode          string   `json:"mode"`
		Verbosity     string   `json:"verbosity"`
		IgnoreFailure bool     `json:"ignore_failure,omitempty"`
	}{
		Name:          "command",
		Executable:    a.spec.Executable,
		Args:          a.spec.Args,
		Mode:          a.spec.Mode.String(),
		Verbosity:     a.spec.Verbosity.String(),
		IgnoreFailure: a.spec.IgnoreFailure,
	})
}

func (a *commandAction) Execute(_ trigger.ActionContext) (trigger.Outcome, error) {
	if err := a.executor.Run(context.Background(), a.spec); err != nil {
		return trigger.OutcomeNone, err
	}
	return trigger.OutcomeNone, nil
}

type commandActionFactory struct {
	executor *command.Executor
}

// NewCommandActionFactory constructs the "command" ActionFactory, bound to
// a single shared Command Executor for the run.
func NewCommandActionFactory(e *command.Executor) trigger.ActionFactory {
	return &commandActionFactory{executor: e}
}

func (f *commandActionFactory) Name() string { return "command" }

func (f *commandActionFactory) New(config json.RawMessage) (trigger.Action, error) {
	var c struct {
		Executable    string   `json:"executable"`
		Args          []string `json:"args"`
		Mode          string   `json:"mode"`
		Verbosity     string   `json:"verbosity"`
		IgnoreFailure bool     `json:"ignore_failure"`
	}
	if err := json.Unmarshal(config, &c); err != nil {
		return nil, fmt.Errorf("command action: %w", err)
	}
	spec := command.Spec{
		Executable:    c.Executable,
		Args:          c.Args,
		Mode:          parseMode(c.Mode),
		Verbosity:     parseVerbosity(c.Verbosity),
		IgnoreFailure: c.IgnoreFailure,
	}
	return &commandAction{executor: f.executor, spec: spec}, nil
}

func (f *commandActionFactory) FromInline(arg string) (trigger.Action, error) {
	return &commandAction{executor: f.executor, spec: command.Spec{Executable: arg, Mode: command.Sync, Verbosity: command.OnError}}, nil
}

func parseMode(s string) command.Mode {
	switch s {
	case "async":
		return command.Async
	case "detach":
		return command.Detach
	default:
		return command.Sync
	}
}

func parseVerbosity(s string) command.Verbosity {
	switch s {
	case "always":
		return command.Always
	case "never":
		return command.Never
	default:
		return command.OnError
	}
}
