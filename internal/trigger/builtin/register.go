package builtin

import (
	"github.com/cloe-sim/cloe-go/internal/command"
	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// RegisterAll registers every built-in event and action factory named in
// SPEC_FULL.md §4.6 on r, binding command actions to the given executor and
// stop/fail/pause/resume actions to the given driver control surface. Pass
// NewNopControlRequester() where triggers are only parsed, never driven.
func RegisterAll(r *trigger.Registrar, cmdExecutor *command.Executor, control ControlRequester) {
	RegisterNilEvents(r)
	r.RegisterEventFactory("time", NewTimeEventFactory())
	r.RegisterEventFactory("next", NewNextEventFactory())
	r.RegisterEventFactory("evaluate", NewEvaluateEventFactory())
	r.RegisterEventFactory("transition", NewTransitionEventFactory())

	r.RegisterActionFactory("log", NewLogActionFactory())
	r.RegisterActionFactory("bundle", NewBundleActionFactory(r))
	r.RegisterActionFactory("insert", NewInsertActionFactory(r))
	r.RegisterActionFactory("push_release", NewPushReleaseActionFactory(r))
	r.RegisterActionFactory("command", NewCommandActionFactory(cmdExecutor))
	r.RegisterActionFactory("stop", NewStopActionFactory(control))
	r.RegisterActionFactory("fail", NewFailActionFactory(control))
	r.RegisterActionFactory("pause", NewPauseActionFactory(control))
	r.RegisterActionFactory("resume", NewResumeActionFactory(control))
}
