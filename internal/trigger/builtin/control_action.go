package builtin

import (
	"encoding/json"
	"fmt"

	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// ControlRequester is the narrow slice of the Simulation Driver that a
// control action needs: the same four user-issued transitions SPEC_FULL.md
// §4.8 exposes on the CLI (stop/pause/resume/fail-as-abort), reachable here
// from inside a running simulation instead of only from outside it. Kept as
// an interface, not *driver.Driver, to avoid an import cycle (driver already
// depends on trigger to register its nil-event callbacks).
type ControlRequester interface {
	RequestStop()
	RequestPause()
	RequestResume()
	RequestAbort()
}

// nopControlRequester discards every request. Used where triggers are
// parsed but never driven to completion (e.g. `dump`), so a stackfile
// referencing a control action still parses instead of failing to resolve
// the action factory.
type nopControlRequester struct{}

func (nopControlRequester) RequestStop()   {}
func (nopControlRequester) RequestPause()  {}
func (nopControlRequester) RequestResume() {}
func (nopControlRequester) RequestAbort()  {}

// NewNopControlRequester returns a ControlRequester that discards every
// request, for wiring contexts that parse triggers without running them.
func NewNopControlRequester() ControlRequester { return nopControlRequester{} }

// --- stop / fail / pause / resume ---

// controlActionFactory maps one of the four driver transitions onto a
// trigger action. "fail" requests the same abort transition as the CLI's
// Ctrl-C path; it exists as a separate factory because eclipse/cloe's sync
// documentation distinguishes a trigger-driven "fail" ending from a
// trigger-driven "stop" ending, even though both run through RequestAbort
// at this layer (the outer phase each lands in is still decided by the Step
// Executor's own failure handling, not by which action asked for it).
type controlActionFactory struct {
	kind      string
	requester ControlRequester
	request   func(ControlRequester)
}

// NewStopActionFactory constructs the "stop" ActionFactory: ends the run
// cleanly once the current step commits.
func NewStopActionFactory(r ControlRequester) trigger.ActionFactory {
	return &controlActionFactory{kind: "stop", requester: r, request: ControlRequester.RequestStop}
}

// NewFailActionFactory constructs the "fail" ActionFactory: ends the run as
// an abort, for triggers that detect a condition the run should be scored
// as having failed under.
func NewFailActionFactory(r ControlRequester) trigger.ActionFactory {
	return &controlActionFactory{kind: "fail", requester: r, request: ControlRequester.RequestAbort}
}

// NewPauseActionFactory constructs the "pause" ActionFactory.
func NewPauseActionFactory(r ControlRequester) trigger.ActionFactory {
	return &controlActionFactory{kind: "pause", requester: r, request: ControlRequester.RequestPause}
}

// NewResumeActionFactory constructs the "resume" ActionFactory.
func NewResumeActionFactory(r ControlRequester) trigger.ActionFactory {
	return &controlActionFactory{kind: "resume", requester: r, request: ControlRequester.RequestResume}
}

func (f *controlActionFactory) Name() string { return f.kind }

func (f *controlActionFactory) New(_ json.RawMessage) (trigger.Action, error) {
	return &boundControlAction{kind: f.kind, requester: f.requester, request: f.request}, nil
}

func (f *controlActionFactory) FromInline(arg string) (trigger.Action, error) {
	if arg != "" {
		return nil, fmt.Errorf("%s action: inline form takes no argument, got %q", f.kind, arg)
	}
	return &boundControlAction{kind: f.kind, requester: f.requester, request: f.request}, nil
}

// boundControlAction is the actual trigger.Action: requester is bound at
// construction so Execute needs nothing from ActionContext.
type boundControlAction struct {
	kind      string
	requester ControlRequester
	request   func(ControlRequester)
}

func (a *boundControlAction) Kind() string        { return a.kind }
func (a *boundControlAction) IsSignificant() bool { return true }

// MarshalJSON renders the long form `{"name": "<kind>"}`; a control action
// takes no config.
func (a *boundControlAction) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name string `json:"name"`
	}{Name: a.kind})
}

func (a *boundControlAction) Execute(_ trigger.ActionContext) (trigger.Outcome, error) {
	a.request(a.requester)
	return trigger.OutcomeNone, nil
}
