package builtin

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// comparator is one of the scalar comparison operators accepted by the
// evaluate event's inline predicate form, e.g. "v>=90".
type comparator func(v, threshold float64) bool

var comparators = map[string]comparator{
	">=": func(v, t float64) bool { return v >= t },
	"<=": func(v, t float64) bool { return v <= t },
	"==": func(v, t float64) bool { return v == t },
	"!=": func(v, t float64) bool { return v != t },
	">":  func(v, t float64) bool { return v > t },
	"<":  func(v, t float64) bool { return v < t },
}

// evaluateEvent wraps a host-provided named scalar signal and a comparison
// predicate. The host threads the current value of the named signal to
// Direct.Fire once per step (SPEC_FULL.md §4.6: "host threads the current
// value to the callback per step").
type evaluateEvent struct {
	signal string
	op     comparator
	opName string
	thresh float64
}

// Kind encodes the signal name so the registrar routes every evaluate
// event watching the same signal to one shared Direct callback (auto-
// vivified on first sight — see Registrar.SetFallbackCallback), while
// evaluate events over different signals land in separate buckets and
// never see each other's values. Mirrors original_source's per-signal
// DirectCallback<Evaluate, double> registered under "<model>/<signal>".
func (e *evaluateEvent) Kind() string { return "evaluate:" + e.signal }

// Signal returns the name of the host signal this event reads.
func (e *evaluateEvent) Signal() string { return e.signal }

// Matches implements callback.Matcher: value must be a float64.
func (e *evaluateEvent) Matches(value any) bool {
	f, ok := value.(float64)
	if !ok {
		return false
	}
	return e.op(f, e.thresh)
}

// MarshalJSON renders the long form `{"name":"evaluate","signal":...,
// "operator":...,"value":...}`, the inverse of evaluateEventFactory.New.
func (e *evaluateEvent) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name     string  `json:"name"`
		Signal   string  `json:"signal"`
		Operator string  `json:"operator"`
		Value    float64 `json:"value"`
	}{Name: "evaluate", Signal: e.signal, Operator: e.opName, Value: e.thresh})
}

type evaluateEventConfig struct {
	Signal   string  `json:"signal"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

type evaluateEventFactory struct{}

// NewEvaluateEventFactory constructs the "evaluate" EventFactory.
func NewEvaluateEventFactory() trigger.EventFactory { return &evaluateEventFactory{} }

func (f *evaluateEventFactory) Name() string { return "evaluate" }

func (f *evaluateEventFactory) New(config json.RawMessage) (trigger.Event, error) {
	var c evaluateEventConfig
	if err := json.Unmarshal(config, &c); err != nil {
		return nil, fmt.Errorf("evaluate event: %w", err)
	}
	op, ok := comparators[c.Operator]
	if !ok {
		return nil, fmt.Errorf("evaluate event: unknown operator %q", c.Operator)
	}
	return &evaluateEvent{signal: c.Signal, op: op, opName: c.Operator, thresh: c.Value}, nil
}

// operatorOrder lists operators longest-first so ">=" is tried before ">"
// and the parse never mistakes the first character of a two-byte operator
// for a complete one-byte operator.
var operatorOrder = []string{">=", "<=", "==", "!=", ">", "<"}

// FromInline parses the "<signal><op><value>" form, e.g. "evaluate=v>=90" is
// split by the registrar into name="evaluate" arg="v>=90"; here we parse the
// comparison out of arg.
func (f *evaluateEventFactory) FromInline(arg string) (trigger.Event, error) {
	for _, opStr := range operatorOrder {
		idx := strings.Index(arg, opStr)
		if idx < 0 {
			continue
		}
		signal := strings.TrimSpace(arg[:idx])
		valuePart := strings.TrimSpace(arg[idx+len(opStr):])
		val, err := strconv.ParseFloat(valuePart, 64)
		if err != nil {
			return nil, fmt.Errorf("evaluate event: invalid threshold %q: %w", valuePart, err)
		}
		return &evaluateEvent{signal: signal, op: comparators[opStr], opName: opStr, thresh: val}, nil
	}
	return nil, fmt.Errorf("evaluate event: cannot parse predicate %q", arg)
}
