// Package telemetry accumulates per-step timing samples and renders the
// timing.csv / report.json artifacts named in SPEC_FULL.md §6.
package telemetry

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cloe-sim/cloe-go/internal/duration"
)

// PaddingLabel and EngineLabel are the two synthetic labels bracketing
// plugin time within a step, per SPEC_FULL.md §4.7: PaddingLabel covers any
// pause/sleep to meet the realtime target, EngineLabel covers everything
// else the core itself spends (dispatch, bookkeeping) that isn't
// attributable to a specific plugin.
const (
	PaddingLabel = "(cloe_padding)"
	EngineLabel  = "(cloe_engine)"
)

// Sample is one (label, milliseconds) pair within a step.
type Sample struct {
	Label        string
	Milliseconds float64
}

// StepTiming is the ordered sequence of samples recorded for one step.
// Contiguous equal labels are one group when rendered to CSV; the same
// label may reappear non-contiguously only across different steps.
type StepTiming struct {
	Step    int64
	Samples []Sample
}

// SimulationPerformance accumulates StepTiming records across a run and
// computes the per-model and per-step aggregates used in report.json.
type SimulationPerformance struct {
	steps []StepTiming
}

// New constructs an empty SimulationPerformance accumulator.
func New() *SimulationPerformance {
	return &SimulationPerformance{}
}

// CommitStep appends a step's plugin samples plus the two synthetic
// bracket samples: padding (time spent sleeping for realtime pacing) and
// engine (total step wall time minus plugin time minus padding).
func (p *SimulationPerformance) CommitStep(step int64, pluginSamples []Sample, cycleWall, padding duration.Duration) {
	var pluginTotal float64
	for _, s := range pluginSamples {
		pluginTotal += s.Milliseconds
	}
	engineMillis := cycleWall.Milliseconds() - pluginTotal - padding.Milliseconds()
	if engineMillis < 0 {
		engineMillis = 0
	}

	samples := make([]Sample, 0, len(pluginSamples)+2)
	samples = append(samples, pluginSamples...)
	samples = append(samples, Sample{Label: PaddingLabel, Milliseconds: padding.Milliseconds()})
	samples = append(samples, Sample{Label: EngineLabel, Milliseconds: engineMillis})

	p.steps = append(p.steps, StepTiming{Step: step, Samples: samples})
}

// Steps returns every committed step's timing record, in step order.
func (p *SimulationPerformance) Steps() []StepTiming {
	return p.steps
}

// labelColumns returns the set of distinct labels across all steps, in
// first-seen order, used as CSV columns.
func (p *SimulationPerformance) labelColumns() []string {
	seen := make(map[string]bool)
	var cols []string
	for _, st := range p.steps {
		// Contiguous equal labels within a step collapse into one column
		// total; this loop still only needs the distinct label set.
		for _, s := range st.Samples {
			if !seen[s.Label] {
				seen[s.Label] = true
				cols = append(cols, s.Label)
			}
		}
	}
	return cols
}

// WriteCSV renders timing.csv: one row per step, one column per
// contiguous-label group (summed if a label repeats non-contiguously
// within the same step, which only legitimately happens across steps, not
// within one, per SPEC_FULL.md §3).
func (p *SimulationPerformance) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cols := p.labelColumns()
	header := append([]string{"step"}, cols...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, st := range p.steps {
		totals := make(map[string]float64, len(cols))
		for _, s := range st.Samples {
			totals[s.Label] += s.Milliseconds
		}
		row := make([]string, 0, len(cols)+1)
		row = append(row, fmt.Sprintf("%d", st.Step))
		for _, c := range cols {
			row = append(row, fmt.Sprintf("%.6f", totals[c]))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	return cw.Error()
}

// ModelSummary is the per-model aggregate rendered into report.json:
// average and max step time and the number of steps that model
// participated in.
type ModelSummary struct {
	Label        string  `json:"label"`
	AverageMs    float64 `json:"average_ms"`
	MaxMs        float64 `json:"max_ms"`
	StepCount    int     `json:"step_count"`
}

// Summary computes the per-label ModelSummary set, including the two
// synthetic bracket labels.
func (p *SimulationPerformance) Summary() []ModelSummary {
	totals := make(map[string]float64)
	maxes := make(map[string]float64)
	counts := make(map[string]int)
	order := p.labelColumns()

	for _, st := range p.steps {
		perStep := make(map[string]float64)
		for _, s := range st.Samples {
			perStep[s.Label] += s.Milliseconds
		}
		for label, ms := range perStep {
			totals[label] += ms
			counts[label]++
			if ms > maxes[label] {
				maxes[label] = ms
			}
		}
	}

	out := make([]ModelSummary, 0, len(order))
	for _, label := range order {
		n := counts[label]
		avg := 0.0
		if n > 0 {
			avg = totals[label] / float64(n)
		}
		out = append(out, ModelSummary{Label: label, AverageMs: avg, MaxMs: maxes[label], StepCount: n})
	}
	return out
}

// Report is the JSON shape of report.json.
type Report struct {
	Outcome string         `json:"outcome"`
	Steps   int            `json:"steps"`
	Models  []ModelSummary `json:"models"`
}

// WriteReport renders report.json given the run's terminal outcome string
// (e.g. "Success", "Failure", "Aborted").
func (p *SimulationPerformance) WriteReport(w io.Writer, outcome string) error {
	report := Report{
		Outcome: outcome,
		Steps:   len(p.steps),
		Models:  p.Summary(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
