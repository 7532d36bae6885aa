package telemetry

import (
	"bytes"
	"strings"
	"testing"

	"github.com/cloe-sim/cloe-go/internal/duration"
)

func TestCommitStepAddsBracketLabels(t *testing.T) {
	p := New()
	p.CommitStep(0, []Sample{{Label: "sim1", Milliseconds: 2}}, duration.FromNanoseconds(5_000_000), duration.FromNanoseconds(1_000_000))
	steps := p.Steps()
	if len(steps) != 1 {
		t.Fatalf("steps = %d", len(steps))
	}
	labels := make(map[string]float64)
	for _, s := range steps[0].Samples {
		labels[s.Label] = s.Milliseconds
	}
	if labels[PaddingLabel] != 1 {
		t.Errorf("padding = %v, want 1ms", labels[PaddingLabel])
	}
	if labels[EngineLabel] != 2 {
		t.Errorf("engine = %v, want 2ms (5 - 2 - 1)", labels[EngineLabel])
	}
}

func TestWriteCSVHasHeaderAndRows(t *testing.T) {
	p := New()
	p.CommitStep(0, []Sample{{Label: "sim1", Milliseconds: 1}}, duration.FromNanoseconds(3_000_000), 0)
	p.CommitStep(1, []Sample{{Label: "sim1", Milliseconds: 1}}, duration.FromNanoseconds(3_000_000), 0)

	var buf bytes.Buffer
	if err := p.WriteCSV(&buf); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "sim1") || !strings.Contains(out, PaddingLabel) || !strings.Contains(out, EngineLabel) {
		t.Errorf("CSV missing expected columns:\n%s", out)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 { // header + 2 steps
		t.Errorf("lines = %d, want 3", len(lines))
	}
}

func TestWriteReportIncludesOutcome(t *testing.T) {
	p := New()
	p.CommitStep(0, []Sample{{Label: "ctrl1", Milliseconds: 4}}, duration.FromNanoseconds(6_000_000), 0)
	var buf bytes.Buffer
	if err := p.WriteReport(&buf, "Success"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"outcome": "Success"`) {
		t.Errorf("report missing outcome:\n%s", buf.String())
	}
}
