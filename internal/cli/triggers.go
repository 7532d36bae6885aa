package cli

import (
	"fmt"
	"log/slog"

	"github.com/cloe-sim/cloe-go/internal/stack"
	"github.com/cloe-sim/cloe-go/internal/trigger"
)

// parseTriggers resolves every stackfile `triggers[]` entry against the
// registrar's event/action factory tables as they stand when it is called.
// run and dump call it after builtin.RegisterAll but before the driver runs
// (models enroll inside the driver), so factories a model registers in
// Enroll are not available to stackfile triggers. Entries that fail to parse and carry `"optional": true` are
// dropped with a warning rather than failing the whole run, per
// SPEC_FULL.md §4.5.
func parseTriggers(cfg *stack.Config, registrar *trigger.Registrar) ([]*trigger.Trigger, error) {
	var ignoreSource []string
	if cfg.Engine != nil {
		ignoreSource = cfg.Engine.Triggers.IgnoreSource
	}
	ignored := make(map[string]bool, len(ignoreSource))
	for _, s := range ignoreSource {
		ignored[s] = true
	}

	out := make([]*trigger.Trigger, 0, len(cfg.Triggers))
	for i, raw := range cfg.Triggers {
		t, err := registrar.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("triggers[%d]: %w", i, err)
		}
		if t == nil {
			slog.Warn("optional trigger dropped", "index", i)
			continue
		}
		if ignored[t.Source.String()] {
			slog.Debug("trigger dropped by engine.triggers.ignore_source", "index", i, "source", t.Source)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}
