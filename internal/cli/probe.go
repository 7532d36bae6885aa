package cli

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	cloesync "github.com/cloe-sim/cloe-go/internal/sync"
	"github.com/cloe-sim/cloe-go/internal/executor"
	"github.com/cloe-sim/cloe-go/internal/model"
	"github.com/cloe-sim/cloe-go/internal/stack"
)

// probeResult is the signals.json shape: every vehicle's component keys
// plus a flat map of every signal name any simulator/vehicle/controller
// currently advertises, probed with a single zero-time Process call.
type probeResult struct {
	Vehicles map[string][]string `json:"vehicles"`
	Signals  map[string]any      `json:"signals"`
}

// NewProbeCommand creates the `probe` subcommand: assemble (but do not
// run) the model graph a stackfile describes, and report its shape —
// vehicle component keys and the signal names/values available at time
// zero — without committing to a full run. Grounded on SPEC_FULL.md §6's
// signals.json artifact, produced here on demand rather than only at the
// end of a `run`.
func NewProbeCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "probe <stackfile>...",
		Short:         "Assemble the model graph and report its vehicles and signals",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := root.formatter(cmd)
			cfg, registry, err := loadStack(args, root.Strict)
			if err != nil {
				_ = f.Error("CONFIGURATION_ERROR", err.Error())
				return WrapExitError("probe failed", err)
			}

			assembled, err := stack.Assemble(cfg, registry)
			if err != nil {
				_ = f.Error("PLUGIN_LOAD_ERROR", err.Error())
				return WrapExitError("probe failed", err)
			}

			zero := cloesync.New(0, 0, 0, 0)
			result := probeResult{
				Vehicles: make(map[string][]string, len(assembled.VehicleGraphs)),
				Signals:  make(map[string]any),
			}
			for _, v := range assembled.VehicleGraphs {
				result.Vehicles[v.Name()] = v.Keys()
			}
			for _, group := range [][]model.Model{assembled.Simulators, assembled.Vehicles, assembled.Controllers} {
				for _, m := range group {
					if _, err := m.Process(zero); err != nil {
						continue
					}
					if src, ok := m.(executor.SignalSource); ok {
						for k, v := range src.Signals() {
							result.Signals[k] = v
						}
					}
				}
			}

			if err := os.MkdirAll(root.OutputDir, 0o755); err != nil {
				return WrapExitError("creating output directory", err)
			}
			if err := writeJSONFile(filepath.Join(root.OutputDir, "signals.json"), result); err != nil {
				return WrapExitError("writing signals.json", err)
			}

			return f.Success(result)
		},
	}
}
