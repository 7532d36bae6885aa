package cli

import (
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the `check` subcommand: compile and validate one
// or more stackfiles without assembling or running anything, exiting
// nonzero on any structural or schema error (SPEC_FULL.md §6 CLI surface).
func NewCheckCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "check <stackfile>...",
		Short:         "Validate one or more stackfiles",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := root.formatter(cmd)
			cfg, _, err := loadStack(args, root.Strict)
			if err != nil {
				_ = f.Error("CONFIGURATION_ERROR", err.Error())
				return WrapExitError("check failed", err)
			}
			return f.Success(struct {
				Valid       bool `json:"valid"`
				Simulators  int  `json:"simulators"`
				Vehicles    int  `json:"vehicles"`
				Controllers int  `json:"controllers"`
				Triggers    int  `json:"triggers"`
			}{
				Valid:       true,
				Simulators:  len(cfg.Simulators),
				Vehicles:    len(cfg.Vehicles),
				Controllers: len(cfg.Controllers),
				Triggers:    len(cfg.Triggers),
			})
		},
	}
}
