package cli

import (
	"github.com/spf13/cobra"
)

// Version is the engine version string reported by `cloe version`, baked
// in at build time in a real release pipeline; fixed here since this
// module has no release tooling of its own.
const Version = "4.0.0-go"

// NewVersionCommand creates the `version` subcommand.
func NewVersionCommand(root *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "version",
		Short:         "Print the engine version",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return root.formatter(cmd).Success(struct {
				Version string `json:"version"`
			}{Version: Version})
		},
	}
}
