// Package cli implements the `cloe` command-line surface described in
// SPEC_FULL.md §6: run/check/dump/usage/probe/version over a common set of
// persistent flags, grounded on the teacher's cobra root/subcommand layout
// (internal/cli/root.go) and its OutputFormatter text/JSON split.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds the flags every subcommand shares.
type RootOptions struct {
	LogLevel    string
	OutputDir   string
	Strict      bool
	NoWebserver bool
	JSON        bool
}

// validLogLevels mirrors slog's four named levels; anything else is
// rejected up front rather than silently falling back to Info.
var validLogLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// NewRootCommand builds the `cloe` root command and wires every subcommand.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "cloe",
		Short: "Cloe: a middleware for closed-loop driving function testing",
		Long: `cloe runs a fixed-step co-simulation described by one or more
stackfiles, dispatching triggers against the running models and persisting
timing and outcome artifacts for later inspection.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, ok := validLogLevels[opts.LogLevel]
			if !ok {
				return NewExitError(ExitConfigurationError, fmt.Sprintf("invalid --log-level %q", opts.LogLevel))
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			if opts.NoWebserver {
				slog.Debug("webserver disabled by --no-webserver")
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")
	cmd.PersistentFlags().StringVar(&opts.OutputDir, "output", ".", "directory persisted run artifacts are written to")
	cmd.PersistentFlags().BoolVar(&opts.Strict, "strict", false, "treat plugin load failures as fatal regardless of ignore_missing")
	cmd.PersistentFlags().BoolVar(&opts.NoWebserver, "no-webserver", false, "do not start the (non-goal) control webserver")
	cmd.PersistentFlags().BoolVar(&opts.JSON, "json", false, "emit machine-readable JSON instead of text")

	cmd.AddCommand(NewVersionCommand(opts))
	cmd.AddCommand(NewCheckCommand(opts))
	cmd.AddCommand(NewDumpCommand(opts))
	cmd.AddCommand(NewUsageCommand(opts))
	cmd.AddCommand(NewProbeCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))

	return cmd
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{JSON: o.JSON, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
}
