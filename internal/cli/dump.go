package cli

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloe-sim/cloe-go/internal/command"
	"github.com/cloe-sim/cloe-go/internal/journal"
	"github.com/cloe-sim/cloe-go/internal/trigger"
	"github.com/cloe-sim/cloe-go/internal/trigger/builtin"
)

// NewDumpCommand creates the `dump` subcommand: compile the given
// stackfiles and persist config.json and triggers.json under --output,
// without connecting or running any model. Per SPEC_FULL.md §6's
// persisted-output contract, these are the same two artifacts `run`
// persists once its run ends, useful for inspecting what a run would do
// without paying for one.
func NewDumpCommand(root *RootOptions) *cobra.Command {
	var history bool
	var limit int

	cmd := &cobra.Command{
		Use:           "dump <stackfile>...",
		Short:         "Render the compiled config and trigger list without running",
		Args: func(cmd *cobra.Command, args []string) error {
			if history {
				return nil
			}
			return cobra.MinimumNArgs(1)(cmd, args)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := root.formatter(cmd)
			if history {
				return dumpHistory(f, root, limit)
			}
			cfg, _, err := loadStack(args, root.Strict)
			if err != nil {
				_ = f.Error("CONFIGURATION_ERROR", err.Error())
				return WrapExitError("dump failed", err)
			}

			registrar := trigger.NewRegistrar()
			builtin.RegisterAll(registrar, command.NewExecutor(true), builtin.NewNopControlRequester())
			parsed, err := parseTriggers(cfg, registrar)
			if err != nil {
				_ = f.Error("TRIGGER_ERROR", err.Error())
				return WrapExitError("dump failed", err)
			}

			if err := os.MkdirAll(root.OutputDir, 0o755); err != nil {
				return WrapExitError("creating output directory", err)
			}
			if err := writeJSONFile(filepath.Join(root.OutputDir, "config.json"), cfg); err != nil {
				return WrapExitError("writing config.json", err)
			}
			if err := writeJSONFile(filepath.Join(root.OutputDir, "triggers.json"), parsed); err != nil {
				return WrapExitError("writing triggers.json", err)
			}

			return f.Success(struct {
				ConfigPath   string `json:"config_path"`
				TriggersPath string `json:"triggers_path"`
				Triggers     int    `json:"triggers"`
			}{
				ConfigPath:   filepath.Join(root.OutputDir, "config.json"),
				TriggersPath: filepath.Join(root.OutputDir, "triggers.json"),
				Triggers:     len(parsed),
			})
		},
	}

	cmd.Flags().BoolVar(&history, "history", false, "list past runs from the journal instead of dumping a stackfile")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of runs to list with --history")
	return cmd
}

// dumpHistory lists journaled runs under root.OutputDir/journal.db, most
// recent first. Separate from the stackfile-dump path since it never
// compiles or touches a stackfile at all.
func dumpHistory(f *OutputFormatter, root *RootOptions, limit int) error {
	path := filepath.Join(root.OutputDir, "journal.db")
	j, err := journal.Open(path)
	if err != nil {
		_ = f.Error("CONFIGURATION_ERROR", err.Error())
		return WrapExitError("dump --history failed", err)
	}
	defer j.Close()

	runs, err := j.ListRuns(context.Background(), limit)
	if err != nil {
		return WrapExitError("listing journaled runs", err)
	}

	type runSummary struct {
		ID         string `json:"id"`
		StartedAt  string `json:"started_at"`
		FinishedAt string `json:"finished_at"`
		Outcome    string `json:"outcome"`
		Steps      int64  `json:"steps"`
		StackPaths string `json:"stack_paths"`
	}
	out := make([]runSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, runSummary{
			ID:         r.ID,
			StartedAt:  r.StartedAt.Format(time.RFC3339),
			FinishedAt: r.FinishedAt.Format(time.RFC3339),
			Outcome:    r.Outcome,
			Steps:      r.Steps,
			StackPaths: r.StackPaths,
		})
	}
	return f.Success(struct {
		Runs []runSummary `json:"runs"`
	}{Runs: out})
}

func writeJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
