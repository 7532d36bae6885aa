package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/cloe-sim/cloe-go/internal/clock"
	"github.com/cloe-sim/cloe-go/internal/command"
	"github.com/cloe-sim/cloe-go/internal/driver"
	"github.com/cloe-sim/cloe-go/internal/duration"
	"github.com/cloe-sim/cloe-go/internal/executor"
	"github.com/cloe-sim/cloe-go/internal/journal"
	"github.com/cloe-sim/cloe-go/internal/model"
	"github.com/cloe-sim/cloe-go/internal/stack"
	"github.com/cloe-sim/cloe-go/internal/telemetry"
	"github.com/cloe-sim/cloe-go/internal/trigger"
	"github.com/cloe-sim/cloe-go/internal/trigger/builtin"
)

// defaultResolution is the step width used when no participating model
// implements model.Resolutioner, so a stackfile built entirely on
// resolution-agnostic plugins (like the demobasic set) still runs instead
// of failing clock.NegotiateStepWidth's "no model declared a resolution".
const defaultResolution = 20 * time.Millisecond

// NewRunCommand creates the `run` subcommand: compile the stack, assemble
// the model graph, negotiate the step width, and drive the Simulation
// Driver to a terminal phase, persisting the artifacts named in
// SPEC_FULL.md §6. Grounded on the teacher's run.go (signal-driven
// graceful shutdown over a cancellable context, engine handed a
// FlowGenerator-equivalent at construction) generalized from the
// event-loop engine to the Simulation Driver.
func NewRunCommand(root *RootOptions) *cobra.Command {
	var realtimeFactor float64
	var journalPath string
	var disableCommands bool

	cmd := &cobra.Command{
		Use:           "run <stackfile>...",
		Short:         "Run a co-simulation to completion",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if journalPath == "" {
				journalPath = filepath.Join(root.OutputDir, "journal.db")
			}
			return runSimulation(cmd, root, args, realtimeFactor, journalPath, disableCommands)
		},
	}

	cmd.Flags().Float64Var(&realtimeFactor, "realtime-factor", 0, "target realtime factor (<=0 means unlimited)")
	cmd.Flags().StringVar(&journalPath, "journal", "", "path to the run journal database (default <output>/journal.db)")
	cmd.Flags().BoolVar(&disableCommands, "no-commands", false, "disable the `command` trigger action (log instead of executing)")
	return cmd
}

func runSimulation(cmd *cobra.Command, root *RootOptions, paths []string, realtimeFactor float64, journalPath string, disableCommands bool) error {
	f := root.formatter(cmd)
	startedAt := time.Now()

	cfg, registry, err := loadStack(paths, root.Strict)
	if err != nil {
		_ = f.Error("CONFIGURATION_ERROR", err.Error())
		return WrapExitError("run failed", err)
	}

	assembled, err := stack.Assemble(cfg, registry)
	if err != nil {
		_ = f.Error("PLUGIN_LOAD_ERROR", err.Error())
		return WrapExitError("run failed", err)
	}

	models := make([]model.Model, 0, len(assembled.Simulators)+len(assembled.Vehicles)+len(assembled.Controllers))
	models = append(models, assembled.Simulators...)
	models = append(models, assembled.Vehicles...)
	models = append(models, assembled.Controllers...)

	stepWidth, err := negotiateStepWidth(models)
	if err != nil {
		_ = f.Error("CONFIGURATION_ERROR", err.Error())
		return WrapExitError("run failed", err)
	}

	clk, err := clock.New(stepWidth, realtimeFactor)
	if err != nil {
		_ = f.Error("CONFIGURATION_ERROR", err.Error())
		return WrapExitError("run failed", err)
	}

	registrar := trigger.NewRegistrar()
	cmdExecutor := command.NewExecutor(disableCommands)

	perf := telemetry.New()
	stepExec := executor.New(executor.Config{
		Clock:       clk,
		Registrar:   registrar,
		Telemetry:   perf,
		Simulators:  assembled.Simulators,
		Vehicles:    assembled.Vehicles,
		Controllers: assembled.Controllers,
	})

	drv := driver.New(registrar, stepExec, models)
	builtin.RegisterAll(registrar, cmdExecutor, drv)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Warn("received signal, aborting run", "signal", sig)
			drv.RequestAbort()
			cancel()
		case <-ctx.Done():
		}
	}()

	// Initial triggers must be parsed after builtin registration but before
	// the first step, so they're staged in time to be drained at step 1.
	parsed, err := parseTriggers(cfg, registrar)
	if err != nil {
		_ = f.Error("TRIGGER_ERROR", err.Error())
		return WrapExitError("run failed", err)
	}
	for _, t := range parsed {
		if err := registrar.InsertTrigger(t); err != nil {
			return WrapExitError("staging initial triggers", err)
		}
	}

	phase, runErr := drv.Run(ctx)
	_ = cmdExecutor.Wait()
	finishedAt := time.Now()

	if err := persistArtifacts(root.OutputDir, cfg, parsed, perf, phase.String()); err != nil {
		slog.Error("failed to persist run artifacts", "error", err)
	}
	if err := recordJournal(journalPath, paths, phase.String(), perf, startedAt, finishedAt); err != nil {
		slog.Error("failed to record run journal", "error", err)
	}

	result := struct {
		Phase string `json:"phase"`
		Steps int    `json:"steps"`
	}{Phase: phase.String(), Steps: len(perf.Steps())}

	if runErr != nil {
		_ = f.Error(strings.ToUpper(phase.String()), runErr.Error())
		return WrapExitError("run ended in "+phase.String(), runErr)
	}
	return f.Success(result)
}

// negotiateStepWidth gathers every model.Resolutioner's declared
// resolution and negotiates the fixed step width via
// clock.NegotiateStepWidth, falling back to defaultResolution alone when
// no model declares one.
func negotiateStepWidth(models []model.Model) (duration.Duration, error) {
	var resolutions []duration.Duration
	for _, m := range models {
		if r, ok := m.(model.Resolutioner); ok {
			resolutions = append(resolutions, r.Resolution())
		}
	}
	if len(resolutions) == 0 {
		resolutions = append(resolutions, duration.FromNanoseconds(defaultResolution.Nanoseconds()))
	}
	return clock.NegotiateStepWidth(resolutions)
}

func persistArtifacts(outputDir string, cfg *stack.Config, parsed []*trigger.Trigger, perf *telemetry.SimulationPerformance, outcome string) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := writeJSONFile(filepath.Join(outputDir, "config.json"), cfg); err != nil {
		return fmt.Errorf("writing config.json: %w", err)
	}
	if err := writeJSONFile(filepath.Join(outputDir, "triggers.json"), parsed); err != nil {
		return fmt.Errorf("writing triggers.json: %w", err)
	}

	reportFile, err := os.Create(filepath.Join(outputDir, "report.json"))
	if err != nil {
		return fmt.Errorf("creating report.json: %w", err)
	}
	defer reportFile.Close()
	if err := perf.WriteReport(reportFile, outcome); err != nil {
		return fmt.Errorf("writing report.json: %w", err)
	}

	timingFile, err := os.Create(filepath.Join(outputDir, "timing.csv"))
	if err != nil {
		return fmt.Errorf("creating timing.csv: %w", err)
	}
	defer timingFile.Close()
	if err := perf.WriteCSV(timingFile); err != nil {
		return fmt.Errorf("writing timing.csv: %w", err)
	}
	return nil
}

func recordJournal(path string, stackPaths []string, outcome string, perf *telemetry.SimulationPerformance, startedAt, finishedAt time.Time) error {
	j, err := journal.Open(path)
	if err != nil {
		return err
	}
	defer j.Close()

	var reportJSON strings.Builder
	if err := perf.WriteReport(&reportJSON, outcome); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return j.RecordRun(ctx, journal.Run{
		ID:         uuid.NewString(),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		Outcome:    outcome,
		Steps:      int64(len(perf.Steps())),
		StackPaths: strings.Join(stackPaths, ","),
		ReportJSON: reportJSON.String(),
	})
}
