package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/engine"
	"github.com/roach88/sweep/internal/objective"
	"github.com/roach88/sweep/internal/observer"
	"github.com/roach88/sweep/internal/store"
	"github.com/roach88/sweep/internal/sweep"
	"github.com/roach88/sweep/internal/telemetry"
	"github.com/roach88/sweep/internal/trial"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Inputs InputOptions

	Concurrency int
	Objective   string
	Exec        string
	Metric      string
	Mode        string
	Out         string
	Database    string
	Grace       time.Duration
	Retries     int
	Top         int
	Trace       bool

	// RunIDs allows overriding the run id generator (for testing).
	// If nil, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator

	// TraceWriter receives spans when --trace is set. Defaults to the
	// command's stderr.
	TraceWriter io.Writer
}

// RunResult is the machine-readable outcome of the run command.
type RunResult struct {
	RunDir string        `json:"run_dir"`
	Report *sweep.Report `json:"report"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

// newRunCommand binds the run command's flags to opts. Tests use it to set
// the fields that have no flag.
func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Run a parameter sweep",
		Long: `Run every trial of a search space and report the best one.

Each trial gets its own directory beneath <out>/<run-id> holding its
merged configuration, its records and its final status. With --db the run
is also recorded in a SQLite database for later "show" and "plot".

Ctrl-C stops new trials from starting; running trials get --grace to
finish before they are cancelled.

Example:
  sweep run hyperparameter_search --space space.yaml --base base.yaml --presets presets.yaml
  sweep run lr-search --space space.cue --objective exec --exec "python3 train.py" -c 4 --mode min --db sweeps.db`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, args[0], cmd)
		},
	}

	opts.Inputs.addFlags(cmd)
	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "c", 1, "maximum trials running at once")
	cmd.Flags().StringVar(&opts.Objective, "objective", objective.NamePolynomial,
		fmt.Sprintf("objective to evaluate (%s)", strings.Join(objective.Names(), "|")))
	cmd.Flags().StringVar(&opts.Exec, "exec", "", "command for the exec objective")
	cmd.Flags().StringVar(&opts.Metric, "metric", "result", "name of the objective's result")
	cmd.Flags().StringVar(&opts.Mode, "mode", "max", "optimization direction (max|min)")
	cmd.Flags().StringVarP(&opts.Out, "out", "o", "runs", "directory for trial artifacts")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database")
	cmd.Flags().DurationVar(&opts.Grace, "grace", engine.DefaultGrace, "time running trials get after an interrupt")
	cmd.Flags().IntVar(&opts.Retries, "retries", 0, "extra attempts for a failing trial")
	cmd.Flags().IntVar(&opts.Top, "top", 10, "leaderboard size (0 for all)")
	cmd.Flags().BoolVar(&opts.Trace, "trace", false, "write OpenTelemetry spans to stderr")

	return cmd
}

func runSweep(opts *RunOptions, name string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	logger := opts.logger()
	slog.SetDefault(logger)

	mode, err := aggregate.ParseMode(opts.Mode)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --mode", err)
	}

	in, err := LoadInputs(name, opts.Objective, opts.Inputs)
	if err != nil {
		return classify(formatter, "failed to load sweep", err)
	}
	formatter.VerboseLog("Loaded %s", describeInputs(in))

	obj, err := objective.Lookup(opts.Objective, objective.Options{
		Command: strings.Fields(opts.Exec),
		Logger:  logger,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid objective", err)
	}

	runIDs := opts.RunIDs
	if runIDs == nil {
		runIDs = engine.UUIDv7Generator{}
	}
	runID := runIDs.Generate()
	runDir := filepath.Join(opts.Out, runID)

	// Parent context from the command (for testing), cancelled on SIGINT/SIGTERM.
	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Warn("received signal, stopping sweep", "signal", sig, "grace", opts.Grace)
			cancel()
		case <-ctx.Done():
		}
	}()

	var tracer trace.Tracer
	if opts.Trace {
		w := opts.TraceWriter
		if w == nil {
			w = cmd.ErrOrStderr()
		}
		provider, err := telemetry.New(w, true)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to start tracing", err)
		}
		provider.Install()
		defer func() {
			if err := provider.Shutdown(context.WithoutCancel(ctx)); err != nil {
				logger.Error("error flushing spans", "error", err)
			}
		}()
		tracer = provider.Tracer(telemetry.TracerName)
	}

	files := observer.NewFileSink(runDir, logger)
	sinks := []trial.Sink{files}

	var st *store.Store
	if opts.Database != "" {
		st, err = store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		sinks = append(sinks, st.Sink(runID))
	}

	run, err := sweep.Prepare(sweep.Context{
		Name:        name,
		RunID:       runID,
		Base:        in.Base,
		Space:       in.Space,
		Objective:   obj,
		Sink:        observer.Multi(sinks...),
		Concurrency: opts.Concurrency,
		Grace:       opts.Grace,
		MaxRetries:  opts.Retries,
		Metric:      opts.Metric,
		Mode:        mode,
		Top:         opts.Top,
		Logger:      logger,
		Tracer:      tracer,
	})
	if err != nil {
		return classify(formatter, "invalid sweep", err)
	}
	if err := files.Create(); err != nil {
		return WrapExitError(ExitFailure, "failed to create run directory", err)
	}

	if st != nil {
		err := st.WriteRun(context.WithoutCancel(ctx), store.Run{
			ID:          run.ID,
			Name:        name,
			Metric:      opts.Metric,
			Mode:        mode.String(),
			Concurrency: run.Concurrency,
			TrialCount:  len(run.Trials),
			BaseConfig:  run.BaseConfig,
			Space:       in.SpaceSpec,
			StartedAt:   time.Now(),
		})
		if err != nil {
			return WrapExitError(ExitFailure, "failed to record run", err)
		}
	}

	report, execErr := run.Execute(ctx)
	if report == nil {
		return classify(formatter, "sweep failed", execErr)
	}

	// Bookkeeping must finish even when the sweep was interrupted.
	bookCtx := context.WithoutCancel(ctx)
	if st != nil {
		if err := recordOutcome(bookCtx, st, run, report, execErr); err != nil {
			return WrapExitError(ExitFailure, "failed to record outcome", err)
		}
	}
	summary, err := report.Object()
	if err == nil {
		err = files.WriteSummary(summary)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to write run summary", err)
	}

	if formatter.Format == "json" {
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		status := "ok"
		var cliErr *CLIError
		if execErr != nil || report.Cancelled {
			status = "error"
			cliErr = &CLIError{Code: runErrorCode(report, execErr), Message: runErrorMessage(report, execErr)}
		}
		if err := encoder.Encode(CLIResponse{Status: status, Data: RunResult{RunDir: runDir, Report: report}, Error: cliErr}); err != nil {
			return err
		}
	} else {
		outputReportText(formatter.Writer, report, runDir)
	}

	switch {
	case report.Cancelled:
		return NewExitError(ExitFailure, runErrorMessage(report, execErr))
	case execErr != nil:
		return WrapExitError(exitCodeFor(execErr), "sweep failed", execErr)
	}
	return nil
}

// recordOutcome stores final trial state and closes the run header.
func recordOutcome(ctx context.Context, st *store.Store, run *sweep.Run, report *sweep.Report, execErr error) error {
	if err := st.WriteTrials(ctx, run.ID, run.Trials); err != nil {
		return err
	}
	status := store.RunCompleted
	switch {
	case report.Cancelled:
		status = store.RunCancelled
	case execErr != nil:
		status = store.RunFailed
	}
	return st.FinishRun(ctx, run.ID, status, report.BestTrialID(), run.EndedAt)
}

func runErrorCode(report *sweep.Report, err error) string {
	if report.Cancelled {
		return CodeInterrupted
	}
	return errorCode(err)
}

func runErrorMessage(report *sweep.Report, err error) string {
	if report.Cancelled {
		return fmt.Sprintf("interrupted: %d trial(s) not started", len(report.NotStarted))
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func outputReportText(w io.Writer, report *sweep.Report, runDir string) {
	fmt.Fprintf(w, "Sweep %q (run %s)\n", report.Name, report.RunID)
	fmt.Fprintf(w, "Trials: %d completed, %d failed, %d not started\n",
		report.Summary.Completed, report.Summary.Failed, report.Summary.Pending)
	if report.Cancelled {
		fmt.Fprintln(w, "Status: interrupted")
	}
	fmt.Fprintln(w)

	if report.Best != nil {
		fmt.Fprintf(w, "Best trial: %d\n", report.Best.TrialID)
		fmt.Fprintf(w, "  %s: %s\n", report.Metric, formatFloat(report.Best.Result))
		fmt.Fprintf(w, "  Assignment: %s\n", formatObject(report.Best.Assignment))
		fmt.Fprintf(w, "  Config:     %s\n", formatObject(report.Best.Config))
		if report.Best.Artifact != "" {
			fmt.Fprintf(w, "  Artifact:   %s\n", report.Best.Artifact)
		}
	} else {
		fmt.Fprintln(w, "Best trial: none")
	}
	fmt.Fprintln(w)

	if len(report.Leaderboard) > 0 {
		fmt.Fprintf(w, "=== Leaderboard (%s) ===\n", report.Mode)
		for _, e := range report.Leaderboard {
			fmt.Fprintf(w, "  %2d. [%d] %s  %s\n", e.Rank, e.TrialID, formatFloat(e.Result), formatObject(e.Assignment))
		}
		fmt.Fprintln(w)
	}

	if len(report.Failures) > 0 {
		fmt.Fprintln(w, "=== Failures ===")
		for _, f := range report.Failures {
			fmt.Fprintf(w, "  [%d] %s\n", f.TrialID, f.Reason)
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "=== Artifacts (%s) ===\n", runDir)
	for _, row := range report.Trials {
		location := row.Artifact
		if location == "" {
			location = "-"
		}
		fmt.Fprintf(w, "  [%d] %-9s %s\n", row.TrialID, row.Status, location)
	}
}
