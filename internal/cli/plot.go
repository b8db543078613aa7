package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/chart"
)

// PlotOptions holds flags for the plot command.
type PlotOptions struct {
	*RootOptions
	Database string
	Output   string
}

// PlotResult reports where the chart was written.
type PlotResult struct {
	RunID  string `json:"run_id"`
	Output string `json:"output"`
	Points int    `json:"points"`
}

// NewPlotCommand creates the plot command.
func NewPlotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plot <run-id>",
		Short: "Chart the results of a recorded run",
		Long: `Chart the completed trials of a run recorded with "sweep run --db".

The chart plots each trial's result against its id, the best-so-far
curve, and the best trial. The output extension picks the format
(.svg, .png, .pdf).

Example:
  sweep plot 0190a1b2-... --db sweeps.db --out results.svg`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVarP(&opts.Output, "out", "o", "sweep.svg", "output file")

	return cmd
}

func runPlot(opts *PlotOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.ReadRun(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return NewExitError(ExitCommandError, fmt.Sprintf("run not found: %s", runID))
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read run", err)
	}
	trials, err := st.ReadTrials(ctx, runID)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read trials", err)
	}

	mode, err := aggregate.ParseMode(run.Mode)
	if err != nil {
		return WrapExitError(ExitFailure, "stored run has an invalid mode", err)
	}

	p, err := chart.Render(trials, chart.Options{
		Title:  fmt.Sprintf("%s (%s)", run.Name, truncateID(run.ID)),
		Metric: run.Metric,
		Mode:   mode,
	})
	if errors.Is(err, chart.ErrNoResults) {
		return WrapExitError(ExitNoSuccessfulTrials, "nothing to plot", err)
	}
	if err != nil {
		return WrapExitError(ExitFailure, "failed to render chart", err)
	}
	if err := chart.Save(p, opts.Output); err != nil {
		return WrapExitError(ExitFailure, "failed to write chart", err)
	}

	result := PlotResult{RunID: run.ID, Output: opts.Output, Points: aggregate.Summarize(trials).Completed}
	formatter.VerboseLog("Plotted %d completed trial(s)", result.Points)
	if formatter.Format == "json" {
		return formatter.Success(result)
	}
	fmt.Fprintf(formatter.Writer, "Wrote %s\n", result.Output)
	return nil
}
