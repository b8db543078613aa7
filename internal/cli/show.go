package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/store"
	"github.com/roach88/sweep/internal/trial"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database string
	Trial    int64 // optional - records of one trial, -1 for none
}

// RunListing is one row of the run list.
type RunListing struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	Trials    int       `json:"trials"`
	BestTrial *int64    `json:"best_trial,omitempty"`
	StartedAt time.Time `json:"started_at"`
}

// ShowResult is the stored audit of one run.
type ShowResult struct {
	RunID       string               `json:"run_id"`
	Name        string               `json:"name"`
	Status      string               `json:"status"`
	Metric      string               `json:"metric"`
	Mode        string               `json:"mode"`
	Concurrency int                  `json:"concurrency"`
	BestTrial   *int64               `json:"best_trial,omitempty"`
	BaseConfig  ir.Object            `json:"base_config"`
	Summary     aggregate.Summary    `json:"summary"`
	Trials      []aggregate.AuditRow `json:"trials"`
	Records     []RecordEntry        `json:"records,omitempty"`
}

// RecordEntry is one stored record of a trial.
type RecordEntry struct {
	Seq   int64    `json:"seq"`
	Key   string   `json:"key"`
	Value ir.Value `json:"value"`
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show the audit of a recorded run",
		Long: `Show runs recorded with "sweep run --db".

Without a run id, lists every recorded run. With a run id, prints the
run header and every trial with its status, result or failure reason,
and artifact location. --trial adds the records one trial wrote.

Examples:
  sweep show --db sweeps.db
  sweep show 0190a1b2-... --db sweeps.db
  sweep show 0190a1b2-... --db sweeps.db --trial 3 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return runList(opts, cmd)
			}
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().Int64Var(&opts.Trial, "trial", -1, "also show the records of this trial")

	return cmd
}

// openStore opens an existing database read-only, so a mistyped path is
// an error rather than a new empty database.
func openStore(path string) (*store.Store, error) {
	st, err := store.Open(path, store.ReadOnly())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func runList(opts *ShowOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openStore(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.ListRuns(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list runs", err)
	}

	listing := make([]RunListing, len(runs))
	for i, r := range runs {
		listing[i] = RunListing{
			ID:        r.ID,
			Name:      r.Name,
			Status:    r.Status,
			Trials:    r.TrialCount,
			BestTrial: r.BestTrialID,
			StartedAt: r.StartedAt,
		}
	}

	if opts.Format == "json" {
		return outputShowJSON(cmd, listing)
	}

	w := cmd.OutOrStdout()
	if len(listing) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	for _, r := range listing {
		best := "-"
		if r.BestTrial != nil {
			best = strconv.FormatInt(*r.BestTrial, 10)
		}
		fmt.Fprintf(w, "%s  %-9s %3d trials  best %s  %s\n", r.ID, r.Status, r.Trials, best, r.Name)
	}
	return nil
}

func runShow(opts *ShowOptions, runID string, cmd *cobra.Command) error {
	ctx := context.Background()

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

	result := ShowResult{
		RunID:       run.ID,
		Name:        run.Name,
		Status:      run.Status,
		Metric:      run.Metric,
		Mode:        run.Mode,
		Concurrency: run.Concurrency,
		BestTrial:   run.BestTrialID,
		BaseConfig:  run.BaseConfig,
		Summary:     aggregate.Summarize(trials),
		Trials:      aggregate.Audit(trials),
	}

	if opts.Trial >= 0 {
		records, err := st.ReadRecords(ctx, runID, opts.Trial)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to read records", err)
		}
		for _, r := range records {
			result.Records = append(result.Records, RecordEntry{Seq: r.Seq, Key: r.Key, Value: r.Value})
		}
	}

	if opts.Format == "json" {
		return outputShowJSON(cmd, result)
	}
	outputShowText(cmd.OutOrStdout(), result, opts.Trial, opts.Verbose)
	return nil
}

// outputShowJSON outputs a show result as JSON.
func outputShowJSON(cmd *cobra.Command, data any) error {
	response := CLIResponse{
		Status: "ok",
		Data:   data,
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(response)
}

// outputShowText outputs a show result as text.
func outputShowText(w io.Writer, result ShowResult, trialID int64, verbose bool) {
	fmt.Fprintf(w, "Run: %s\n", result.RunID)
	fmt.Fprintf(w, "Name: %s\n", result.Name)
	fmt.Fprintf(w, "Status: %s\n", result.Status)
	fmt.Fprintf(w, "Metric: %s (%s)\n", result.Metric, result.Mode)
	if verbose {
		fmt.Fprintf(w, "Base config: %s\n", formatObject(result.BaseConfig))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "=== Trials ===")
	if len(result.Trials) == 0 {
		fmt.Fprintln(w, "  (no trials)")
	}
	for _, row := range result.Trials {
		marker := " "
		if result.BestTrial != nil && *result.BestTrial == row.TrialID {
			marker = "*"
		}
		fmt.Fprintf(w, " %s[%d] %-9s %s  %s\n", marker, row.TrialID, row.Status, auditOutcome(row), formatObject(row.Assignment))
		if verbose && row.Artifact != "" {
			fmt.Fprintf(w, "       Artifact: %s\n", row.Artifact)
		}
	}
	fmt.Fprintln(w)

	if trialID >= 0 {
		fmt.Fprintf(w, "=== Records (trial %d) ===\n", trialID)
		if len(result.Records) == 0 {
			fmt.Fprintln(w, "  (no records)")
		}
		for _, r := range result.Records {
			fmt.Fprintf(w, "  [%d] %s = %s\n", r.Seq, r.Key, formatValue(r.Value))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "=== Stats ===")
	fmt.Fprintf(w, "  Total:     %d\n", result.Summary.Total)
	fmt.Fprintf(w, "  Completed: %d\n", result.Summary.Completed)
	fmt.Fprintf(w, "  Failed:    %d\n", result.Summary.Failed)
	fmt.Fprintf(w, "  Pending:   %d\n", result.Summary.Pending)
}

// auditOutcome is the result of a completed trial or the reason of a
// failed one.
func auditOutcome(row aggregate.AuditRow) string {
	switch {
	case row.Status == trial.StatusCompleted && row.Result != nil:
		return formatFloat(*row.Result)
	case row.Reason != "":
		return row.Reason
	default:
		return "-"
	}
}

// formatObject formats an object for display with keys in canonical order.
func formatObject(obj ir.Object) string {
	if len(obj) == 0 {
		return "{}"
	}

	parts := make([]string, 0, len(obj))
	for _, k := range obj.SortedKeys() {
		parts = append(parts, fmt.Sprintf("%s=%s", k, formatValue(obj[k])))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// formatValue formats a single value for display, handling nested structures deterministically.
func formatValue(v ir.Value) string {
	switch val := v.(type) {
	case ir.Object:
		return formatObject(val)
	case ir.Array:
		parts := make([]string, len(val))
		for i, elem := range val {
			parts[i] = formatValue(elem)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ir.String:
		return string(val)
	case ir.Float:
		return formatFloat(float64(val))
	case nil:
		return "<missing>"
	default:
		b, err := ir.MarshalValue(v)
		if err != nil {
			return ir.Kind(v)
		}
		return string(b)
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// truncateID truncates a long ID for display.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:8] + "..." + id[len(id)-8:]
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}
