package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/objective"
	"github.com/roach88/sweep/internal/space"
	"github.com/roach88/sweep/internal/sweep"
)

// ValidateOptions holds flags for the validate command.
type ValidateOptions struct {
	*RootOptions
	Inputs      InputOptions
	Objective   string
	Concurrency int
}

// ValidationResult is the dry-run summary of a sweep.
type ValidationResult struct {
	Valid       bool           `json:"valid"`
	Name        string         `json:"name"`
	Layers      []string       `json:"layers"`
	Parameters  []ParamSummary `json:"parameters"`
	Trials      int            `json:"trials"`
	Concurrency int            `json:"concurrency"`

	// Plan is only filled in verbose mode.
	Plan []PlannedTrial `json:"plan,omitempty"`
}

// ParamSummary describes one declared parameter.
type ParamSummary struct {
	Name   string `json:"name"`
	Domain string `json:"domain"`
}

// PlannedTrial is one expanded trial of a dry run.
type PlannedTrial struct {
	TrialID    int64     `json:"trial_id"`
	Assignment ir.Object `json:"assignment"`
	ConfigHash string    `json:"config_hash"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ValidateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "validate <name>",
		Short: "Expand and compose a sweep without running it",
		Long: `Validate a sweep without running any trial.

Loads the documents, expands the search space and merges every trial's
configuration, reporting the first ConfigError or SearchSpaceError. With
--verbose the full trial plan is printed.

Example:
  sweep validate hyperparameter_search --space space.yaml --base base.yaml --presets presets.yaml`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(opts, args[0], cmd)
		},
	}

	opts.Inputs.addFlags(cmd)
	cmd.Flags().StringVar(&opts.Objective, "objective", objective.NamePolynomial, "objective the sweep will run")
	cmd.Flags().IntVarP(&opts.Concurrency, "concurrency", "c", 1, "worker pool size")

	return cmd
}

func runValidate(opts *ValidateOptions, name string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	in, err := LoadInputs(name, opts.Objective, opts.Inputs)
	if err != nil {
		return classify(formatter, "failed to load sweep", err)
	}
	formatter.VerboseLog("Loaded %s", describeInputs(in))

	run, err := sweep.Prepare(sweep.Context{
		Name:        name,
		RunID:       "dry-run",
		Base:        in.Base,
		Space:       in.Space,
		Objective:   objective.Constant{},
		Concurrency: opts.Concurrency,
		Logger:      opts.logger(),
	})
	if err != nil {
		return classify(formatter, "invalid sweep", err)
	}

	result := ValidationResult{
		Valid:       true,
		Name:        name,
		Trials:      len(run.Trials),
		Concurrency: run.Concurrency,
	}
	for _, l := range in.Base {
		result.Layers = append(result.Layers, l.Name)
	}
	for _, p := range in.Space.Params {
		result.Parameters = append(result.Parameters, ParamSummary{Name: p.Name, Domain: space.Describe(p.Domain)})
	}
	if opts.Verbose {
		for _, t := range run.Trials {
			result.Plan = append(result.Plan, PlannedTrial{TrialID: t.ID, Assignment: t.Assignment, ConfigHash: t.ConfigHash})
		}
	}

	if formatter.Format == "json" {
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		return encoder.Encode(CLIResponse{Status: "ok", Data: result})
	}
	return outputValidateText(formatter, result)
}

func outputValidateText(formatter *OutputFormatter, result ValidationResult) error {
	w := formatter.Writer

	fmt.Fprintf(w, "✓ Sweep %q is valid\n", result.Name)
	fmt.Fprintf(w, "  Layers:      %s\n", joinOrNone(result.Layers))
	fmt.Fprintf(w, "  Trials:      %d\n", result.Trials)
	fmt.Fprintf(w, "  Concurrency: %d\n", result.Concurrency)
	fmt.Fprintln(w, "  Parameters:")

	width := 0
	for _, p := range result.Parameters {
		width = max(width, len(p.Name))
	}
	for _, p := range result.Parameters {
		fmt.Fprintf(w, "    %-*s  %s\n", width, p.Name, p.Domain)
	}

	if len(result.Plan) > 0 {
		fmt.Fprintln(w, "  Plan:")
		for _, t := range result.Plan {
			fmt.Fprintf(w, "    [%d] %s  %s\n", t.TrialID, formatObject(t.Assignment), truncateID(t.ConfigHash))
		}
	}
	return nil
}
