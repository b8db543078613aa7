package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/compose"
	"github.com/roach88/sweep/internal/ir"
	"github.com/roach88/sweep/internal/loader"
	"github.com/roach88/sweep/internal/objective"
	"github.com/roach88/sweep/internal/space"
	"github.com/roach88/sweep/internal/store"
	"github.com/roach88/sweep/internal/sweep"
	"github.com/roach88/sweep/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a deterministic clock and a fixed run id.
type Harness struct {
	store  *store.Store
	clock  *testutil.DeterministicClock
	logger *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
//  1. Load the scenario's documents and build the layer stack
//  2. Create a fresh in-memory store and record the run header
//  3. Execute the sweep with the store as observer
//  4. Persist the trials and evaluate assertions
//
// Returns an error if the sweep cannot be prepared (configuration or
// search-space errors) or the store fails. A sweep that runs but has no
// successful trial is not an error here: it is reported in RunError and
// left to the assertions.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewDeterministicClock(time.Millisecond),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	return h.run(context.Background(), scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	in, err := loadDocuments(scenario)
	if err != nil {
		return nil, err
	}

	name := scenario.Objective
	if name == "" {
		name = objective.NamePolynomial
	}
	var value ir.Value
	if scenario.Value != nil {
		if value, err = ir.FromNative(scenario.Value); err != nil {
			return nil, fmt.Errorf("invalid value: %w", err)
		}
	}
	obj, err := objective.Lookup(name, objective.Options{Value: value, Logger: h.logger})
	if err != nil {
		return nil, err
	}

	mode := aggregate.ModeMax
	if scenario.Mode != "" {
		if mode, err = aggregate.ParseMode(scenario.Mode); err != nil {
			return nil, err
		}
	}

	runID := scenario.RunID
	if runID == "" {
		runID = DefaultRunID
	}

	run, err := sweep.Prepare(sweep.Context{
		Name:        scenario.Name,
		RunID:       runID,
		Base:        in.layers,
		Space:       in.space,
		Objective:   obj,
		Sink:        h.store.Sink(runID),
		Concurrency: scenario.Concurrency,
		MaxRetries:  scenario.Retries,
		Metric:      scenario.Metric,
		Mode:        mode,
		Top:         scenario.Top,
		Logger:      h.logger,
		Now:         h.clock.Now,
	})
	if err != nil {
		return nil, err
	}

	err = h.store.WriteRun(ctx, store.Run{
		ID:          run.ID,
		Name:        run.Name,
		Metric:      run.Metric,
		Mode:        mode.String(),
		Concurrency: run.Concurrency,
		TrialCount:  len(run.Trials),
		BaseConfig:  run.BaseConfig,
		Space:       in.spec,
		StartedAt:   testutil.Epoch,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}

	report, execErr := run.Execute(ctx)
	if report == nil {
		return nil, execErr
	}

	result := NewResult()
	result.Report = report
	if execErr != nil {
		result.RunError = execErr.Error()
	}
	for _, row := range report.Trials {
		result.AddTrial(row)
	}

	status := store.RunCompleted
	if execErr != nil {
		status = store.RunFailed
	}
	if err := h.store.WriteTrials(ctx, run.ID, run.Trials); err != nil {
		return nil, fmt.Errorf("failed to record trials: %w", err)
	}
	if err := h.store.FinishRun(ctx, run.ID, status, report.BestTrialID(), run.EndedAt); err != nil {
		return nil, fmt.Errorf("failed to finish run: %w", err)
	}
	if result.Stored, err = h.store.ReadRun(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	if result.StoredTrials, err = h.store.ReadTrials(ctx, run.ID); err != nil {
		return nil, fmt.Errorf("failed to read trials: %w", err)
	}

	for _, msg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(msg)
	}

	h.logger.Debug("scenario finished",
		"scenario", scenario.Name,
		"pass", result.Pass,
		"trials", len(result.Trace),
	)
	return result, nil
}

type documents struct {
	layers []compose.Layer
	space  space.SearchSpace
	spec   ir.Array
}

// loadDocuments reads the scenario's space, base and presets documents.
func loadDocuments(s *Scenario) (*documents, error) {
	out := &documents{}

	spaceDoc, err := loader.Load(s.Space)
	if err != nil {
		return nil, err
	}
	if out.space, err = loader.ParseSearchSpace(spaceDoc); err != nil {
		return nil, err
	}
	for _, key := range spaceDoc.Keys {
		out.spec = append(out.spec, ir.Obj(
			ir.O("name", ir.String(key)),
			ir.O("domain", ir.Clone(spaceDoc.Values[key])),
		))
	}

	switch {
	case s.Base != "":
		baseDoc, err := loader.Load(s.Base)
		if err != nil {
			return nil, err
		}
		out.layers = append(out.layers, loader.BaseLayer(baseDoc))
	case s.Objective == "" || s.Objective == objective.NamePolynomial:
		out.layers = append(out.layers, compose.NewLayer(compose.LayerBase, objective.PolynomialDefaults()))
	}

	if s.Presets != "" {
		presetsDoc, err := loader.Load(s.Presets)
		if err != nil {
			return nil, err
		}
		presets, err := loader.ParsePresets(presetsDoc)
		if err != nil {
			return nil, err
		}
		layers, err := presets.Select(s.With...)
		if err != nil {
			return nil, err
		}
		out.layers = append(out.layers, layers...)
	}
	return out, nil
}
