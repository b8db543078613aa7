package harness

import (
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/sweep/internal/ir"
)

// Snapshot is the part of a scenario outcome compared against golden
// files. Timings, completion order and hashes are left out.
type Snapshot struct {
	ScenarioName string
	Result       *Result
}

// Object renders the snapshot as an ir.Object for canonical encoding.
func (s *Snapshot) Object() ir.Object {
	trace := make(ir.Array, len(s.Result.Trace))
	for i, e := range s.Result.Trace {
		event := ir.Obj(
			ir.O("trial_id", ir.Int(e.TrialID)),
			ir.O("status", ir.String(e.Status)),
			ir.O("assignment", e.Assignment.Clone()),
		)
		if e.Result != nil {
			event["result"] = ir.Float(*e.Result)
		}
		if e.Reason != "" {
			event["reason"] = ir.String(e.Reason)
		}
		trace[i] = event
	}

	obj := ir.Obj(
		ir.O("scenario_name", ir.String(s.ScenarioName)),
		ir.O("trace", trace),
	)

	var best ir.Value = ir.Null{}
	if b := s.Result.Report.Best; b != nil {
		best = ir.Obj(
			ir.O("trial_id", ir.Int(b.TrialID)),
			ir.O("result", ir.Float(b.Result)),
		)
	}
	obj["best"] = best

	if s.Result.RunError != "" {
		obj["run_error"] = ir.String(s.Result.RunError)
	}
	return obj
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match the golden file.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario execution failed: %w", err)
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against a golden file.
// The snapshot is serialized as canonical JSON so the file is stable
// across runs.
func AssertGolden(t *testing.T, scenarioName string, result *Result) error {
	t.Helper()

	snapshot := Snapshot{ScenarioName: scenarioName, Result: result}
	data, err := ir.MarshalCanonical(snapshot.Object())
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenarioName, data)
	return nil
}
