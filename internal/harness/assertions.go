package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/sweep/internal/trial"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s\n", event.TrialID, event.Status, describeEvent(event))
	}

	return buf.String()
}

func describeEvent(e TraceEvent) string {
	switch {
	case e.Result != nil:
		return formatResult(*e.Result)
	case e.Reason != "":
		return e.Reason
	default:
		return "-"
	}
}

func formatResult(f float64) string {
	return fmt.Sprintf("%g", f)
}

// assertBestTrial checks the winning trial and, if given, its result.
func assertBestTrial(result *Result, a Assertion) error {
	actual := "none"
	best := result.Report.Best
	if best != nil {
		actual = fmt.Sprintf("trial %d (%s)", best.TrialID, formatResult(best.Result))
	}
	expected := fmt.Sprintf("trial %d", *a.Trial)
	if a.Result != nil {
		expected = fmt.Sprintf("trial %d (%s)", *a.Trial, formatResult(*a.Result))
	}

	if best == nil || best.TrialID != *a.Trial || (a.Result != nil && best.Result != *a.Result) {
		return &AssertionError{Type: AssertBestTrial, Expected: expected, Actual: actual, Trace: result.Trace}
	}
	return nil
}

// assertTrialStatus checks one trial ended with the given status.
func assertTrialStatus(result *Result, a Assertion) error {
	event, ok := result.Event(*a.Trial)
	actual := "no such trial"
	if ok {
		actual = event.Status
	}
	if !ok || event.Status != a.Status {
		return &AssertionError{
			Type:     AssertTrialStatus,
			Expected: fmt.Sprintf("trial %d %s", *a.Trial, a.Status),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertStatusCount checks exactly Count trials ended with Status.
func assertStatusCount(result *Result, a Assertion) error {
	count := 0
	for _, e := range result.Trace {
		if e.Status == a.Status {
			count++
		}
	}
	if count != a.Count {
		return &AssertionError{
			Type:     AssertStatusCount,
			Expected: fmt.Sprintf("%d %s trial(s)", a.Count, a.Status),
			Actual:   fmt.Sprintf("%d %s trial(s)", count, a.Status),
			Trace:    result.Trace,
		}
	}
	return nil
}

// assertFailureReason checks a trial failed with the given reason. Reason
// matches either the bare category ("objective_error") or the full
// message ("objective_error: diverged").
func assertFailureReason(result *Result, a Assertion) error {
	event, ok := result.Event(*a.Trial)
	actual := "no such trial"
	if ok {
		actual = event.Status
		if event.Reason != "" {
			actual = event.Reason
		}
	}
	if !ok || event.Status != trial.StatusFailed.String() || !matchReason(event.Reason, a.Reason) {
		return &AssertionError{
			Type:     AssertFailureReason,
			Expected: fmt.Sprintf("trial %d failed with %s", *a.Trial, a.Reason),
			Actual:   actual,
			Trace:    result.Trace,
		}
	}
	return nil
}

func matchReason(actual, expected string) bool {
	return actual == expected || strings.HasPrefix(actual, expected+":")
}

// assertFinalState checks the persisted run header and, if given, one
// persisted trial.
func assertFinalState(result *Result, a Assertion) error {
	if result.Stored.Status != a.Status {
		return &AssertionError{
			Type:     AssertFinalState,
			Expected: fmt.Sprintf("stored run %s", a.Status),
			Actual:   fmt.Sprintf("stored run %s", result.Stored.Status),
			Trace:    result.Trace,
		}
	}
	if a.TrialStatus == "" {
		return nil
	}

	for _, t := range result.StoredTrials {
		if t.ID != *a.Trial {
			continue
		}
		if t.Status.String() != a.TrialStatus {
			return &AssertionError{
				Type:     AssertFinalState,
				Expected: fmt.Sprintf("stored trial %d %s", *a.Trial, a.TrialStatus),
				Actual:   fmt.Sprintf("stored trial %d %s", t.ID, t.Status),
				Trace:    result.Trace,
			}
		}
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalState,
		Expected: fmt.Sprintf("stored trial %d %s", *a.Trial, a.TrialStatus),
		Actual:   "no such stored trial",
		Trace:    result.Trace,
	}
}

// EvaluateAssertions runs all assertions against the result.
// Returns a list of error messages (empty if all pass).
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertBestTrial:
			err = assertBestTrial(result, a)
		case AssertTrialStatus:
			err = assertTrialStatus(result, a)
		case AssertStatusCount:
			err = assertStatusCount(result, a)
		case AssertFailureReason:
			err = assertFailureReason(result, a)
		case AssertFinalState:
			err = assertFinalState(result, a)
		default:
			err = fmt.Errorf("unknown assertion type: %s", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d: %s", i, err.Error()))
		}
	}
	return errs
}
