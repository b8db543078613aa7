package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/objective"
	"github.com/roach88/sweep/internal/trial"
)

// Scenario defines a conformance test scenario: one sweep and the
// assertions its outcome must satisfy.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Space is the path of the search-space document.
	Space string `yaml:"space"`

	// Base is the path of the base configuration document. Empty means the
	// polynomial defaults when the objective is polynomial, otherwise an
	// empty base.
	Base string `yaml:"base,omitempty"`

	// Presets is the path of the presets document.
	Presets string `yaml:"presets,omitempty"`

	// With lists the presets to apply, in merge order.
	With []string `yaml:"with,omitempty"`

	// Objective names a built-in objective. Defaults to polynomial.
	Objective string `yaml:"objective,omitempty"`

	// Value is what the constant objective returns.
	Value any `yaml:"value,omitempty"`

	Concurrency int    `yaml:"concurrency,omitempty"`
	Retries     int    `yaml:"retries,omitempty"`
	Mode        string `yaml:"mode,omitempty"`
	Metric      string `yaml:"metric,omitempty"`
	Top         int    `yaml:"top,omitempty"`

	// Assertions validate the outcome.
	Assertions []Assertion `yaml:"assertions"`

	// RunID is an optional fixed run id. Defaults to "scenario-run".
	RunID string `yaml:"run_id,omitempty"`
}

// Assertion validates the outcome of a scenario.
type Assertion struct {
	// Type specifies the assertion type:
	//   - "best_trial": the winning trial is Trial (and scores Result, if set)
	//   - "trial_status": trial Trial ended with Status
	//   - "status_count": exactly Count trials ended with Status
	//   - "failure_reason": trial Trial failed with Reason
	//   - "final_state": the stored run has Status and the stored trial
	//     Trial, if set, has TrialStatus
	Type string `yaml:"type"`

	Trial  *int64   `yaml:"trial,omitempty"`
	Result *float64 `yaml:"result,omitempty"`
	Status string   `yaml:"status,omitempty"`
	Reason string   `yaml:"reason,omitempty"`
	Count  int      `yaml:"count,omitempty"`

	TrialStatus string `yaml:"trial_status,omitempty"`
}

// Assertion type constants.
const (
	AssertBestTrial     = "best_trial"
	AssertTrialStatus   = "trial_status"
	AssertStatusCount   = "status_count"
	AssertFailureReason = "failure_reason"
	AssertFinalState    = "final_state"
)

// DefaultRunID is the run id used when a scenario does not fix one.
const DefaultRunID = "scenario-run"

// LoadScenario reads and parses a scenario YAML file, resolving document
// paths relative to the file's directory.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "assertion:" vs "assertions:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	dir := filepath.Dir(path)
	for _, p := range []*string{&scenario.Space, &scenario.Base, &scenario.Presets} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if s.Space == "" {
		return fmt.Errorf("space is required")
	}
	for _, p := range []string{s.Space, s.Base, s.Presets} {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("document not found: %s", p)
		}
	}

	if len(s.With) > 0 && s.Presets == "" {
		return fmt.Errorf("with requires presets")
	}

	if s.Objective != "" && s.Objective != objective.NameConstant && s.Objective != objective.NamePolynomial {
		return fmt.Errorf("objective must be %q or %q, got %q", objective.NameConstant, objective.NamePolynomial, s.Objective)
	}

	if s.Mode != "" {
		if _, err := aggregate.ParseMode(s.Mode); err != nil {
			return err
		}
	}

	if s.Concurrency < 0 {
		return fmt.Errorf("concurrency must be non-negative, got %d", s.Concurrency)
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion checks an assertion has the fields its type needs.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertBestTrial:
		if a.Trial == nil {
			return fmt.Errorf("assertion[%d]: best_trial requires trial", index)
		}
	case AssertTrialStatus:
		if a.Trial == nil {
			return fmt.Errorf("assertion[%d]: trial_status requires trial", index)
		}
		if !validStatus(a.Status) {
			return fmt.Errorf("assertion[%d]: unknown status %q", index, a.Status)
		}
	case AssertStatusCount:
		if !validStatus(a.Status) {
			return fmt.Errorf("assertion[%d]: unknown status %q", index, a.Status)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertion[%d]: count must be non-negative", index)
		}
	case AssertFailureReason:
		if a.Trial == nil {
			return fmt.Errorf("assertion[%d]: failure_reason requires trial", index)
		}
		if a.Reason == "" {
			return fmt.Errorf("assertion[%d]: failure_reason requires reason", index)
		}
	case AssertFinalState:
		if a.Status == "" {
			return fmt.Errorf("assertion[%d]: final_state requires status", index)
		}
		if a.TrialStatus != "" && a.Trial == nil {
			return fmt.Errorf("assertion[%d]: trial_status requires trial", index)
		}
	case "":
		return fmt.Errorf("assertion[%d]: type is required", index)
	default:
		return fmt.Errorf("assertion[%d]: unknown type %q", index, a.Type)
	}
	return nil
}

func validStatus(s string) bool {
	for _, st := range []trial.Status{trial.StatusPending, trial.StatusRunning, trial.StatusCompleted, trial.StatusFailed} {
		if st.String() == s {
			return true
		}
	}
	return false
}
