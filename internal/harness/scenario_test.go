package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScenario writes a scenario file next to a minimal space document.
func writeScenario(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "space.yaml"), []byte("exponent:\n  grid: [1, 2]\n"), 0644))
	path := filepath.Join(dir, "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadScenario_ValidFile(t *testing.T) {
	path := writeScenario(t, `
name: test_scenario
description: "Test scenario for validation"
space: space.yaml
concurrency: 2
mode: min
assertions:
  - type: best_trial
    trial: 0
`)

	scenario, err := LoadScenario(path)
	require.NoError(t, err)

	assert.Equal(t, "test_scenario", scenario.Name)
	assert.Equal(t, "Test scenario for validation", scenario.Description)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "space.yaml"), scenario.Space)
	assert.Equal(t, 2, scenario.Concurrency)
	assert.Equal(t, "min", scenario.Mode)
	require.Len(t, scenario.Assertions, 1)
	assert.Equal(t, int64(0), *scenario.Assertions[0].Trial)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "missing name",
			content: "description: d\nspace: space.yaml\nassertions:\n  - type: status_count\n    status: completed\n",
			wantErr: "name is required",
		},
		{
			name:    "missing description",
			content: "name: n\nspace: space.yaml\nassertions:\n  - type: status_count\n    status: completed\n",
			wantErr: "description is required",
		},
		{
			name:    "missing space",
			content: "name: n\ndescription: d\nassertions:\n  - type: status_count\n    status: completed\n",
			wantErr: "space is required",
		},
		{
			name:    "space not found",
			content: "name: n\ndescription: d\nspace: other.yaml\nassertions:\n  - type: status_count\n    status: completed\n",
			wantErr: "document not found",
		},
		{
			name:    "missing assertions",
			content: "name: n\ndescription: d\nspace: space.yaml\n",
			wantErr: "assertions list is required",
		},
		{
			name:    "with without presets",
			content: "name: n\ndescription: d\nspace: space.yaml\nwith: [fast]\nassertions:\n  - type: status_count\n    status: completed\n",
			wantErr: "with requires presets",
		},
		{
			name:    "unsupported objective",
			content: "name: n\ndescription: d\nspace: space.yaml\nobjective: exec\nassertions:\n  - type: status_count\n    status: completed\n",
			wantErr: "objective must be",
		},
		{
			name:    "bad mode",
			content: "name: n\ndescription: d\nspace: space.yaml\nmode: sideways\nassertions:\n  - type: status_count\n    status: completed\n",
			wantErr: "invalid mode",
		},
		{
			name:    "negative concurrency",
			content: "name: n\ndescription: d\nspace: space.yaml\nconcurrency: -1\nassertions:\n  - type: status_count\n    status: completed\n",
			wantErr: "concurrency must be non-negative",
		},
		{
			name:    "best trial without trial",
			content: "name: n\ndescription: d\nspace: space.yaml\nassertions:\n  - type: best_trial\n",
			wantErr: "best_trial requires trial",
		},
		{
			name:    "unknown status",
			content: "name: n\ndescription: d\nspace: space.yaml\nassertions:\n  - type: status_count\n    status: exploded\n",
			wantErr: `unknown status "exploded"`,
		},
		{
			name:    "failure reason without reason",
			content: "name: n\ndescription: d\nspace: space.yaml\nassertions:\n  - type: failure_reason\n    trial: 0\n",
			wantErr: "failure_reason requires reason",
		},
		{
			name:    "final state without status",
			content: "name: n\ndescription: d\nspace: space.yaml\nassertions:\n  - type: final_state\n",
			wantErr: "final_state requires status",
		},
		{
			name:    "unknown assertion type",
			content: "name: n\ndescription: d\nspace: space.yaml\nassertions:\n  - type: trace_order\n",
			wantErr: `unknown type "trace_order"`,
		},
		{
			name:    "malformed yaml",
			content: "name: [unclosed\n",
			wantErr: "failed to parse YAML",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadScenario(writeScenario(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadScenario_UnknownFieldsRejected(t *testing.T) {
	path := writeScenario(t, `
name: n
description: d
space: space.yaml
assertion:
  - type: best_trial
    trial: 0
`)

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "assertion")
}

func TestLoadScenario_AbsolutePathsKept(t *testing.T) {
	other := t.TempDir()
	spacePath := filepath.Join(other, "space.json")
	require.NoError(t, os.WriteFile(spacePath, []byte(`{"exponent": {"fixed": 2}}`), 0644))

	path := writeScenario(t, "name: n\ndescription: d\nspace: "+spacePath+"\nassertions:\n  - type: status_count\n    status: completed\n    count: 1\n")

	scenario, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Equal(t, spacePath, scenario.Space)
}

func TestAssertionConstants(t *testing.T) {
	assert.Equal(t, "best_trial", AssertBestTrial)
	assert.Equal(t, "trial_status", AssertTrialStatus)
	assert.Equal(t, "status_count", AssertStatusCount)
	assert.Equal(t, "failure_reason", AssertFailureReason)
	assert.Equal(t, "final_state", AssertFinalState)
}

func TestLoadExampleScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "scenarios", "*.yaml"))
	require.NoError(t, err)

	loaded := 0
	for _, path := range paths {
		switch filepath.Base(path) {
		case "space.yaml", "presets.yaml":
			continue
		}
		t.Run(filepath.Base(path), func(t *testing.T) {
			scenario, err := LoadScenario(path)
			require.NoError(t, err)
			assert.NotEmpty(t, scenario.Assertions)
		})
		loaded++
	}
	assert.Equal(t, 4, loaded)
}
