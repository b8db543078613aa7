package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/sweep/internal/cli"
)

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown command", []string{"launch"}},
		{"unknown flag", []string{"run", "x", "--space", "s.yaml", "--bogus"}},
		{"missing argument", []string{"run", "--space", "s.yaml"}},
		{"missing required flag", []string{"validate", "x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, tt.args)
			require.Error(t, err)
			assert.Equal(t, cli.ExitCommandError, cli.GetExitCode(err))
		})
	}
}

func TestRun_Validate(t *testing.T) {
	stdout := &bytes.Buffer{}
	testdata := filepath.Join("..", "..", "internal", "cli", "testdata")
	err := run(context.Background(), stdout, &bytes.Buffer{}, []string{
		"validate", "hyperparameter_search",
		"--space", filepath.Join(testdata, "space.yaml"),
		"--base", filepath.Join(testdata, "base.yaml"),
		"--presets", filepath.Join(testdata, "presets.yaml"),
	})
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), `Sweep "hyperparameter_search" is valid`)
}

func TestRun_SearchSpaceErrorExitCode(t *testing.T) {
	testdata := filepath.Join("..", "..", "internal", "cli", "testdata")
	err := run(context.Background(), &bytes.Buffer{}, &bytes.Buffer{}, []string{
		"validate", "x", "--space", filepath.Join(testdata, "empty_grid.yaml"),
	})
	require.Error(t, err)
	assert.Equal(t, cli.ExitSearchSpaceError, cli.GetExitCode(err))
}
