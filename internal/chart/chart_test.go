package chart

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/trial"
)

func completed(id int64, r float64) *trial.Trial {
	return &trial.Trial{ID: id, Status: trial.StatusCompleted, Result: &r}
}

func TestRender_SVG(t *testing.T) {
	trials := []*trial.Trial{
		completed(2, 633),
		completed(0, 13),
		{ID: 1, Status: trial.StatusFailed},
		completed(3, 390633),
	}

	p, err := Render(trials, Options{Title: "hyperparameter_search", Metric: "accuracy"})
	require.NoError(t, err)
	assert.Equal(t, "accuracy (max)", p.Y.Label.Text)

	var buf bytes.Buffer
	require.NoError(t, Write(p, &buf, "svg"))
	assert.Contains(t, buf.String(), "<svg")
	assert.Contains(t, buf.String(), "best (trial 3)")
}

func TestRender_NoResults(t *testing.T) {
	_, err := Render([]*trial.Trial{{ID: 0, Status: trial.StatusFailed}}, Options{})
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestSave(t *testing.T) {
	p, err := Render([]*trial.Trial{completed(0, 1), completed(1, 2)}, Options{Mode: aggregate.ModeMin})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "charts", "results.png")
	require.NoError(t, Save(p, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), data[:4])
}

func TestWrite_UnknownFormat(t *testing.T) {
	p, err := Render([]*trial.Trial{completed(0, 1)}, Options{})
	require.NoError(t, err)
	assert.Error(t, Write(p, &bytes.Buffer{}, "bmp"))
}

func TestBestSoFar(t *testing.T) {
	pts := plotter.XYs{{X: 0, Y: 3}, {X: 1, Y: 1}, {X: 2, Y: 5}, {X: 3, Y: 4}}

	assert.Equal(t, plotter.XYs{{X: 0, Y: 3}, {X: 1, Y: 3}, {X: 2, Y: 5}, {X: 3, Y: 5}}, bestSoFar(pts, aggregate.ModeMax))
	assert.Equal(t, plotter.XYs{{X: 0, Y: 3}, {X: 1, Y: 1}, {X: 2, Y: 1}, {X: 3, Y: 1}}, bestSoFar(pts, aggregate.ModeMin))
}
