// Package chart renders sweep results with gonum/plot.
//
// The chart shows one point per completed trial (result against trial id),
// the best-so-far curve in trial id order, and the selected best trial.
package chart

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/brewer"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/roach88/sweep/internal/aggregate"
	"github.com/roach88/sweep/internal/trial"
)

// Default output size.
const (
	Width  = 9 * vg.Inch
	Height = 6 * vg.Inch
)

// ErrNoResults is returned when no trial completed.
var ErrNoResults = errors.New("chart: no completed trials to plot")

// Options labels the chart.
type Options struct {
	Title  string
	Metric string
	Mode   aggregate.Mode
}

// Render builds the results plot. Trials may be in any order.
func Render(trials []*trial.Trial, opts Options) (*plot.Plot, error) {
	ordered := aggregate.Leaderboard(trials, opts.Mode, 0)
	if len(ordered) == 0 {
		return nil, ErrNoResults
	}
	best := ordered[0]

	points := make(plotter.XYs, 0, len(ordered))
	for _, row := range aggregate.Audit(trials) {
		if row.Status == trial.StatusCompleted && row.Result != nil {
			points = append(points, plotter.XY{X: float64(row.TrialID), Y: *row.Result})
		}
	}

	p := setupPlot(opts)

	palette, err := brewer.GetPalette(brewer.TypeQualitative, "Paired", 4)
	if err != nil {
		return nil, err
	}
	colors := palette.Colors()

	scatter, err := plotter.NewScatter(points)
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	scatter.GlyphStyle.Color = colors[1]
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Radius = vg.Points(3)

	curve, err := plotter.NewLine(bestSoFar(points, opts.Mode))
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	curve.LineStyle.Color = colors[0]
	curve.LineStyle.Width = vg.Points(1)
	curve.StepStyle = plotter.PostStep

	marker, err := plotter.NewScatter(plotter.XYs{{X: float64(best.ID), Y: *best.Result}})
	if err != nil {
		return nil, fmt.Errorf("chart: %w", err)
	}
	marker.GlyphStyle.Color = colors[3]
	marker.GlyphStyle.Shape = draw.RingGlyph{}
	marker.GlyphStyle.Radius = vg.Points(6)

	p.Add(curve, scatter, marker)
	p.Legend.Add("trial", scatter)
	p.Legend.Add("best so far", curve)
	p.Legend.Add(fmt.Sprintf("best (trial %d)", best.ID), marker)
	return p, nil
}

func setupPlot(opts Options) *plot.Plot {
	p := plot.New()

	p.Title.Text = opts.Title
	p.X.Label.Text = "trial"
	p.Y.Label.Text = opts.Metric
	if opts.Metric == "" {
		p.Y.Label.Text = "result"
	}
	p.Y.Label.Text += " (" + opts.Mode.String() + ")"

	gray := color.Gray{128}
	p.Title.TextStyle.Color = gray
	p.X.Color = gray
	p.Y.Color = gray
	p.X.Label.TextStyle.Color = gray
	p.Y.Label.TextStyle.Color = gray
	p.X.Tick.Color = gray
	p.Y.Tick.Color = gray
	p.X.Tick.Label.Color = gray
	p.Y.Tick.Label.Color = gray
	p.Legend.TextStyle.Color = gray

	p.Legend.Top = true
	p.Legend.Left = true
	p.Legend.Padding = 1 * vg.Millimeter
	p.BackgroundColor = color.Transparent
	p.Add(plotter.NewGrid())

	return p
}

// bestSoFar turns points sorted by x into the running extremum.
func bestSoFar(points plotter.XYs, mode aggregate.Mode) plotter.XYs {
	out := make(plotter.XYs, len(points))
	for i, pt := range points {
		out[i] = pt
		if i > 0 && !mode.Better(pt.Y, out[i-1].Y) {
			out[i].Y = out[i-1].Y
		}
	}
	return out
}

// Save writes the plot to path. The extension picks the format
// (.svg, .png, .pdf, .eps, .jpg, .tif).
func Save(p *plot.Plot, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return p.Save(Width, Height, path)
}

// Write encodes the plot in format ("svg", "png", ...) to w.
func Write(p *plot.Plot, w io.Writer, format string) error {
	wt, err := p.WriterTo(Width, Height, strings.TrimPrefix(format, "."))
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(w)
	return err
}
