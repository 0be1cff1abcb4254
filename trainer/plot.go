package trainer

import (
	"image/color"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/peakwhale/harbor/pkg/errors"
	"github.com/peakwhale/harbor/schema"
)

// SavePredictionPlot draws predicted against actual target values with the
// identity line for reference. The image format follows the file extension.
func SavePredictionPlot(path string, target schema.Target, actual, predicted []float64) error {
	if len(actual) == 0 || len(actual) != len(predicted) {
		return errors.NewDimensionError("SavePredictionPlot", len(actual), len(predicted), 0)
	}

	p := plot.New()
	p.Title.Text = "Predicted vs actual " + target.Name
	p.X.Label.Text = "Actual " + target.Name
	p.Y.Label.Text = "Predicted " + target.Name
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(actual))
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range actual {
		pts[i].X = actual[i]
		pts[i].Y = predicted[i]
		lo = math.Min(lo, math.Min(actual[i], predicted[i]))
		hi = math.Max(hi, math.Max(actual[i], predicted[i]))
	}

	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "build scatter")
	}
	s.GlyphStyle.Color = color.RGBA{R: 50, G: 90, B: 200, A: 255}
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	s.GlyphStyle.Radius = vg.Points(2)
	p.Add(s)

	l, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "build identity line")
	}
	l.LineStyle.Color = color.RGBA{R: 220, A: 255}
	l.LineStyle.Width = vg.Points(1)
	l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
	p.Add(l)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.WithStack(err)
	}
	if err := p.Save(5*vg.Inch, 5*vg.Inch, path); err != nil {
		return errors.Wrapf(err, "save plot %s", path)
	}
	return nil
}
