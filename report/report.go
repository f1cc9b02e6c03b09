// Package report renders estimator and tuning results as image files.
//
// The output format follows the file extension (png, svg, pdf, ...), as
// decided by gonum/plot.
package report

import (
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/estkit/pkg/errors"
	"github.com/YuminosukeSato/estkit/pkg/log"
)

var (
	pointColor = color.RGBA{R: 50, G: 50, B: 255, A: 255}
	refColor   = color.RGBA{R: 255, A: 255}
	bestColor  = color.RGBA{G: 160, A: 255}
)

type config struct {
	title  string
	width  vg.Length
	height vg.Length
}

// Option configures a chart.
type Option func(*config)

// WithTitle overrides the chart title.
func WithTitle(title string) Option {
	return func(c *config) { c.title = title }
}

// WithSize sets the image size in inches.
func WithSize(width, height float64) Option {
	return func(c *config) {
		c.width = vg.Length(width) * vg.Inch
		c.height = vg.Length(height) * vg.Inch
	}
}

func newConfig(title string, opts []Option) config {
	c := config{title: title, width: 5 * vg.Inch, height: 5 * vg.Inch}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// PredictionScatter plots predicted against actual targets with the y = x
// reference line and saves the chart to path.
func PredictionScatter(path string, actual, predicted *mat.VecDense, opts ...Option) error {
	if actual == nil || predicted == nil || actual.Len() == 0 {
		return errors.Wrap(errors.ErrEmptyData, "report.PredictionScatter")
	}
	if actual.Len() != predicted.Len() {
		return errors.NewDimensionError("report.PredictionScatter", actual.Len(), predicted.Len(), 0)
	}
	cfg := newConfig("Predicted vs actual", opts)

	p := plot.New()
	p.Title.Text = cfg.title
	p.X.Label.Text = "Actual"
	p.Y.Label.Text = "Predicted"

	pts := make(plotter.XYs, actual.Len())
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range pts {
		pts[i].X = actual.AtVec(i)
		pts[i].Y = predicted.AtVec(i)
		lo = math.Min(lo, math.Min(pts[i].X, pts[i].Y))
		hi = math.Max(hi, math.Max(pts[i].X, pts[i].Y))
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return errors.Wrap(err, "report: scatter")
	}
	s.Color = pointColor
	s.Shape = draw.CircleGlyph{}
	p.Add(s)

	ref, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return errors.Wrap(err, "report: reference line")
	}
	ref.Color = refColor
	ref.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(ref)
	p.Legend.Add("prediction", s)
	p.Legend.Add("y = x", ref)
	p.Legend.Top = true
	p.Legend.Left = true

	return save(p, cfg, path)
}

// LossTrace plots one loss per evaluation together with the running best
// (lowest) loss. It suits both Trials.Losses and optimiser histories.
func LossTrace(path string, losses []float64, opts ...Option) error {
	var pts, best plotter.XYs
	running := math.Inf(1)
	for i, l := range losses {
		if math.IsNaN(l) || math.IsInf(l, 0) {
			continue
		}
		running = math.Min(running, l)
		pts = append(pts, plotter.XY{X: float64(i + 1), Y: l})
		best = append(best, plotter.XY{X: float64(i + 1), Y: running})
	}
	if len(pts) == 0 {
		return errors.Wrap(errors.ErrEmptyData, "report.LossTrace")
	}
	cfg := newConfig("Loss per evaluation", opts)

	p := plot.New()
	p.Title.Text = cfg.title
	p.X.Label.Text = "Evaluation"
	p.Y.Label.Text = "Loss"

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return errors.Wrap(err, "report: loss line")
	}
	line.Color = pointColor
	points.Color = pointColor
	p.Add(line, points)

	bl, err := plotter.NewLine(best)
	if err != nil {
		return errors.Wrap(err, "report: best line")
	}
	bl.Color = bestColor
	bl.Width = vg.Points(2)
	p.Add(bl)
	p.Legend.Add("loss", line, points)
	p.Legend.Add("best so far", bl)

	return save(p, cfg, path)
}

func save(p *plot.Plot, cfg config, path string) error {
	if err := p.Save(cfg.width, cfg.height, path); err != nil {
		return errors.Wrapf(err, "save chart %s", path)
	}
	log.GetLoggerWithName("report").Debug("Chart saved", log.PathKey, path)
	return nil
}
