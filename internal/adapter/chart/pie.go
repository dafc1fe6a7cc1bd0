package chart

import (
	"errors"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// Pie implements plot.Plotter, drawing one wedge per value. Slices start at
// twelve o'clock and run counterclockwise.
type Pie struct {
	Values []float64
	Colors []color.Color

	// Explode pulls slice i out from the centre by Explode[i] radii.
	Explode []float64

	// Radius is the pie radius as a fraction of half the shorter canvas side.
	Radius float64
}

// NewPie returns a pie of the given values. Values must be non-negative with
// a positive sum.
func NewPie(values []float64, colors []color.Color) (*Pie, error) {
	if len(values) == 0 {
		return nil, errors.New("pie: no values")
	}
	if len(colors) == 0 {
		return nil, errors.New("pie: no colors")
	}
	for _, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.New("pie: values must be finite and non-negative")
		}
	}
	if floats.Sum(values) <= 0 {
		return nil, errors.New("pie: values sum to zero")
	}
	return &Pie{
		Values: values,
		Colors: colors,
		Radius: 0.8,
	}, nil
}

// Plot implements the plot.Plotter interface.
func (p *Pie) Plot(c draw.Canvas, _ *plot.Plot) {
	total := floats.Sum(p.Values)
	w := c.Max.X - c.Min.X
	h := c.Max.Y - c.Min.Y
	r := vg.Length(p.Radius) * min(w, h) / 2
	center := vg.Point{X: c.Min.X + w/2, Y: c.Min.Y + h/2}

	start := math.Pi / 2
	for i, v := range p.Values {
		if v == 0 {
			continue
		}
		angle := 2 * math.Pi * v / total

		ctr := center
		if off := p.explode(i); off > 0 {
			mid := start + angle/2
			ctr.X += vg.Length(math.Cos(mid)*off) * r
			ctr.Y += vg.Length(math.Sin(mid)*off) * r
		}

		var path vg.Path
		path.Move(ctr)
		path.Arc(ctr, r, start, angle)
		path.Close()

		c.SetColor(p.Colors[i%len(p.Colors)])
		c.Fill(path)
		start += angle
	}
}

func (p *Pie) explode(i int) float64 {
	if i < len(p.Explode) {
		return p.Explode[i]
	}
	return 0
}

// swatch is a legend thumbnail filled with a single colour.
type swatch struct {
	color color.Color
}

func (s swatch) Thumbnail(c *draw.Canvas) {
	pts := []vg.Point{
		{X: c.Min.X, Y: c.Min.Y},
		{X: c.Min.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Max.Y},
		{X: c.Max.X, Y: c.Min.Y},
	}
	c.FillPolygon(s.color, pts)
}
