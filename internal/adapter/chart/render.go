package chart

import (
	"context"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/pm25-stats/internal/domain"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// Slice colours in band order: heavy, medium, light, good.
var bandColors = []color.Color{
	color.RGBA{R: 0xff, A: 0xff},                   // red
	color.RGBA{R: 0xff, G: 0xa5, A: 0xff},          // orange
	color.RGBA{R: 0x00, G: 0x99, B: 0xcc, A: 0xff}, // blue
	color.RGBA{G: 0xff, A: 0xff},                   // lime
}

// The heavy slice is pulled out slightly.
var bandExplode = []float64{0.05, 0, 0, 0}

const chartFileSuffix = "_pollution.png"

// FileName returns the chart file name for a city.
func FileName(city string) string {
	return city + chartFileSuffix
}

// Renderer writes a side-by-side domestic vs. reference pie chart per city.
// It implements pipeline.ReportSink.
type Renderer struct {
	dir    string
	width  vg.Length
	height vg.Length
	logger *slog.Logger
}

// NewRenderer creates a renderer writing PNGs into dir.
func NewRenderer(dir string, logger *slog.Logger) *Renderer {
	return &Renderer{
		dir:    dir,
		width:  10 * vg.Inch,
		height: 5 * vg.Inch,
		logger: logger,
	}
}

func (r *Renderer) WriteReport(_ context.Context, report domain.CityReport) (err error) {
	path := filepath.Join(r.dir, FileName(report.City))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	if err := RenderComparison(f, report, r.width, r.height); err != nil {
		return fmt.Errorf("city %s: %w", report.City, err)
	}
	r.logger.Info("chart saved", "city", report.City, "path", path)
	return nil
}

// RenderComparison draws the domestic (left) and reference (right) band
// shares of a report as two pie charts and encodes them as PNG.
func RenderComparison(w io.Writer, report domain.CityReport, width, height vg.Length) error {
	left, err := sharesPlot(fmt.Sprintf("%s: domestic stations", report.City), report.Domestic)
	if err != nil {
		return fmt.Errorf("domestic chart: %w", err)
	}
	right, err := sharesPlot(fmt.Sprintf("%s: %s", report.City, report.ReferenceColumn), report.Reference)
	if err != nil {
		return fmt.Errorf("reference chart: %w", err)
	}

	img := vgimg.New(width, height)
	dc := draw.New(img)
	tiles := draw.Tiles{
		Rows:      1,
		Cols:      2,
		PadX:      vg.Millimeter,
		PadY:      vg.Millimeter,
		PadTop:    vg.Points(2),
		PadBottom: vg.Points(2),
		PadLeft:   vg.Points(2),
		PadRight:  vg.Points(2),
	}
	canvases := plot.Align([][]*plot.Plot{{left, right}}, tiles, dc)
	left.Draw(canvases[0][0])
	right.Draw(canvases[0][1])

	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// sharesPlot builds a titled pie of band shares with a percentage legend.
func sharesPlot(title string, shares domain.BandShares) (*plot.Plot, error) {
	pie, err := NewPie(shares.Values(), bandColors)
	if err != nil {
		return nil, err
	}
	pie.Explode = bandExplode

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Add(pie)

	p.Legend.Top = true
	for i, b := range domain.Bands {
		p.Legend.Add(fmt.Sprintf("%s %.1f%%", b, shares.Share(b)*100), swatch{color: bandColors[i]})
	}
	return p, nil
}
