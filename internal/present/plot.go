// SPDX-License-Identifier: MIT
package present

import (
	"fmt"
	"image/color"

	"popdetect/internal/audio"
	applog "popdetect/internal/log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// maxPlotPoints bounds the waveform line; longer buffers are reduced to a min/max envelope.
const maxPlotPoints = 4000

var popColor = color.RGBA{R: 220, A: 255}

// PlotPresenter saves the waveform with a dashed red line at every flagged bucket. The image
// format follows the extension of Path.
type PlotPresenter struct {
	Path   string
	Width  float64 // inches
	Height float64 // inches
}

var _ Presenter = (*PlotPresenter)(nil)

func (p *PlotPresenter) Present(r Report, buf *audio.Buffer) error {
	pl, err := waveformPlot(r, buf)
	if err != nil {
		return err
	}
	if err := pl.Save(vg.Length(p.Width)*vg.Inch, vg.Length(p.Height)*vg.Inch, p.Path); err != nil {
		return fmt.Errorf("failed to save plot: %w", err)
	}
	applog.Infof("Plot: Saved waveform with %d pop marker(s) to %s", r.Count(), p.Path)
	return nil
}

func waveformPlot(r Report, buf *audio.Buffer) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Audio Amplitude Over Time"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Amplitude"
	p.Y.Min, p.Y.Max = -1, 1
	p.Legend.Top = true

	wave, err := plotter.NewLine(waveformXYs(buf))
	if err != nil {
		return nil, err
	}
	wave.LineStyle.Width = vg.Points(0.5)
	p.Add(wave)
	p.Legend.Add("Audio Waveform", wave)

	for i, t := range r.Pops {
		marker, err := plotter.NewLine(plotter.XYs{{X: t, Y: -1}, {X: t, Y: 1}})
		if err != nil {
			return nil, err
		}
		marker.LineStyle.Color = popColor
		marker.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		p.Add(marker)
		if i == 0 {
			p.Legend.Add("Pop", marker)
		}
	}
	return p, nil
}

// waveformXYs returns one point per sample, or a min/max pair per envelope bin for long buffers.
func waveformXYs(buf *audio.Buffer) plotter.XYs {
	samples := buf.Samples()
	rate := float64(buf.SampleRate())

	if len(samples) <= maxPlotPoints {
		pts := make(plotter.XYs, len(samples))
		for i, s := range samples {
			pts[i] = plotter.XY{X: float64(i) / rate, Y: s}
		}
		if len(pts) == 0 {
			pts = plotter.XYs{{X: 0, Y: 0}}
		}
		return pts
	}

	bins := maxPlotPoints / 2
	mins, maxs := audio.Envelope(samples, bins)
	pts := make(plotter.XYs, 0, 2*bins)
	for i := range mins {
		t := float64(i*len(samples)/bins) / rate
		pts = append(pts, plotter.XY{X: t, Y: mins[i]}, plotter.XY{X: t, Y: maxs[i]})
	}
	return pts
}
