package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"posttrade/internal/model"
)

var (
	flaggedColor = drawing.ColorFromHex("d62728")
	normalColor  = drawing.ColorFromHex("008080")
)

// ChartOptions controls the size of the rendered chart.
type ChartOptions struct {
	Width  int
	Height int
}

// DefaultChartOptions matches a 10x6 inch figure at 100 dpi.
func DefaultChartOptions() ChartOptions {
	return ChartOptions{Width: 1000, Height: 600}
}

// RenderChart draws a PNG bar chart of slippage per trade, red above the threshold.
func RenderChart(w io.Writer, trades []model.EnrichedTrade, summary model.ReportSummary, opts ChartOptions) error {
	if len(trades) == 0 {
		return errors.New("no trades to chart")
	}
	graph := buildChart(trades, summary, opts)
	return graph.Render(chart.PNG, w)
}

func buildChart(trades []model.EnrichedTrade, summary model.ReportSummary, opts ChartOptions) chart.BarChart {
	lo, hi := math.Min(0, summary.ThresholdBps), math.Max(0, summary.ThresholdBps)
	bars := make([]chart.Value, 0, len(trades))
	for _, t := range trades {
		color := normalColor
		if summary.IsOutlier(t) {
			color = flaggedColor
		}
		bars = append(bars, chart.Value{
			Label: t.Broker + " - " + t.Product,
			Value: t.SlippageBps,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
		lo = math.Min(lo, t.SlippageBps)
		hi = math.Max(hi, t.SlippageBps)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	lo, hi = lo-pad, hi+pad

	barWidth := opts.Width / (2 * len(trades))
	if barWidth > 120 {
		barWidth = 120
	}

	return chart.BarChart{
		Title:        "Broker Performance - Slippage (bps)",
		Background:   chart.Style{Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20}},
		Width:        opts.Width,
		Height:       opts.Height,
		BarWidth:     barWidth,
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Name:  "Slippage (bps)",
			Range: &chart.ContinuousRange{Min: lo, Max: hi},
		},
		Bars: bars,
		Elements: []chart.Renderable{
			horizontalLine(lo, hi, 0, drawing.ColorBlack, nil),
			horizontalLine(lo, hi, summary.ThresholdBps, flaggedColor, []float64{6, 4}),
			legend(summary.ThresholdBps),
		},
	}
}

// valueToY maps a slippage value onto the canvas the same way the bars are placed.
func valueToY(canvasBox chart.Box, lo, hi, v float64) int {
	yr := chart.ContinuousRange{Min: lo, Max: hi, Domain: canvasBox.Height()}
	return canvasBox.Bottom - yr.Translate(v)
}

func horizontalLine(lo, hi, v float64, color drawing.Color, dash []float64) chart.Renderable {
	return func(r chart.Renderer, canvasBox chart.Box, _ chart.Style) {
		y := valueToY(canvasBox, lo, hi, v)
		r.SetStrokeColor(color)
		r.SetStrokeWidth(1.5)
		r.SetStrokeDashArray(dash)
		r.MoveTo(canvasBox.Left, y)
		r.LineTo(canvasBox.Right, y)
		r.Stroke()
		r.SetStrokeDashArray(nil)
	}
}

// legend lists the bar colours and the threshold line in the top left corner of the plot.
func legend(thresholdBps float64) chart.Renderable {
	entries := []struct {
		label string
		color drawing.Color
		line  bool
	}{
		{fmt.Sprintf("Alert threshold (%g bps)", thresholdBps), flaggedColor, true},
		{fmt.Sprintf("Slippage above %g bps", thresholdBps), flaggedColor, false},
		{"Within limit", normalColor, false},
	}

	return func(r chart.Renderer, canvasBox chart.Box, defaults chart.Style) {
		if defaults.Font == nil {
			return
		}
		const swatch, lineHeight = 12, 18
		x, y := canvasBox.Left+10, canvasBox.Top+10
		for _, e := range entries {
			if e.line {
				r.SetStrokeColor(e.color)
				r.SetStrokeWidth(1.5)
				r.SetStrokeDashArray([]float64{6, 4})
				r.MoveTo(x, y+swatch/2)
				r.LineTo(x+2*swatch, y+swatch/2)
				r.Stroke()
				r.SetStrokeDashArray(nil)
			} else {
				chart.Draw.Box(r, chart.Box{Top: y, Left: x, Right: x + 2*swatch, Bottom: y + swatch}, chart.Style{FillColor: e.color, StrokeColor: e.color, StrokeWidth: 1})
			}
			r.SetFont(defaults.Font)
			r.SetFontSize(10)
			r.SetFontColor(drawing.ColorBlack)
			r.Text(e.label, x+2*swatch+6, y+swatch-1)
			y += lineHeight
		}
	}
}

// SaveChart renders the chart into the image file at path.
func SaveChart(path string, trades []model.EnrichedTrade, summary model.ReportSummary, opts ChartOptions) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart file: %w", err)
	}
	if err := RenderChart(f, trades, summary, opts); err != nil {
		f.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return f.Close()
}
