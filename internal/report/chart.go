package report

import (
	"fmt"
	"io"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/mind-engage/mindengage-progress/internal/forecast"
	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

var categoryColors = map[scoring.Category]drawing.Color{
	scoring.Textaufgaben:     drawing.ColorFromHex("1f77b4"),
	scoring.Raumvorstellung:  drawing.ColorFromHex("ff7f0e"),
	scoring.Gleichungen:      drawing.ColorFromHex("2ca02c"),
	scoring.Brueche:          drawing.ColorFromHex("9467bd"),
	scoring.Grundrechenarten: drawing.ColorFromHex("8c564b"),
	scoring.Zahlenraum:       drawing.ColorFromHex("e377c2"),
}

// RenderChart draws the merged series as a PNG: overall history and
// forecast as solid lines, each category dashed, and a marker at today.
func RenderChart(w io.Writer, b Bundle) error {
	var series []chart.Series

	var hx, hy, fx, fy []float64
	for _, p := range b.Series {
		switch p.Kind {
		case forecast.KindHistory:
			hx, hy = append(hx, float64(p.Day)), append(hy, p.Overall)
		case forecast.KindForecast:
			fx, fy = append(fx, float64(p.Day)), append(fy, p.Overall)
		}
	}

	for _, c := range scoring.Categories {
		var xs, ys []float64
		for _, p := range b.Series {
			if v, ok := p.Categories[c]; ok {
				xs, ys = append(xs, float64(p.Day)), append(ys, v)
			}
		}
		if len(xs) == 0 {
			continue
		}
		series = append(series, chart.ContinuousSeries{
			Name:    string(c),
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor:     categoryColors[c],
				StrokeWidth:     1,
				StrokeDashArray: []float64{4, 3},
			},
		})
	}
	if len(hx) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "Gesamt",
			XValues: hx,
			YValues: hy,
			Style:   chart.Style{StrokeColor: drawing.ColorBlack, StrokeWidth: 3},
		})
	}
	if len(fx) > 0 {
		series = append(series, chart.ContinuousSeries{
			Name:    "Prognose",
			XValues: fx,
			YValues: fy,
			Style:   chart.Style{StrokeColor: drawing.ColorRed, StrokeWidth: 3},
		})
	}
	series = append(series, chart.ContinuousSeries{
		Name:    "Heute",
		XValues: []float64{0, 0},
		YValues: []float64{0, 100},
		Style:   chart.Style{StrokeColor: drawing.ColorFromHex("999999"), StrokeWidth: 1},
	})

	graph := chart.Chart{
		Title:  b.Participant.Name,
		Width:  960,
		Height: 480,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "Tage relativ zu heute",
			Range: &chart.ContinuousRange{Min: -forecast.Horizon, Max: forecast.Horizon},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%+.0f", f)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Name:  "Prozent",
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.LegendLeft(&graph)}
	if err := graph.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
