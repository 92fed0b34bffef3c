package forecast

import (
	"context"
	"fmt"
	"math"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

// Horizon is the number of days covered on each side of today.
const Horizon = 30

// Kind tells measured history points from predicted ones.
type Kind string

const (
	KindHistory  Kind = "history"
	KindForecast Kind = "forecast"
)

// Point is one day of a report series.
type Point struct {
	Day        int                          `json:"day"`
	Overall    float64                      `json:"overall"`
	Categories map[scoring.Category]float64 `json:"categories,omitempty"`
	Kind       Kind                         `json:"kind"`
}

// Engine forecasts a participant's overall percentage for day offsets
// 0..Horizon. It reads results but never trains a model.
type Engine struct {
	results course.ResultStore
}

func NewEngine(results course.ResultStore) *Engine {
	return &Engine{results: results}
}

// Forecast holds the latest category percentages constant over the
// horizon and lets the model predict one value per day offset.
func (e *Engine) Forecast(ctx context.Context, participantID string, m Model) ([]Point, error) {
	history, err := e.results.History(ctx, participantID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if len(history) == 0 {
		return nil, ErrNoHistory
	}
	if m == nil {
		return nil, ErrNoModel
	}
	latest := history[len(history)-1]
	features := latest.Features()

	rows := make([]Row, 0, Horizon+1)
	for day := 0; day <= Horizon; day++ {
		rows = append(rows, Row{Day: day, Features: features})
	}
	preds, err := m.Predict(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(preds) != len(rows) {
		return nil, fmt.Errorf("predict: got %d values for %d rows", len(preds), len(rows))
	}

	cats := categoryMap(latest.Aggregated)
	out := make([]Point, len(rows))
	for i, r := range rows {
		v := preds[i]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("predict: non-finite value for day %d", r.Day)
		}
		out[i] = Point{Day: r.Day, Overall: clampPercent(v), Categories: cats, Kind: KindForecast}
	}
	return out, nil
}

func categoryMap(a scoring.Aggregated) map[scoring.Category]float64 {
	out := make(map[scoring.Category]float64, len(a.Categories))
	for _, cs := range a.Categories {
		out[cs.Category] = cs.Percent
	}
	return out
}

// HistoryPoint converts a stored result into a series point at day.
func HistoryPoint(r course.TestResult, day int) Point {
	return Point{Day: day, Overall: r.Overall, Categories: categoryMap(r.Aggregated), Kind: KindHistory}
}

func clampPercent(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}
