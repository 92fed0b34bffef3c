package forecast

import (
	"context"
	"errors"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

var (
	ErrNoHistory     = errors.New("no test results for participant")
	ErrNoModel       = errors.New("no forecast model available")
	ErrNotEnoughData = errors.New("not enough results to train a model")
)

// Row is one feature row handed to a model: the category percentages in
// canonical order plus the day offset the row stands for.
type Row struct {
	Day      int       `json:"day"`
	Features []float64 `json:"features"`
}

// Sample is one training observation.
type Sample struct {
	Day      int       `json:"day"`
	Features []float64 `json:"features"`
	Overall  float64   `json:"overall"`
}

// FeatureSet says which inputs a model consumes. Category percentages
// are always used; the day offset only when DayOffset is set.
type FeatureSet struct {
	DayOffset bool `json:"day_offset"`
}

// Model predicts an overall percentage per row. Implementations are
// immutable once trained.
type Model interface {
	Predict(ctx context.Context, rows []Row) ([]float64, error)
}

// Trainer fits a pooled regression of category percentages onto the
// overall percentage.
type Trainer interface {
	Train(ctx context.Context, samples []Sample) (Model, error)
}

// Snapshotter is implemented by models that can be persisted by name.
type Snapshotter interface {
	Snapshot() ([]byte, error)
}

// Loader restores a model from a snapshot.
type Loader func(data []byte) (Model, error)

// SamplesFromResults turns the cross-participant corpus into training
// samples. Day is the distance to the participant's latest test (<= 0).
func SamplesFromResults(results []course.TestResult) []Sample {
	latest := map[string]course.Date{}
	for _, r := range results {
		if d, ok := latest[r.ParticipantID]; !ok || r.TestDate.After(d) {
			latest[r.ParticipantID] = r.TestDate
		}
	}
	out := make([]Sample, 0, len(results))
	for _, r := range results {
		out = append(out, Sample{
			Day:      r.TestDate.DaysSince(latest[r.ParticipantID]),
			Features: r.Features(),
			Overall:  r.Overall,
		})
	}
	return out
}

func numFeatures() int { return len(scoring.Categories) }
