package report

import (
	"sort"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/forecast"
)

// ParticipantView is the participant as printed on a report.
type ParticipantView struct {
	course.Participant
	Status course.Status `json:"status"`
	Age    int           `json:"age"`
}

// Bundle is everything a renderer needs for one participant report.
type Bundle struct {
	Participant ParticipantView     `json:"participant"`
	GeneratedOn course.Date         `json:"generated_on"`
	History     []course.TestResult `json:"history"`
	Series      []forecast.Point    `json:"series"`
	RecentMean  float64             `json:"recent_mean"`
	RecentCount int                 `json:"recent_count"`
}

// Assemble merges history and forecast into one series over
// [-Horizon, +Horizon] around today. history must be ordered by date,
// then Seq.
func Assemble(p course.Participant, history []course.TestResult, fc []forecast.Point, today course.Date) (Bundle, error) {
	if len(history) == 0 {
		return Bundle{}, forecast.ErrNoHistory
	}
	series := make([]forecast.Point, 0, len(history)+len(fc))
	for _, r := range history {
		day := r.TestDate.DaysSince(today)
		if day < -forecast.Horizon || day > 0 {
			continue
		}
		series = append(series, forecast.HistoryPoint(r, day))
	}
	for _, pt := range fc {
		if pt.Day < 0 || pt.Day > forecast.Horizon {
			continue
		}
		series = append(series, pt)
	}
	sort.SliceStable(series, func(i, j int) bool {
		if series[i].Day != series[j].Day {
			return series[i].Day < series[j].Day
		}
		return series[i].Kind == forecast.KindHistory && series[j].Kind != forecast.KindHistory
	})

	mean, n := RecentMean(history)
	return Bundle{
		Participant: ParticipantView{Participant: p, Status: p.Status(today), Age: p.Age(today)},
		GeneratedOn: today,
		History:     history,
		Series:      series,
		RecentMean:  mean,
		RecentCount: n,
	}, nil
}

// RecentMean averages the overall percentage of the two most recent
// results. Equal dates are broken by insertion order, later first.
func RecentMean(history []course.TestResult) (float64, int) {
	if len(history) == 0 {
		return 0, 0
	}
	recent := append([]course.TestResult(nil), history...)
	sort.SliceStable(recent, func(i, j int) bool {
		if !recent[i].TestDate.Equal(recent[j].TestDate) {
			return recent[i].TestDate.After(recent[j].TestDate)
		}
		return recent[i].Seq > recent[j].Seq
	})
	if len(recent) > 2 {
		recent = recent[:2]
	}
	sum := 0.0
	for _, r := range recent {
		sum += r.Overall
	}
	return sum / float64(len(recent)), len(recent)
}
