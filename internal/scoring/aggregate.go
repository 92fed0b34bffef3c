package scoring

// CategoryScore is one category of an aggregated test.
type CategoryScore struct {
	Category Category `json:"category"`
	Achieved int      `json:"achieved"`
	Max      int      `json:"max"`
	Percent  float64  `json:"percent"`
}

// Aggregated is the normalized form of one test's category points.
type Aggregated struct {
	Categories []CategoryScore `json:"categories"` // canonical order
	Overall    float64         `json:"overall"`
	// ZeroMax lists categories whose maximum was 0; their percent is 0.
	ZeroMax []Category `json:"zero_max,omitempty"`
}

// Aggregate converts per-category points into percentages. Categories
// missing from scores are treated as (0, 0). It never returns NaN or Inf.
func Aggregate(scores map[Category]Points) Aggregated {
	out := Aggregated{Categories: make([]CategoryScore, 0, len(Categories))}
	var achieved, total int
	for _, c := range Categories {
		p := scores[c]
		cs := CategoryScore{Category: c, Achieved: p.Achieved, Max: p.Max}
		if p.Max > 0 {
			cs.Percent = percent(p.Achieved, p.Max)
		} else {
			out.ZeroMax = append(out.ZeroMax, c)
		}
		out.Categories = append(out.Categories, cs)
		achieved += p.Achieved
		total += p.Max
	}
	if total > 0 {
		out.Overall = percent(achieved, total)
	}
	return out
}

// Percent returns the category percentage, 0 when c is absent.
func (a Aggregated) Percent(c Category) float64 {
	for _, cs := range a.Categories {
		if cs.Category == c {
			return cs.Percent
		}
	}
	return 0
}

// Features returns the per-category percentages in canonical order.
func (a Aggregated) Features() []float64 {
	out := make([]float64, len(Categories))
	for i, c := range Categories {
		out[i] = a.Percent(c)
	}
	return out
}

// Points reverses Aggregate back into the input mapping.
func (a Aggregated) Points() map[Category]Points {
	out := make(map[Category]Points, len(a.Categories))
	for _, cs := range a.Categories {
		out[cs.Category] = Points{Achieved: cs.Achieved, Max: cs.Max}
	}
	return out
}

func percent(n, d int) float64 {
	return float64(n) / float64(d) * 100
}
