package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gonum.org/v1/gonum/mat"
)

// LinearModel is y = intercept + Σ w_i·x_i (+ w_day·day).
type LinearModel struct {
	Backend      string     `json:"backend"` // always "linear"
	Intercept    float64    `json:"intercept"`
	Coefficients []float64  `json:"coefficients"`
	DayWeight    float64    `json:"day_weight,omitempty"`
	Features     FeatureSet `json:"features"`
	Samples      int        `json:"samples"`
	TrainedAt    time.Time  `json:"trained_at"`
}

func (m *LinearModel) Predict(_ context.Context, rows []Row) ([]float64, error) {
	out := make([]float64, len(rows))
	for i, r := range rows {
		if len(r.Features) != len(m.Coefficients) {
			return nil, fmt.Errorf("row %d: %d features, model expects %d", i, len(r.Features), len(m.Coefficients))
		}
		y := m.Intercept
		for j, x := range r.Features {
			y += m.Coefficients[j] * x
		}
		if m.Features.DayOffset {
			y += m.DayWeight * float64(r.Day)
		}
		out[i] = y
	}
	return out, nil
}

func (m *LinearModel) Snapshot() ([]byte, error) { return json.Marshal(m) }

// LoadLinearModel is the Loader for LinearModel snapshots.
func LoadLinearModel(data []byte) (Model, error) {
	var m LinearModel
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("linear model snapshot: %w", err)
	}
	if m.Backend != "linear" || len(m.Coefficients) != numFeatures() {
		return nil, fmt.Errorf("linear model snapshot: unexpected shape (backend=%q, %d coefficients)", m.Backend, len(m.Coefficients))
	}
	return &m, nil
}

// LinearTrainer fits ridge-regularised least squares. Lambda keeps the
// normal equations solvable for tiny or collinear corpora; the intercept
// is not penalised.
type LinearTrainer struct {
	Lambda   float64
	Features FeatureSet
	Now      func() time.Time
}

func (t LinearTrainer) Train(ctx context.Context, samples []Sample) (Model, error) {
	if len(samples) == 0 {
		return nil, ErrNotEnoughData
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lambda := t.Lambda
	if lambda <= 0 {
		lambda = 1e-3
	}
	nf := numFeatures()
	p := 1 + nf // intercept + categories
	if t.Features.DayOffset {
		p++
	}

	x := mat.NewDense(len(samples), p, nil)
	y := mat.NewVecDense(len(samples), nil)
	for i, s := range samples {
		if len(s.Features) != nf {
			return nil, fmt.Errorf("sample %d: %d features, want %d", i, len(s.Features), nf)
		}
		x.Set(i, 0, 1)
		for j, v := range s.Features {
			x.Set(i, 1+j, v)
		}
		if t.Features.DayOffset {
			x.Set(i, p-1, float64(s.Day))
		}
		y.SetVec(i, s.Overall)
	}

	var xtx mat.Dense
	xtx.Mul(x.T(), x)
	sym := mat.NewSymDense(p, nil)
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			sym.SetSym(i, j, xtx.At(i, j))
		}
		if i > 0 {
			sym.SetSym(i, i, sym.At(i, i)+lambda)
		}
	}
	var xty mat.VecDense
	xty.MulVec(x.T(), y)

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return nil, fmt.Errorf("%w: normal equations not positive definite", ErrNotEnoughData)
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &xty); err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	m := &LinearModel{
		Backend:      "linear",
		Intercept:    beta.AtVec(0),
		Coefficients: make([]float64, nf),
		Features:     t.Features,
		Samples:      len(samples),
		TrainedAt:    now().UTC(),
	}
	for j := 0; j < nf; j++ {
		m.Coefficients[j] = beta.AtVec(1 + j)
	}
	if t.Features.DayOffset {
		m.DayWeight = beta.AtVec(p - 1)
	}
	return m, nil
}
