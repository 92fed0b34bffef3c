package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/forecast"
)

// ModelProvider hands out the current forecast model.
type ModelProvider interface {
	Current(ctx context.Context) (forecast.Model, error)
	Retrain(ctx context.Context) (forecast.Model, error)
}

// GET /participants/{id}/forecast
func ForecastHandler(svc *course.Service, engine *forecast.Engine, models ModelProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := svc.GetParticipant(r.Context(), id); err != nil {
			respondError(w, r, err)
			return
		}
		if _, ok, err := svc.Latest(r.Context(), id); err != nil || !ok {
			if err == nil {
				err = forecast.ErrNoHistory
			}
			respondError(w, r, err)
			return
		}
		m, err := models.Current(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		pts, err := engine.Forecast(r.Context(), id, m)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{
			"participant_id": id,
			"generated_on":   svc.Today(),
			"points":         pts,
		})
	}
}

// POST /models/retrain
func RetrainModelHandler(models ModelProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		m, err := models.Retrain(r.Context())
		if err != nil {
			respondError(w, r, err)
			return
		}
		out := map[string]any{"status": "retrained"}
		if lm, ok := m.(*forecast.LinearModel); ok {
			out["samples"] = lm.Samples
			out["trained_at"] = lm.TrainedAt
		}
		respondJSON(w, http.StatusOK, out)
	}
}
