package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-progress/internal/course"
	syncx "github.com/mind-engage/mindengage-progress/internal/sync"
)

// GET /audit?q=ResultRecorded&limit=50
func AuditSearchHandler(events *syncx.EventRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		out, err := events.Search(r.Context(), r.URL.Query().Get("q"), limit)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if out == nil {
			out = []syncx.Event{}
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// GET /participants/{id}/export returns everything stored about one
// participant as a downloadable JSON file.
func ExportParticipantHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		p, err := svc.GetParticipant(r.Context(), id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		history, err := svc.History(r.Context(), id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		if history == nil {
			history = []course.TestResult{}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "teilnehmer_"+p.ID+".json"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"participant": participantView(p, svc.Today()),
			"results":     history,
		})
	}
}
