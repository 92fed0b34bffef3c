package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/report"
)

func participantView(p course.Participant, today course.Date) report.ParticipantView {
	return report.ParticipantView{Participant: p, Status: p.Status(today), Age: p.Age(today)}
}

// GET /participants?include_inactive=1
func ListParticipantsHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, _ := strconv.ParseBool(r.URL.Query().Get("include_inactive"))
		ps, err := svc.ListParticipants(r.Context(), all)
		if err != nil {
			respondError(w, r, err)
			return
		}
		today := svc.Today()
		out := make([]report.ParticipantView, 0, len(ps))
		for _, p := range ps {
			out = append(out, participantView(p, today))
		}
		respondJSON(w, http.StatusOK, out)
	}
}

// POST /participants
func CreateParticipantHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p course.Participant
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		p, err := svc.CreateParticipant(r.Context(), p)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, participantView(p, svc.Today()))
	}
}

// GET /participants/{id}
func GetParticipantHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.GetParticipant(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, participantView(p, svc.Today()))
	}
}

// PUT /participants/{id}
func UpdateParticipantHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p course.Participant
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		p.ID = chi.URLParam(r, "id")
		p, err := svc.UpdateParticipant(r.Context(), p)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, participantView(p, svc.Today()))
	}
}

// PUT /participants/{id}/exit-date  {"exit_date": "YYYY-MM-DD"}
func UpdateExitDateHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ExitDate course.Date `json:"exit_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		p, err := svc.UpdateExitDate(r.Context(), chi.URLParam(r, "id"), req.ExitDate)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, participantView(p, svc.Today()))
	}
}

// POST /participants/import  (JSON array, CSV body, or multipart file=)
// CSV columns: name, national_id, occupation, entry_date, exit_date.
func ImportParticipantsHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, isJSON, err := readUpload(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		var rows []course.Participant
		if isJSON {
			if err := json.Unmarshal(body, &rows); err != nil {
				http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
				return
			}
		} else {
			rows, err = parseParticipantsCSV(bytes.NewReader(body))
			if err != nil {
				http.Error(w, "bad csv: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		if len(rows) == 0 {
			respondJSON(w, http.StatusOK, map[string]any{"inserted": 0})
			return
		}
		created, err := svc.ImportParticipants(r.Context(), rows)
		if err != nil {
			respondError(w, r, err)
			return
		}
		ids := make([]string, 0, len(created))
		for _, p := range created {
			ids = append(ids, p.ID)
		}
		respondJSON(w, http.StatusCreated, map[string]any{"inserted": len(created), "ids": ids})
	}
}

func parseParticipantsCSV(r io.Reader) ([]course.Participant, error) {
	recs, err := readCSV(r, "name", "national_id", "occupation", "entry_date", "exit_date")
	if err != nil {
		return nil, err
	}
	rows := make([]course.Participant, 0, len(recs))
	for _, rec := range recs {
		entry, err := course.ParseDate(rec.get("entry_date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: entry_date: %w", rec.line, err)
		}
		exit, err := course.ParseDate(rec.get("exit_date"))
		if err != nil {
			return nil, fmt.Errorf("line %d: exit_date: %w", rec.line, err)
		}
		rows = append(rows, course.Participant{
			Name:       rec.get("name"),
			NationalID: rec.get("national_id"),
			Occupation: rec.get("occupation"),
			EntryDate:  entry,
			ExitDate:   exit,
		})
	}
	return rows, nil
}
