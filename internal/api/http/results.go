package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

// resultReq is one test sheet. Category keys accept the canonical name,
// the storage key or the umlaut spelling.
//
//	{"test_date": "2026-10-17", "scores": {"Textaufgaben": {"achieved": 15, "max": 20}, ...}}
type resultReq struct {
	TestDate course.Date               `json:"test_date"`
	Scores   map[string]scoring.Points `json:"scores"`
}

func (req resultReq) points() (map[scoring.Category]scoring.Points, error) {
	out := make(map[scoring.Category]scoring.Points, len(req.Scores))
	for k, p := range req.Scores {
		c, err := scoring.ParseCategory(k)
		if err != nil {
			return nil, &scoring.InvalidScoreError{Kind: scoring.UnknownCategory, Category: scoring.Category(k)}
		}
		if _, dup := out[c]; dup {
			return nil, &scoring.InvalidScoreError{Kind: scoring.DuplicateCategory, Category: c}
		}
		out[c] = p
	}
	return out, nil
}

func decodeResult(w http.ResponseWriter, r *http.Request) (course.Date, map[scoring.Category]scoring.Points, bool) {
	var req resultReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
		return course.Date{}, nil, false
	}
	pts, err := req.points()
	if err != nil {
		respondError(w, r, err)
		return course.Date{}, nil, false
	}
	return req.TestDate, pts, true
}

// GET /participants/{id}/results
func ListResultsHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h, err := svc.History(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		if h == nil {
			h = []course.TestResult{}
		}
		respondJSON(w, http.StatusOK, h)
	}
}

// POST /participants/{id}/results
func RecordResultHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, pts, ok := decodeResult(w, r)
		if !ok {
			return
		}
		res, err := svc.RecordResult(r.Context(), chi.URLParam(r, "id"), date, pts)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, res)
	}
}

// PUT /results/{id}
func UpdateResultHandler(svc *course.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		date, pts, ok := decodeResult(w, r)
		if !ok {
			return
		}
		res, err := svc.UpdateResult(r.Context(), chi.URLParam(r, "id"), date, pts)
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, res)
	}
}
