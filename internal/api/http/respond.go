package http

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/forecast"
	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	var ve *course.ValidationError
	switch {
	case errors.Is(err, scoring.ErrInvalidScore), errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.Is(err, course.ErrDuplicateNationalID):
		return http.StatusConflict
	case errors.Is(err, course.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, forecast.ErrNoHistory), errors.Is(err, forecast.ErrNoModel):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Printf("%s %s: %v", r.Method, r.URL.Path, err)
	}
	http.Error(w, err.Error(), code)
}

// readUpload accepts either a multipart file= (CSV or JSON) or a raw
// body. isJSON is sniffed from the first non-space byte.
func readUpload(r *http.Request) (body []byte, isJSON bool, err error) {
	var src io.Reader = r.Body
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		f, _, err := r.FormFile("file")
		if err != nil {
			return nil, false, errors.New("file required")
		}
		defer f.Close()
		src = f
	}
	body, err = io.ReadAll(src)
	if err != nil {
		return nil, false, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false, errors.New("empty upload")
	}
	return body, trimmed[0] == '[' || trimmed[0] == '{', nil
}

type csvRecord struct {
	line int
	cols map[string]string
}

func (c csvRecord) get(col string) string { return strings.TrimSpace(c.cols[col]) }

// readCSV reads a header row plus records. Column names are matched
// case-insensitively and every required column must be present.
func readCSV(r io.Reader, required ...string) ([]csvRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	hdr, err := cr.Read()
	if err != nil {
		return nil, err
	}
	names := make([]string, len(hdr))
	seen := map[string]bool{}
	for i, h := range hdr {
		names[i] = strings.ToLower(strings.TrimSpace(h))
		seen[names[i]] = true
	}
	for _, k := range required {
		if !seen[k] {
			return nil, errors.New("missing column: " + k)
		}
	}
	var out []csvRecord
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		cols := make(map[string]string, len(rec))
		for i, v := range rec {
			cols[names[i]] = v
		}
		out = append(out, csvRecord{line: line, cols: cols})
	}
}
