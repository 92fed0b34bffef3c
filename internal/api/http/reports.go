package http

import (
	"bytes"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-progress/internal/report"
	"github.com/mind-engage/mindengage-progress/internal/storage"
)

// GET /participants/{id}/report
func ReportHandler(reports *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := reports.Build(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, b)
	}
}

// GET /participants/{id}/report.pdf, report.xlsx, report/chart.png
func RenderReportHandler(reports *report.Service, f report.Format) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		b, err := reports.Build(r.Context(), id)
		if err != nil {
			respondError(w, r, err)
			return
		}
		// render before any header is written
		var buf bytes.Buffer
		if err := report.Render(&buf, f, b); err != nil {
			respondError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", f.ContentType())
		if f != report.FormatPNG {
			name := fmt.Sprintf("bericht-%s-%s.%s", id, b.GeneratedOn, f)
			w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
		}
		_, _ = io.Copy(w, &buf)
	}
}

// POST /participants/{id}/report/archive
func ArchiveReportHandler(reports *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := reports.Archive(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		respondJSON(w, http.StatusCreated, map[string]any{"keys": keys})
	}
}

// GET /participants/{id}/report/archive
func ListArchivedReportsHandler(reports *report.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys, err := reports.Archived(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			respondError(w, r, err)
			return
		}
		if keys == nil {
			keys = []string{}
		}
		respondJSON(w, http.StatusOK, map[string]any{"keys": keys})
	}
}

// MountArchive serves archived reports: GET /archive/* returns the blob
// at whatever follows /archive/.
func MountArchive(r chi.Router, bs storage.BlobStore) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
		if key == "" || strings.Contains(key, "..") || !strings.HasPrefix(key, "reports/") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		rc, err := bs.Get(key)
		if err != nil {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", report.Format(strings.TrimPrefix(path.Ext(key), ".")).ContentType())
		_, _ = io.Copy(w, rc)
	})
}
