package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"

	"github.com/mind-engage/mindengage-progress/internal/course"
	"github.com/mind-engage/mindengage-progress/internal/forecast"
	"github.com/mind-engage/mindengage-progress/internal/storage"
)

// Format names an output rendering of a report bundle.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatPNG  Format = "png"
)

func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPNG:
		return "image/png"
	}
	return "application/octet-stream"
}

// Render writes b in the given format.
func Render(w io.Writer, f Format, b Bundle) error {
	switch f {
	case FormatPDF:
		return WritePDF(w, b)
	case FormatXLSX:
		return WriteXLSX(w, b)
	case FormatPNG:
		return RenderChart(w, b)
	}
	return fmt.Errorf("unknown report format %q", f)
}

// ModelSource yields the model used for forecasts.
type ModelSource interface {
	Current(ctx context.Context) (forecast.Model, error)
}

type Service struct {
	courses *course.Service
	engine  *forecast.Engine
	models  ModelSource
	blobs   storage.BlobStore
}

func NewService(courses *course.Service, engine *forecast.Engine, models ModelSource, blobs storage.BlobStore) *Service {
	return &Service{courses: courses, engine: engine, models: models, blobs: blobs}
}

// Build assembles the report bundle for one participant as of today.
func (s *Service) Build(ctx context.Context, participantID string) (Bundle, error) {
	p, err := s.courses.GetParticipant(ctx, participantID)
	if err != nil {
		return Bundle{}, err
	}
	history, err := s.courses.History(ctx, participantID)
	if err != nil {
		return Bundle{}, err
	}
	if len(history) == 0 {
		return Bundle{}, forecast.ErrNoHistory
	}
	m, err := s.models.Current(ctx)
	if err != nil {
		return Bundle{}, err
	}
	fc, err := s.engine.Forecast(ctx, participantID, m)
	if err != nil {
		return Bundle{}, err
	}
	return Assemble(p, history, fc, s.courses.Today())
}

// ArchiveKey is where a rendered report of pid generated on day is kept.
func ArchiveKey(pid string, day course.Date, f Format) string {
	return path.Join("reports", pid, day.String()+"."+string(f))
}

// Archive renders the PDF and spreadsheet and stores both, returning
// their keys. Re-archiving on the same day overwrites.
func (s *Service) Archive(ctx context.Context, participantID string) ([]string, error) {
	if s.blobs == nil {
		return nil, fmt.Errorf("report archive: no blob store configured")
	}
	b, err := s.Build(ctx, participantID)
	if err != nil {
		return nil, err
	}
	var keys []string
	for _, f := range []Format{FormatPDF, FormatXLSX} {
		var buf bytes.Buffer
		if err := Render(&buf, f, b); err != nil {
			return nil, err
		}
		key, err := s.blobs.Put(ArchiveKey(participantID, b.GeneratedOn, f), &buf)
		if err != nil {
			return nil, fmt.Errorf("archive %s: %w", f, err)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// Archived lists the stored report keys of one participant, oldest first.
func (s *Service) Archived(ctx context.Context, participantID string) ([]string, error) {
	if _, err := s.courses.GetParticipant(ctx, participantID); err != nil {
		return nil, err
	}
	if s.blobs == nil {
		return nil, nil
	}
	return s.blobs.List(path.Join("reports", participantID))
}
