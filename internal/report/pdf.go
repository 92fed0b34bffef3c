package report

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"

	"github.com/mind-engage/mindengage-progress/internal/forecast"
	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

const dateLayout = "02.01.2006"

// WritePDF renders the participant summary, the test table, the
// forecast table and the chart on A4.
func WritePDF(w io.Writer, b Bundle) error {
	var img bytes.Buffer
	if err := RenderChart(&img, b); err != nil {
		return err
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(tr("Lernstand "+b.Participant.Name), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr("Lernstandsbericht"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	p := b.Participant
	for _, kv := range [][2]string{
		{"Name", p.Name},
		{"Versicherungsnummer", p.NationalID},
		{"Beruf", p.Occupation},
		{"Alter", fmt.Sprintf("%d", p.Age)},
		{"Eintritt", p.EntryDate.Format(dateLayout)},
		{"Austritt", p.ExitDate.Format(dateLayout)},
		{"Status", string(p.Status)},
		{"Stand", b.GeneratedOn.Format(dateLayout)},
		{"Mittel der letzten Tests", fmt.Sprintf("%.1f %% (%d)", b.RecentMean, b.RecentCount)},
	} {
		pdf.CellFormat(55, 6, tr(kv[0]), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(kv[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr("Testergebnisse"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(22, 6, "Datum", "1", 0, "C", true, 0, "")
	for _, c := range scoring.Categories {
		pdf.CellFormat(24, 6, tr(string(c)), "1", 0, "C", true, 0, "")
	}
	pdf.CellFormat(20, 6, "Gesamt", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	for _, r := range b.History {
		pdf.CellFormat(22, 6, r.TestDate.Format(dateLayout), "1", 0, "C", false, 0, "")
		for _, c := range scoring.Categories {
			pdf.CellFormat(24, 6, fmt.Sprintf("%.1f", r.Percent(c)), "1", 0, "R", false, 0, "")
		}
		pdf.CellFormat(20, 6, fmt.Sprintf("%.1f", r.Overall), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	opts := fpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("chart", opts, &img)
	pdf.ImageOptions("chart", 10, pdf.GetY(), 190, 0, true, opts, 0, "")

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, tr("Prognose"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(20, 6, "Tag", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 6, "Datum", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 6, "Gesamt %", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	for _, pt := range b.Series {
		if pt.Kind != forecast.KindForecast {
			continue
		}
		pdf.CellFormat(20, 6, fmt.Sprintf("%+d", pt.Day), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, b.GeneratedOn.AddDays(pt.Day).Format(dateLayout), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f", pt.Overall), "1", 1, "R", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
