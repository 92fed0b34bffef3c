package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mindengage-progress/internal/forecast"
	"github.com/mind-engage/mindengage-progress/internal/scoring"
)

const (
	SheetResults = "Testergebnisse"
	SheetSummary = "Zusammenfassung"
)

// WriteXLSX writes the test rows and a summary sheet with the forecast.
func WriteXLSX(w io.Writer, b Bundle) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetResults); err != nil {
		return err
	}
	header := []interface{}{"Datum"}
	for _, c := range scoring.Categories {
		header = append(header, string(c)+" %")
	}
	header = append(header, "Gesamt %")
	if err := setRow(f, SheetResults, 1, header); err != nil {
		return err
	}
	for i, r := range b.History {
		row := []interface{}{r.TestDate.String()}
		for _, c := range scoring.Categories {
			row = append(row, r.Percent(c))
		}
		row = append(row, r.Overall)
		if err := setRow(f, SheetResults, i+2, row); err != nil {
			return err
		}
	}

	if _, err := f.NewSheet(SheetSummary); err != nil {
		return err
	}
	p := b.Participant
	rows := [][]interface{}{
		{"Name", p.Name},
		{"Versicherungsnummer", p.NationalID},
		{"Beruf", p.Occupation},
		{"Alter", p.Age},
		{"Eintritt", p.EntryDate.String()},
		{"Austritt", p.ExitDate.String()},
		{"Status", string(p.Status)},
		{"Stand", b.GeneratedOn.String()},
		{"Mittel der letzten Tests", b.RecentMean},
		{"Anzahl gemittelter Tests", b.RecentCount},
		{},
		{"Tag", "Datum", "Prognose %"},
	}
	for _, pt := range b.Series {
		if pt.Kind == forecast.KindForecast {
			rows = append(rows, []interface{}{pt.Day, b.GeneratedOn.AddDays(pt.Day).String(), pt.Overall})
		}
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if err := setRow(f, SheetSummary, i+1, row); err != nil {
			return err
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, vals []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &vals)
}
