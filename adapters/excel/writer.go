package excel

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"actinvoting/internal/report"
)

const (
	SeriesSheet  = "series"
	SummarySheet = "summary"
)

// WriteReport writes the report as a workbook with a series sheet holding
// one row per n and a summary sheet with the relative error statistics.
func WriteReport(w io.Writer, r *report.Report) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// SaveReport writes the workbook to path.
func SaveReport(path string, r *report.Report) error {
	f, err := build(r)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

func build(r *report.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SeriesSheet); err != nil {
		f.Close()
		return nil, err
	}

	header := []interface{}{"n"}
	var columns [][]float64
	add := func(name string, values []float64) {
		if values != nil {
			header = append(header, name)
			columns = append(columns, values)
		}
	}
	add("equivalent", r.Equivalent)
	add("exact", r.Exact)
	add("monte carlo", r.MonteCarlo)
	add("std. err.", r.StdErr)
	add("rel. error", r.RelativeErrors())

	if err := f.SetSheetRow(SeriesSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	for i, n := range r.Ns {
		row := []interface{}{n}
		for _, col := range columns {
			// empty cell for undefined values
			if math.IsNaN(col[i]) || math.IsInf(col[i], 0) {
				row = append(row, nil)
			} else {
				row = append(row, col[i])
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetSheetRow(SeriesSheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if s, err := r.Summarize(); err == nil {
		if _, err := f.NewSheet(SummarySheet); err != nil {
			f.Close()
			return nil, err
		}
		rows := [][]interface{}{
			{"title", r.Title},
			{"reference", s.Reference},
			{"points", s.Count},
			{"mean", s.Mean},
			{"median", s.Median},
			{"max", s.Max},
			{"last", s.Last},
		}
		for i := range rows {
			if err := f.SetSheetRow(SummarySheet, fmt.Sprintf("A%d", i+1), &rows[i]); err != nil {
				f.Close()
				return nil, err
			}
		}
	}
	return f, nil
}
