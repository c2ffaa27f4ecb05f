// Package excel reads voter profiles from spreadsheets and writes reports
// as workbooks.
package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"actinvoting/internal"
)

// ProfileReader reads a profile from an .xlsx or .csv file. The first row is
// a header with a "ranking" column and an optional "weight" column. A
// ranking cell lists candidates from best to worst, separated by '>',
// commas or spaces.
type ProfileReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	sheet    string
	logger   *internal.Logger
}

// NewProfileReader picks the format from the file extension. An empty sheet
// means the first sheet of the workbook.
func NewProfileReader(filePath, sheet string, logger *internal.Logger) *ProfileReader {
	fileType := "xlsx"
	if strings.ToLower(filepath.Ext(filePath)) == ".csv" {
		fileType = "csv"
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	return &ProfileReader{filePath: filePath, fileType: fileType, sheet: sheet, logger: logger}
}

// Read returns the rankings and their weights, in file order.
func (r *ProfileReader) Read() ([][]int, []float64, error) {
	var rows [][]string
	var err error
	start := time.Now()
	if r.fileType == "csv" {
		rows, err = r.readCSV()
	} else {
		rows, err = r.readXLSX()
	}
	if err != nil {
		return nil, nil, err
	}
	r.logger.Debug("[ProfileReader] %s read in %s (%d rows)", r.filePath, time.Since(start), len(rows))
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("%s must have a header row and at least one ranking", r.filePath)
	}
	return r.processRows(rows)
}

func (r *ProfileReader) readXLSX() ([][]string, error) {
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := r.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheet", r.filePath)
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheet, err)
	}
	return rows, nil
}

func (r *ProfileReader) readCSV() ([][]string, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

func (r *ProfileReader) processRows(rows [][]string) ([][]int, []float64, error) {
	rankingCol, weightCol := -1, -1
	for j, h := range rows[0] {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "ranking":
			rankingCol = j
		case "weight":
			weightCol = j
		}
	}
	if rankingCol < 0 {
		return nil, nil, fmt.Errorf("%s: no ranking column", r.filePath)
	}

	var rankings [][]int
	var weights []float64
	for i, row := range rows[1:] {
		line := i + 2
		if rankingCol >= len(row) || strings.TrimSpace(row[rankingCol]) == "" {
			continue
		}
		rk, err := ParseRanking(row[rankingCol])
		if err != nil {
			return nil, nil, fmt.Errorf("%s row %d: %w", r.filePath, line, err)
		}
		w := 1.0
		if weightCol >= 0 && weightCol < len(row) && strings.TrimSpace(row[weightCol]) != "" {
			w, err = strconv.ParseFloat(strings.TrimSpace(row[weightCol]), 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s row %d: invalid weight %q", r.filePath, line, row[weightCol])
			}
		}
		rankings = append(rankings, rk)
		weights = append(weights, w)
	}
	if len(rankings) == 0 {
		return nil, nil, fmt.Errorf("%s: no ranking found", r.filePath)
	}
	r.logger.Debug("[ProfileReader] %d rankings loaded from %s", len(rankings), r.filePath)
	return rankings, weights, nil
}

// ParseRanking parses "0>1>2", "0,1,2" or "0 1 2".
func ParseRanking(s string) ([]int, error) {
	fields := strings.FieldsFunc(s, func(c rune) bool {
		return c == '>' || c == ',' || c == ' ' || c == '\t'
	})
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty ranking")
	}
	res := make([]int, len(fields))
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("invalid candidate %q in ranking %q", f, s)
		}
		res[i] = v
	}
	return res, nil
}
