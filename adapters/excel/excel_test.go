package excel

import (
	"bytes"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"actinvoting/internal/report"
)

func TestWriteReport(t *testing.T) {
	r := &report.Report{
		Title:      "Impartial m=3",
		Ns:         []int{11, 21},
		Equivalent: []float64{0.1, 0.2},
		Exact:      []float64{0.08, 0.25},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, r))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SeriesSheet, SummarySheet}, f.GetSheetList())

	rows, err := f.GetRows(SeriesSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"n", "equivalent", "exact", "rel. error"}, rows[0])
	assert.Equal(t, "21", rows[2][0])
	relErr, err := strconv.ParseFloat(rows[2][3], 64)
	require.NoError(t, err)
	assert.InDelta(t, -0.2, relErr, 1e-12)

	summary, err := f.GetRows(SummarySheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, summary, 7)
	assert.Equal(t, []string{"reference", "exact"}, summary[1])
	assert.Equal(t, []string{"points", "2"}, summary[2])
	mean, err := strconv.ParseFloat(summary[3][1], 64)
	require.NoError(t, err)
	assert.InDelta(t, 0.225, mean, 1e-12)
}

func TestWriteReport_NoReference(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.xlsx")
	require.NoError(t, SaveReport(path, &report.Report{Ns: []int{1}, Equivalent: []float64{0.5}}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{SeriesSheet}, f.GetSheetList())
}

func TestProfileReader_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.csv")
	content := "ranking,weight\n0>1>2,2\n\"2,1,0\",0.5\n1 0 2,\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rankings, weights, err := NewProfileReader(path, "", nil).Read()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1, 2}, {2, 1, 0}, {1, 0, 2}}, rankings)
	assert.Equal(t, []float64{2, 0.5, 1}, weights)
}

func TestProfileReader_XLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.xlsx")
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]interface{}{"voters", "ranking"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]interface{}{"a", "0>1"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A3", &[]interface{}{"b", "1>0"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	rankings, weights, err := NewProfileReader(path, "", nil).Read()
	require.NoError(t, err)
	assert.Equal(t, [][]int{{0, 1}, {1, 0}}, rankings)
	assert.Equal(t, []float64{1, 1}, weights)
}

func TestProfileReader_Invalid(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"header.csv":  "ranking\n",
		"column.csv":  "order\n0>1\n",
		"ranking.csv": "ranking\n0>a\n",
		"weight.csv":  "ranking,weight\n0>1,x\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name)
			require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
			_, _, err := NewProfileReader(path, "", nil).Read()
			assert.Error(t, err)
		})
	}

	_, _, err := NewProfileReader(filepath.Join(dir, "missing.xlsx"), "", nil).Read()
	assert.Error(t, err)
}

func TestParseRanking(t *testing.T) {
	r, err := ParseRanking(" 3 > 1 > 0 >2 ")
	require.NoError(t, err)
	assert.Equal(t, []int{3, 1, 0, 2}, r)

	_, err = ParseRanking(" ")
	assert.Error(t, err)
}
