// Package report renders the comparison between the asymptotic equivalent
// and the exact or Monte Carlo probabilities as a markdown table, optionally
// converted to HTML.
package report

import (
	"bytes"
	"fmt"
	"math"
	"strconv"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/montanaflynn/stats"
)

// Report holds aligned series; a nil series was not computed.
type Report struct {
	Title      string
	Subtitle   string
	Ns         []int
	Equivalent []float64
	Exact      []float64
	MonteCarlo []float64
	StdErr     []float64
}

// Summary describes the absolute relative error of the equivalent.
type Summary struct {
	Reference string
	Count     int
	Mean      float64
	Median    float64
	Max       float64
	Last      float64
}

// reference is the exact series when present, else the Monte Carlo one.
func (r *Report) reference() (string, []float64) {
	switch {
	case r.Exact != nil:
		return "exact", r.Exact
	case r.MonteCarlo != nil:
		return "monte carlo", r.MonteCarlo
	}
	return "", nil
}

// RelativeErrors is (equivalent - reference) / reference for every n; NaN
// where it is undefined.
func (r *Report) RelativeErrors() []float64 {
	_, ref := r.reference()
	if ref == nil || r.Equivalent == nil {
		return nil
	}
	res := make([]float64, len(r.Ns))
	for i := range res {
		if ref[i] == 0 {
			res[i] = math.NaN()
			continue
		}
		res[i] = (r.Equivalent[i] - ref[i]) / ref[i]
	}
	return res
}

// Summarize computes the statistics of the finite relative errors.
func (r *Report) Summarize() (Summary, error) {
	name, _ := r.reference()
	var data []float64
	for _, e := range r.RelativeErrors() {
		if !math.IsNaN(e) {
			data = append(data, math.Abs(e))
		}
	}
	s := Summary{Reference: name, Count: len(data)}
	if len(data) == 0 {
		return s, fmt.Errorf("report: no relative error to summarize")
	}
	var err error
	if s.Mean, err = stats.Mean(data); err != nil {
		return s, err
	}
	if s.Median, err = stats.Median(data); err != nil {
		return s, err
	}
	if s.Max, err = stats.Max(data); err != nil {
		return s, err
	}
	s.Last = data[len(data)-1]
	return s, nil
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return strconv.FormatFloat(v, 'g', 6, 64)
}

// Markdown renders the report.
func (r *Report) Markdown() []byte {
	var b bytes.Buffer
	if r.Title != "" {
		fmt.Fprintf(&b, "# %s\n\n", r.Title)
	}
	if r.Subtitle != "" {
		fmt.Fprintf(&b, "%s\n\n", r.Subtitle)
	}

	header := []string{"n"}
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

	writeRow(&b, header)
	sep := make([]string, len(header))
	for i := range sep {
		sep[i] = "---:"
	}
	writeRow(&b, sep)
	for i, n := range r.Ns {
		row := []string{strconv.Itoa(n)}
		for _, col := range columns {
			row = append(row, formatValue(col[i]))
		}
		writeRow(&b, row)
	}

	if s, err := r.Summarize(); err == nil {
		fmt.Fprintf(&b, "\nRelative error against %s over %d points: mean %s, median %s, max %s, last %s.\n",
			s.Reference, s.Count, formatValue(s.Mean), formatValue(s.Median), formatValue(s.Max), formatValue(s.Last))
	}
	return b.Bytes()
}

func writeRow(b *bytes.Buffer, cells []string) {
	b.WriteString("|")
	for _, c := range cells {
		b.WriteString(" " + c + " |")
	}
	b.WriteString("\n")
}

// HTML renders the markdown report as an HTML fragment.
func (r *Report) HTML() []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: html.CommonFlags})
	return markdown.ToHTML(r.Markdown(), p, renderer)
}
