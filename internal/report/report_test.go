package report

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func icReport() *Report {
	return &Report{
		Title:      "Impartial_m=3",
		Ns:         []int{3, 5},
		Equivalent: []float64{0.3, 0.3},
		Exact:      []float64{0.25, 0.2},
	}
}

func TestRelativeErrors(t *testing.T) {
	r := icReport()
	assert.InDeltaSlice(t, []float64{0.2, 0.5}, r.RelativeErrors(), 1e-12)

	r.Exact[1] = 0
	errs := r.RelativeErrors()
	assert.True(t, math.IsNaN(errs[1]))

	mc := &Report{Ns: []int{3}, Equivalent: []float64{0.3}, MonteCarlo: []float64{0.4}}
	assert.InDeltaSlice(t, []float64{-0.25}, mc.RelativeErrors(), 1e-12)
	assert.Nil(t, (&Report{Ns: []int{3}, Equivalent: []float64{0.3}}).RelativeErrors())
}

func TestSummarize(t *testing.T) {
	s, err := icReport().Summarize()
	require.NoError(t, err)
	assert.Equal(t, "exact", s.Reference)
	assert.Equal(t, 2, s.Count)
	assert.InDelta(t, 0.35, s.Mean, 1e-12)
	assert.InDelta(t, 0.35, s.Median, 1e-12)
	assert.InDelta(t, 0.5, s.Max, 1e-12)
	assert.InDelta(t, 0.5, s.Last, 1e-12)

	_, err = (&Report{Ns: []int{1}}).Summarize()
	assert.Error(t, err)
}

func TestMarkdown(t *testing.T) {
	md := string(icReport().Markdown())
	lines := strings.Split(md, "\n")
	assert.Equal(t, "# Impartial_m=3", lines[0])
	assert.Contains(t, md, "| n | equivalent | exact | rel. error |")
	assert.Contains(t, md, "| 3 | 0.3 | 0.25 | 0.2 |")
	assert.Contains(t, md, "| 5 | 0.3 | 0.2 | 0.5 |")
	assert.Contains(t, md, "Relative error against exact over 2 points")
}

func TestHTML(t *testing.T) {
	out := string(icReport().HTML())
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td")
}
