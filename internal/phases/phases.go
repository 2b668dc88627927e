// Package phases implements the six analysis phases. Each phase is a pure
// function over the filtered sample and the study design, producing a typed
// report that renders to result tables.
package phases

import (
	"math"
	"sort"

	"github.com/pluzgi/chatbot-study/internal/model"
)

// Descriptive is a mean/SD/n triple. Mean and SD are NaN for empty groups.
type Descriptive struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
	N    int     `json:"n"`
}

// describe summarizes values, skipping NaN entries. SD uses the sample
// denominator (n-1) and is NaN below two observations.
func describe(values []float64) Descriptive {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return Descriptive{Mean: math.NaN(), SD: math.NaN()}
	}
	mean := sum / float64(n)

	var ss float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		ss += (v - mean) * (v - mean)
	}
	sd := math.NaN()
	if n > 1 {
		sd = math.Sqrt(ss / float64(n-1))
	}
	return Descriptive{Mean: mean, SD: sd, N: n}
}

// collect extracts one value per row.
func collect(rows []model.AnalysisRow, get func(model.AnalysisRow) float64) []float64 {
	out := make([]float64, len(rows))
	for i, r := range rows {
		out[i] = get(r)
	}
	return out
}

// byFactorLevel splits rows on a binary factor level accessor.
func byFactorLevel(rows []model.AnalysisRow, level func(model.AnalysisRow) *int) (low, high []model.AnalysisRow) {
	for _, r := range rows {
		lv := level(r)
		if lv == nil {
			continue
		}
		if *lv == 0 {
			low = append(low, r)
		} else {
			high = append(high, r)
		}
	}
	return low, high
}

func transparencyOf(r model.AnalysisRow) *int { return r.TransparencyLevel }
func controlOf(r model.AnalysisRow) *int      { return r.ControlLevel }

// donationValues maps recorded donation decisions to 0/1 floats.
func donationValues(rows []model.AnalysisRow) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if r.HasDonation() {
			out = append(out, float64(*r.DonationDecision))
		}
	}
	return out
}

func countDonors(rows []model.AnalysisRow) int {
	var n int
	for _, r := range rows {
		if r.Donated() {
			n++
		}
	}
	return n
}

// FrequencyRow is one level of a categorical frequency table.
type FrequencyRow struct {
	Value   string  `json:"value"`
	Count   int     `json:"n"`
	Percent float64 `json:"pct"`
}

// frequencies tabulates a categorical column, sorted by descending count
// then value for a stable order. Empty values are tabulated as "(missing)".
func frequencies(rows []model.AnalysisRow, get func(model.AnalysisRow) string) []FrequencyRow {
	counts := make(map[string]int)
	for _, r := range rows {
		v := get(r)
		if v == "" {
			v = "(missing)"
		}
		counts[v]++
	}

	out := make([]FrequencyRow, 0, len(counts))
	for v, n := range counts {
		pct := 0.0
		if len(rows) > 0 {
			pct = float64(n) / float64(len(rows)) * 100
		}
		out = append(out, FrequencyRow{Value: v, Count: n, Percent: pct})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Value < out[j].Value
	})
	return out
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	s := make([]float64, len(values))
	copy(s, values)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
