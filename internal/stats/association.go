package stats

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ContingencyTable is an r x c table of observed counts with labeled rows.
type ContingencyTable struct {
	RowLabels []string  `json:"row_labels"`
	ColLabels []string  `json:"col_labels"`
	Counts    [][]int64 `json:"counts"`
}

// NewContingencyTable builds a table from parallel group/outcome slices.
// Rows follow the order of rowLabels; columns the order of colLabels.
// Observations whose group or outcome is not listed are ignored.
func NewContingencyTable(rowLabels, colLabels []string, groups, outcomes []string) *ContingencyTable {
	rowIdx := make(map[string]int, len(rowLabels))
	for i, l := range rowLabels {
		rowIdx[l] = i
	}
	colIdx := make(map[string]int, len(colLabels))
	for i, l := range colLabels {
		colIdx[l] = i
	}

	counts := make([][]int64, len(rowLabels))
	for i := range counts {
		counts[i] = make([]int64, len(colLabels))
	}
	for k := range groups {
		i, ok := rowIdx[groups[k]]
		if !ok {
			continue
		}
		j, ok := colIdx[outcomes[k]]
		if !ok {
			continue
		}
		counts[i][j]++
	}
	return &ContingencyTable{RowLabels: rowLabels, ColLabels: colLabels, Counts: counts}
}

// N returns the table total.
func (t *ContingencyTable) N() int64 {
	var n int64
	for _, row := range t.Counts {
		for _, c := range row {
			n += c
		}
	}
	return n
}

// RowTotals returns per-row sums.
func (t *ContingencyTable) RowTotals() []int64 {
	totals := make([]int64, len(t.Counts))
	for i, row := range t.Counts {
		for _, c := range row {
			totals[i] += c
		}
	}
	return totals
}

// ColTotals returns per-column sums.
func (t *ContingencyTable) ColTotals() []int64 {
	if len(t.Counts) == 0 {
		return nil
	}
	totals := make([]int64, len(t.Counts[0]))
	for _, row := range t.Counts {
		for j, c := range row {
			totals[j] += c
		}
	}
	return totals
}

// hasZeroMargin reports whether any row or column total is zero.
func (t *ContingencyTable) hasZeroMargin() bool {
	for _, rt := range t.RowTotals() {
		if rt == 0 {
			return true
		}
	}
	for _, ct := range t.ColTotals() {
		if ct == 0 {
			return true
		}
	}
	return false
}

// ChiSquareResult holds the Pearson test of independence.
type ChiSquareResult struct {
	Statistic float64     `json:"statistic"`
	DF        int         `json:"df"`
	PValue    float64     `json:"p_value"`
	Expected  [][]float64 `json:"expected"`
}

// ChiSquareIndependence runs the Pearson chi-square test of independence
// over the table, returning the statistic, degrees of freedom, upper-tail
// p-value, and expected frequencies. A table with a zero margin or fewer
// than two rows/columns yields a zero statistic with p=1.
func ChiSquareIndependence(t *ContingencyTable) ChiSquareResult {
	r, c := len(t.Counts), 0
	if r > 0 {
		c = len(t.Counts[0])
	}
	res := ChiSquareResult{PValue: 1}
	if r < 2 || c < 2 {
		return res
	}

	n := float64(t.N())
	if n == 0 || t.hasZeroMargin() {
		return res
	}

	rowTotals := t.RowTotals()
	colTotals := t.ColTotals()

	res.Expected = make([][]float64, r)
	var chi2 float64
	for i := 0; i < r; i++ {
		res.Expected[i] = make([]float64, c)
		for j := 0; j < c; j++ {
			exp := float64(rowTotals[i]) * float64(colTotals[j]) / n
			res.Expected[i][j] = exp
			diff := float64(t.Counts[i][j]) - exp
			chi2 += diff * diff / exp
		}
	}

	res.Statistic = chi2
	res.DF = (r - 1) * (c - 1)
	res.PValue = distuv.ChiSquared{K: float64(res.DF)}.Survival(chi2)
	return res
}

// CramersV computes V = sqrt(chi2 / (n * min(r-1, c-1))). Degenerate tables
// (n=0 or a single row/column) return exactly 0.
func CramersV(t *ContingencyTable) float64 {
	r, c := len(t.Counts), 0
	if r > 0 {
		c = len(t.Counts[0])
	}
	minDim := r - 1
	if c-1 < minDim {
		minDim = c - 1
	}
	n := t.N()
	if n == 0 || minDim <= 0 {
		return 0.0
	}
	chi2 := ChiSquareIndependence(t).Statistic
	return math.Sqrt(chi2 / (float64(n) * float64(minDim)))
}

// BootstrapCI is a percentile bootstrap interval. Degenerate reports the
// [0, 1] fallback used when fewer than 100 valid resamples were produced.
type BootstrapCI struct {
	Lower      float64 `json:"lower"`
	Upper      float64 `json:"upper"`
	Valid      int     `json:"valid_resamples"`
	Degenerate bool    `json:"degenerate"`
}

// CramersVBootstrapCI estimates a 95% percentile interval for Cramér's V by
// drawing multinomial resamples of size n from the observed cell
// probabilities. Resamples with a zero row or column margin have undefined
// V and are rejected. The seed is fixed once for the whole call so repeated
// runs reproduce the interval. Fewer than 100 valid resamples yields the
// degenerate [0, 1] interval.
func CramersVBootstrapCI(t *ContingencyTable, draws int, seed int64) BootstrapCI {
	n := t.N()
	if n == 0 || draws <= 0 {
		return BootstrapCI{Lower: 0, Upper: 1, Degenerate: true}
	}

	r, c := len(t.Counts), len(t.Counts[0])
	probs := make([]float64, 0, r*c)
	for _, row := range t.Counts {
		for _, cnt := range row {
			probs = append(probs, float64(cnt)/float64(n))
		}
	}

	src := rand.NewSource(uint64(seed))
	values := make([]float64, 0, draws)

	resampled := &ContingencyTable{RowLabels: t.RowLabels, ColLabels: t.ColLabels}
	resampled.Counts = make([][]int64, r)
	for i := range resampled.Counts {
		resampled.Counts[i] = make([]int64, c)
	}

	for d := 0; d < draws; d++ {
		cells := multinomial(src, n, probs)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				resampled.Counts[i][j] = cells[i*c+j]
			}
		}
		if resampled.hasZeroMargin() {
			continue
		}
		values = append(values, CramersV(resampled))
	}

	if len(values) < 100 {
		return BootstrapCI{Lower: 0, Upper: 1, Valid: len(values), Degenerate: true}
	}

	sort.Float64s(values)
	return BootstrapCI{
		Lower: stat.Quantile(0.025, stat.LinInterp, values, nil),
		Upper: stat.Quantile(0.975, stat.LinInterp, values, nil),
		Valid: len(values),
	}
}

// multinomial draws cell counts for one resample of size n via sequential
// binomial conditioning.
func multinomial(src rand.Source, n int64, probs []float64) []int64 {
	counts := make([]int64, len(probs))
	remaining := n
	remainingP := 1.0
	for i := 0; i < len(probs)-1 && remaining > 0; i++ {
		p := probs[i] / remainingP
		if p > 1 {
			p = 1
		}
		b := distuv.Binomial{N: float64(remaining), P: p, Src: src}
		k := int64(b.Rand())
		counts[i] = k
		remaining -= k
		remainingP -= probs[i]
		if remainingP <= 0 {
			break
		}
	}
	if remaining > 0 {
		counts[len(probs)-1] += remaining
	}
	return counts
}

// Phi computes the phi coefficient for a 2x2 table,
// (ad - bc) / sqrt((a+b)(c+d)(a+c)(b+d)), returning 0 when the denominator
// is zero or the table is not 2x2.
func Phi(t *ContingencyTable) float64 {
	if len(t.Counts) != 2 || len(t.Counts[0]) != 2 || len(t.Counts[1]) != 2 {
		return 0.0
	}
	a := float64(t.Counts[0][0])
	b := float64(t.Counts[0][1])
	c := float64(t.Counts[1][0])
	d := float64(t.Counts[1][1])

	den := math.Sqrt((a + b) * (c + d) * (a + c) * (b + d))
	if den == 0 {
		return 0.0
	}
	return (a*d - b*c) / den
}
