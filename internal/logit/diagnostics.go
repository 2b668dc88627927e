package logit

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// LRTResult is a likelihood ratio test between nested models.
type LRTResult struct {
	Reduced  string  `json:"reduced"`
	Full     string  `json:"full"`
	Chi2     float64 `json:"chi2"`
	DF       int     `json:"df"`
	PValue   float64 `json:"p_value"`
	DeltaAIC float64 `json:"delta_aic"`
}

// LikelihoodRatioTest compares a reduced model against a full one with
// chi2 = 2*(LL_full - LL_reduced) on the parameter-count difference. A
// non-positive df yields p=1.
func LikelihoodRatioTest(reduced, full *FittedModel) LRTResult {
	res := LRTResult{
		Reduced:  reduced.Name,
		Full:     full.Name,
		Chi2:     2 * (full.LogLik - reduced.LogLik),
		DF:       full.DFModel - reduced.DFModel,
		PValue:   1,
		DeltaAIC: full.AIC - reduced.AIC,
	}
	if res.Chi2 < 0 {
		res.Chi2 = 0
	}
	if res.DF > 0 {
		res.PValue = distuv.ChiSquared{K: float64(res.DF)}.Survival(res.Chi2)
	}
	return res
}

// NagelkerkeR2 rescales the Cox-Snell pseudo R² to a [0, 1] range.
func NagelkerkeR2(m *FittedModel) float64 {
	n := float64(m.N)
	coxSnell := 1 - math.Exp(2*(m.LLNull-m.LogLik)/n)
	maxCS := 1 - math.Exp(2*m.LLNull/n)
	if maxCS <= 0 {
		return 0
	}
	r2 := coxSnell / maxCS
	return math.Max(0, math.Min(1, r2))
}

// HLResult is a Hosmer-Lemeshow goodness-of-fit test.
type HLResult struct {
	Chi2   float64 `json:"chi2"`
	DF     int     `json:"df"`
	PValue float64 `json:"p_value"`
	Groups int     `json:"groups"`
}

// HosmerLemeshow bins observations into (at most) ten groups by fitted
// probability quantiles, collapsing duplicate bin edges, and compares
// observed and expected event counts on g-2 degrees of freedom. Fewer than
// three surviving groups makes the test undefined: NaN chi2 with p=1.
func HosmerLemeshow(y, fitted []float64) HLResult {
	const bins = 10

	sorted := make([]float64, len(fitted))
	copy(sorted, fitted)
	sort.Float64s(sorted)

	edges := make([]float64, 0, bins-1)
	for i := 1; i < bins; i++ {
		q := stat.Quantile(float64(i)/bins, stat.LinInterp, sorted, nil)
		if len(edges) == 0 || q > edges[len(edges)-1] {
			edges = append(edges, q)
		}
	}
	g := len(edges) + 1
	if g < 3 {
		return HLResult{Chi2: math.NaN(), PValue: 1, Groups: g}
	}

	obs1 := make([]float64, g)
	exp1 := make([]float64, g)
	count := make([]float64, g)
	for i, p := range fitted {
		b := sort.SearchFloat64s(edges, p)
		// SearchFloat64s puts p == edge into the lower bin's upper edge
		// slot; shift boundary values up to match half-open intervals.
		if b < len(edges) && p == edges[b] {
			b++
		}
		if b >= g {
			b = g - 1
		}
		obs1[b] += y[i]
		exp1[b] += p
		count[b]++
	}

	var chi2 float64
	for b := 0; b < g; b++ {
		if count[b] == 0 {
			continue
		}
		e1 := exp1[b]
		e0 := count[b] - e1
		o1 := obs1[b]
		o0 := count[b] - o1
		if e1 > 0 {
			chi2 += (o1 - e1) * (o1 - e1) / e1
		}
		if e0 > 0 {
			chi2 += (o0 - e0) * (o0 - e0) / e0
		}
	}

	df := g - 2
	return HLResult{
		Chi2:   chi2,
		DF:     df,
		PValue: distuv.ChiSquared{K: float64(df)}.Survival(chi2),
		Groups: g,
	}
}

// VIFEntry is the variance inflation factor for one predictor. Flagged
// marks VIF > 5, the conventional multicollinearity concern threshold.
type VIFEntry struct {
	Name    string  `json:"variable"`
	VIF     float64 `json:"vif"`
	Flagged bool    `json:"flagged"`
}

// VIF computes variance inflation factors for every non-constant column of
// the design by regressing it on the remaining columns. Perfectly collinear
// columns report +Inf.
func VIF(d *Design) []VIFEntry {
	n, k := d.X.Dims()
	out := make([]VIFEntry, 0, k-1)

	for j := 0; j < k; j++ {
		if d.Names[j] == PredConst {
			continue
		}

		target := mat.NewVecDense(n, nil)
		others := mat.NewDense(n, k-1, nil)
		for i := 0; i < n; i++ {
			target.SetVec(i, d.X.At(i, j))
			col := 0
			for jj := 0; jj < k; jj++ {
				if jj == j {
					continue
				}
				others.Set(i, col, d.X.At(i, jj))
				col++
			}
		}

		r2 := olsR2(target, others)
		vif := math.Inf(1)
		if r2 < 1 {
			vif = 1 / (1 - r2)
		}
		out = append(out, VIFEntry{Name: d.Names[j], VIF: vif, Flagged: vif > 5})
	}
	return out
}

// olsR2 returns the R² of regressing y on x by least squares. A rank
// deficient x counts as perfect fit.
func olsR2(y *mat.VecDense, x *mat.Dense) float64 {
	n, k := x.Dims()

	var qr mat.QR
	qr.Factorize(x)
	coef := mat.NewDense(k, 1, nil)
	if err := qr.SolveTo(coef, false, y); err != nil {
		return 1
	}

	var fitted mat.VecDense
	fitted.MulVec(x, coef.ColView(0))

	mean := mat.Sum(y) / float64(n)
	var ssTot, ssRes float64
	for i := 0; i < n; i++ {
		d := y.AtVec(i) - mean
		ssTot += d * d
		r := y.AtVec(i) - fitted.AtVec(i)
		ssRes += r * r
	}
	if ssTot == 0 {
		return 1
	}
	return 1 - ssRes/ssTot
}
