package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// EffectSize pairs a point estimate with its 95% confidence interval.
type EffectSize struct {
	Estimate float64 `json:"estimate"`
	Lower    float64 `json:"ci_lower"`
	Upper    float64 `json:"ci_upper"`
}

// CohensD computes the pooled-variance standardized mean difference
// (x - y) / s_pooled with sample variances (ddof=1). The interval uses the
// Hedges-Olkin large-sample standard error. A zero pooled variance yields
// d=0 with a degenerate zero interval; groups with fewer than two
// observations return NaN throughout.
func CohensD(x, y []float64) EffectSize {
	n1, n2 := float64(len(x)), float64(len(y))
	if n1 < 2 || n2 < 2 {
		return EffectSize{Estimate: math.NaN(), Lower: math.NaN(), Upper: math.NaN()}
	}

	m1, v1 := stat.MeanVariance(x, nil)
	m2, v2 := stat.MeanVariance(y, nil)
	pooled := ((n1-1)*v1 + (n2-1)*v2) / (n1 + n2 - 2)
	if pooled <= 0 {
		return EffectSize{}
	}

	d := (m1 - m2) / math.Sqrt(pooled)
	se := math.Sqrt((n1+n2)/(n1*n2) + d*d/(2*(n1+n2)))
	z := distuv.UnitNormal.Quantile(0.975)
	return EffectSize{Estimate: d, Lower: d - z*se, Upper: d + z*se}
}

// TTestResult is an independent two-sample test outcome.
type TTestResult struct {
	Statistic float64 `json:"statistic"`
	DF        float64 `json:"df"`
	PValue    float64 `json:"p_value"`
	MeanX     float64 `json:"mean_x"`
	MeanY     float64 `json:"mean_y"`
}

// TTestInd is the pooled-variance independent-samples t test with a
// two-sided p-value. Degenerate input (a group below two observations or
// zero pooled variance) yields NaN statistics with p=1.
func TTestInd(x, y []float64) TTestResult {
	n1, n2 := float64(len(x)), float64(len(y))
	if n1 < 2 || n2 < 2 {
		return TTestResult{Statistic: math.NaN(), PValue: 1}
	}

	m1, v1 := stat.MeanVariance(x, nil)
	m2, v2 := stat.MeanVariance(y, nil)
	res := TTestResult{MeanX: m1, MeanY: m2, DF: n1 + n2 - 2}

	pooled := ((n1-1)*v1 + (n2-1)*v2) / res.DF
	se := math.Sqrt(pooled * (1/n1 + 1/n2))
	if se == 0 {
		res.Statistic = math.NaN()
		res.PValue = 1
		return res
	}

	res.Statistic = (m1 - m2) / se
	t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: res.DF}
	res.PValue = 2 * t.Survival(math.Abs(res.Statistic))
	return res
}

// MannWhitneyResult is the rank-sum test outcome. U is the statistic for
// the first group; the p-value comes from the tie-corrected normal
// approximation with continuity correction.
type MannWhitneyResult struct {
	U      float64 `json:"u"`
	Z      float64 `json:"z"`
	PValue float64 `json:"p_value"`
}

// MannWhitneyU runs the two-sided Mann-Whitney U test. Empty groups yield
// U=0 with p=1.
func MannWhitneyU(x, y []float64) MannWhitneyResult {
	n1, n2 := float64(len(x)), float64(len(y))
	if n1 == 0 || n2 == 0 {
		return MannWhitneyResult{PValue: 1}
	}

	type obs struct {
		v     float64
		first bool
	}
	all := make([]obs, 0, len(x)+len(y))
	for _, v := range x {
		all = append(all, obs{v, true})
	}
	for _, v := range y {
		all = append(all, obs{v, false})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].v < all[j].v })

	// Midranks with a tie-size tally for the variance correction.
	ranks := make([]float64, len(all))
	var tieTerm float64
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		mid := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[k] = mid
		}
		t := float64(j - i)
		tieTerm += t*t*t - t
		i = j
	}

	var r1 float64
	for i, o := range all {
		if o.first {
			r1 += ranks[i]
		}
	}
	u := r1 - n1*(n1+1)/2

	n := n1 + n2
	mu := n1 * n2 / 2
	variance := n1 * n2 / 12 * (n + 1 - tieTerm/(n*(n-1)))
	if variance <= 0 {
		return MannWhitneyResult{U: u, PValue: 1}
	}

	z := (u - mu - math.Copysign(0.5, u-mu)) / math.Sqrt(variance)
	if u == mu {
		z = 0
	}
	return MannWhitneyResult{
		U:      u,
		Z:      z,
		PValue: 2 * distuv.UnitNormal.Survival(math.Abs(z)),
	}
}

// RankBiserial converts a Mann-Whitney U into the rank-biserial correlation
// r = 2U/(n1*n2) - 1 with a Fisher-z interval. The estimate is clamped to
// ±0.9999 before the transform; samples with n1+n2 <= 3 get a [-1, 1]
// interval.
func RankBiserial(u float64, n1, n2 int) EffectSize {
	if n1 == 0 || n2 == 0 {
		return EffectSize{Estimate: math.NaN(), Lower: math.NaN(), Upper: math.NaN()}
	}
	r := 2*u/(float64(n1)*float64(n2)) - 1

	n := float64(n1 + n2)
	if n <= 3 {
		return EffectSize{Estimate: r, Lower: -1, Upper: 1}
	}

	clamped := math.Max(-0.9999, math.Min(0.9999, r))
	fz := math.Atanh(clamped)
	se := 1 / math.Sqrt(n-3)
	z := distuv.UnitNormal.Quantile(0.975)
	return EffectSize{
		Estimate: r,
		Lower:    math.Tanh(fz - z*se),
		Upper:    math.Tanh(fz + z*se),
	}
}

// GroupComparison records which two-sample test was selected and its
// outcome. Test is "t" when both groups passed the Shapiro-Wilk normality
// screen, "mann-whitney" otherwise.
type GroupComparison struct {
	Test       string     `json:"test"`
	NormalX    bool       `json:"normal_x"`
	NormalY    bool       `json:"normal_y"`
	Statistic  float64    `json:"statistic"`
	PValue     float64    `json:"p_value"`
	Effect     EffectSize `json:"effect"`
	EffectName string     `json:"effect_name"`
	Magnitude  Magnitude  `json:"magnitude"`
	NX         int        `json:"n_x"`
	NY         int        `json:"n_y"`
}

// CompareGroups screens both groups with Shapiro-Wilk at alpha and runs the
// parametric path (t test, Cohen's d) when both pass, otherwise the
// rank-based path (Mann-Whitney U, rank-biserial r).
func CompareGroups(x, y []float64, alpha float64) GroupComparison {
	cmp := GroupComparison{NX: len(x), NY: len(y)}
	cmp.NormalX = ShapiroWilk(x).PValue > alpha
	cmp.NormalY = ShapiroWilk(y).PValue > alpha

	if cmp.NormalX && cmp.NormalY {
		t := TTestInd(x, y)
		cmp.Test = "t"
		cmp.Statistic = t.Statistic
		cmp.PValue = t.PValue
		cmp.Effect = CohensD(x, y)
		cmp.EffectName = "cohens_d"
		cmp.Magnitude = InterpretCohensD(cmp.Effect.Estimate)
		return cmp
	}

	mw := MannWhitneyU(x, y)
	cmp.Test = "mann-whitney"
	cmp.Statistic = mw.U
	cmp.PValue = mw.PValue
	cmp.Effect = RankBiserial(mw.U, len(x), len(y))
	cmp.EffectName = "rank_biserial"
	cmp.Magnitude = InterpretRankBiserial(cmp.Effect.Estimate)
	return cmp
}
