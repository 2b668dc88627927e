package stats

import (
	"math"
	"sort"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// shapiroMaxN caps the sample handed to the W computation. Larger samples
// are subsampled without replacement under a fixed seed so the gate stays
// reproducible.
const (
	shapiroMaxN    = 5000
	shapiroSubSeed = 42
)

// ShapiroResult is the Shapiro-Wilk normality test outcome.
type ShapiroResult struct {
	W      float64 `json:"w"`
	PValue float64 `json:"p_value"`
	N      int     `json:"n"`
}

// ShapiroWilk tests the sample for normality using Royston's AS R94
// approximation. Samples below three observations, or with zero spread,
// return NaN for both W and the p-value; callers comparing the p-value
// against a threshold then fall through to the rank-based path.
func ShapiroWilk(x []float64) ShapiroResult {
	res := ShapiroResult{W: math.NaN(), PValue: math.NaN(), N: len(x)}
	if len(x) < 3 {
		return res
	}

	sample := x
	if len(x) > shapiroMaxN {
		sample = subsample(x, shapiroMaxN, shapiroSubSeed)
	}

	sorted := make([]float64, len(sample))
	copy(sorted, sample)
	sort.Float64s(sorted)

	n := len(sorted)
	if sorted[0] == sorted[n-1] {
		return res
	}

	a := roystonCoefficients(n)

	var mean float64
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(n)

	var num, den float64
	for i, v := range sorted {
		num += a[i] * v
		den += (v - mean) * (v - mean)
	}
	if den == 0 {
		return res
	}

	w := num * num / den
	if w > 1 {
		w = 1
	}
	res.W = w
	res.PValue = roystonPValue(w, n)
	return res
}

// roystonCoefficients builds the normalized order-statistic weights a_1..a_n.
func roystonCoefficients(n int) []float64 {
	m := make([]float64, n)
	var ssq float64
	for i := 0; i < n; i++ {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (float64(n) + 0.25))
		ssq += m[i] * m[i]
	}

	a := make([]float64, n)
	rsn := 1 / math.Sqrt(float64(n))

	if n == 3 {
		a[0] = -math.Sqrt(0.5)
		a[2] = math.Sqrt(0.5)
		return a
	}

	an := poly(rsn, -2.706056, 4.434685, -2.071190, -0.147981, 0.221157, 0) + m[n-1]/math.Sqrt(ssq)
	if n <= 5 {
		phi := (ssq - 2*m[n-1]*m[n-1]) / (1 - 2*an*an)
		for i := 1; i < n-1; i++ {
			a[i] = m[i] / math.Sqrt(phi)
		}
		a[n-1] = an
		a[0] = -an
		return a
	}

	an1 := poly(rsn, -3.582633, 5.682633, -1.752461, -0.293762, 0.042981, 0) + m[n-2]/math.Sqrt(ssq)
	phi := (ssq - 2*m[n-1]*m[n-1] - 2*m[n-2]*m[n-2]) / (1 - 2*an*an - 2*an1*an1)
	for i := 2; i < n-2; i++ {
		a[i] = m[i] / math.Sqrt(phi)
	}
	a[n-1] = an
	a[n-2] = an1
	a[0] = -an
	a[1] = -an1
	return a
}

// poly evaluates c5*x^5 + c4*x^4 + c3*x^3 + c2*x^2 + c1*x + c0.
func poly(x, c5, c4, c3, c2, c1, c0 float64) float64 {
	return ((((c5*x+c4)*x+c3)*x+c2)*x+c1)*x + c0
}

// roystonPValue maps W to an upper-tail p-value using the AS R94 normalizing
// transforms.
func roystonPValue(w float64, n int) float64 {
	switch {
	case n == 3:
		p := 6 / math.Pi * (math.Asin(math.Sqrt(w)) - math.Asin(math.Sqrt(0.75)))
		return math.Max(0, math.Min(1, p))
	case n <= 11:
		fn := float64(n)
		gamma := -2.273 + 0.459*fn
		mu := 0.5440 - 0.39978*fn + 0.025054*fn*fn - 0.0006714*fn*fn*fn
		sigma := math.Exp(1.3822 - 0.77857*fn + 0.062767*fn*fn - 0.0020322*fn*fn*fn)
		arg := gamma - math.Log(1-w)
		if arg <= 0 {
			return 0
		}
		z := (-math.Log(arg) - mu) / sigma
		return distuv.UnitNormal.Survival(z)
	default:
		ln := math.Log(float64(n))
		mu := -1.5861 - 0.31082*ln - 0.083751*ln*ln + 0.0038915*ln*ln*ln
		sigma := math.Exp(-0.4803 - 0.082676*ln + 0.0030302*ln*ln)
		z := (math.Log(1-w) - mu) / sigma
		return distuv.UnitNormal.Survival(z)
	}
}

// subsample draws k values without replacement under a fixed seed.
func subsample(x []float64, k int, seed uint64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	idx := rng.Perm(len(x))[:k]
	out := make([]float64, k)
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}
