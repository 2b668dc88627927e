// Package stats implements the reusable statistical formulas shared by the
// analysis phases: proportion intervals, association measures, and
// group-difference effect sizes with their gates.
package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ProportionCI is a two-sided confidence interval for a binomial proportion.
type ProportionCI struct {
	Successes int     `json:"successes"`
	N         int     `json:"n"`
	Rate      float64 `json:"rate"`
	Lower     float64 `json:"lower"`
	Upper     float64 `json:"upper"`
}

// WilsonInterval computes the Wilson score interval for successes/n at
// significance level alpha. n=0 returns the degenerate (0, 0) interval.
// Bounds are clamped to [0, 1].
func WilsonInterval(successes, n int, alpha float64) ProportionCI {
	ci := ProportionCI{Successes: successes, N: n}
	if n == 0 {
		return ci
	}

	p := float64(successes) / float64(n)
	nf := float64(n)
	z := distuv.UnitNormal.Quantile(1 - alpha/2)

	denominator := 1 + z*z/nf
	centre := p + z*z/(2*nf)
	margin := z * math.Sqrt((p*(1-p)+z*z/(4*nf))/nf)

	ci.Rate = p
	ci.Lower = math.Max(0, (centre-margin)/denominator)
	ci.Upper = math.Min(1, (centre+margin)/denominator)
	return ci
}
