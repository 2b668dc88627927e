package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWilsonInterval_ZeroN(t *testing.T) {
	ci := WilsonInterval(0, 0, 0.05)
	assert.Zero(t, ci.Lower)
	assert.Zero(t, ci.Upper)
	assert.Zero(t, ci.Rate)
}

func TestWilsonInterval_KnownValue(t *testing.T) {
	// 8/10 at 95%: (0.4902, 0.9433)
	ci := WilsonInterval(8, 10, 0.05)
	assert.InDelta(t, 0.8, ci.Rate, 1e-12)
	assert.InDelta(t, 0.4902, ci.Lower, 0.0005)
	assert.InDelta(t, 0.9433, ci.Upper, 0.0005)
}

func TestWilsonInterval_BoundsAlwaysValid(t *testing.T) {
	for n := 0; n <= 50; n++ {
		for k := 0; k <= n; k++ {
			ci := WilsonInterval(k, n, 0.05)
			assert.GreaterOrEqual(t, ci.Lower, 0.0, "n=%d k=%d", n, k)
			assert.LessOrEqual(t, ci.Upper, 1.0, "n=%d k=%d", n, k)
			assert.LessOrEqual(t, ci.Lower, ci.Upper, "n=%d k=%d", n, k)
			if n > 0 {
				assert.GreaterOrEqual(t, ci.Rate, ci.Lower, "n=%d k=%d", n, k)
				assert.LessOrEqual(t, ci.Rate, ci.Upper, "n=%d k=%d", n, k)
			}
		}
	}
}

func TestWilsonInterval_ExtremesStayInside(t *testing.T) {
	// All failures and all successes still produce a non-degenerate interval.
	lo := WilsonInterval(0, 20, 0.05)
	assert.Zero(t, lo.Lower)
	assert.Greater(t, lo.Upper, 0.0)

	hi := WilsonInterval(20, 20, 0.05)
	assert.Less(t, hi.Lower, 1.0)
	assert.Equal(t, 1.0, hi.Upper)
}
