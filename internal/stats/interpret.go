package stats

import "math"

// Magnitude labels an effect size band.
type Magnitude string

const (
	MagnitudeNegligible Magnitude = "negligible"
	MagnitudeSmall      Magnitude = "small"
	MagnitudeMedium     Magnitude = "medium"
	MagnitudeLarge      Magnitude = "large"
)

// InterpretCramersV bands Cramér's V: <.1 negligible, <.2 small, <.4 medium.
func InterpretCramersV(v float64) Magnitude {
	return band(v, 0.1, 0.2, 0.4)
}

// InterpretPhi bands the phi coefficient: <.1 negligible, <.3 small, <.5 medium.
func InterpretPhi(phi float64) Magnitude {
	return band(phi, 0.1, 0.3, 0.5)
}

// InterpretCohensD bands Cohen's d: <.2 negligible, <.5 small, <.8 medium.
func InterpretCohensD(d float64) Magnitude {
	return band(d, 0.2, 0.5, 0.8)
}

// InterpretRankBiserial bands rank-biserial r: <.1 negligible, <.3 small, <.5 medium.
func InterpretRankBiserial(r float64) Magnitude {
	return band(r, 0.1, 0.3, 0.5)
}

func band(v, small, medium, large float64) Magnitude {
	a := math.Abs(v)
	switch {
	case a < small:
		return MagnitudeNegligible
	case a < medium:
		return MagnitudeSmall
	case a < large:
		return MagnitudeMedium
	default:
		return MagnitudeLarge
	}
}
