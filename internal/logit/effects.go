package logit

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/pluzgi/chatbot-study/internal/model"
)

// Prediction is a probability-scale model prediction with a delta-method
// standard error and a clamped 95% interval.
type Prediction struct {
	Probability float64 `json:"probability"`
	SE          float64 `json:"se"`
	Lower       float64 `json:"ci_lower"`
	Upper       float64 `json:"ci_upper"`
}

// PredictProbability evaluates the model at predictor vector x (constant
// first, same order as the fitted design). The SE is the delta-method
// p*(1-p)*sqrt(x' Cov x); interval bounds are clamped to [0, 1].
func (m *FittedModel) PredictProbability(x []float64) Prediction {
	var eta float64
	for j, v := range x {
		eta += v * m.Coefficients[j]
	}
	p := 1 / (1 + math.Exp(-eta))

	xv := mat.NewVecDense(len(x), x)
	var tmp mat.VecDense
	tmp.MulVec(m.Cov, xv)
	varLinear := mat.Dot(xv, &tmp)

	se := p * (1 - p) * math.Sqrt(varLinear)
	return Prediction{
		Probability: p,
		SE:          se,
		Lower:       math.Max(0, p-1.96*se),
		Upper:       math.Min(1, p+1.96*se),
	}
}

// PredictCondition evaluates the interaction model at one factor cell.
// Covariate columns, when present, are held at the supplied means.
func (m *FittedModel) PredictCondition(t, c float64, covariateMeans map[string]float64) Prediction {
	x := make([]float64, len(m.Names))
	for j, name := range m.Names {
		switch name {
		case PredConst:
			x[j] = 1
		case PredTransparency:
			x[j] = t
		case PredControl:
			x[j] = c
		case PredInteraction:
			x[j] = t * c
		default:
			x[j] = covariateMeans[name]
		}
	}
	return m.PredictProbability(x)
}

// MarginalEffect is an average marginal effect on the probability scale.
// The SE is the simplified sd/sqrt(n) over per-row effects, not the full
// delta method.
type MarginalEffect struct {
	Predictor string    `json:"predictor"`
	AME       float64   `json:"ame"`
	SE        float64   `json:"se"`
	Lower     float64   `json:"ci_lower"`
	Upper     float64   `json:"ci_upper"`
	Direction Direction `json:"direction"`
}

// AverageMarginalEffect averages, over the observed rows, the change in
// predicted probability when the binary predictor flips from 0 to 1 with
// the other factor and any covariates held at their observed values.
func (m *FittedModel) AverageMarginalEffect(rows []model.AnalysisRow, predictor string) MarginalEffect {
	usable := make([]model.AnalysisRow, 0, len(rows))
	for _, r := range rows {
		if r.TransparencyLevel == nil || r.ControlLevel == nil {
			continue
		}
		usable = append(usable, r)
	}
	cov := EncodeCovariates(usable)

	effects := make([]float64, 0, len(usable))
	for i, r := range usable {
		t := float64(*r.TransparencyLevel)
		c := float64(*r.ControlLevel)

		var p0, p1 float64
		if predictor == PredTransparency {
			p0 = m.pointProbability(0, c, cov, i)
			p1 = m.pointProbability(1, c, cov, i)
		} else {
			p0 = m.pointProbability(t, 0, cov, i)
			p1 = m.pointProbability(t, 1, cov, i)
		}
		effects = append(effects, p1-p0)
	}

	ame := stat.Mean(effects, nil)
	se := stat.StdDev(effects, nil) / math.Sqrt(float64(len(effects)))

	dir := DirectionDecreases
	if ame > 0 {
		dir = DirectionIncreases
	}
	return MarginalEffect{
		Predictor: predictor,
		AME:       ame,
		SE:        se,
		Lower:     ame - 1.96*se,
		Upper:     ame + 1.96*se,
		Direction: dir,
	}
}

// pointProbability evaluates the model with the factors set to (t, c) and
// every covariate column held at row i's observed coding.
func (m *FittedModel) pointProbability(t, c float64, cov Covariates, i int) float64 {
	var eta float64
	for j, name := range m.Names {
		switch name {
		case PredConst:
			eta += m.Coefficients[j]
		case PredTransparency:
			eta += m.Coefficients[j] * t
		case PredControl:
			eta += m.Coefficients[j] * c
		case PredInteraction:
			eta += m.Coefficients[j] * t * c
		case PredAge:
			eta += m.Coefficients[j] * cov.AgeOrdinal[i]
		case PredGender:
			eta += m.Coefficients[j] * cov.GenderCoded[i]
		case PredEducation:
			eta += m.Coefficients[j] * cov.EducationOrdinal[i]
		}
	}
	return 1 / (1 + math.Exp(-eta))
}

// SimpleEffect is one conditional contrast between two cells, on the
// percentage-point scale.
type SimpleEffect struct {
	Effect  string  `json:"effect"`
	From    string  `json:"from"`
	To      string  `json:"to"`
	DeltaPP float64 `json:"delta_pp"`
}

// SimpleEffects decomposes the 2x2 pattern into the four conditional
// contrasts: T within each control level, C within each transparency level.
func SimpleEffects(pA, pB, pC, pD float64) []SimpleEffect {
	return []SimpleEffect{
		{Effect: "T effect at C0 (low control)", From: "A", To: "B", DeltaPP: (pB - pA) * 100},
		{Effect: "T effect at C1 (high control)", From: "C", To: "D", DeltaPP: (pD - pC) * 100},
		{Effect: "C effect at T0 (low transparency)", From: "A", To: "C", DeltaPP: (pC - pA) * 100},
		{Effect: "C effect at T1 (high transparency)", From: "B", To: "D", DeltaPP: (pD - pB) * 100},
	}
}

// InteractionPattern labels the shape of the 2x2 interaction.
type InteractionPattern string

const (
	PatternSynergistic  InteractionPattern = "synergistic"
	PatternAntagonistic InteractionPattern = "antagonistic"
	PatternAdditive     InteractionPattern = "additive"
)

// InteractionSummary describes the interaction magnitude and its pattern.
type InteractionSummary struct {
	MagnitudePP float64            `json:"magnitude_pp"`
	Pattern     InteractionPattern `json:"pattern"`
	Significant bool               `json:"significant"`
}

// ClassifyInteraction compares the transparency effect across control
// levels. The magnitude (T effect at C1 minus T effect at C0, in percentage
// points) is matched against thresholdPP: above it the pattern is
// synergistic, below its negation antagonistic, otherwise additive.
func ClassifyInteraction(pA, pB, pC, pD, thresholdPP float64, significant bool) InteractionSummary {
	magnitude := ((pD - pC) - (pB - pA)) * 100
	pattern := PatternAdditive
	switch {
	case magnitude > thresholdPP:
		pattern = PatternSynergistic
	case magnitude < -thresholdPP:
		pattern = PatternAntagonistic
	}
	return InteractionSummary{MagnitudePP: magnitude, Pattern: pattern, Significant: significant}
}
