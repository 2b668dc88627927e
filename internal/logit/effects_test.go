package logit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluzgi/chatbot-study/internal/model"
)

func TestPredictProbability_Bounds(t *testing.T) {
	rows := factorialRows()
	m := fitSpecByName(t, rows, "model4")

	for _, cell := range [][2]float64{{0, 0}, {1, 0}, {0, 1}, {1, 1}} {
		pred := m.PredictCondition(cell[0], cell[1], nil)
		assert.GreaterOrEqual(t, pred.Lower, 0.0)
		assert.LessOrEqual(t, pred.Upper, 1.0)
		assert.GreaterOrEqual(t, pred.Probability, pred.Lower)
		assert.LessOrEqual(t, pred.Probability, pred.Upper)
		assert.Greater(t, pred.SE, 0.0)
	}
}

func TestPredictCondition_MatchesObservedRates(t *testing.T) {
	rows := factorialRows()
	m := fitSpecByName(t, rows, "model4")

	assert.InDelta(t, 0.20, m.PredictCondition(0, 0, nil).Probability, 1e-6)
	assert.InDelta(t, 0.60, m.PredictCondition(1, 1, nil).Probability, 1e-6)
}

func TestAverageMarginalEffect(t *testing.T) {
	rows := factorialRows()
	m := fitSpecByName(t, rows, "model4")

	// Equal cell sizes: AME_T = ((pB-pA) + (pD-pC)) / 2 = (0.20 + 0.28) / 2.
	ameT := m.AverageMarginalEffect(rows, PredTransparency)
	assert.InDelta(t, 0.24, ameT.AME, 1e-4)
	assert.Equal(t, DirectionIncreases, ameT.Direction)
	assert.Less(t, ameT.Lower, ameT.AME)
	assert.Greater(t, ameT.Upper, ameT.AME)

	// AME_C = ((pC-pA) + (pD-pB)) / 2 = (0.12 + 0.20) / 2.
	ameC := m.AverageMarginalEffect(rows, PredControl)
	assert.InDelta(t, 0.16, ameC.AME, 1e-4)
}

func TestAverageMarginalEffect_CovariatesAtObservedValues(t *testing.T) {
	// A model with an age term: flipping T must evaluate both predictions
	// with each row's own age coding, not with the covariate dropped.
	m := &FittedModel{
		Names:        []string{PredConst, PredTransparency, PredAge},
		Coefficients: []float64{0, 1, 2},
	}
	rows := []model.AnalysisRow{
		{Participant: model.Participant{Age: "18-24"}, TransparencyLevel: intp(0), ControlLevel: intp(0)},
		{Participant: model.Participant{Age: "35-44"}, TransparencyLevel: intp(1), ControlLevel: intp(0)},
	}

	sig := func(x float64) float64 { return 1 / (1 + math.Exp(-x)) }
	// Age codes 0 and 2: per-row effects sig(1+2a)-sig(2a).
	want := ((sig(1) - sig(0)) + (sig(5) - sig(4))) / 2

	ame := m.AverageMarginalEffect(rows, PredTransparency)
	assert.InDelta(t, want, ame.AME, 1e-12)
	assert.InDelta(t, 0.1211759689, ame.AME, 1e-9)
}

func TestSimpleEffects(t *testing.T) {
	effects := SimpleEffects(0.20, 0.40, 0.32, 0.60)
	require.Len(t, effects, 4)
	assert.InDelta(t, 20.0, effects[0].DeltaPP, 1e-9)  // B - A
	assert.InDelta(t, 28.0, effects[1].DeltaPP, 1e-9)  // D - C
	assert.InDelta(t, 12.0, effects[2].DeltaPP, 1e-9)  // C - A
	assert.InDelta(t, 20.0, effects[3].DeltaPP, 1e-9)  // D - B
}

func TestClassifyInteraction(t *testing.T) {
	// (D-C) - (B-A) = 28 - 20 = 8pp above the 5pp default threshold.
	s := ClassifyInteraction(0.20, 0.40, 0.32, 0.60, 5.0, true)
	assert.Equal(t, PatternSynergistic, s.Pattern)
	assert.InDelta(t, 8.0, s.MagnitudePP, 1e-9)

	anti := ClassifyInteraction(0.20, 0.50, 0.32, 0.50, 5.0, false)
	assert.Equal(t, PatternAntagonistic, anti.Pattern)

	add := ClassifyInteraction(0.20, 0.40, 0.30, 0.52, 5.0, false)
	assert.Equal(t, PatternAdditive, add.Pattern)
}

func TestHosmerLemeshow(t *testing.T) {
	// Spread of fitted values where the deciles are distinct; outcomes
	// drawn deterministically at the bin rate keep the fit adequate.
	n := 200
	y := make([]float64, n)
	fitted := make([]float64, n)
	for i := 0; i < n; i++ {
		p := 0.05 + 0.9*float64(i)/float64(n-1)
		fitted[i] = p
		if float64(i%10) < p*10 {
			y[i] = 1
		}
	}
	res := HosmerLemeshow(y, fitted)
	assert.Equal(t, 10, res.Groups)
	assert.Equal(t, 8, res.DF)
	assert.GreaterOrEqual(t, res.Chi2, 0.0)
	assert.GreaterOrEqual(t, res.PValue, 0.0)
	assert.LessOrEqual(t, res.PValue, 1.0)
}

func TestHosmerLemeshow_CollapsedEdges(t *testing.T) {
	// Four distinct fitted values collapse the decile edges.
	y := make([]float64, 100)
	fitted := make([]float64, 100)
	vals := []float64{0.2, 0.4, 0.32, 0.6}
	for i := range fitted {
		fitted[i] = vals[i%4]
	}
	res := HosmerLemeshow(y, fitted)
	assert.Less(t, res.Groups, 10)
	assert.Equal(t, res.Groups-2, res.DF)
}

func TestHosmerLemeshow_Degenerate(t *testing.T) {
	fitted := []float64{0.5, 0.5, 0.5, 0.5}
	res := HosmerLemeshow([]float64{0, 1, 0, 1}, fitted)
	assert.True(t, math.IsNaN(res.Chi2))
	assert.Equal(t, 1.0, res.PValue)
}

func TestVIF(t *testing.T) {
	rows := factorialRows()
	d, err := BuildDesign(rows, NestedSpecs()[2]) // T + C, orthogonal by design
	require.NoError(t, err)

	entries := VIF(d)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.InDelta(t, 1.0, e.VIF, 1e-6, e.Name)
		assert.False(t, e.Flagged, e.Name)
	}
}

func TestVIF_InteractionInflates(t *testing.T) {
	rows := factorialRows()
	d, err := BuildDesign(rows, NestedSpecs()[3])
	require.NoError(t, err)

	entries := VIF(d)
	require.Len(t, entries, 3)
	for _, e := range entries {
		assert.Greater(t, e.VIF, 1.0, e.Name)
	}
}
