package logit

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluzgi/chatbot-study/internal/model"
)

func intp(v int) *int { return &v }

// cellRows builds rows for one factorial cell with the given donor count.
func cellRows(cond model.Condition, t, c, donors, total int) []model.AnalysisRow {
	rows := make([]model.AnalysisRow, 0, total)
	for i := 0; i < total; i++ {
		d := 0
		if i < donors {
			d = 1
		}
		rows = append(rows, model.AnalysisRow{
			Participant: model.Participant{
				Condition:        cond,
				DonationDecision: intp(d),
				Age:              "25-34",
				Gender:           "female",
				Education:        "bachelor",
			},
			TransparencyLevel: intp(t),
			ControlLevel:      intp(c),
		})
	}
	return rows
}

// factorialRows is the A:5/25 B:10/25 C:8/25 D:15/25 layout used throughout.
func factorialRows() []model.AnalysisRow {
	rows := cellRows(model.ConditionA, 0, 0, 5, 25)
	rows = append(rows, cellRows(model.ConditionB, 1, 0, 10, 25)...)
	rows = append(rows, cellRows(model.ConditionC, 0, 1, 8, 25)...)
	rows = append(rows, cellRows(model.ConditionD, 1, 1, 15, 25)...)
	return rows
}

func fitSpecByName(t *testing.T, rows []model.AnalysisRow, name string) *FittedModel {
	t.Helper()
	for _, spec := range NestedSpecs() {
		if spec.Name == name {
			m, err := FitSpec(rows, spec)
			require.NoError(t, err)
			return m
		}
	}
	t.Fatalf("unknown spec %s", name)
	return nil
}

func TestFit_SaturatedModelReproducesCellRates(t *testing.T) {
	rows := factorialRows()
	m4 := fitSpecByName(t, rows, "model4")
	require.True(t, m4.Converged)

	// The interaction model is saturated for a 2x2 design, so the fitted
	// probabilities must equal the observed cell rates.
	assert.InDelta(t, 0.20, m4.pointProbability(0, 0, Covariates{}, 0), 1e-6)
	assert.InDelta(t, 0.40, m4.pointProbability(1, 0, Covariates{}, 0), 1e-6)
	assert.InDelta(t, 0.32, m4.pointProbability(0, 1, Covariates{}, 0), 1e-6)
	assert.InDelta(t, 0.60, m4.pointProbability(1, 1, Covariates{}, 0), 1e-6)

	// Intercept equals the log-odds of the reference cell.
	assert.InDelta(t, math.Log(0.20/0.80), m4.Coefficients[0], 1e-6)
}

func TestFit_SingleFactorModel(t *testing.T) {
	rows := factorialRows()
	m1 := fitSpecByName(t, rows, "model1")
	require.True(t, m1.Converged)

	// T pools B+D vs A+C: 25/50 vs 13/50.
	assert.InDelta(t, 0.26, m1.pointProbability(0, 0, Covariates{}, 0), 1e-6)
	assert.InDelta(t, 0.50, m1.pointProbability(1, 0, Covariates{}, 0), 1e-6)
	assert.Equal(t, 1, m1.DFModel)
}

func TestFit_NullLogLikelihood(t *testing.T) {
	rows := factorialRows()
	m := fitSpecByName(t, rows, "model1")

	// 38/100 donors overall.
	p := 0.38
	want := 100 * (p*math.Log(p) + (1-p)*math.Log(1-p))
	assert.InDelta(t, want, m.LLNull, 1e-9)
	assert.GreaterOrEqual(t, m.LogLik, m.LLNull)
}

func TestLikelihoodRatioTest_NestedChain(t *testing.T) {
	rows := factorialRows()
	m3 := fitSpecByName(t, rows, "model3")
	m4 := fitSpecByName(t, rows, "model4")
	m5 := fitSpecByName(t, rows, "model5")

	lrt := LikelihoodRatioTest(m3, m4)
	assert.GreaterOrEqual(t, lrt.Chi2, 0.0)
	assert.Equal(t, 1, lrt.DF)
	assert.GreaterOrEqual(t, lrt.PValue, 0.0)
	assert.LessOrEqual(t, lrt.PValue, 1.0)

	lrt45 := LikelihoodRatioTest(m4, m5)
	assert.Equal(t, 3, lrt45.DF)
	assert.GreaterOrEqual(t, lrt45.Chi2, 0.0)
}

func TestNagelkerkeR2_Bounds(t *testing.T) {
	rows := factorialRows()
	for _, name := range []string{"model1", "model3", "model4"} {
		m := fitSpecByName(t, rows, name)
		r2 := NagelkerkeR2(m)
		assert.GreaterOrEqual(t, r2, 0.0, name)
		assert.LessOrEqual(t, r2, 1.0, name)
	}
}

func TestCoefficientTable(t *testing.T) {
	rows := factorialRows()
	m := fitSpecByName(t, rows, "model4")
	table := m.CoefficientTable()
	require.Len(t, table, 4)

	for _, c := range table {
		assert.InDelta(t, math.Exp(c.Beta), c.OddsRatio, 1e-9)
		assert.Less(t, c.ORLower, c.OddsRatio)
		assert.Greater(t, c.ORUpper, c.OddsRatio)
		assert.GreaterOrEqual(t, c.PValue, 0.0)
		assert.LessOrEqual(t, c.PValue, 1.0)
		if c.OddsRatio > 1 {
			assert.Equal(t, DirectionIncreases, c.Direction)
		} else if c.OddsRatio < 1 {
			assert.Equal(t, DirectionDecreases, c.Direction)
		}
	}
}

func TestEncodeCovariates(t *testing.T) {
	rows := []model.AnalysisRow{
		{Participant: model.Participant{Age: "18-24", Gender: "male", Education: "primary"}},
		{Participant: model.Participant{Age: "65+", Gender: "female", Education: "doctorate"}},
		{Participant: model.Participant{Age: "unknown", Gender: "prefer-not-to-say", Education: ""}},
	}
	cov := EncodeCovariates(rows)

	assert.Equal(t, 0.0, cov.AgeOrdinal[0])
	assert.Equal(t, 5.0, cov.AgeOrdinal[1])
	// Median of the two known codes imputes the unknown.
	assert.Equal(t, 2.5, cov.AgeOrdinal[2])

	assert.Equal(t, 0.0, cov.GenderCoded[0])
	assert.Equal(t, 1.0, cov.GenderCoded[1])
	assert.Equal(t, 0.5, cov.GenderCoded[2])

	assert.Equal(t, 1.0, cov.EducationOrdinal[0])
	assert.Equal(t, 6.0, cov.EducationOrdinal[1])
	assert.Equal(t, 3.5, cov.EducationOrdinal[2])
}

func TestBuildDesign_DropsUnusableRows(t *testing.T) {
	rows := factorialRows()
	rows = append(rows, model.AnalysisRow{Participant: model.Participant{Condition: "Z"}})

	d, err := BuildDesign(rows, NestedSpecs()[3])
	require.NoError(t, err)
	n, k := d.X.Dims()
	assert.Equal(t, 100, n)
	assert.Equal(t, 4, k)
	assert.Equal(t, []string{PredConst, PredTransparency, PredControl, PredInteraction}, d.Names)
}

func TestBuildDesign_Empty(t *testing.T) {
	_, err := BuildDesign(nil, NestedSpecs()[0])
	assert.Error(t, err)
}
