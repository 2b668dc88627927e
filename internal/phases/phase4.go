package phases

import (
	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/dataset"
	"github.com/pluzgi/chatbot-study/internal/logit"
	"github.com/pluzgi/chatbot-study/internal/model"
	"github.com/pluzgi/chatbot-study/internal/report"
)

// HypothesisVerdict summarizes the synergy hypothesis against the fitted
// interaction.
type HypothesisVerdict string

const (
	VerdictSupported            HypothesisVerdict = "SUPPORTED"
	VerdictNotSupportedOpposite HypothesisVerdict = "NOT SUPPORTED (antagonistic)"
	VerdictNotSupported         HypothesisVerdict = "NOT SUPPORTED"
)

// Phase4Report holds the probability-scale effect decomposition of the
// interaction model.
type Phase4Report struct {
	Predictions   []PredictedVsObserved    `json:"predictions"`
	Marginal      []logit.MarginalEffect   `json:"marginal_effects"`
	SimpleEffects []logit.SimpleEffect     `json:"simple_effects"`
	Interaction   logit.InteractionSummary `json:"interaction"`
	Verdict       HypothesisVerdict        `json:"verdict"`
	FitError      string                   `json:"fit_error,omitempty"`
}

// Phase4 fits the interaction model and reports per-condition predicted
// probabilities with delta-method intervals, average marginal effects for
// both factors, the four simple effects, and the interaction pattern with
// the hypothesis verdict.
func Phase4(fr dataset.FilterResult, design model.StudyDesign) *Phase4Report {
	log := zap.L().With(zap.String("phase", "effects"))
	log.Info("phase4: starting", zap.Int("n", fr.FinalN))

	rows := fr.Rows
	rep := &Phase4Report{}

	var spec logit.Spec
	for _, s := range logit.NestedSpecs() {
		if s.Name == "model4" {
			spec = s
		}
	}
	m, err := logit.FitSpec(rows, spec)
	if err != nil {
		log.Warn("phase4: interaction model failed", zap.Error(err))
		rep.FitError = err.Error()
		return rep
	}

	byCond := dataset.ByCondition(rows)
	cellProb := map[model.Condition]float64{}
	for _, c := range model.Conditions {
		lv, ok := design.Levels(c)
		if !ok {
			continue
		}
		group := byCond[c]
		observed := 0.0
		if len(group) > 0 {
			observed = float64(countDonors(group)) / float64(len(group))
		}
		pred := m.PredictCondition(float64(lv.Transparency), float64(lv.Control), nil)
		cellProb[c] = pred.Probability
		rep.Predictions = append(rep.Predictions, PredictedVsObserved{
			Condition: string(c),
			N:         len(group),
			Observed:  observed,
			Predicted: pred,
		})
	}

	rep.Marginal = []logit.MarginalEffect{
		m.AverageMarginalEffect(rows, logit.PredTransparency),
		m.AverageMarginalEffect(rows, logit.PredControl),
	}

	pA, pB := cellProb[model.ConditionA], cellProb[model.ConditionB]
	pC, pD := cellProb[model.ConditionC], cellProb[model.ConditionD]
	rep.SimpleEffects = logit.SimpleEffects(pA, pB, pC, pD)

	significant := interactionSignificant(m, design.Alpha)
	rep.Interaction = logit.ClassifyInteraction(pA, pB, pC, pD, design.InteractionThresholdPP, significant)
	rep.Verdict = verdict(rep.Interaction)

	log.Info("phase4: done",
		zap.String("pattern", string(rep.Interaction.Pattern)),
		zap.String("verdict", string(rep.Verdict)))
	return rep
}

func interactionSignificant(m *logit.FittedModel, alpha float64) bool {
	for _, c := range m.CoefficientTable() {
		if c.Name == logit.PredInteraction {
			return c.PValue < alpha
		}
	}
	return false
}

func verdict(s logit.InteractionSummary) HypothesisVerdict {
	switch {
	case s.Significant && s.MagnitudePP > 0:
		return VerdictSupported
	case s.Significant && s.MagnitudePP < 0:
		return VerdictNotSupportedOpposite
	default:
		return VerdictNotSupported
	}
}

// Tables renders the report grids.
func (p *Phase4Report) Tables() []report.Table {
	pred := report.Table{Name: "predicted_probabilities", Columns: []string{
		"condition", "n", "observed", "predicted", "se", "ci_lower", "ci_upper",
	}}
	for _, r := range p.Predictions {
		pred.AddRow(r.Condition, r.N, r.Observed, r.Predicted.Probability, r.Predicted.SE, r.Predicted.Lower, r.Predicted.Upper)
	}

	ame := report.Table{Name: "marginal_effects", Columns: []string{
		"predictor", "ame_pp", "se_pp", "ci_lower_pp", "ci_upper_pp", "direction",
	}}
	for _, e := range p.Marginal {
		ame.AddRow(e.Predictor, e.AME*100, e.SE*100, e.Lower*100, e.Upper*100, string(e.Direction))
	}

	simple := report.Table{Name: "simple_effects", Columns: []string{"effect", "from", "to", "delta_pp"}}
	for _, e := range p.SimpleEffects {
		simple.AddRow(e.Effect, e.From, e.To, e.DeltaPP)
	}

	inter := report.Table{Name: "interaction", Columns: []string{"magnitude_pp", "pattern", "significant", "verdict"}}
	inter.AddRow(p.Interaction.MagnitudePP, string(p.Interaction.Pattern), p.Interaction.Significant, string(p.Verdict))

	return []report.Table{pred, ame, simple, inter}
}
