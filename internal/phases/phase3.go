package phases

import (
	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/dataset"
	"github.com/pluzgi/chatbot-study/internal/logit"
	"github.com/pluzgi/chatbot-study/internal/model"
	"github.com/pluzgi/chatbot-study/internal/report"
	"github.com/pluzgi/chatbot-study/internal/stats"
)

// ModelResult bundles one fitted model with its diagnostics.
type ModelResult struct {
	Model        *logit.FittedModel  `json:"model"`
	Coefficients []logit.Coefficient `json:"coefficients"`
	NagelkerkeR2 float64             `json:"nagelkerke_r2"`
	HosmerLem    logit.HLResult      `json:"hosmer_lemeshow"`
	Error        string              `json:"error,omitempty"`
}

// FactorEffect carries the factor-level effect sizes computed alongside the
// models: Cohen's d on the 0/1 outcome and phi from the 2x2 table.
type FactorEffect struct {
	Factor  string           `json:"factor"`
	D       stats.EffectSize `json:"cohens_d"`
	DBand   stats.Magnitude  `json:"d_magnitude"`
	Phi     float64          `json:"phi"`
	PhiBand stats.Magnitude  `json:"phi_magnitude"`
}

// PredictedVsObserved compares model-4 predictions with observed cell rates.
type PredictedVsObserved struct {
	Condition string           `json:"condition"`
	N         int              `json:"n"`
	Observed  float64          `json:"observed"`
	Predicted logit.Prediction `json:"predicted"`
}

// Phase3Report holds the nested logistic regression suite.
type Phase3Report struct {
	Models       []ModelResult         `json:"models"`
	LRTs         []logit.LRTResult     `json:"likelihood_ratio_tests"`
	VIF          []logit.VIFEntry      `json:"vif"`
	Effects      []FactorEffect        `json:"factor_effects"`
	PredVsObs    []PredictedVsObserved `json:"predicted_vs_observed"`
	BestByAIC    string                `json:"best_by_aic"`
	AllConverged bool                  `json:"all_converged"`
}

// Phase3 fits the five nested donation models, runs the planned likelihood
// ratio chain, checks multicollinearity on the full model, and reports the
// factor-level effect sizes plus predicted-versus-observed cell rates.
func Phase3(fr dataset.FilterResult, design model.StudyDesign) *Phase3Report {
	log := zap.L().With(zap.String("phase", "regression"))
	log.Info("phase3: starting", zap.Int("n", fr.FinalN))

	rows := fr.Rows
	rep := &Phase3Report{AllConverged: true}

	fitted := make(map[string]*logit.FittedModel)
	specs := logit.NestedSpecs()
	for _, spec := range specs {
		mr := ModelResult{}
		m, err := logit.FitSpec(rows, spec)
		if err != nil {
			log.Warn("phase3: model fit failed", zap.String("model", spec.Name), zap.Error(err))
			mr.Error = err.Error()
			rep.AllConverged = false
		} else {
			mr.Model = m
			mr.Coefficients = m.CoefficientTable()
			mr.NagelkerkeR2 = logit.NagelkerkeR2(m)
			mr.HosmerLem = logit.HosmerLemeshow(donationValues(rows), m.Fitted)
			fitted[spec.Name] = m
			if !m.Converged {
				rep.AllConverged = false
			}
		}
		rep.Models = append(rep.Models, mr)
	}

	for _, pair := range [][2]string{{"model1", "model3"}, {"model3", "model4"}, {"model4", "model5"}} {
		reduced, full := fitted[pair[0]], fitted[pair[1]]
		if reduced == nil || full == nil {
			continue
		}
		rep.LRTs = append(rep.LRTs, logit.LikelihoodRatioTest(reduced, full))
	}

	if full := fitted["model5"]; full != nil {
		if d, err := logit.BuildDesign(rows, specs[4]); err == nil {
			rep.VIF = logit.VIF(d)
		}
	}

	rep.Effects = factorEffects(rows)

	if m4 := fitted["model4"]; m4 != nil {
		byCond := dataset.ByCondition(rows)
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
			rep.PredVsObs = append(rep.PredVsObs, PredictedVsObserved{
				Condition: string(c),
				N:         len(group),
				Observed:  observed,
				Predicted: m4.PredictCondition(float64(lv.Transparency), float64(lv.Control), nil),
			})
		}
	}

	best := ""
	bestAIC := 0.0
	for name, m := range fitted {
		if best == "" || m.AIC < bestAIC {
			best, bestAIC = name, m.AIC
		}
	}
	rep.BestByAIC = best

	log.Info("phase3: done", zap.String("best_by_aic", best), zap.Bool("all_converged", rep.AllConverged))
	return rep
}

func factorEffects(rows []model.AnalysisRow) []FactorEffect {
	mk := func(factor string, level func(model.AnalysisRow) *int, labels [2]string) FactorEffect {
		low, high := byFactorLevel(rows, level)
		d := stats.CohensD(donationValues(high), donationValues(low))

		table := &stats.ContingencyTable{
			RowLabels: []string{labels[0], labels[1]},
			ColLabels: []string{"donated", "declined"},
			Counts: [][]int64{
				{int64(countDonors(low)), int64(len(low) - countDonors(low))},
				{int64(countDonors(high)), int64(len(high) - countDonors(high))},
			},
		}
		phi := stats.Phi(table)

		return FactorEffect{
			Factor:  factor,
			D:       d,
			DBand:   stats.InterpretCohensD(d.Estimate),
			Phi:     phi,
			PhiBand: stats.InterpretPhi(phi),
		}
	}

	return []FactorEffect{
		mk("transparency", transparencyOf, [2]string{"T0", "T1"}),
		mk("control", controlOf, [2]string{"C0", "C1"}),
	}
}

// Tables renders the report grids.
func (p *Phase3Report) Tables() []report.Table {
	summary := report.Table{Name: "model_summary", Columns: []string{
		"model", "label", "n", "df", "ll", "ll_null", "aic", "bic", "lr_chi2", "lr_p",
		"nagelkerke_r2", "hl_chi2", "hl_p", "converged", "error",
	}}
	coefs := report.Table{Name: "coefficients", Columns: []string{
		"model", "variable", "coef", "se", "or", "or_ci_lower", "or_ci_upper", "z", "p", "direction",
	}}
	for _, mr := range p.Models {
		if mr.Model == nil {
			summary.AddRow("", "", 0, 0, "", "", "", "", "", "", "", "", "", false, mr.Error)
			continue
		}
		m := mr.Model
		summary.AddRow(m.Name, m.Label, m.N, m.DFModel, m.LogLik, m.LLNull, m.AIC, m.BIC,
			m.LRChi2, m.LRPValue, mr.NagelkerkeR2, mr.HosmerLem.Chi2, mr.HosmerLem.PValue, m.Converged, "")
		for _, c := range mr.Coefficients {
			coefs.AddRow(m.Name, c.Name, c.Beta, c.SE, c.OddsRatio, c.ORLower, c.ORUpper, c.Z, c.PValue, string(c.Direction))
		}
	}

	lrts := report.Table{Name: "likelihood_ratio_tests", Columns: []string{
		"reduced", "full", "chi2", "df", "p", "delta_aic",
	}}
	for _, l := range p.LRTs {
		lrts.AddRow(l.Reduced, l.Full, l.Chi2, l.DF, l.PValue, l.DeltaAIC)
	}

	vif := report.Table{Name: "vif", Columns: []string{"variable", "vif", "flagged"}}
	for _, v := range p.VIF {
		vif.AddRow(v.Name, v.VIF, v.Flagged)
	}

	effects := report.Table{Name: "factor_effects", Columns: []string{
		"factor", "cohens_d", "d_ci_lower", "d_ci_upper", "d_magnitude", "phi", "phi_magnitude",
	}}
	for _, e := range p.Effects {
		effects.AddRow(e.Factor, e.D.Estimate, e.D.Lower, e.D.Upper, string(e.DBand), e.Phi, string(e.PhiBand))
	}

	pvo := report.Table{Name: "predicted_vs_observed", Columns: []string{
		"condition", "n", "observed", "predicted", "pred_se", "pred_ci_lower", "pred_ci_upper",
	}}
	for _, r := range p.PredVsObs {
		pvo.AddRow(r.Condition, r.N, r.Observed, r.Predicted.Probability, r.Predicted.SE, r.Predicted.Lower, r.Predicted.Upper)
	}

	return []report.Table{summary, coefs, lrts, vif, effects, pvo}
}
