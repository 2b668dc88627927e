package phases

import (
	"math"

	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/dataset"
	"github.com/pluzgi/chatbot-study/internal/model"
	"github.com/pluzgi/chatbot-study/internal/report"
	"github.com/pluzgi/chatbot-study/internal/stats"
)

// CheckVerdict labels one manipulation check outcome.
type CheckVerdict string

const (
	CheckPassed       CheckVerdict = "PASSED"
	CheckFailed       CheckVerdict = "FAILED (wrong direction)"
	CheckInconclusive CheckVerdict = "INCONCLUSIVE"
)

// ManipulationCheck is the outcome of one factor's perception check: the
// high level should score higher on the matching perception composite.
type ManipulationCheck struct {
	Name       string                `json:"name"`
	LowGroup   Descriptive           `json:"low_group"`
	HighGroup  Descriptive           `json:"high_group"`
	Comparison stats.GroupComparison `json:"comparison"`
	Verdict    CheckVerdict          `json:"verdict"`
}

// ConditionMCRow summarizes both perception composites for one condition.
type ConditionMCRow struct {
	Condition    string      `json:"condition"`
	Transparency Descriptive `json:"mc_transparency"`
	Control      Descriptive `json:"mc_control"`
}

// Phase5Report holds the manipulation check results.
type Phase5Report struct {
	Transparency ManipulationCheck `json:"transparency"`
	Control      ManipulationCheck `json:"control"`
	BothPassed   bool              `json:"both_passed"`
	ByCondition  []ConditionMCRow  `json:"by_condition"`
}

// Phase5 verifies both experimental manipulations: perceived transparency
// must be higher under T1 and perceived control higher under C1, each via
// the normality-gated comparison path. A significant difference in the
// right direction passes, in the wrong direction fails, anything else is
// inconclusive.
func Phase5(fr dataset.FilterResult, design model.StudyDesign) *Phase5Report {
	log := zap.L().With(zap.String("phase", "manipulation-checks"))
	log.Info("phase5: starting", zap.Int("n", fr.FinalN))

	rows := fr.Rows
	rep := &Phase5Report{}

	rep.Transparency = manipulationCheck("mc_transparency", rows, transparencyOf,
		func(r model.AnalysisRow) float64 { return r.MCTransparency }, design.Alpha)
	rep.Control = manipulationCheck("mc_control", rows, controlOf,
		func(r model.AnalysisRow) float64 { return r.MCControl }, design.Alpha)
	rep.BothPassed = rep.Transparency.Verdict == CheckPassed && rep.Control.Verdict == CheckPassed

	byCond := dataset.ByCondition(rows)
	for _, c := range model.Conditions {
		group := byCond[c]
		rep.ByCondition = append(rep.ByCondition, ConditionMCRow{
			Condition:    string(c),
			Transparency: describe(collect(group, func(r model.AnalysisRow) float64 { return r.MCTransparency })),
			Control:      describe(collect(group, func(r model.AnalysisRow) float64 { return r.MCControl })),
		})
	}

	log.Info("phase5: done",
		zap.String("transparency", string(rep.Transparency.Verdict)),
		zap.String("control", string(rep.Control.Verdict)))
	return rep
}

func manipulationCheck(
	name string,
	rows []model.AnalysisRow,
	level func(model.AnalysisRow) *int,
	score func(model.AnalysisRow) float64,
	alpha float64,
) ManipulationCheck {
	lowRows, highRows := byFactorLevel(rows, level)
	low := dropNaN(collect(lowRows, score))
	high := dropNaN(collect(highRows, score))

	cmp := stats.CompareGroups(high, low, alpha)

	check := ManipulationCheck{
		Name:       name,
		LowGroup:   describe(low),
		HighGroup:  describe(high),
		Comparison: cmp,
	}

	significant := cmp.PValue < alpha
	rightDirection := check.HighGroup.Mean > check.LowGroup.Mean
	switch {
	case significant && rightDirection:
		check.Verdict = CheckPassed
	case significant && !rightDirection:
		check.Verdict = CheckFailed
	default:
		check.Verdict = CheckInconclusive
	}
	return check
}

func dropNaN(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

// Tables renders the report grids.
func (p *Phase5Report) Tables() []report.Table {
	checks := report.Table{Name: "manipulation_checks", Columns: []string{
		"check", "low_mean", "low_sd", "low_n", "high_mean", "high_sd", "high_n",
		"test", "statistic", "p", "effect", "effect_ci_lower", "effect_ci_upper", "effect_name", "magnitude", "verdict",
	}}
	for _, c := range []ManipulationCheck{p.Transparency, p.Control} {
		checks.AddRow(c.Name,
			c.LowGroup.Mean, c.LowGroup.SD, c.LowGroup.N,
			c.HighGroup.Mean, c.HighGroup.SD, c.HighGroup.N,
			c.Comparison.Test, c.Comparison.Statistic, c.Comparison.PValue,
			c.Comparison.Effect.Estimate, c.Comparison.Effect.Lower, c.Comparison.Effect.Upper,
			c.Comparison.EffectName, string(c.Comparison.Magnitude), string(c.Verdict))
	}

	byCond := report.Table{Name: "mc_by_condition", Columns: []string{
		"condition", "mc_t_mean", "mc_t_sd", "mc_c_mean", "mc_c_sd", "n",
	}}
	for _, r := range p.ByCondition {
		byCond.AddRow(r.Condition, r.Transparency.Mean, r.Transparency.SD, r.Control.Mean, r.Control.SD, r.Transparency.N)
	}

	return []report.Table{checks, byCond}
}
