package phases

import (
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/dataset"
	"github.com/pluzgi/chatbot-study/internal/model"
	"github.com/pluzgi/chatbot-study/internal/report"
	"github.com/pluzgi/chatbot-study/internal/stats"
)

// ConditionCount is one row of the N-per-condition table.
type ConditionCount struct {
	Condition string  `json:"condition"`
	N         int     `json:"n"`
	Percent   float64 `json:"pct"`
}

// DonationRate pairs a group's donor count with its Wilson interval.
type DonationRate struct {
	Group string             `json:"group"`
	CI    stats.ProportionCI `json:"ci"`
}

// MCSummary is a manipulation-check descriptive for one group.
type MCSummary struct {
	Group string      `json:"group"`
	Stats Descriptive `json:"stats"`
}

// RiskTrustRow holds the risk/trust descriptives for one condition.
type RiskTrustRow struct {
	Group string      `json:"group"`
	Risk  Descriptive `json:"risk"`
	Trust Descriptive `json:"trust"`
}

// DashboardFrequencies tabulates dashboard options for donors in one
// high-control condition.
type DashboardFrequencies struct {
	Condition model.Condition           `json:"condition"`
	N         int                       `json:"n"`
	Variables map[string][]FrequencyRow `json:"variables"`
	TopConfig []FrequencyRow            `json:"top_configurations"`
}

// FreeTextRow is the response-rate summary for one group.
type FreeTextRow struct {
	Group        string  `json:"group"`
	N            int     `json:"n"`
	Responses    int     `json:"responses"`
	RatePercent  float64 `json:"rate_pct"`
	MedianLength float64 `json:"median_length"`
}

// Phase1Report holds the descriptive summary of the filtered sample.
type Phase1Report struct {
	SampleFlow     dataset.FilterResult      `json:"sample_flow"`
	NPerCondition  []ConditionCount          `json:"n_per_condition"`
	DonationRates  []DonationRate            `json:"donation_rates"`
	Demographics   map[string][]FrequencyRow `json:"demographics"`
	MCTransparency []MCSummary               `json:"mc_transparency"`
	MCControl      []MCSummary               `json:"mc_control"`
	RiskTrust      []RiskTrustRow            `json:"risk_trust"`
	Dashboard      []DashboardFrequencies    `json:"dashboard"`
	FreeText       []FreeTextRow             `json:"free_text"`
}

// Phase1 computes sample flow, cell sizes, donation rates with Wilson
// intervals, demographics, manipulation-check and risk/trust descriptives,
// dashboard option frequencies for high-control donors, and the free-text
// response rate.
func Phase1(fr dataset.FilterResult, design model.StudyDesign) *Phase1Report {
	log := zap.L().With(zap.String("phase", "descriptive"))
	log.Info("phase1: starting", zap.Int("n", fr.FinalN))

	rows := fr.Rows
	byCond := dataset.ByCondition(rows)

	rep := &Phase1Report{SampleFlow: fr}

	for _, c := range model.Conditions {
		n := len(byCond[c])
		pct := 0.0
		if fr.FinalN > 0 {
			pct = float64(n) / float64(fr.FinalN) * 100
		}
		rep.NPerCondition = append(rep.NPerCondition, ConditionCount{Condition: string(c), N: n, Percent: pct})
	}
	rep.NPerCondition = append(rep.NPerCondition, ConditionCount{Condition: "Total", N: fr.FinalN, Percent: 100})

	for _, c := range model.Conditions {
		group := byCond[c]
		rep.DonationRates = append(rep.DonationRates, DonationRate{
			Group: string(c),
			CI:    stats.WilsonInterval(countDonors(group), len(group), design.Alpha),
		})
	}
	rep.DonationRates = append(rep.DonationRates, DonationRate{
		Group: "Overall",
		CI:    stats.WilsonInterval(countDonors(rows), len(rows), design.Alpha),
	})

	rep.Demographics = map[string][]FrequencyRow{
		"age":                 frequencies(rows, func(r model.AnalysisRow) string { return r.Age }),
		"gender":              frequencies(rows, func(r model.AnalysisRow) string { return r.Gender }),
		"primary_language":    frequencies(rows, func(r model.AnalysisRow) string { return r.PrimaryLanguage }),
		"education":           frequencies(rows, func(r model.AnalysisRow) string { return r.Education }),
		"eligible_to_vote_ch": frequencies(rows, func(r model.AnalysisRow) string { return r.EligibleToVote }),
	}

	rep.MCTransparency = mcSummaries(rows, byCond, transparencyOf, "T0 (low)", "T1 (high)",
		func(r model.AnalysisRow) float64 { return r.MCTransparency })
	rep.MCControl = mcSummaries(rows, byCond, controlOf, "C0 (low)", "C1 (high)",
		func(r model.AnalysisRow) float64 { return r.MCControl })

	for _, c := range model.Conditions {
		group := byCond[c]
		rep.RiskTrust = append(rep.RiskTrust, RiskTrustRow{
			Group: string(c),
			Risk:  describe(collect(group, func(r model.AnalysisRow) float64 { return r.OutRisk })),
			Trust: describe(collect(group, trustValue)),
		})
	}
	rep.RiskTrust = append(rep.RiskTrust, RiskTrustRow{
		Group: "Overall",
		Risk:  describe(collect(rows, func(r model.AnalysisRow) float64 { return r.OutRisk })),
		Trust: describe(collect(rows, trustValue)),
	})

	rep.Dashboard = dashboardFrequencies(byCond)
	rep.FreeText = freeTextRates(rows, byCond)

	log.Info("phase1: done")
	return rep
}

func trustValue(r model.AnalysisRow) float64 {
	if r.Trust1 == nil {
		return math.NaN()
	}
	return *r.Trust1
}

func mcSummaries(
	rows []model.AnalysisRow,
	byCond map[model.Condition][]model.AnalysisRow,
	level func(model.AnalysisRow) *int,
	lowLabel, highLabel string,
	score func(model.AnalysisRow) float64,
) []MCSummary {
	out := make([]MCSummary, 0, len(model.Conditions)+2)
	for _, c := range model.Conditions {
		out = append(out, MCSummary{Group: string(c), Stats: describe(collect(byCond[c], score))})
	}
	low, high := byFactorLevel(rows, level)
	out = append(out,
		MCSummary{Group: lowLabel, Stats: describe(collect(low, score))},
		MCSummary{Group: highLabel, Stats: describe(collect(high, score))},
	)
	return out
}

// dashboardFrequencies tabulates dashboard options for donors in conditions
// C and D, the only cells where the granular dashboard was shown.
func dashboardFrequencies(byCond map[model.Condition][]model.AnalysisRow) []DashboardFrequencies {
	var out []DashboardFrequencies
	for _, c := range []model.Condition{model.ConditionC, model.ConditionD} {
		donors := make([]model.AnalysisRow, 0, len(byCond[c]))
		for _, r := range byCond[c] {
			if r.Donated() {
				donors = append(donors, r)
			}
		}
		if len(donors) == 0 {
			continue
		}

		freq := DashboardFrequencies{
			Condition: c,
			N:         len(donors),
			Variables: map[string][]FrequencyRow{
				"scope":     frequencies(donors, func(r model.AnalysisRow) string { return r.Dashboard.Scope }),
				"purpose":   frequencies(donors, func(r model.AnalysisRow) string { return r.Dashboard.Purpose }),
				"storage":   frequencies(donors, func(r model.AnalysisRow) string { return r.Dashboard.Storage }),
				"retention": frequencies(donors, func(r model.AnalysisRow) string { return r.Dashboard.Retention }),
			},
		}

		combined := frequencies(donors, func(r model.AnalysisRow) string {
			return fmt.Sprintf("scope=%s, purpose=%s, storage=%s, retention=%s",
				r.Dashboard.Scope, r.Dashboard.Purpose, r.Dashboard.Storage, r.Dashboard.Retention)
		})
		if len(combined) > 5 {
			combined = combined[:5]
		}
		freq.TopConfig = combined
		out = append(out, freq)
	}
	return out
}

func freeTextRates(rows []model.AnalysisRow, byCond map[model.Condition][]model.AnalysisRow) []FreeTextRow {
	row := func(group string, rs []model.AnalysisRow) FreeTextRow {
		var lengths []float64
		responses := 0
		for _, r := range rs {
			if r.HasFeedback() {
				responses++
				lengths = append(lengths, float64(len(r.OpenFeedback)))
			}
		}
		rate := 0.0
		if len(rs) > 0 {
			rate = float64(responses) / float64(len(rs)) * 100
		}
		return FreeTextRow{
			Group:        group,
			N:            len(rs),
			Responses:    responses,
			RatePercent:  rate,
			MedianLength: median(lengths),
		}
	}

	out := make([]FreeTextRow, 0, len(model.Conditions)+1)
	out = append(out, row("Overall", rows))
	for _, c := range model.Conditions {
		out = append(out, row(string(c), byCond[c]))
	}
	return out
}

// Tables renders the report grids.
func (p *Phase1Report) Tables() []report.Table {
	flow := report.Table{Name: "sample_flow", Columns: []string{"step", "n"}}
	flow.AddRow("initial", p.SampleFlow.InitialN)
	flow.AddRow("excluded_attention", p.SampleFlow.ExcludedAttention)
	flow.AddRow("excluded_missing_condition", p.SampleFlow.ExcludedMissingCondition)
	flow.AddRow("excluded_missing_donation", p.SampleFlow.ExcludedMissingDonation)
	flow.AddRow("final", p.SampleFlow.FinalN)

	counts := report.Table{Name: "n_per_condition", Columns: []string{"condition", "n", "pct"}}
	for _, c := range p.NPerCondition {
		counts.AddRow(c.Condition, c.N, c.Percent)
	}

	rates := report.Table{Name: "donation_rates", Columns: []string{"group", "donors", "n", "rate", "ci_lower", "ci_upper"}}
	for _, r := range p.DonationRates {
		rates.AddRow(r.Group, r.CI.Successes, r.CI.N, r.CI.Rate, r.CI.Lower, r.CI.Upper)
	}

	demo := report.Table{Name: "demographics", Columns: []string{"variable", "value", "n", "pct"}}
	vars := make([]string, 0, len(p.Demographics))
	for v := range p.Demographics {
		vars = append(vars, v)
	}
	sort.Strings(vars)
	for _, v := range vars {
		for _, f := range p.Demographics[v] {
			demo.AddRow(v, f.Value, f.Count, f.Percent)
		}
	}

	mc := report.Table{Name: "manipulation_checks", Columns: []string{"measure", "group", "mean", "sd", "n"}}
	for _, s := range p.MCTransparency {
		mc.AddRow("mc_transparency", s.Group, s.Stats.Mean, s.Stats.SD, s.Stats.N)
	}
	for _, s := range p.MCControl {
		mc.AddRow("mc_control", s.Group, s.Stats.Mean, s.Stats.SD, s.Stats.N)
	}

	rt := report.Table{Name: "risk_trust", Columns: []string{"group", "risk_mean", "risk_sd", "trust_mean", "trust_sd"}}
	for _, r := range p.RiskTrust {
		rt.AddRow(r.Group, r.Risk.Mean, r.Risk.SD, r.Trust.Mean, r.Trust.SD)
	}

	dash := report.Table{Name: "dashboard_frequencies", Columns: []string{"condition", "variable", "option", "n", "pct"}}
	for _, d := range p.Dashboard {
		for _, v := range []string{"scope", "purpose", "storage", "retention"} {
			for _, f := range d.Variables[v] {
				dash.AddRow(string(d.Condition), v, f.Value, f.Count, f.Percent)
			}
		}
		for _, f := range d.TopConfig {
			dash.AddRow(string(d.Condition), "top_configuration", f.Value, f.Count, f.Percent)
		}
	}

	ft := report.Table{Name: "free_text_response", Columns: []string{"group", "n", "responses", "rate_pct", "median_length"}}
	for _, r := range p.FreeText {
		ft.AddRow(r.Group, r.N, r.Responses, r.RatePercent, r.MedianLength)
	}

	return []report.Table{flow, counts, rates, demo, mc, rt, dash, ft}
}
