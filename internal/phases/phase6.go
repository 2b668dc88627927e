package phases

import (
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/dataset"
	"github.com/pluzgi/chatbot-study/internal/model"
	"github.com/pluzgi/chatbot-study/internal/report"
	"github.com/pluzgi/chatbot-study/internal/stats"
	"github.com/pluzgi/chatbot-study/internal/themes"
)

// DashboardComparison is one dashboard variable's C-versus-D test.
type DashboardComparison struct {
	Variable  string                `json:"variable"`
	ByCondC   []FrequencyRow        `json:"condition_c"`
	ByCondD   []FrequencyRow        `json:"condition_d"`
	ChiSquare stats.ChiSquareResult `json:"chi_square"`
	CramersV  float64               `json:"cramers_v"`
	Magnitude stats.Magnitude       `json:"magnitude"`
}

// ThemeFrequency is one theme's prevalence in a group.
type ThemeFrequency struct {
	Theme   themes.Theme `json:"theme"`
	Count   int          `json:"n"`
	Percent float64      `json:"pct"`
}

// ThemeByDecision contrasts a theme's prevalence between donors and
// decliners, in percentage points.
type ThemeByDecision struct {
	Theme      themes.Theme `json:"theme"`
	DeclinePct float64      `json:"decline_pct"`
	DonatePct  float64      `json:"donate_pct"`
	DeltaPP    float64      `json:"delta_pp"`
}

// ThemeContrast is a theme difference between two conditions that cleared
// the reporting threshold.
type ThemeContrast struct {
	Contrast string       `json:"contrast"`
	Theme    themes.Theme `json:"theme"`
	DeltaPP  float64      `json:"delta_pp"`
}

// Quote is one representative free-text response.
type Quote struct {
	Condition string `json:"condition"`
	Donated   bool   `json:"donated"`
	Text      string `json:"text"`
}

// Phase6Report holds the exploratory dashboard and free-text analyses.
type Phase6Report struct {
	Dashboard        []DashboardComparison       `json:"dashboard"`
	OverallThemes    []ThemeFrequency            `json:"overall_themes"`
	ThemesByCond     map[string][]ThemeFrequency `json:"themes_by_condition"`
	ThemesByDecision []ThemeByDecision           `json:"themes_by_decision"`
	Contrasts        []ThemeContrast             `json:"condition_contrasts"`
	Quotes           []Quote                     `json:"quotes"`
	TextResponses    int                         `json:"text_responses"`
	FreeTextMissing  bool                        `json:"free_text_missing"`
}

// quoteLimit truncates representative quotes.
const quoteLimit = 200

// contrastThresholdPP is the minimum absolute theme difference reported in
// the condition contrasts.
const contrastThresholdPP = 5.0

// Phase6 analyzes dashboard choices for the high-control cells (C versus D
// per variable with chi-square and Cramér's V) and codes the free-text
// feedback against the codebook: overall and per-condition frequencies,
// donor/decliner contrasts, condition contrasts above the threshold, and a
// representative quote per condition.
func Phase6(fr dataset.FilterResult, design model.StudyDesign, codebook *themes.Codebook) *Phase6Report {
	log := zap.L().With(zap.String("phase", "exploratory"))
	log.Info("phase6: starting", zap.Int("n", fr.FinalN))

	if codebook == nil {
		codebook = themes.Default()
	}

	rows := fr.Rows
	rep := &Phase6Report{}

	rep.Dashboard = dashboardComparisons(rows)
	analyzeThemes(rep, rows, codebook)

	log.Info("phase6: done",
		zap.Int("dashboard_variables", len(rep.Dashboard)),
		zap.Int("text_responses", rep.TextResponses))
	return rep
}

func dashboardComparisons(rows []model.AnalysisRow) []DashboardComparison {
	// Conditions C and D are the only cells where control is high.
	_, c1 := byFactorLevel(rows, controlOf)
	byCond := dataset.ByCondition(c1)
	condC, condD := byCond[model.ConditionC], byCond[model.ConditionD]

	vars := []struct {
		name string
		get  func(model.AnalysisRow) string
	}{
		{"scope", func(r model.AnalysisRow) string { return r.Dashboard.Scope }},
		{"purpose", func(r model.AnalysisRow) string { return r.Dashboard.Purpose }},
		{"storage", func(r model.AnalysisRow) string { return r.Dashboard.Storage }},
		{"retention", func(r model.AnalysisRow) string { return r.Dashboard.Retention }},
	}

	out := make([]DashboardComparison, 0, len(vars))
	for _, v := range vars {
		cmp := DashboardComparison{
			Variable: v.name,
			ByCondC:  frequencies(condC, v.get),
			ByCondD:  frequencies(condD, v.get),
		}

		options := optionUnion(cmp.ByCondC, cmp.ByCondD)
		if len(options) > 1 && len(condC) > 0 && len(condD) > 0 {
			groups := make([]string, 0, len(c1))
			values := make([]string, 0, len(c1))
			for _, r := range c1 {
				groups = append(groups, string(r.Condition))
				val := v.get(r)
				if val == "" {
					val = "(missing)"
				}
				values = append(values, val)
			}
			table := stats.NewContingencyTable([]string{"C", "D"}, options, groups, values)
			cmp.ChiSquare = stats.ChiSquareIndependence(table)
			cmp.CramersV = stats.CramersV(table)
			cmp.Magnitude = stats.InterpretCramersV(cmp.CramersV)
		}
		out = append(out, cmp)
	}
	return out
}

func optionUnion(a, b []FrequencyRow) []string {
	seen := make(map[string]bool)
	var out []string
	for _, rows := range [][]FrequencyRow{a, b} {
		for _, r := range rows {
			if !seen[r.Value] {
				seen[r.Value] = true
				out = append(out, r.Value)
			}
		}
	}
	sort.Strings(out)
	return out
}

func analyzeThemes(rep *Phase6Report, rows []model.AnalysisRow, codebook *themes.Codebook) {
	coded := make([][]themes.Theme, len(rows))
	responses := 0
	for i, r := range rows {
		if r.HasFeedback() {
			responses++
			coded[i] = codebook.Code(r.OpenFeedback)
		}
	}
	rep.TextResponses = responses
	if responses == 0 {
		rep.FreeTextMissing = true
		return
	}

	count := func(keep func(model.AnalysisRow) bool) (map[themes.Theme]int, int) {
		counts := make(map[themes.Theme]int)
		n := 0
		for i, r := range rows {
			if !keep(r) {
				continue
			}
			n++
			for _, th := range coded[i] {
				counts[th]++
			}
		}
		return counts, n
	}

	overall, n := count(func(model.AnalysisRow) bool { return true })
	for _, th := range codebook.Themes() {
		if overall[th] == 0 {
			continue
		}
		rep.OverallThemes = append(rep.OverallThemes, ThemeFrequency{
			Theme:   th,
			Count:   overall[th],
			Percent: float64(overall[th]) / float64(n) * 100,
		})
	}
	sort.Slice(rep.OverallThemes, func(i, j int) bool { return rep.OverallThemes[i].Count > rep.OverallThemes[j].Count })

	rep.ThemesByCond = make(map[string][]ThemeFrequency, len(model.Conditions))
	condCounts := make(map[model.Condition]map[themes.Theme]int)
	condN := make(map[model.Condition]int)
	for _, c := range model.Conditions {
		counts, cn := count(func(r model.AnalysisRow) bool { return r.Condition == c })
		condCounts[c], condN[c] = counts, cn

		freqs := make([]ThemeFrequency, 0, len(codebook.Themes()))
		for _, th := range codebook.Themes() {
			pct := 0.0
			if cn > 0 {
				pct = float64(counts[th]) / float64(cn) * 100
			}
			freqs = append(freqs, ThemeFrequency{Theme: th, Count: counts[th], Percent: pct})
		}
		rep.ThemesByCond[string(c)] = freqs
	}

	declineCounts, nDecline := count(func(r model.AnalysisRow) bool { return r.HasDonation() && !r.Donated() })
	donateCounts, nDonate := count(func(r model.AnalysisRow) bool { return r.Donated() })
	for _, th := range codebook.Themes() {
		declinePct, donatePct := 0.0, 0.0
		if nDecline > 0 {
			declinePct = float64(declineCounts[th]) / float64(nDecline) * 100
		}
		if nDonate > 0 {
			donatePct = float64(donateCounts[th]) / float64(nDonate) * 100
		}
		rep.ThemesByDecision = append(rep.ThemesByDecision, ThemeByDecision{
			Theme:      th,
			DeclinePct: declinePct,
			DonatePct:  donatePct,
			DeltaPP:    donatePct - declinePct,
		})
	}
	sort.Slice(rep.ThemesByDecision, func(i, j int) bool {
		return rep.ThemesByDecision[i].DeltaPP > rep.ThemesByDecision[j].DeltaPP
	})

	contrastPairs := [][2]model.Condition{
		{model.ConditionA, model.ConditionB},
		{model.ConditionA, model.ConditionC},
		{model.ConditionC, model.ConditionD},
		{model.ConditionB, model.ConditionD},
	}
	for _, pair := range contrastPairs {
		from, to := pair[0], pair[1]
		var diffs []ThemeContrast
		for _, th := range codebook.Themes() {
			pct1, pct2 := 0.0, 0.0
			if condN[from] > 0 {
				pct1 = float64(condCounts[from][th]) / float64(condN[from]) * 100
			}
			if condN[to] > 0 {
				pct2 = float64(condCounts[to][th]) / float64(condN[to]) * 100
			}
			diff := pct2 - pct1
			if math.Abs(diff) >= contrastThresholdPP {
				diffs = append(diffs, ThemeContrast{
					Contrast: string(from) + " vs " + string(to),
					Theme:    th,
					DeltaPP:  diff,
				})
			}
		}
		sort.Slice(diffs, func(i, j int) bool { return math.Abs(diffs[i].DeltaPP) > math.Abs(diffs[j].DeltaPP) })
		if len(diffs) > 5 {
			diffs = diffs[:5]
		}
		rep.Contrasts = append(rep.Contrasts, diffs...)
	}

	byCond := dataset.ByCondition(rows)
	for _, c := range model.Conditions {
		for _, r := range byCond[c] {
			if !r.HasFeedback() {
				continue
			}
			text := r.OpenFeedback
			if len(text) > quoteLimit {
				text = text[:quoteLimit] + "..."
			}
			rep.Quotes = append(rep.Quotes, Quote{
				Condition: string(c),
				Donated:   r.Donated(),
				Text:      text,
			})
			break
		}
	}
}

// Tables renders the report grids.
func (p *Phase6Report) Tables() []report.Table {
	dash := report.Table{Name: "dashboard_comparisons", Columns: []string{
		"variable", "condition", "option", "n", "pct",
	}}
	dashTests := report.Table{Name: "dashboard_chi_square", Columns: []string{
		"variable", "chi2", "df", "p", "cramers_v", "magnitude",
	}}
	for _, d := range p.Dashboard {
		for _, f := range d.ByCondC {
			dash.AddRow(d.Variable, "C", f.Value, f.Count, f.Percent)
		}
		for _, f := range d.ByCondD {
			dash.AddRow(d.Variable, "D", f.Value, f.Count, f.Percent)
		}
		dashTests.AddRow(d.Variable, d.ChiSquare.Statistic, d.ChiSquare.DF, d.ChiSquare.PValue, d.CramersV, string(d.Magnitude))
	}

	overall := report.Table{Name: "themes_overall", Columns: []string{"theme", "n", "pct"}}
	for _, t := range p.OverallThemes {
		overall.AddRow(string(t.Theme), t.Count, t.Percent)
	}

	byCond := report.Table{Name: "themes_by_condition", Columns: []string{"condition", "theme", "n", "pct"}}
	for _, c := range model.Conditions {
		for _, t := range p.ThemesByCond[string(c)] {
			byCond.AddRow(string(c), string(t.Theme), t.Count, t.Percent)
		}
	}

	byDecision := report.Table{Name: "themes_by_decision", Columns: []string{"theme", "decline_pct", "donate_pct", "delta_pp"}}
	for _, t := range p.ThemesByDecision {
		byDecision.AddRow(string(t.Theme), t.DeclinePct, t.DonatePct, t.DeltaPP)
	}

	contrasts := report.Table{Name: "condition_contrasts", Columns: []string{"contrast", "theme", "delta_pp"}}
	for _, c := range p.Contrasts {
		contrasts.AddRow(c.Contrast, string(c.Theme), c.DeltaPP)
	}

	quotes := report.Table{Name: "quotes", Columns: []string{"condition", "donated", "quote"}}
	for _, q := range p.Quotes {
		quotes.AddRow(q.Condition, q.Donated, q.Text)
	}

	return []report.Table{dash, dashTests, overall, byCond, byDecision, contrasts, quotes}
}
