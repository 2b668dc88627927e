package phases

import (
	"go.uber.org/zap"

	"github.com/pluzgi/chatbot-study/internal/dataset"
	"github.com/pluzgi/chatbot-study/internal/model"
	"github.com/pluzgi/chatbot-study/internal/report"
	"github.com/pluzgi/chatbot-study/internal/stats"
)

// AssociationTest is one chi-square test of group membership against the
// donation outcome, with its effect size and per-group rates.
type AssociationTest struct {
	Name        string                  `json:"name"`
	Table       *stats.ContingencyTable `json:"table"`
	ChiSquare   stats.ChiSquareResult   `json:"chi_square"`
	Alpha       float64                 `json:"alpha"`
	Significant bool                    `json:"significant"`
	CramersV    float64                 `json:"cramers_v"`
	VBootstrap  stats.BootstrapCI       `json:"v_bootstrap_ci"`
	Magnitude   stats.Magnitude         `json:"magnitude"`
	GroupRates  []DonationRate          `json:"group_rates"`
}

// Phase2Report holds the three planned association tests at the
// Bonferroni-corrected threshold.
type Phase2Report struct {
	Alpha           float64         `json:"alpha"`
	BonferroniAlpha float64         `json:"bonferroni_alpha"`
	Transparency    AssociationTest `json:"transparency"`
	Control         AssociationTest `json:"control"`
	Omnibus         AssociationTest `json:"omnibus"`
}

// Phase2 runs the planned chi-square family: T × donation, C × donation,
// and the omnibus condition × donation test, each evaluated at alpha
// divided by the family size.
func Phase2(fr dataset.FilterResult, design model.StudyDesign) *Phase2Report {
	log := zap.L().With(zap.String("phase", "association"))
	log.Info("phase2: starting", zap.Int("n", fr.FinalN))

	alpha := design.BonferroniAlpha()
	rows := fr.Rows

	rep := &Phase2Report{Alpha: design.Alpha, BonferroniAlpha: alpha}

	t0, t1 := byFactorLevel(rows, transparencyOf)
	rep.Transparency = associationTest("transparency_x_donation",
		[]string{"T0", "T1"}, [][]model.AnalysisRow{t0, t1}, design, alpha)

	c0, c1 := byFactorLevel(rows, controlOf)
	rep.Control = associationTest("control_x_donation",
		[]string{"C0", "C1"}, [][]model.AnalysisRow{c0, c1}, design, alpha)

	byCond := dataset.ByCondition(rows)
	labels := make([]string, len(model.Conditions))
	groups := make([][]model.AnalysisRow, len(model.Conditions))
	for i, c := range model.Conditions {
		labels[i] = string(c)
		groups[i] = byCond[c]
	}
	rep.Omnibus = associationTest("condition_x_donation", labels, groups, design, alpha)

	log.Info("phase2: done",
		zap.Bool("transparency_significant", rep.Transparency.Significant),
		zap.Bool("control_significant", rep.Control.Significant),
		zap.Bool("omnibus_significant", rep.Omnibus.Significant))
	return rep
}

func associationTest(name string, labels []string, groups [][]model.AnalysisRow, design model.StudyDesign, alpha float64) AssociationTest {
	counts := make([][]int64, len(groups))
	for i, g := range groups {
		donors := countDonors(g)
		counts[i] = []int64{int64(donors), int64(len(g) - donors)}
	}
	table := &stats.ContingencyTable{
		RowLabels: labels,
		ColLabels: []string{"donated", "declined"},
		Counts:    counts,
	}

	chi := stats.ChiSquareIndependence(table)
	v := stats.CramersV(table)

	test := AssociationTest{
		Name:        name,
		Table:       table,
		ChiSquare:   chi,
		Alpha:       alpha,
		Significant: chi.PValue < alpha,
		CramersV:    v,
		VBootstrap:  stats.CramersVBootstrapCI(table, design.BootstrapDraws, design.BootstrapSeed),
		Magnitude:   stats.InterpretCramersV(v),
	}

	for i, g := range groups {
		test.GroupRates = append(test.GroupRates, DonationRate{
			Group: labels[i],
			CI:    stats.WilsonInterval(countDonors(g), len(g), design.Alpha),
		})
	}
	return test
}

// Tables renders the report grids.
func (p *Phase2Report) Tables() []report.Table {
	summary := report.Table{Name: "chi_square_summary", Columns: []string{
		"test", "chi2", "df", "p", "alpha", "significant", "cramers_v", "v_ci_lower", "v_ci_upper", "magnitude",
	}}
	contingency := report.Table{Name: "contingency_tables", Columns: []string{
		"test", "group", "donated", "declined", "row_pct_donated", "expected_donated",
	}}
	rates := report.Table{Name: "group_donation_rates", Columns: []string{
		"test", "group", "donors", "n", "rate", "ci_lower", "ci_upper",
	}}

	for _, t := range []AssociationTest{p.Transparency, p.Control, p.Omnibus} {
		summary.AddRow(t.Name, t.ChiSquare.Statistic, t.ChiSquare.DF, t.ChiSquare.PValue,
			t.Alpha, t.Significant, t.CramersV, t.VBootstrap.Lower, t.VBootstrap.Upper, string(t.Magnitude))

		rowTotals := t.Table.RowTotals()
		for i, label := range t.Table.RowLabels {
			rowPct := 0.0
			if rowTotals[i] > 0 {
				rowPct = float64(t.Table.Counts[i][0]) / float64(rowTotals[i]) * 100
			}
			expected := 0.0
			if t.ChiSquare.Expected != nil {
				expected = t.ChiSquare.Expected[i][0]
			}
			contingency.AddRow(t.Name, label, t.Table.Counts[i][0], t.Table.Counts[i][1], rowPct, expected)
		}

		for _, r := range t.GroupRates {
			rates.AddRow(t.Name, r.Group, r.CI.Successes, r.CI.N, r.CI.Rate, r.CI.Lower, r.CI.Upper)
		}
	}

	return []report.Table{summary, contingency, rates}
}
