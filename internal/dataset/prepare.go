// Package dataset derives the analysis frame from raw participant records
// and applies the registered exclusion sequence.
package dataset

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/pluzgi/chatbot-study/internal/model"
)

// Prepare derives the analysis frame from raw records. It is a pure
// function: running it twice over the same input and design produces
// identical rows. Source records are never mutated.
//
// Derived per row:
//   - transparency/control levels and their product, looked up from the
//     design's condition map (absent conditions leave the levels nil and are
//     excluded downstream, not here)
//   - composite scores as pairwise means: a single missing item degrades the
//     mean to the present value, both missing yields NaN
//   - attention-check flag via case-insensitive comparison
//   - dashboard selection parsed from the raw configuration, never failing
func Prepare(raw []model.Participant, design model.StudyDesign) []model.AnalysisRow {
	rows := make([]model.AnalysisRow, 0, len(raw))
	keyword := strings.ToLower(design.AttentionKeyword)

	for _, p := range raw {
		row := model.AnalysisRow{Participant: p}

		if lv, ok := design.Levels(p.Condition); ok {
			t, c := lv.Transparency, lv.Control
			txc := t * c
			row.TransparencyLevel = &t
			row.ControlLevel = &c
			row.Interaction = &txc
		}

		row.MCTransparency = pairwiseMean(p.Transparency1, p.Transparency2)
		row.MCControl = pairwiseMean(p.Control1, p.Control2)
		row.OutRisk = pairwiseMean(p.RiskTraceability, p.RiskMisuse)

		if keyword != "" && strings.ToLower(strings.TrimSpace(p.AttentionCheck)) == keyword {
			row.AttentionCheckCorrect = 1
		}

		row.Dashboard = parseDashboard(p.DonationConfig)

		rows = append(rows, row)
	}
	return rows
}

// pairwiseMean averages the present items; both missing yields NaN.
func pairwiseMean(items ...*float64) float64 {
	var sum float64
	var n int
	for _, it := range items {
		if it != nil {
			sum += *it
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// parseDashboard decodes the donation configuration. The field may be
// empty, a JSON object, or anything else; only a decodable object produces
// Parsed=true. Parse failures yield the empty selection.
func parseDashboard(raw string) model.DashboardSelection {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.DashboardSelection{}
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return model.DashboardSelection{}
	}

	return model.DashboardSelection{
		Parsed:    true,
		Scope:     stringField(fields, "scope"),
		Purpose:   stringField(fields, "purpose"),
		Storage:   stringField(fields, "storage"),
		Retention: stringField(fields, "retention"),
	}
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
