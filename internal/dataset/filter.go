package dataset

import "github.com/pluzgi/chatbot-study/internal/model"

// FilterResult reports the exclusion flow. The three exclusion counts are
// mutually exclusive: each step only sees rows that survived the prior one,
// so InitialN - ExcludedAttention - ExcludedMissingCondition -
// ExcludedMissingDonation = FinalN always holds.
type FilterResult struct {
	InitialN                 int `json:"initial_n"`
	ExcludedAttention        int `json:"excluded_attention"`
	ExcludedMissingCondition int `json:"excluded_missing_condition"`
	ExcludedMissingDonation  int `json:"excluded_missing_donation"`
	FinalN                   int `json:"final_n"`

	Rows []model.AnalysisRow `json:"-"`
}

// Filter applies the registered exclusion sequence in order: failed
// attention check, then missing condition, then missing donation outcome.
// It is pure; the input slice is not modified.
func Filter(rows []model.AnalysisRow) FilterResult {
	res := FilterResult{InitialN: len(rows)}

	kept := make([]model.AnalysisRow, 0, len(rows))
	for _, r := range rows {
		if r.AttentionCheckCorrect != 1 {
			res.ExcludedAttention++
			continue
		}
		kept = append(kept, r)
	}

	withCondition := make([]model.AnalysisRow, 0, len(kept))
	for _, r := range kept {
		if r.TransparencyLevel == nil || r.ControlLevel == nil {
			res.ExcludedMissingCondition++
			continue
		}
		withCondition = append(withCondition, r)
	}
	kept = withCondition

	final := make([]model.AnalysisRow, 0, len(kept))
	for _, r := range kept {
		if !r.HasDonation() {
			res.ExcludedMissingDonation++
			continue
		}
		final = append(final, r)
	}

	res.FinalN = len(final)
	res.Rows = final
	return res
}

// ByCondition groups the filtered rows by condition, preserving row order.
func ByCondition(rows []model.AnalysisRow) map[model.Condition][]model.AnalysisRow {
	out := make(map[model.Condition][]model.AnalysisRow, len(model.Conditions))
	for _, r := range rows {
		out[r.Condition] = append(out[r.Condition], r)
	}
	return out
}
