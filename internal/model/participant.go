// Package model defines the typed records shared by the analysis pipeline.
package model

import (
	"math"
	"strings"
	"time"
)

// Condition identifies one cell of the 2x2 factorial design.
type Condition string

const (
	ConditionA Condition = "A" // T0C0: low transparency, low control
	ConditionB Condition = "B" // T1C0: high transparency, low control
	ConditionC Condition = "C" // T0C1: low transparency, high control
	ConditionD Condition = "D" // T1C1: high transparency, high control
)

// Conditions lists the four cells in report order.
var Conditions = []Condition{ConditionA, ConditionB, ConditionC, ConditionD}

// Participant is one raw study record, sourced read-only from the store.
// Nullable measures are pointers; the pipeline never mutates these rows.
type Participant struct {
	ID               string     `json:"participant_id" csv:"participant_id"`
	SessionID        string     `json:"session_id" csv:"session_id"`
	Condition        Condition  `json:"condition" csv:"condition"`
	Language         string     `json:"language" csv:"language"`
	DonationDecision *int       `json:"donation_decision" csv:"donation_decision"`
	DonationConfig   string     `json:"donation_config" csv:"donation_config"`
	Transparency1    *float64   `json:"transparency1" csv:"transparency1"`
	Transparency2    *float64   `json:"transparency2" csv:"transparency2"`
	Control1         *float64   `json:"control1" csv:"control1"`
	Control2         *float64   `json:"control2" csv:"control2"`
	RiskTraceability *float64   `json:"risk_traceability" csv:"risk_traceability"`
	RiskMisuse       *float64   `json:"risk_misuse" csv:"risk_misuse"`
	Trust1           *float64   `json:"trust1" csv:"trust1"`
	AttentionCheck   string     `json:"attention_check" csv:"attention_check"`
	Age              string     `json:"age" csv:"age"`
	Gender           string     `json:"gender" csv:"gender"`
	PrimaryLanguage  string     `json:"primary_language" csv:"primary_language"`
	Education        string     `json:"education" csv:"education"`
	EligibleToVote   string     `json:"eligible_to_vote_ch" csv:"eligible_to_vote_ch"`
	OpenFeedback     string     `json:"open_feedback" csv:"open_feedback"`
	CreatedAt        time.Time  `json:"created_at" csv:"created_at"`
	CompletedAt      *time.Time `json:"completed_at,omitempty" csv:"-"`
}

// DashboardSelection holds the data-sharing options a participant picked on
// the granular dashboard (conditions C and D only). Parsed reports whether
// the raw configuration decoded to a mapping; an unparseable or absent
// configuration yields Parsed=false and empty fields, never an error.
type DashboardSelection struct {
	Parsed    bool   `json:"parsed"`
	Scope     string `json:"scope,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
	Storage   string `json:"storage,omitempty"`
	Retention string `json:"retention,omitempty"`
}

// AnalysisRow extends a Participant with the derived variables every phase
// consumes. Composite scores are NaN when all contributing items are missing.
type AnalysisRow struct {
	Participant

	TransparencyLevel *int `json:"transparency_level"`
	ControlLevel      *int `json:"control_level"`
	Interaction       *int `json:"t_x_c"`

	MCTransparency float64 `json:"mc_transparency"`
	MCControl      float64 `json:"mc_control"`
	OutRisk        float64 `json:"out_risk"`

	AttentionCheckCorrect int `json:"attention_check_correct"`

	Dashboard DashboardSelection `json:"dashboard"`
}

// HasDonation reports whether the donation outcome was recorded.
func (r *AnalysisRow) HasDonation() bool { return r.DonationDecision != nil }

// Donated reports a recorded positive donation decision.
func (r *AnalysisRow) Donated() bool {
	return r.DonationDecision != nil && *r.DonationDecision == 1
}

// HasFeedback reports whether the free-text response is non-empty.
func (r *AnalysisRow) HasFeedback() bool {
	return strings.TrimSpace(r.OpenFeedback) != ""
}

// IsNaN reports whether a composite score is undefined.
func IsNaN(v float64) bool { return math.IsNaN(v) }
