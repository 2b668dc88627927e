// Package store provides participant persistence: a Postgres store backed
// by the production study database and a SQLite store for offline analysis
// runs fed from CSV exports.
package store

import (
	"context"

	"github.com/pluzgi/chatbot-study/internal/model"
)

// ParticipantFilter selects rows for loading. AIParticipants separates the
// synthetic pilot users from the human sample; Condition and Limit are
// optional narrowing criteria.
type ParticipantFilter struct {
	AIParticipants bool            `json:"ai_participants"`
	Condition      model.Condition `json:"condition,omitempty"`
	Limit          int             `json:"limit,omitempty"`
}

// ParticipantStore is the persistence interface the analysis pipeline
// reads from. Loading joins the participants table with the post-task
// measures so every analysis variable arrives in one record.
type ParticipantStore interface {
	LoadParticipants(ctx context.Context, filter ParticipantFilter) ([]model.Participant, error)

	// ImportParticipants writes a batch of records, upserting on the
	// participant id, and returns the batch identifier.
	ImportParticipants(ctx context.Context, rows []model.Participant, ai bool) (string, error)

	Migrate(ctx context.Context) error
	Close() error
}

// decisionLabel maps the binary outcome back to its stored label.
func decisionLabel(d *int) any {
	if d == nil {
		return nil
	}
	if *d == 1 {
		return "donate"
	}
	return "decline"
}
