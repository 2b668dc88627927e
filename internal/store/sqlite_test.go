package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluzgi/chatbot-study/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func intPtr(v int) *int             { return &v }
func floatPtr(v float64) *float64   { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func sampleParticipants() []model.Participant {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return []model.Participant{
		{
			ID:               "p1",
			SessionID:        "s1",
			Condition:        model.ConditionA,
			Language:         "de",
			DonationDecision: intPtr(0),
			Transparency1:    floatPtr(2.0),
			Transparency2:    floatPtr(2.5),
			AttentionCheck:   "voting",
			Age:              "25-34",
			Gender:           "female",
			CreatedAt:        created,
		},
		{
			ID:               "p2",
			SessionID:        "s2",
			Condition:        model.ConditionD,
			Language:         "de",
			DonationDecision: intPtr(1),
			DonationConfig:   `{"scope":"full"}`,
			Control1:         floatPtr(5.0),
			Control2:         floatPtr(4.5),
			AttentionCheck:   "voting",
			CreatedAt:        created.Add(time.Minute),
			CompletedAt:      timePtr(created.Add(10 * time.Minute)),
		},
		{
			ID:        "p3",
			Condition: model.ConditionB,
			CreatedAt: created.Add(2 * time.Minute),
		},
	}
}

func TestSQLiteStore_ImportAndLoad(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	batchID, err := s.ImportParticipants(ctx, sampleParticipants(), false)
	require.NoError(t, err)
	assert.NotEmpty(t, batchID)

	got, err := s.LoadParticipants(ctx, ParticipantFilter{})
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Ordered by created_at.
	assert.Equal(t, "p1", got[0].ID)
	assert.Equal(t, "p2", got[1].ID)

	p1, p2, p3 := got[0], got[1], got[2]
	require.NotNil(t, p1.DonationDecision)
	assert.Equal(t, 0, *p1.DonationDecision)
	require.NotNil(t, p1.Transparency1)
	assert.InDelta(t, 2.0, *p1.Transparency1, 1e-12)
	assert.Nil(t, p1.Control1)

	require.NotNil(t, p2.DonationDecision)
	assert.Equal(t, 1, *p2.DonationDecision)
	assert.Equal(t, `{"scope":"full"}`, p2.DonationConfig)
	require.NotNil(t, p2.CompletedAt)

	assert.Nil(t, p3.DonationDecision)
	assert.Equal(t, model.ConditionB, p3.Condition)
}

func TestSQLiteStore_FilterByAI(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.ImportParticipants(ctx, sampleParticipants()[:2], false)
	require.NoError(t, err)
	_, err = s.ImportParticipants(ctx, sampleParticipants()[2:], true)
	require.NoError(t, err)

	human, err := s.LoadParticipants(ctx, ParticipantFilter{AIParticipants: false})
	require.NoError(t, err)
	assert.Len(t, human, 2)

	ai, err := s.LoadParticipants(ctx, ParticipantFilter{AIParticipants: true})
	require.NoError(t, err)
	require.Len(t, ai, 1)
	assert.Equal(t, "p3", ai[0].ID)
}

func TestSQLiteStore_FilterByConditionAndLimit(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	_, err := s.ImportParticipants(ctx, sampleParticipants(), false)
	require.NoError(t, err)

	got, err := s.LoadParticipants(ctx, ParticipantFilter{Condition: model.ConditionD})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)

	got, err = s.LoadParticipants(ctx, ParticipantFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestSQLiteStore_ReimportUpserts(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	rows := sampleParticipants()[:1]
	_, err := s.ImportParticipants(ctx, rows, false)
	require.NoError(t, err)

	rows[0].DonationDecision = intPtr(1)
	_, err = s.ImportParticipants(ctx, rows, false)
	require.NoError(t, err)

	got, err := s.LoadParticipants(ctx, ParticipantFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].DonationDecision)
	assert.Equal(t, 1, *got[0].DonationDecision)
}

func TestSQLiteStore_ImportEmpty(t *testing.T) {
	s := newTestSQLite(t)

	_, err := s.ImportParticipants(context.Background(), nil, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no records")
}
