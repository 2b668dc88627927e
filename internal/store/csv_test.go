package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pluzgi/chatbot-study/internal/model"
)

const csvSample = `participant_id,session_id,condition,language,donation_decision,donation_config,transparency1,transparency2,control1,control2,risk_traceability,risk_misuse,trust1,attention_check,age,gender,primary_language,education,eligible_to_vote_ch,open_feedback,created_at
p1,s1,A,de,0,,2.0,2.5,,,3,4,4.5,voting,25-34,female,de,bachelor,yes,,2025-03-01T10:00:00Z
p2,s2,D,de,1,"{""scope"":""full""}",,,,5.0,,,,voting,,,,,,felt in control,2025-03-01T10:01:00Z
p3,s3,B,de,,,,,,,,,,,,,,,,,2025-03-01T10:02:00Z
`

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "export.csv")
	require.NoError(t, os.WriteFile(path, []byte(csvSample), 0o644))
	return path
}

func TestReadParticipantsCSV(t *testing.T) {
	got, err := ReadParticipantsCSV(writeCSV(t))
	require.NoError(t, err)
	require.Len(t, got, 3)

	p1 := got[0]
	assert.Equal(t, "p1", p1.ID)
	assert.Equal(t, model.ConditionA, p1.Condition)
	require.NotNil(t, p1.DonationDecision)
	assert.Equal(t, 0, *p1.DonationDecision)
	require.NotNil(t, p1.Transparency1)
	assert.InDelta(t, 2.0, *p1.Transparency1, 1e-12)
	assert.Nil(t, p1.Control1)
	assert.Equal(t, "voting", p1.AttentionCheck)
	assert.False(t, p1.CreatedAt.IsZero())

	// Missing measures decode to nil, not zero.
	p3 := got[2]
	assert.Nil(t, p3.DonationDecision)
	assert.Nil(t, p3.Transparency1)
}

func TestReadParticipantsCSV_MissingFile(t *testing.T) {
	_, err := ReadParticipantsCSV(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open csv")
}

func TestImportCSV_RoundTrip(t *testing.T) {
	s := newTestSQLite(t)

	batchID, n, err := ImportCSV(context.Background(), s, writeCSV(t), false)
	require.NoError(t, err)
	assert.NotEmpty(t, batchID)
	assert.Equal(t, 3, n)

	got, err := s.LoadParticipants(context.Background(), ParticipantFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 3)
}
