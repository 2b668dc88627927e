package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/pluzgi/chatbot-study/internal/db"
	"github.com/pluzgi/chatbot-study/internal/model"
)

// PostgresStore implements ParticipantStore using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS participants (
	id                TEXT PRIMARY KEY,
	session_id        TEXT NOT NULL DEFAULT '',
	condition         TEXT NOT NULL,
	language          TEXT NOT NULL DEFAULT '',
	is_ai_participant BOOLEAN NOT NULL DEFAULT FALSE,
	donation_decision TEXT,
	donation_config   TEXT,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at      TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS post_task_measures (
	participant_id      TEXT PRIMARY KEY REFERENCES participants(id),
	transparency1       DOUBLE PRECISION,
	transparency2       DOUBLE PRECISION,
	control1            DOUBLE PRECISION,
	control2            DOUBLE PRECISION,
	risk_traceability   DOUBLE PRECISION,
	risk_misuse         DOUBLE PRECISION,
	trust1              DOUBLE PRECISION,
	attention_check     TEXT,
	age                 TEXT,
	gender              TEXT,
	primary_language    TEXT,
	education           TEXT,
	eligible_to_vote_ch TEXT,
	open_feedback       TEXT
);

CREATE TABLE IF NOT EXISTS import_batches (
	id          TEXT PRIMARY KEY,
	source      TEXT NOT NULL,
	n           INTEGER NOT NULL,
	imported_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_participants_condition ON participants(condition);
CREATE INDEX IF NOT EXISTS idx_participants_is_ai ON participants(is_ai_participant);
CREATE INDEX IF NOT EXISTS idx_participants_created_at ON participants(created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const loadParticipantsQuery = `
SELECT
	p.id, p.session_id, p.condition, p.language,
	CASE
		WHEN p.donation_decision = 'donate' THEN 1
		WHEN p.donation_decision = 'decline' THEN 0
		ELSE NULL
	END AS donation_decision,
	COALESCE(p.donation_config, ''),
	p.created_at, p.completed_at,
	ptm.transparency1, ptm.transparency2, ptm.control1, ptm.control2,
	ptm.risk_traceability, ptm.risk_misuse, ptm.trust1,
	COALESCE(ptm.attention_check, ''),
	COALESCE(ptm.age, ''), COALESCE(ptm.gender, ''),
	COALESCE(ptm.primary_language, ''), COALESCE(ptm.education, ''),
	COALESCE(ptm.eligible_to_vote_ch, ''), COALESCE(ptm.open_feedback, '')
FROM participants p
LEFT JOIN post_task_measures ptm ON p.id = ptm.participant_id
WHERE p.is_ai_participant = $1`

// LoadParticipants joins participants with their post-task measures,
// filtered to the requested participant type.
func (s *PostgresStore) LoadParticipants(ctx context.Context, filter ParticipantFilter) ([]model.Participant, error) {
	query := loadParticipantsQuery
	args := []any{filter.AIParticipants}

	if filter.Condition != "" {
		args = append(args, string(filter.Condition))
		query += fmt.Sprintf(" AND p.condition = $%d", len(args))
	}
	query += " ORDER BY p.created_at"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: load participants")
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(
			&p.ID, &p.SessionID, &p.Condition, &p.Language,
			&p.DonationDecision, &p.DonationConfig,
			&p.CreatedAt, &p.CompletedAt,
			&p.Transparency1, &p.Transparency2, &p.Control1, &p.Control2,
			&p.RiskTraceability, &p.RiskMisuse, &p.Trust1,
			&p.AttentionCheck,
			&p.Age, &p.Gender, &p.PrimaryLanguage, &p.Education,
			&p.EligibleToVote, &p.OpenFeedback,
		); err != nil {
			return nil, eris.Wrap(err, "postgres: scan participant")
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: iterate participants")
	}
	return out, nil
}

var participantColumns = []string{
	"id", "session_id", "condition", "language", "is_ai_participant",
	"donation_decision", "donation_config", "created_at", "completed_at",
}

var measureColumns = []string{
	"participant_id", "transparency1", "transparency2", "control1", "control2",
	"risk_traceability", "risk_misuse", "trust1", "attention_check",
	"age", "gender", "primary_language", "education",
	"eligible_to_vote_ch", "open_feedback",
}

// ImportParticipants upserts a batch into both tables and records it in
// import_batches.
func (s *PostgresStore) ImportParticipants(ctx context.Context, records []model.Participant, ai bool) (string, error) {
	if len(records) == 0 {
		return "", eris.New("postgres: import: no records")
	}

	pRows := make([][]any, len(records))
	mRows := make([][]any, len(records))
	for i, r := range records {
		created := r.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		pRows[i] = []any{
			r.ID, r.SessionID, string(r.Condition), r.Language, ai,
			decisionLabel(r.DonationDecision), r.DonationConfig, created, r.CompletedAt,
		}
		mRows[i] = []any{
			r.ID, r.Transparency1, r.Transparency2, r.Control1, r.Control2,
			r.RiskTraceability, r.RiskMisuse, r.Trust1, r.AttentionCheck,
			r.Age, r.Gender, r.PrimaryLanguage, r.Education,
			r.EligibleToVote, r.OpenFeedback,
		}
	}

	if _, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "participants",
		Columns:      participantColumns,
		ConflictKeys: []string{"id"},
	}, pRows); err != nil {
		return "", eris.Wrap(err, "postgres: import participants")
	}
	// Measures carry no per-column merge logic, so a re-import replaces the
	// incoming ids wholesale and bulk-loads the batch with plain COPY.
	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	if _, err := s.pool.Exec(ctx,
		`DELETE FROM post_task_measures WHERE participant_id = ANY($1)`, ids); err != nil {
		return "", eris.Wrap(err, "postgres: clear measures for batch")
	}
	if _, err := db.CopyFrom(ctx, s.pool, "post_task_measures", measureColumns, mRows); err != nil {
		return "", eris.Wrap(err, "postgres: import measures")
	}

	batchID := uuid.New().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_batches (id, source, n, imported_at) VALUES ($1, $2, $3, $4)`,
		batchID, "postgres", len(records), time.Now().UTC())
	if err != nil {
		return "", eris.Wrap(err, "postgres: record import batch")
	}
	return batchID, nil
}

var _ ParticipantStore = (*PostgresStore)(nil)
