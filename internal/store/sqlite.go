package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/pluzgi/chatbot-study/internal/model"
)

// SQLiteStore implements ParticipantStore using modernc.org/sqlite. It
// mirrors the Postgres schema so offline runs see the same join.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS participants (
	id                TEXT PRIMARY KEY,
	session_id        TEXT NOT NULL DEFAULT '',
	condition         TEXT NOT NULL,
	language          TEXT NOT NULL DEFAULT '',
	is_ai_participant INTEGER NOT NULL DEFAULT 0,
	donation_decision TEXT,
	donation_config   TEXT,
	created_at        TEXT NOT NULL,
	completed_at      TEXT
);

CREATE TABLE IF NOT EXISTS post_task_measures (
	participant_id      TEXT PRIMARY KEY REFERENCES participants(id),
	transparency1       REAL,
	transparency2       REAL,
	control1            REAL,
	control2            REAL,
	risk_traceability   REAL,
	risk_misuse         REAL,
	trust1              REAL,
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
	imported_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_participants_condition ON participants(condition);
CREATE INDEX IF NOT EXISTS idx_participants_is_ai ON participants(is_ai_participant);
CREATE INDEX IF NOT EXISTS idx_participants_created_at ON participants(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const sqliteLoadQuery = `
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
WHERE p.is_ai_participant = ?`

// LoadParticipants joins participants with their post-task measures,
// filtered to the requested participant type.
func (s *SQLiteStore) LoadParticipants(ctx context.Context, filter ParticipantFilter) ([]model.Participant, error) {
	query := sqliteLoadQuery
	args := []any{boolInt(filter.AIParticipants)}

	if filter.Condition != "" {
		query += " AND p.condition = ?"
		args = append(args, string(filter.Condition))
	}
	query += " ORDER BY p.created_at"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: load participants")
	}
	defer rows.Close()

	var out []model.Participant
	for rows.Next() {
		var p model.Participant
		var created string
		var completed sql.NullString
		if err := rows.Scan(
			&p.ID, &p.SessionID, &p.Condition, &p.Language,
			&p.DonationDecision, &p.DonationConfig,
			&created, &completed,
			&p.Transparency1, &p.Transparency2, &p.Control1, &p.Control2,
			&p.RiskTraceability, &p.RiskMisuse, &p.Trust1,
			&p.AttentionCheck,
			&p.Age, &p.Gender, &p.PrimaryLanguage, &p.Education,
			&p.EligibleToVote, &p.OpenFeedback,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan participant")
		}
		if ts, perr := time.Parse(time.RFC3339Nano, created); perr == nil {
			p.CreatedAt = ts
		}
		if completed.Valid {
			if ts, perr := time.Parse(time.RFC3339Nano, completed.String); perr == nil {
				p.CompletedAt = &ts
			}
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate participants")
	}
	return out, nil
}

// ImportParticipants upserts a batch in one transaction and records it in
// import_batches.
func (s *SQLiteStore) ImportParticipants(ctx context.Context, records []model.Participant, ai bool) (string, error) {
	if len(records) == 0 {
		return "", eris.New("sqlite: import: no records")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: import: begin tx")
	}
	defer tx.Rollback()

	insertParticipant := fmt.Sprintf(
		`INSERT OR REPLACE INTO participants (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"id, session_id, condition, language, is_ai_participant, donation_decision, donation_config, created_at, completed_at")
	insertMeasures := fmt.Sprintf(
		`INSERT OR REPLACE INTO post_task_measures (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		"participant_id, transparency1, transparency2, control1, control2, risk_traceability, risk_misuse, trust1, attention_check, age, gender, primary_language, education, eligible_to_vote_ch, open_feedback")

	for _, r := range records {
		created := r.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		var completed any
		if r.CompletedAt != nil {
			completed = r.CompletedAt.UTC().Format(time.RFC3339Nano)
		}
		if _, err := tx.ExecContext(ctx, insertParticipant,
			r.ID, r.SessionID, string(r.Condition), r.Language, boolInt(ai),
			decisionLabel(r.DonationDecision), r.DonationConfig,
			created.UTC().Format(time.RFC3339Nano), completed,
		); err != nil {
			return "", eris.Wrapf(err, "sqlite: import participant %s", r.ID)
		}
		if _, err := tx.ExecContext(ctx, insertMeasures,
			r.ID, r.Transparency1, r.Transparency2, r.Control1, r.Control2,
			r.RiskTraceability, r.RiskMisuse, r.Trust1, r.AttentionCheck,
			r.Age, r.Gender, r.PrimaryLanguage, r.Education,
			r.EligibleToVote, r.OpenFeedback,
		); err != nil {
			return "", eris.Wrapf(err, "sqlite: import measures %s", r.ID)
		}
	}

	batchID := uuid.New().String()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO import_batches (id, source, n, imported_at) VALUES (?, ?, ?, ?)`,
		batchID, "csv", len(records), time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return "", eris.Wrap(err, "sqlite: record import batch")
	}

	if err := tx.Commit(); err != nil {
		return "", eris.Wrap(err, "sqlite: import: commit")
	}
	return batchID, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ ParticipantStore = (*SQLiteStore)(nil)
