package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	// Advisory lock keeps server and worker replicas from migrating concurrently.
	const lockID = 734201987

	var acquired bool
	err := s.db.QueryRowContext(ctx, `SELECT pg_try_advisory_lock($1)`, lockID).Scan(&acquired)
	if err != nil {
		return fmt.Errorf("failed to acquire migration lock: %w", err)
	}

	if !acquired {
		// Another service is running migrations; wait briefly and skip
		time.Sleep(2 * time.Second)
		return nil
	}

	defer func() {
		_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
	}()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS answers (
			id UUID PRIMARY KEY,
			status TEXT NOT NULL,
			question TEXT NOT NULL,
			context TEXT NOT NULL,
			language TEXT NOT NULL,
			max_length INT NOT NULL,
			answer TEXT NOT NULL DEFAULT '',
			details TEXT NOT NULL DEFAULT '',
			confidence TEXT NOT NULL DEFAULT '',
			word_count INT NOT NULL DEFAULT 0,
			outcome TEXT NOT NULL DEFAULT '',
			warnings TEXT[] NOT NULL DEFAULT ARRAY[]::TEXT[],
			duration_ms BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			completed_at TIMESTAMPTZ
		);`,
		`CREATE INDEX IF NOT EXISTS answers_created_at_idx ON answers (created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) CreatePending(ctx context.Context, req Request) (Record, error) {
	id := uuid.New()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers(id, status, question, context, language, max_length, created_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)`,
		id, StatusPending, req.Question, req.Context, req.Language, req.MaxLength, now)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, Status: StatusPending, Request: req, CreatedAt: now}, nil
}

func (s *PostgresStore) Complete(ctx context.Context, id uuid.UUID, c Completion) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE answers
		SET status=$1, answer=$2, details=$3, confidence=$4, word_count=$5, outcome=$6,
			warnings=$7, duration_ms=$8, completed_at=now()
		WHERE id=$9`,
		StatusCompleted, c.Answer, c.Details, c.Confidence, c.WordCount, c.Outcome,
		pq.Array(nonNil(c.Warnings)), c.DurationMs, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) SaveAnswer(ctx context.Context, req Request, c Completion) (Record, error) {
	id := uuid.New()
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers(id, status, question, context, language, max_length,
			answer, details, confidence, word_count, outcome, warnings, duration_ms, created_at, completed_at)
		VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$14)`,
		id, StatusCompleted, req.Question, req.Context, req.Language, req.MaxLength,
		c.Answer, c.Details, c.Confidence, c.WordCount, c.Outcome, pq.Array(nonNil(c.Warnings)), c.DurationMs, now)
	if err != nil {
		return Record{}, err
	}
	return Record{ID: id, Status: StatusCompleted, Request: req, Completion: c, CreatedAt: now, CompletedAt: &now}, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (Record, error) {
	var (
		rec         Record
		warnings    []string
		completedAt sql.NullTime
	)
	row := s.db.QueryRowContext(ctx, `
		SELECT id, status, question, context, language, max_length,
			answer, details, confidence, word_count, outcome, warnings, duration_ms, created_at, completed_at
		FROM answers WHERE id=$1`, id)
	err := row.Scan(&rec.ID, &rec.Status, &rec.Request.Question, &rec.Request.Context, &rec.Request.Language, &rec.Request.MaxLength,
		&rec.Completion.Answer, &rec.Completion.Details, &rec.Completion.Confidence, &rec.Completion.WordCount,
		&rec.Completion.Outcome, pq.Array(&warnings), &rec.Completion.DurationMs, &rec.CreatedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("failed to get answer %s: %w", id, err)
	}
	rec.Completion.Warnings = warnings
	if completedAt.Valid {
		t := completedAt.Time
		rec.CompletedAt = &t
	}
	return rec, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}
