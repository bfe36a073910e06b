package store

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPostgres connects to TEST_DB_URL; tests skip when it is not set.
func newTestPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DB_URL")
	if dsn == "" {
		t.Skip("TEST_DB_URL not set")
	}
	s, err := NewPostgres(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestPostgresPendingLifecycle(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	req := Request{Question: "Was ist die Hauptstadt?", Context: "Berlin ist die Hauptstadt.", Language: "German", MaxLength: 64}
	rec, err := s.CreatePending(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, rec.Status)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)
	assert.Equal(t, req, got.Request)
	assert.Nil(t, got.CompletedAt)

	c := Completion{Answer: "Berlin", Confidence: "Low", WordCount: 1, Outcome: "answered", Warnings: []string{"input truncated"}, DurationMs: 12}
	require.NoError(t, s.Complete(ctx, rec.ID, c))

	got, err = s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, c, got.Completion)
	assert.NotNil(t, got.CompletedAt)
}

func TestPostgresSaveAnswer(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	rec, err := s.SaveAnswer(ctx, Request{Question: "q", Context: "c", Language: "English", MaxLength: 32},
		Completion{Answer: "a b", Outcome: "answered", Confidence: "Medium", WordCount: 2})
	require.NoError(t, err)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "a b", got.Completion.Answer)
	assert.Empty(t, got.Completion.Warnings)
}

func TestPostgresNotFound(t *testing.T) {
	s := newTestPostgres(t)
	ctx := context.Background()

	_, err := s.Get(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(s.Complete(ctx, uuid.New(), Completion{}), ErrNotFound))
}
