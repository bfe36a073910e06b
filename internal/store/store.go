package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

var ErrNotFound = errors.New("answer not found")

// Request is the stored form of an answer request.
type Request struct {
	Question  string
	Context   string
	Language  string
	MaxLength int
}

// Completion is the stored form of an engine result.
type Completion struct {
	Answer     string
	Details    string
	Confidence string
	WordCount  int
	Outcome    string
	Warnings   []string
	DurationMs int64
}

type Record struct {
	ID          uuid.UUID
	Status      Status
	Request     Request
	Completion  Completion
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Store persists answer requests and their results.
type Store interface {
	// CreatePending records a request that will be answered asynchronously.
	CreatePending(ctx context.Context, req Request) (Record, error)
	// Complete attaches a result to a pending record.
	Complete(ctx context.Context, id uuid.UUID, c Completion) error
	// SaveAnswer records a request answered synchronously in one step.
	SaveAnswer(ctx context.Context, req Request, c Completion) (Record, error)
	Get(ctx context.Context, id uuid.UUID) (Record, error)
	Close() error
}
