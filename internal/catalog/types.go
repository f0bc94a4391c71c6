package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
	"github.com/gokatarajesh/exam-session/internal/session"
)

var (
	ErrTestNotFound = errors.New("test not found")
	ErrInvalidID    = errors.New("invalid test id")
	ErrEmptyTest    = errors.New("test has no questions")
)

// Test is a loaded test plus its per-session ordering rules.
type Test struct {
	Data      session.TestData         `json:"data"`
	Randomize session.RandomizeOptions `json:"randomize"`
}

// Store is the Postgres side of the catalog.
type Store interface {
	Get(ctx context.Context, testID uuid.UUID) (sqlcgen.Test, error)
	Questions(ctx context.Context, testID uuid.UUID) ([]sqlcgen.Question, error)
	SaveOptions(ctx context.Context, params sqlcgen.UpdateQuestionOptionsParams) error
}

// Cache stores fully loaded tests.
type Cache interface {
	Get(ctx context.Context, testID string) (*Test, error)
	Set(ctx context.Context, testID string, t Test) error
}
