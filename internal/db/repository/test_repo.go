package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
)

type testStore interface {
	GetTest(ctx context.Context, testID pgtype.UUID) (sqlcgen.Test, error)
	ListQuestionsByTest(ctx context.Context, testID pgtype.UUID) ([]sqlcgen.Question, error)
	UpdateQuestionOptions(ctx context.Context, arg sqlcgen.UpdateQuestionOptionsParams) error
}

// TestRepository loads test definitions and their questions.
type TestRepository struct {
	store testStore
}

// NewTestRepository constructs a test repository.
func NewTestRepository(store testStore) *TestRepository {
	return &TestRepository{store: store}
}

// Get fetches the test row.
func (r *TestRepository) Get(ctx context.Context, testID uuid.UUID) (sqlcgen.Test, error) {
	return r.store.GetTest(ctx, PGUUID(testID))
}

// Questions returns the test's questions in authoring order.
func (r *TestRepository) Questions(ctx context.Context, testID uuid.UUID) ([]sqlcgen.Question, error) {
	return r.store.ListQuestionsByTest(ctx, PGUUID(testID))
}

// SaveOptions writes back options after IDs were assigned.
func (r *TestRepository) SaveOptions(ctx context.Context, params sqlcgen.UpdateQuestionOptionsParams) error {
	return r.store.UpdateQuestionOptions(ctx, params)
}
