package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
)

type violationStore interface {
	InsertProctorViolation(ctx context.Context, arg sqlcgen.InsertProctorViolationParams) error
	InsertProctorViolations(ctx context.Context, arg []sqlcgen.InsertProctorViolationsParams) (int64, error)
	ListViolationsBySession(ctx context.Context, sessionID pgtype.UUID) ([]sqlcgen.ProctorViolation, error)
}

// ViolationRepository stores proctoring violations.
type ViolationRepository struct {
	store violationStore
}

func NewViolationRepository(store violationStore) *ViolationRepository {
	return &ViolationRepository{store: store}
}

// InsertBatch bulk-loads rows with COPY.
func (r *ViolationRepository) InsertBatch(ctx context.Context, rows []sqlcgen.InsertProctorViolationsParams) (int64, error) {
	return r.store.InsertProctorViolations(ctx, rows)
}

// Insert writes a single row.
func (r *ViolationRepository) Insert(ctx context.Context, row sqlcgen.InsertProctorViolationParams) error {
	return r.store.InsertProctorViolation(ctx, row)
}

// ListBySession returns a session's violations oldest first.
func (r *ViolationRepository) ListBySession(ctx context.Context, sessionID pgtype.UUID) ([]sqlcgen.ProctorViolation, error) {
	return r.store.ListViolationsBySession(ctx, sessionID)
}
