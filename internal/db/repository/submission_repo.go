package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	sqlcgen "github.com/gokatarajesh/exam-session/internal/db/sqlc"
)

type submissionStore interface {
	InsertSubmission(ctx context.Context, arg sqlcgen.InsertSubmissionParams) (sqlcgen.Submission, error)
	GetSubmissionBySession(ctx context.Context, sessionID pgtype.UUID) (sqlcgen.Submission, error)
}

// SubmissionRepository persists final answer snapshots.
type SubmissionRepository struct {
	store submissionStore
}

// NewSubmissionRepository constructs a submission repository.
func NewSubmissionRepository(store submissionStore) *SubmissionRepository {
	return &SubmissionRepository{store: store}
}

// InsertOnce stores the submission for a session. A second insert for the
// same session returns the row written first; created reports which case hit.
func (r *SubmissionRepository) InsertOnce(ctx context.Context, params sqlcgen.InsertSubmissionParams) (sqlcgen.Submission, bool, error) {
	row, err := r.store.InsertSubmission(ctx, params)
	if err == nil {
		return row, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return sqlcgen.Submission{}, false, fmt.Errorf("insert submission: %w", err)
	}
	existing, err := r.store.GetSubmissionBySession(ctx, params.SessionID)
	if err != nil {
		return sqlcgen.Submission{}, false, fmt.Errorf("reread submission: %w", err)
	}
	return existing, false, nil
}

// GetBySession fetches the submission for a session.
func (r *SubmissionRepository) GetBySession(ctx context.Context, sessionID pgtype.UUID) (sqlcgen.Submission, error) {
	return r.store.GetSubmissionBySession(ctx, sessionID)
}
