package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertSubmission = `-- name: InsertSubmission :one
INSERT INTO submissions (
    session_id, test_id, candidate_id, answers, trigger, score, max_score, correct_count, pending_count, remaining_seconds
) VALUES (
    $1, $2, $3, $4, $5, $6, $7, $8, $9, $10
)
ON CONFLICT (session_id) DO NOTHING
RETURNING submission_id, session_id, test_id, candidate_id, answers, trigger, score, max_score, correct_count, pending_count, remaining_seconds, submitted_at
`

type InsertSubmissionParams struct {
	SessionID        pgtype.UUID `json:"session_id"`
	TestID           pgtype.UUID `json:"test_id"`
	CandidateID      string      `json:"candidate_id"`
	Answers          []byte      `json:"answers"`
	Trigger          string      `json:"trigger"`
	Score            float64     `json:"score"`
	MaxScore         float64     `json:"max_score"`
	CorrectCount     int32       `json:"correct_count"`
	PendingCount     int32       `json:"pending_count"`
	RemainingSeconds int32       `json:"remaining_seconds"`
}

func (q *Queries) InsertSubmission(ctx context.Context, arg InsertSubmissionParams) (Submission, error) {
	row := q.db.QueryRow(ctx, insertSubmission,
		arg.SessionID,
		arg.TestID,
		arg.CandidateID,
		arg.Answers,
		arg.Trigger,
		arg.Score,
		arg.MaxScore,
		arg.CorrectCount,
		arg.PendingCount,
		arg.RemainingSeconds,
	)
	var i Submission
	err := row.Scan(
		&i.SubmissionID,
		&i.SessionID,
		&i.TestID,
		&i.CandidateID,
		&i.Answers,
		&i.Trigger,
		&i.Score,
		&i.MaxScore,
		&i.CorrectCount,
		&i.PendingCount,
		&i.RemainingSeconds,
		&i.SubmittedAt,
	)
	return i, err
}

const getSubmissionBySession = `-- name: GetSubmissionBySession :one
SELECT submission_id, session_id, test_id, candidate_id, answers, trigger, score, max_score, correct_count, pending_count, remaining_seconds, submitted_at
FROM submissions
WHERE session_id = $1
`

func (q *Queries) GetSubmissionBySession(ctx context.Context, sessionID pgtype.UUID) (Submission, error) {
	row := q.db.QueryRow(ctx, getSubmissionBySession, sessionID)
	var i Submission
	err := row.Scan(
		&i.SubmissionID,
		&i.SessionID,
		&i.TestID,
		&i.CandidateID,
		&i.Answers,
		&i.Trigger,
		&i.Score,
		&i.MaxScore,
		&i.CorrectCount,
		&i.PendingCount,
		&i.RemainingSeconds,
		&i.SubmittedAt,
	)
	return i, err
}
