package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertProctorViolation = `-- name: InsertProctorViolation :exec
INSERT INTO proctor_violations (session_id, type, message, occurred_at)
VALUES ($1, $2, $3, $4)
`

type InsertProctorViolationParams struct {
	SessionID  pgtype.UUID        `json:"session_id"`
	Type       string             `json:"type"`
	Message    string             `json:"message"`
	OccurredAt pgtype.Timestamptz `json:"occurred_at"`
}

func (q *Queries) InsertProctorViolation(ctx context.Context, arg InsertProctorViolationParams) error {
	_, err := q.db.Exec(ctx, insertProctorViolation,
		arg.SessionID,
		arg.Type,
		arg.Message,
		arg.OccurredAt,
	)
	return err
}

const listViolationsBySession = `-- name: ListViolationsBySession :many
SELECT violation_id, session_id, type, message, occurred_at, recorded_at
FROM proctor_violations
WHERE session_id = $1
ORDER BY occurred_at ASC
`

func (q *Queries) ListViolationsBySession(ctx context.Context, sessionID pgtype.UUID) ([]ProctorViolation, error) {
	rows, err := q.db.Query(ctx, listViolationsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ProctorViolation
	for rows.Next() {
		var i ProctorViolation
		if err := rows.Scan(
			&i.ViolationID,
			&i.SessionID,
			&i.Type,
			&i.Message,
			&i.OccurredAt,
			&i.RecordedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type InsertProctorViolationsParams struct {
	SessionID  pgtype.UUID        `json:"session_id"`
	Type       string             `json:"type"`
	Message    string             `json:"message"`
	OccurredAt pgtype.Timestamptz `json:"occurred_at"`
}
