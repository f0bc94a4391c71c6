package sqlcgen

import (
	"context"
)

// iteratorForInsertProctorViolations implements pgx.CopyFromSource.
type iteratorForInsertProctorViolations struct {
	rows                 []InsertProctorViolationsParams
	skippedFirstNextCall bool
}

func (r *iteratorForInsertProctorViolations) Next() bool {
	if len(r.rows) == 0 {
		return false
	}
	if !r.skippedFirstNextCall {
		r.skippedFirstNextCall = true
		return true
	}
	r.rows = r.rows[1:]
	return len(r.rows) > 0
}

func (r iteratorForInsertProctorViolations) Values() ([]interface{}, error) {
	return []interface{}{
		r.rows[0].SessionID,
		r.rows[0].Type,
		r.rows[0].Message,
		r.rows[0].OccurredAt,
	}, nil
}

func (r iteratorForInsertProctorViolations) Err() error {
	return nil
}

func (q *Queries) InsertProctorViolations(ctx context.Context, arg []InsertProctorViolationsParams) (int64, error) {
	return q.db.CopyFrom(ctx, []string{"proctor_violations"}, []string{"session_id", "type", "message", "occurred_at"}, &iteratorForInsertProctorViolations{rows: arg})
}
