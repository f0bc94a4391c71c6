package sqlcgen

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const getTest = `-- name: GetTest :one
SELECT test_id, title, duration_seconds, is_timed, allow_review, show_score, shuffle_questions, shuffle_options, max_questions, created_at
FROM tests
WHERE test_id = $1
`

func (q *Queries) GetTest(ctx context.Context, testID pgtype.UUID) (Test, error) {
	row := q.db.QueryRow(ctx, getTest, testID)
	var i Test
	err := row.Scan(
		&i.TestID,
		&i.Title,
		&i.DurationSeconds,
		&i.IsTimed,
		&i.AllowReview,
		&i.ShowScore,
		&i.ShuffleQuestions,
		&i.ShuffleOptions,
		&i.MaxQuestions,
		&i.CreatedAt,
	)
	return i, err
}

const listQuestionsByTest = `-- name: ListQuestionsByTest :many
SELECT question_id, test_id, position, type, prompt, options, image_url, points, correct_option_id, created_at
FROM questions
WHERE test_id = $1
ORDER BY position ASC
`

func (q *Queries) ListQuestionsByTest(ctx context.Context, testID pgtype.UUID) ([]Question, error) {
	rows, err := q.db.Query(ctx, listQuestionsByTest, testID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Question
	for rows.Next() {
		var i Question
		if err := rows.Scan(
			&i.QuestionID,
			&i.TestID,
			&i.Position,
			&i.Type,
			&i.Prompt,
			&i.Options,
			&i.ImageUrl,
			&i.Points,
			&i.CorrectOptionID,
			&i.CreatedAt,
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

const updateQuestionOptions = `-- name: UpdateQuestionOptions :exec
UPDATE questions
SET options = $2, correct_option_id = $3
WHERE question_id = $1
`

type UpdateQuestionOptionsParams struct {
	QuestionID      pgtype.UUID `json:"question_id"`
	Options         []byte      `json:"options"`
	CorrectOptionID pgtype.Text `json:"correct_option_id"`
}

func (q *Queries) UpdateQuestionOptions(ctx context.Context, arg UpdateQuestionOptionsParams) error {
	_, err := q.db.Exec(ctx, updateQuestionOptions, arg.QuestionID, arg.Options, arg.CorrectOptionID)
	return err
}
