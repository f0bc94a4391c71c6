package sqlcgen

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type LeaderboardSnapshot struct {
	SnapshotID  int64              `json:"snapshot_id"`
	TestID      pgtype.UUID        `json:"test_id"`
	GeneratedAt pgtype.Timestamptz `json:"generated_at"`
	Entries     []byte             `json:"entries"`
	SourceHash  string             `json:"source_hash"`
}

type ProctorViolation struct {
	ViolationID int64              `json:"violation_id"`
	SessionID   pgtype.UUID        `json:"session_id"`
	Type        string             `json:"type"`
	Message     string             `json:"message"`
	OccurredAt  pgtype.Timestamptz `json:"occurred_at"`
	RecordedAt  pgtype.Timestamptz `json:"recorded_at"`
}

type Question struct {
	QuestionID      pgtype.UUID        `json:"question_id"`
	TestID          pgtype.UUID        `json:"test_id"`
	Position        int32              `json:"position"`
	Type            string             `json:"type"`
	Prompt          string             `json:"prompt"`
	Options         []byte             `json:"options"`
	ImageUrl        pgtype.Text        `json:"image_url"`
	Points          float64            `json:"points"`
	CorrectOptionID pgtype.Text        `json:"correct_option_id"`
	CreatedAt       pgtype.Timestamptz `json:"created_at"`
}

type Submission struct {
	SubmissionID     pgtype.UUID        `json:"submission_id"`
	SessionID        pgtype.UUID        `json:"session_id"`
	TestID           pgtype.UUID        `json:"test_id"`
	CandidateID      string             `json:"candidate_id"`
	Answers          []byte             `json:"answers"`
	Trigger          string             `json:"trigger"`
	Score            float64            `json:"score"`
	MaxScore         float64            `json:"max_score"`
	CorrectCount     int32              `json:"correct_count"`
	PendingCount     int32              `json:"pending_count"`
	RemainingSeconds int32              `json:"remaining_seconds"`
	SubmittedAt      pgtype.Timestamptz `json:"submitted_at"`
}

type Test struct {
	TestID           pgtype.UUID        `json:"test_id"`
	Title            string             `json:"title"`
	DurationSeconds  int32              `json:"duration_seconds"`
	IsTimed          bool               `json:"is_timed"`
	AllowReview      bool               `json:"allow_review"`
	ShowScore        bool               `json:"show_score"`
	ShuffleQuestions bool               `json:"shuffle_questions"`
	ShuffleOptions   bool               `json:"shuffle_options"`
	MaxQuestions     int32              `json:"max_questions"`
	CreatedAt        pgtype.Timestamptz `json:"created_at"`
}
