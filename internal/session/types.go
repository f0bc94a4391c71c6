package session

import (
	"context"
	"errors"
	"time"
)

// Question types.
const (
	TypeMCQ         = "mcq"
	TypeDescriptive = "descriptive"
)

// Status is the lifecycle state of a session's submission.
type Status string

// Status values. Submitting is transient and exists to block double submits.
const (
	StatusInProgress Status = "in_progress"
	StatusSubmitting Status = "submitting"
	StatusSubmitted  Status = "submitted"
)

// Trigger records what initiated a submission.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

// Option is a selectable MCQ choice. ID is assigned once when the test is
// loaded and stays stable across shuffles, so identical texts stay distinct.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is immutable once a session starts.
type Question struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Prompt          string   `json:"prompt"`
	Options         []Option `json:"options,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	Points          float64  `json:"points"`
	CorrectOptionID string   `json:"correct_option_id,omitempty"`
}

// HasOption reports whether id names one of the question's options.
func (q Question) HasOption(id string) bool {
	for _, opt := range q.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// TestData is the complete in-memory test handed to a session at construction.
type TestData struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Duration    int        `json:"duration"` // seconds
	Questions   []Question `json:"questions"`
	IsTimed     bool       `json:"is_timed"`
	AllowReview bool       `json:"allow_review"`
	ShowScore   bool       `json:"show_score"`
}

// Snapshot is the answer store at the moment of submission.
type Snapshot struct {
	SessionID        string            `json:"session_id"`
	TestID           string            `json:"test_id"`
	CandidateID      string            `json:"candidate_id"`
	Answers          map[string]string `json:"answers"`
	Trigger          Trigger           `json:"trigger"`
	RemainingSeconds int               `json:"remaining_seconds"`
	TakenAt          time.Time         `json:"taken_at"`
}

// Score is returned with an ack when the test shows scores.
type Score struct {
	Points    float64 `json:"points"`
	MaxPoints float64 `json:"max_points"`
	Correct   int     `json:"correct"`
	Pending   int     `json:"pending"`
}

// Ack is the persistence collaborator's acknowledgement.
type Ack struct {
	SubmissionID string    `json:"submission_id"`
	ReceivedAt   time.Time `json:"received_at"`
	Score        *Score    `json:"score,omitempty"`
}

// Persister is the external submitAnswers boundary.
type Persister interface {
	SubmitAnswers(ctx context.Context, sessionID string, snapshot Snapshot) (Ack, error)
}

// ViolationRecorder receives violations raised by the session itself.
type ViolationRecorder interface {
	RecordViolation(ctx context.Context, sessionID string, v Violation) error
}

var (
	ErrSubmitInFlight   = errors.New("submission already in progress")
	ErrAlreadySubmitted = errors.New("session already submitted")
	ErrUnknownQuestion  = errors.New("unknown question")
	ErrUnknownOption    = errors.New("unknown option for question")
	ErrClosed           = errors.New("session closed")
	ErrDraftMismatch    = errors.New("draft does not match test questions")
)

// SubmitError wraps a persistence failure. The session is back in progress
// and the caller may submit again.
type SubmitError struct {
	Err       error
	Retryable bool
}

func (e *SubmitError) Error() string {
	return "submit answers: " + e.Err.Error()
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}
