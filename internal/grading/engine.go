package grading

import (
	"github.com/gokatarajesh/exam-session/internal/session"
)

// Config holds configurable scoring constants.
type Config struct {
	NegativeMarking float64 // fraction of a question's points deducted for a wrong MCQ answer
	FloorAtZero     bool    // clamp the total at zero
}

// DefaultConfig returns production defaults: no negative marking.
func DefaultConfig() Config {
	return Config{FloorAtZero: true}
}

// Outcome is the per-question verdict.
type Outcome string

const (
	OutcomeCorrect    Outcome = "correct"
	OutcomeIncorrect  Outcome = "incorrect"
	OutcomeUnanswered Outcome = "unanswered"
	OutcomePending    Outcome = "pending" // descriptive, needs a human
)

// QuestionResult is the verdict for a single question.
type QuestionResult struct {
	QuestionID string  `json:"question_id"`
	Outcome    Outcome `json:"outcome"`
	Points     float64 `json:"points"`
}

// Result aggregates a whole answer snapshot.
type Result struct {
	Score     float64          `json:"score"`
	MaxScore  float64          `json:"max_score"`
	Correct   int              `json:"correct"`
	Incorrect int              `json:"incorrect"`
	Answered  int              `json:"answered"`
	Pending   int              `json:"pending"`
	Questions []QuestionResult `json:"questions"`
}

// Accuracy is correct over auto-gradable answered questions.
func (r Result) Accuracy() float64 {
	graded := r.Correct + r.Incorrect
	if graded == 0 {
		return 0
	}
	return float64(r.Correct) / float64(graded)
}

// Engine grades answer snapshots server-side.
type Engine struct {
	config Config
}

// NewEngine creates a grading engine with the provided config.
func NewEngine(config Config) *Engine {
	return &Engine{config: config}
}

// Grade scores answers against questions. MCQ answers are compared by
// option ID; descriptive answers are left pending. Answers for questions
// not in the list are ignored.
func (e *Engine) Grade(questions []session.Question, answers map[string]string) Result {
	res := Result{Questions: make([]QuestionResult, 0, len(questions))}

	for _, q := range questions {
		res.MaxScore += q.Points
		answer := answers[q.ID]
		qr := QuestionResult{QuestionID: q.ID}

		switch {
		case answer == "":
			qr.Outcome = OutcomeUnanswered
		case q.Type == session.TypeDescriptive || q.CorrectOptionID == "":
			res.Answered++
			res.Pending++
			qr.Outcome = OutcomePending
		case answer == q.CorrectOptionID:
			res.Answered++
			res.Correct++
			qr.Outcome = OutcomeCorrect
			qr.Points = q.Points
		default:
			res.Answered++
			res.Incorrect++
			qr.Outcome = OutcomeIncorrect
			qr.Points = -q.Points * e.config.NegativeMarking
		}

		res.Score += qr.Points
		res.Questions = append(res.Questions, qr)
	}

	if e.config.FloorAtZero && res.Score < 0 {
		res.Score = 0
	}
	return res
}

// AckScore converts a result to the acknowledgement form.
func (r Result) AckScore() *session.Score {
	return &session.Score{
		Points:    r.Score,
		MaxPoints: r.MaxScore,
		Correct:   r.Correct,
		Pending:   r.Pending,
	}
}
