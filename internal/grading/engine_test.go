package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gokatarajesh/exam-session/internal/session"
)

func questions() []session.Question {
	return []session.Question{
		{ID: "q1", Type: session.TypeMCQ, Points: 2, CorrectOptionID: "a"},
		{ID: "q2", Type: session.TypeMCQ, Points: 1, CorrectOptionID: "c"},
		{ID: "q3", Type: session.TypeDescriptive, Points: 5},
		{ID: "q4", Type: session.TypeMCQ, Points: 1, CorrectOptionID: "x"},
	}
}

func TestGrade(t *testing.T) {
	engine := NewEngine(DefaultConfig())

	res := engine.Grade(questions(), map[string]string{
		"q1":    "a",
		"q2":    "b",
		"q3":    "an essay",
		"ghost": "ignored",
	})

	assert.Equal(t, 2.0, res.Score)
	assert.Equal(t, 9.0, res.MaxScore)
	assert.Equal(t, 1, res.Correct)
	assert.Equal(t, 1, res.Incorrect)
	assert.Equal(t, 3, res.Answered)
	assert.Equal(t, 1, res.Pending)
	assert.Equal(t, 0.5, res.Accuracy())
	assert.Equal(t, []Outcome{OutcomeCorrect, OutcomeIncorrect, OutcomePending, OutcomeUnanswered},
		[]Outcome{res.Questions[0].Outcome, res.Questions[1].Outcome, res.Questions[2].Outcome, res.Questions[3].Outcome})
}

func TestGradeNegativeMarking(t *testing.T) {
	engine := NewEngine(Config{NegativeMarking: 0.5})
	res := engine.Grade(questions(), map[string]string{"q1": "b", "q2": "c"})
	assert.Equal(t, 0.0, res.Score)

	floored := NewEngine(Config{NegativeMarking: 1, FloorAtZero: true})
	res = floored.Grade(questions(), map[string]string{"q1": "b"})
	assert.Equal(t, 0.0, res.Score)

	raw := NewEngine(Config{NegativeMarking: 1})
	res = raw.Grade(questions(), map[string]string{"q1": "b"})
	assert.Equal(t, -2.0, res.Score)
}

func TestGradeEmpty(t *testing.T) {
	res := NewEngine(DefaultConfig()).Grade(questions(), nil)
	assert.Zero(t, res.Score)
	assert.Zero(t, res.Answered)
	assert.Zero(t, res.Accuracy())

	score := res.AckScore()
	assert.Equal(t, 9.0, score.MaxPoints)
}
