package session

import "time"

// QuestionView is a question as presented to the candidate.
type QuestionView struct {
	ID              string   `json:"id"`
	Type            string   `json:"type"`
	Prompt          string   `json:"prompt"`
	Options         []Option `json:"options,omitempty"`
	ImageURL        string   `json:"image_url,omitempty"`
	Points          float64  `json:"points"`
	Answer          string   `json:"answer,omitempty"`
	Answered        bool     `json:"answered"`
	Bookmarked      bool     `json:"bookmarked"`
	Flagged         bool     `json:"flagged"`
	CorrectOptionID string   `json:"correct_option_id,omitempty"`
}

// View is a consistent read of the whole session.
type View struct {
	SessionID        string         `json:"session_id"`
	TestID           string         `json:"test_id"`
	Title            string         `json:"title"`
	CandidateID      string         `json:"candidate_id"`
	Status           Status         `json:"status"`
	Trigger          Trigger        `json:"trigger,omitempty"`
	Questions        []QuestionView `json:"questions"`
	Current          int            `json:"current"`
	Total            int            `json:"total"`
	Answered         int            `json:"answered"`
	Timed            bool           `json:"timed"`
	RemainingSeconds int            `json:"remaining_seconds"`
	AllowReview      bool           `json:"allow_review"`
	Signal           *Signal        `json:"signal,omitempty"`
	Violations       []Violation    `json:"violations,omitempty"`
	Ack              *Ack           `json:"ack,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
}

// View renders the session. Correct answers appear only after submission on
// tests that allow review, and the score only when the test shows it.
func (s *Session) View() View {
	status := s.ctrl.State()
	review := status == StatusSubmitted && s.test.AllowReview

	var ack *Ack
	if a, ok := s.ctrl.Ack(); ok {
		if !s.test.ShowScore {
			a.Score = nil
		}
		ack = &a
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	questions := make([]QuestionView, len(s.questions))
	for i, q := range s.questions {
		answer, answered := s.answers.Get(q.ID)
		qv := QuestionView{
			ID:         q.ID,
			Type:       q.Type,
			Prompt:     q.Prompt,
			Options:    append([]Option(nil), q.Options...),
			ImageURL:   q.ImageURL,
			Points:     q.Points,
			Answer:     answer,
			Answered:   answered,
			Bookmarked: s.nav.IsBookmarked(q.ID),
			Flagged:    s.nav.IsFlagged(q.ID),
		}
		if review {
			qv.CorrectOptionID = q.CorrectOptionID
		}
		questions[i] = qv
	}

	var signal *Signal
	if s.signal != nil {
		cp := *s.signal
		cp.Violations = nil
		signal = &cp
	}

	return View{
		SessionID:        s.cfg.ID,
		TestID:           s.test.ID,
		Title:            s.test.Title,
		CandidateID:      s.cfg.CandidateID,
		Status:           status,
		Trigger:          s.ctrl.Trigger(),
		Questions:        questions,
		Current:          s.nav.Current(),
		Total:            len(s.questions),
		Answered:         s.answers.AnsweredCount(),
		Timed:            s.test.IsTimed,
		RemainingSeconds: s.Remaining(),
		AllowReview:      s.test.AllowReview,
		Signal:           signal,
		Violations:       append([]Violation(nil), s.violations...),
		Ack:              ack,
		CreatedAt:        s.createdAt,
	}
}

// Ack returns the acknowledgement once submitted.
func (s *Session) Ack() (Ack, bool) {
	return s.ctrl.Ack()
}
