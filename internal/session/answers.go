package session

// AnswerStore maps question IDs to the candidate's current response.
// It is not safe for concurrent use; Session serializes access.
type AnswerStore struct {
	values   map[string]string
	writable func() bool
}

// NewAnswerStore creates a store that accepts writes only while writable
// reports true. A nil gate means always writable.
func NewAnswerStore(writable func() bool) *AnswerStore {
	if writable == nil {
		writable = func() bool { return true }
	}
	return &AnswerStore{
		values:   make(map[string]string),
		writable: writable,
	}
}

// Set inserts or overwrites a response. It is a silent no-op when the
// store is closed for writes.
func (s *AnswerStore) Set(questionID, value string) bool {
	if !s.writable() {
		return false
	}
	s.values[questionID] = value
	return true
}

// Get returns the stored value; ok is false for unanswered questions.
func (s *AnswerStore) Get(questionID string) (string, bool) {
	v, ok := s.values[questionID]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// IsAnswered reports whether a non-empty response is stored.
func (s *AnswerStore) IsAnswered(questionID string) bool {
	_, ok := s.Get(questionID)
	return ok
}

// AnsweredCount counts questions holding a non-empty response.
func (s *AnswerStore) AnsweredCount() int {
	n := 0
	for _, v := range s.values {
		if v != "" {
			n++
		}
	}
	return n
}

// Snapshot copies all non-empty responses.
func (s *AnswerStore) Snapshot() map[string]string {
	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		if v != "" {
			out[k] = v
		}
	}
	return out
}

// Restore replaces the contents, bypassing the write gate. Used when a
// session resumes from a draft before it starts.
func (s *AnswerStore) Restore(values map[string]string) {
	s.values = make(map[string]string, len(values))
	for k, v := range values {
		s.values[k] = v
	}
}

// Reset clears every response.
func (s *AnswerStore) Reset() {
	s.values = make(map[string]string)
}
