package attempt

import (
	"sync"
	"time"

	"github.com/gokatarajesh/exam-session/internal/catalog"
	"github.com/gokatarajesh/exam-session/internal/session"
)

// Entry is a live session plus what the service needs around it.
type Entry struct {
	Session     *session.Session
	Test        catalog.Test
	CandidateID string
	DisplayName string
	StartedAt   time.Time
}

// active reports whether the entry still accepts work from its candidate.
func (e *Entry) active() bool {
	return !e.Session.Closed() && e.Session.Status() != session.StatusSubmitted
}

func candidateKey(testID, candidateID string) string {
	return testID + "/" + candidateID
}

// Registry holds the sessions this process is serving.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[string]*Entry
	byCandidate map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[string]*Entry),
		byCandidate: make(map[string]string),
	}
}

// Get looks a session up by ID.
func (r *Registry) Get(sessionID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sessionID]
	return e, ok
}

// Find returns the candidate's current session for a test.
func (r *Registry) Find(testID, candidateID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCandidate[candidateKey(testID, candidateID)]
	if !ok {
		return nil, false
	}
	e, ok := r.sessions[id]
	return e, ok
}

// Claim installs e as the candidate's session unless an active one already
// exists, in which case that one is returned and e is not stored. An
// inactive predecessor is removed and returned as replaced.
func (r *Registry) Claim(e *Entry) (winner *Entry, replaced *Entry) {
	key := candidateKey(e.Test.Data.ID, e.CandidateID)

	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byCandidate[key]; ok {
		if current, ok := r.sessions[id]; ok {
			if current.active() {
				return current, nil
			}
			delete(r.sessions, id)
			replaced = current
		}
	}
	r.sessions[e.Session.ID()] = e
	r.byCandidate[key] = e.Session.ID()
	return e, replaced
}

// Remove drops a session and returns it.
func (r *Registry) Remove(sessionID string) (*Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	delete(r.sessions, sessionID)
	key := candidateKey(e.Test.Data.ID, e.CandidateID)
	if r.byCandidate[key] == sessionID {
		delete(r.byCandidate, key)
	}
	return e, true
}

// All returns a snapshot of every entry.
func (r *Registry) All() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Entry, 0, len(r.sessions))
	for _, e := range r.sessions {
		out = append(out, e)
	}
	return out
}

// SessionsForTest lists the IDs of sessions serving testID.
func (r *Registry) SessionsForTest(testID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for id, e := range r.sessions {
		if e.Test.Data.ID == testID {
			out = append(out, id)
		}
	}
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
