package proctor

import (
	"sync"

	"github.com/gokatarajesh/exam-session/internal/session"
)

// Feed routes proctoring signals from clients to the session they belong to.
type Feed struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]func(session.Signal)
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[string]map[int]func(session.Signal))}
}

// For returns the monitor a session subscribes through.
func (f *Feed) For(sessionID string) session.Monitor {
	return sessionMonitor{feed: f, sessionID: sessionID}
}

// Publish delivers sig to every subscriber of the session and reports
// whether anyone was listening.
func (f *Feed) Publish(sessionID string, sig session.Signal) bool {
	f.mu.RLock()
	fns := make([]func(session.Signal), 0, len(f.subs[sessionID]))
	for _, fn := range f.subs[sessionID] {
		fns = append(fns, fn)
	}
	f.mu.RUnlock()

	for _, fn := range fns {
		fn(sig)
	}
	return len(fns) > 0
}

// Subscribers returns the number of listeners for a session.
func (f *Feed) Subscribers(sessionID string) int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs[sessionID])
}

func (f *Feed) subscribe(sessionID string, fn func(session.Signal)) func() {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	if f.subs[sessionID] == nil {
		f.subs[sessionID] = make(map[int]func(session.Signal))
	}
	f.subs[sessionID][id] = fn
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs[sessionID], id)
			if len(f.subs[sessionID]) == 0 {
				delete(f.subs, sessionID)
			}
		})
	}
}

type sessionMonitor struct {
	feed      *Feed
	sessionID string
}

func (m sessionMonitor) Subscribe(fn func(session.Signal)) func() {
	return m.feed.subscribe(m.sessionID, fn)
}
