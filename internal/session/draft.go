package session

import (
	"context"
	"time"
)

// Draft is the resumable part of an in-progress session.
type Draft struct {
	SessionID string              `json:"session_id"`
	Order     []string            `json:"order"`
	Options   map[string][]string `json:"options,omitempty"` // question id -> option id order
	Answers   map[string]string   `json:"answers"`
	Bookmarks []string            `json:"bookmarks,omitempty"`
	Flags     []string            `json:"flags,omitempty"`
	Current   int                 `json:"current"`
	Remaining int                 `json:"remaining"`
	SavedAt   time.Time           `json:"saved_at"`
}

// DraftStore persists drafts keyed by test and candidate.
type DraftStore interface {
	SaveDraft(ctx context.Context, testID, candidateID string, d Draft) error
	LoadDraft(ctx context.Context, testID, candidateID string) (*Draft, error)
	DeleteDraft(ctx context.Context, testID, candidateID string) error
}

// DraftPolicy enables periodic autosave. The zero value keeps all state in
// memory only, so losing the session loses unsaved answers.
type DraftPolicy struct {
	Interval time.Duration
	Store    DraftStore
}

// Enabled reports whether autosave runs.
func (p DraftPolicy) Enabled() bool {
	return p.Interval > 0 && p.Store != nil
}
