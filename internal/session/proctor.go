package session

import "time"

// Violation types raised by the session itself.
const (
	ViolationQuestionFlagged = "question_flagged"
)

// Violation is owned by the proctoring monitor; the session reads it.
type Violation struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Signal is one update from the proctoring monitor.
type Signal struct {
	FaceDetected bool        `json:"face_detected"`
	IsFullscreen bool        `json:"is_fullscreen"`
	TabFocusLost bool        `json:"tab_focus_lost"`
	Violations   []Violation `json:"violations,omitempty"`
}

// Monitor delivers proctoring signals. The returned function unsubscribes.
type Monitor interface {
	Subscribe(fn func(Signal)) (unsubscribe func())
}
