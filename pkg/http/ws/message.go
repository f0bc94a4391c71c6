package ws

import "encoding/json"

// MessageType constants for WebSocket protocol.
const (
	// Client -> Server
	TypeSetAnswer      = "set_answer"
	TypeNavigate       = "navigate"
	TypeToggleBookmark = "toggle_bookmark"
	TypeToggleFlag     = "toggle_flag"
	TypeSubmit         = "submit"
	TypeProctorSignal  = "proctor_signal"
	TypeRequestState   = "request_state"

	// Server -> Client
	TypeSessionState      = "session_state"
	TypeTimerTick         = "timer_tick"
	TypeAnswerAck         = "answer_ack"
	TypeSessionSubmitted  = "session_submitted"
	TypeSubmitFailed      = "submit_failed"
	TypeViolation         = "violation"
	TypeLeaderboardUpdate = "leaderboard_update"
	TypeError             = "error"
	TypePing              = "ping"
	TypePong              = "pong"
)

// Message wraps all WebSocket payloads with type and optional request ID.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	RequestID string          `json:"request_id,omitempty"`
}

// NewMessage marshals payload into a typed message.
func NewMessage(msgType string, payload any) (Message, error) {
	msg := Message{Type: msgType}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, err
	}
	msg.Payload = raw
	return msg, nil
}

// Client Messages (incoming)

type SetAnswerPayload struct {
	QuestionID string `json:"question_id" validate:"required"`
	Value      string `json:"value"`
}

type NavigatePayload struct {
	Action string `json:"action" validate:"required,oneof=goto next prev next_unanswered"`
	Index  int    `json:"index" validate:"gte=0"`
}

type TogglePayload struct {
	QuestionID string `json:"question_id" validate:"required"`
}

type ProctorSignalPayload struct {
	FaceDetected bool               `json:"face_detected"`
	IsFullscreen bool               `json:"is_fullscreen"`
	TabFocusLost bool               `json:"tab_focus_lost"`
	Violations   []ViolationPayload `json:"violations,omitempty" validate:"dive"`
}

// Server Messages (outgoing)

type TimerTickPayload struct {
	SessionID        string `json:"session_id"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

type AnswerAckPayload struct {
	SessionID     string `json:"session_id"`
	QuestionID    string `json:"question_id"`
	Accepted      bool   `json:"accepted"`
	AnsweredCount int    `json:"answered_count"`
}

type SessionSubmittedPayload struct {
	SessionID    string        `json:"session_id"`
	SubmissionID string        `json:"submission_id"`
	Trigger      string        `json:"trigger"`
	ReceivedAt   string        `json:"received_at"`
	Score        *ScorePayload `json:"score,omitempty"`
}

type ScorePayload struct {
	Points    float64 `json:"points"`
	MaxPoints float64 `json:"max_points"`
	Correct   int     `json:"correct"`
	Pending   int     `json:"pending"`
}

type SubmitFailedPayload struct {
	SessionID string `json:"session_id"`
	Trigger   string `json:"trigger"`
	Retryable bool   `json:"retryable"`
	Message   string `json:"message"`
}

type ViolationPayload struct {
	Type      string `json:"type" validate:"required"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type LeaderboardUpdatePayload struct {
	TestID string             `json:"test_id"`
	Top    []LeaderboardEntry `json:"top"`
}

type LeaderboardEntry struct {
	Rank        int     `json:"rank"`
	CandidateID string  `json:"candidate_id"`
	DisplayName string  `json:"display_name"`
	Score       float64 `json:"score"`
	MaxScore    float64 `json:"max_score"`
	Attempts    int     `json:"attempts"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
