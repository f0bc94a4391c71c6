package attempt

import (
	"context"
	"time"

	"github.com/gokatarajesh/exam-session/internal/session"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

// events bridges session callbacks to the session's socket.
func (s *Service) events(sessionID string) session.Events {
	return session.Events{
		OnTick: func(remaining int) {
			s.push(sessionID, ws.TypeTimerTick, ws.TimerTickPayload{
				SessionID:        sessionID,
				RemainingSeconds: remaining,
			})
		},
		OnSubmitted: func(trigger session.Trigger, ack session.Ack) {
			s.push(sessionID, ws.TypeSessionSubmitted, submittedPayload(sessionID, trigger, ack))
		},
		OnSubmitFailed: func(trigger session.Trigger, err error) {
			s.push(sessionID, ws.TypeSubmitFailed, ws.SubmitFailedPayload{
				SessionID: sessionID,
				Trigger:   string(trigger),
				Retryable: true,
				Message:   err.Error(),
			})
		},
		OnViolation: func(v session.Violation) {
			if s.deps.Violations != nil {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				if err := s.deps.Violations.RecordViolation(ctx, sessionID, v); err != nil {
					s.logger.Warn().Err(err).Str("session_id", sessionID).Msg("violation enqueue failed")
				}
				cancel()
			}
			s.push(sessionID, ws.TypeViolation, violationPayload(v))
		},
	}
}

func (s *Service) push(sessionID, msgType string, payload any) {
	if s.deps.Sender == nil {
		return
	}
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("type", msgType).Msg("failed to encode message")
		return
	}
	// A missing connection is normal: the candidate may be on REST only.
	_ = s.deps.Sender.SendToSession(sessionID, msg)
}

func submittedPayload(sessionID string, trigger session.Trigger, ack session.Ack) ws.SessionSubmittedPayload {
	p := ws.SessionSubmittedPayload{
		SessionID:    sessionID,
		SubmissionID: ack.SubmissionID,
		Trigger:      string(trigger),
		ReceivedAt:   ack.ReceivedAt.UTC().Format(time.RFC3339),
	}
	if ack.Score != nil {
		p.Score = &ws.ScorePayload{
			Points:    ack.Score.Points,
			MaxPoints: ack.Score.MaxPoints,
			Correct:   ack.Score.Correct,
			Pending:   ack.Score.Pending,
		}
	}
	return p
}

func violationPayload(v session.Violation) ws.ViolationPayload {
	return ws.ViolationPayload{
		Type:      v.Type,
		Message:   v.Message,
		Timestamp: v.Timestamp.UTC().Format(time.RFC3339),
	}
}
