package attempt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/auth"
	"github.com/gokatarajesh/exam-session/internal/session"
	httperrors "github.com/gokatarajesh/exam-session/pkg/http/errors"
	"github.com/gokatarajesh/exam-session/pkg/http/validate"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

// SignalPublisher routes proctoring signals to a session's monitor.
type SignalPublisher interface {
	Publish(sessionID string, sig session.Signal) bool
}

// Handler serves the session WebSocket.
type Handler struct {
	service  *Service
	hub      *ws.Hub
	send     Sender
	tokens   auth.TokenValidator
	upgrader *websocket.Upgrader
	signals  SignalPublisher
	validate *validate.Validator
	logger   zerolog.Logger
}

// NewHandler creates a session WebSocket handler.
func NewHandler(service *Service, hub *ws.Hub, tokens auth.TokenValidator, upgrader *websocket.Upgrader, signals SignalPublisher, v *validate.Validator, logger zerolog.Logger) *Handler {
	return &Handler{
		service:  service,
		hub:      hub,
		send:     hub,
		tokens:   tokens,
		upgrader: upgrader,
		signals:  signals,
		validate: v,
		logger:   logger.With().Str("component", "attempt_ws").Logger(),
	}
}

// HandleWebSocket authenticates the token query parameter, checks session
// ownership and upgrades. Route: GET /ws/sessions/{sessionID}?token=
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Missing token")
		return
	}
	claims, err := h.tokens.ValidateAccessToken(token)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket token validation failed")
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "Invalid token")
		return
	}

	entry, err := h.service.Get(r.PathValue("sessionID"), claims.CandidateID())
	if err != nil {
		respondSessionError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	h.serve(conn, entry)
}

func (h *Handler) serve(conn *websocket.Conn, entry *Entry) {
	sessionID := entry.Session.ID()
	logger := h.logger.With().Str("session_id", sessionID).Logger()

	wsConn := ws.NewConnection(conn, logger)
	h.hub.Register(sessionID, wsConn)
	go wsConn.WritePump()

	h.sendState(entry)

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(context.Background(), entry, msg)
	})

	h.hub.Unregister(sessionID, wsConn)
}

// handleMessage routes incoming WebSocket messages.
func (h *Handler) handleMessage(ctx context.Context, entry *Entry, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeSetAnswer:
		return h.handleSetAnswer(entry, msg.Payload)
	case ws.TypeNavigate:
		return h.handleNavigate(entry, msg.Payload)
	case ws.TypeToggleBookmark:
		return h.handleToggle(entry, msg.Payload, entry.Session.ToggleBookmark)
	case ws.TypeToggleFlag:
		return h.handleToggle(entry, msg.Payload, entry.Session.ToggleFlag)
	case ws.TypeSubmit:
		return h.handleSubmit(ctx, entry)
	case ws.TypeProctorSignal:
		return h.handleProctorSignal(entry, msg.Payload)
	case ws.TypeRequestState:
		return h.sendState(entry)
	case ws.TypePing:
		return h.reply(entry, ws.TypePong, nil)
	default:
		return h.sendError(entry, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

func (h *Handler) decode(entry *Entry, raw json.RawMessage, dst any) bool {
	if err := json.Unmarshal(raw, dst); err != nil {
		h.sendError(entry, httperrors.ErrCodeInvalidPayload, "Invalid payload")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		fields := h.validate.Translate(err)
		for _, msg := range fields {
			h.sendError(entry, httperrors.ErrCodeValidationFailed, msg)
			break
		}
		return false
	}
	return true
}

func (h *Handler) handleSetAnswer(entry *Entry, raw json.RawMessage) error {
	var req ws.SetAnswerPayload
	if !h.decode(entry, raw, &req) {
		return nil
	}
	accepted, err := entry.Session.SetAnswer(req.QuestionID, req.Value)
	if err != nil {
		_, code, message := errorCode(err)
		return h.sendError(entry, code, message)
	}
	return h.reply(entry, ws.TypeAnswerAck, ws.AnswerAckPayload{
		SessionID:     entry.Session.ID(),
		QuestionID:    req.QuestionID,
		Accepted:      accepted,
		AnsweredCount: entry.Session.AnsweredCount(),
	})
}

func (h *Handler) handleNavigate(entry *Entry, raw json.RawMessage) error {
	var req ws.NavigatePayload
	if !h.decode(entry, raw, &req) {
		return nil
	}
	navigate(entry.Session, req)
	return h.sendState(entry)
}

func (h *Handler) handleToggle(entry *Entry, raw json.RawMessage, fn func(string) (bool, error)) error {
	var req ws.TogglePayload
	if !h.decode(entry, raw, &req) {
		return nil
	}
	if _, err := fn(req.QuestionID); err != nil {
		_, code, message := errorCode(err)
		return h.sendError(entry, code, message)
	}
	return h.sendState(entry)
}

// handleSubmit replies only on rejection; success and persistence failures
// are pushed by the session's events.
func (h *Handler) handleSubmit(ctx context.Context, entry *Entry) error {
	_, err := entry.Session.Submit(ctx)
	if err == nil {
		return nil
	}
	var submitErr *session.SubmitError
	if errors.As(err, &submitErr) {
		return nil
	}
	_, code, message := errorCode(err)
	return h.sendError(entry, code, message)
}

func (h *Handler) handleProctorSignal(entry *Entry, raw json.RawMessage) error {
	var req ws.ProctorSignalPayload
	if !h.decode(entry, raw, &req) {
		return nil
	}
	if h.signals == nil {
		return nil
	}
	sig := session.Signal{
		FaceDetected: req.FaceDetected,
		IsFullscreen: req.IsFullscreen,
		TabFocusLost: req.TabFocusLost,
	}
	for _, v := range req.Violations {
		sig.Violations = append(sig.Violations, session.Violation{
			Type:      v.Type,
			Message:   v.Message,
			Timestamp: parseTimestamp(v.Timestamp),
		})
	}
	h.signals.Publish(entry.Session.ID(), sig)
	return nil
}

func (h *Handler) sendState(entry *Entry) error {
	return h.reply(entry, ws.TypeSessionState, entry.Session.View())
}

func (h *Handler) reply(entry *Entry, msgType string, payload any) error {
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		return err
	}
	return h.send.SendToSession(entry.Session.ID(), msg)
}

func (h *Handler) sendError(entry *Entry, code, message string) error {
	return h.reply(entry, ws.TypeError, ws.ErrorPayload{Code: code, Message: message})
}

func parseTimestamp(raw string) time.Time {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}
	return time.Now().UTC()
}
