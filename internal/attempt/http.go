package attempt

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/exam-session/internal/auth"
	"github.com/gokatarajesh/exam-session/internal/catalog"
	"github.com/gokatarajesh/exam-session/internal/session"
	httperrors "github.com/gokatarajesh/exam-session/pkg/http/errors"
	"github.com/gokatarajesh/exam-session/pkg/http/validate"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

// HTTPHandlers provides REST endpoints for test sessions.
type HTTPHandlers struct {
	service  *Service
	validate *validate.Validator
	logger   zerolog.Logger
}

// NewHTTPHandlers creates HTTP handlers for session endpoints.
func NewHTTPHandlers(service *Service, v *validate.Validator, logger zerolog.Logger) *HTTPHandlers {
	return &HTTPHandlers{
		service:  service,
		validate: v,
		logger:   logger.With().Str("component", "attempt_http").Logger(),
	}
}

// Register mounts the routes on mux behind the auth middleware.
func (h *HTTPHandlers) Register(mux *http.ServeMux, authn func(http.Handler) http.Handler) {
	route := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, authn(fn))
	}
	route("POST /v1/tests/{testID}/sessions", h.StartSession)
	route("GET /v1/sessions/{sessionID}", h.GetSession)
	route("PUT /v1/sessions/{sessionID}/answers/{questionID}", h.SetAnswer)
	route("POST /v1/sessions/{sessionID}/navigation", h.Navigate)
	route("POST /v1/sessions/{sessionID}/bookmarks/{questionID}", h.ToggleBookmark)
	route("POST /v1/sessions/{sessionID}/flags/{questionID}", h.ToggleFlag)
	route("POST /v1/sessions/{sessionID}/submit", h.Submit)
	route("DELETE /v1/sessions/{sessionID}", h.CloseSession)
}

type setAnswerRequest struct {
	Value string `json:"value"`
}

type toggleResponse struct {
	QuestionID string `json:"question_id"`
	Active     bool   `json:"active"`
}

type submitResponse struct {
	SessionID string      `json:"session_id"`
	Status    string      `json:"status"`
	Ack       session.Ack `json:"ack"`
}

// StartSession handles POST /v1/tests/{testID}/sessions
func (h *HTTPHandlers) StartSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return
	}

	entry, resumed, err := h.service.Start(r.Context(), r.PathValue("testID"), Candidate{
		ID:          claims.CandidateID(),
		DisplayName: claims.DisplayName,
	})
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrTestNotFound), errors.Is(err, catalog.ErrInvalidID):
			httperrors.RespondNotFound(w, httperrors.ErrCodeTestNotFound, "Test not found")
		default:
			h.logger.Error().Err(err).Str("candidate_id", claims.CandidateID()).Msg("failed to start session")
			httperrors.RespondError(w, http.StatusInternalServerError, httperrors.ErrCodeSessionStartFailed, "Could not start session")
		}
		return
	}

	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	h.respondJSON(w, status, entry.Session.View())
}

// GetSession handles GET /v1/sessions/{sessionID}
func (h *HTTPHandlers) GetSession(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}
	h.respondJSON(w, http.StatusOK, entry.Session.View())
}

// SetAnswer handles PUT /v1/sessions/{sessionID}/answers/{questionID}
func (h *HTTPHandlers) SetAnswer(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req setAnswerRequest
	if err := h.validate.DecodeJSON(r, &req); err != nil {
		h.validate.Respond(w, err)
		return
	}

	questionID := r.PathValue("questionID")
	accepted, err := entry.Session.SetAnswer(questionID, req.Value)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	if !accepted {
		httperrors.RespondConflict(w, httperrors.ErrCodeAnswerRejected, "Session is not accepting answers")
		return
	}

	h.respondJSON(w, http.StatusOK, ws.AnswerAckPayload{
		SessionID:     entry.Session.ID(),
		QuestionID:    questionID,
		Accepted:      true,
		AnsweredCount: entry.Session.AnsweredCount(),
	})
}

// Navigate handles POST /v1/sessions/{sessionID}/navigation
func (h *HTTPHandlers) Navigate(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req ws.NavigatePayload
	if err := h.validate.DecodeJSON(r, &req); err != nil {
		h.validate.Respond(w, err)
		return
	}

	navigate(entry.Session, req)
	h.respondJSON(w, http.StatusOK, entry.Session.View())
}

// ToggleBookmark handles POST /v1/sessions/{sessionID}/bookmarks/{questionID}
func (h *HTTPHandlers) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, (*session.Session).ToggleBookmark)
}

// ToggleFlag handles POST /v1/sessions/{sessionID}/flags/{questionID}
func (h *HTTPHandlers) ToggleFlag(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, (*session.Session).ToggleFlag)
}

func (h *HTTPHandlers) toggle(w http.ResponseWriter, r *http.Request, fn func(*session.Session, string) (bool, error)) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}
	questionID := r.PathValue("questionID")
	active, err := fn(entry.Session, questionID)
	if err != nil {
		respondSessionError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, toggleResponse{QuestionID: questionID, Active: active})
}

// Submit handles POST /v1/sessions/{sessionID}/submit
func (h *HTTPHandlers) Submit(w http.ResponseWriter, r *http.Request) {
	entry, ok := h.lookup(w, r)
	if !ok {
		return
	}

	ack, err := entry.Session.Submit(r.Context())
	if err != nil {
		if !errors.Is(err, session.ErrSubmitInFlight) && !errors.Is(err, session.ErrAlreadySubmitted) {
			h.logger.Warn().Err(err).Str("session_id", entry.Session.ID()).Msg("submit failed")
		}
		respondSessionError(w, err)
		return
	}

	if !entry.Test.Data.ShowScore {
		ack.Score = nil
	}
	h.respondJSON(w, http.StatusOK, submitResponse{
		SessionID: entry.Session.ID(),
		Status:    string(entry.Session.Status()),
		Ack:       ack,
	})
}

// CloseSession handles DELETE /v1/sessions/{sessionID}
func (h *HTTPHandlers) CloseSession(w http.ResponseWriter, r *http.Request) {
	err := h.service.Close(r.Context(), r.PathValue("sessionID"), auth.CandidateID(r.Context()))
	if err != nil {
		respondSessionError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandlers) lookup(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	candidateID := auth.CandidateID(r.Context())
	if candidateID == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeAuthenticationRequired, "Authentication required")
		return nil, false
	}
	entry, err := h.service.Get(r.PathValue("sessionID"), candidateID)
	if err != nil {
		respondSessionError(w, err)
		return nil, false
	}
	return entry, true
}

// navigate applies a navigation request; unknown actions were rejected by
// validation.
func navigate(s *session.Session, req ws.NavigatePayload) bool {
	switch req.Action {
	case "goto":
		return s.GoTo(req.Index)
	case "next":
		return s.Next()
	case "prev":
		return s.Prev()
	case "next_unanswered":
		return s.NextUnanswered()
	}
	return false
}

// errorCode maps domain errors to a status and error code.
func errorCode(err error) (int, string, string) {
	var submitErr *session.SubmitError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, httperrors.ErrCodeSessionNotFound, "Session not found"
	case errors.Is(err, ErrNotOwner):
		return http.StatusForbidden, httperrors.ErrCodeForbidden, "Session belongs to another candidate"
	case errors.Is(err, session.ErrUnknownQuestion):
		return http.StatusNotFound, httperrors.ErrCodeUnknownQuestion, "Question is not part of this session"
	case errors.Is(err, session.ErrUnknownOption):
		return http.StatusBadRequest, httperrors.ErrCodeUnknownOption, "Option does not belong to the question"
	case errors.Is(err, session.ErrSubmitInFlight):
		return http.StatusConflict, httperrors.ErrCodeSubmitInFlight, "Submission already in progress"
	case errors.Is(err, session.ErrAlreadySubmitted):
		return http.StatusConflict, httperrors.ErrCodeAlreadySubmitted, "Session already submitted"
	case errors.Is(err, session.ErrClosed):
		return http.StatusGone, httperrors.ErrCodeSessionClosed, "Session is closed"
	case errors.As(err, &submitErr):
		return http.StatusServiceUnavailable, httperrors.ErrCodeSubmitFailed, "Submission failed, please retry"
	default:
		return http.StatusInternalServerError, httperrors.ErrCodeInternalError, "Internal error"
	}
}

func respondSessionError(w http.ResponseWriter, err error) {
	status, code, message := errorCode(err)
	var submitErr *session.SubmitError
	if errors.As(err, &submitErr) && submitErr.Retryable {
		httperrors.RespondRetryable(w, status, code, message)
		return
	}
	httperrors.RespondError(w, status, code, message)
}

func (h *HTTPHandlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Warn().Err(err).Msg("failed to encode response")
	}
}
