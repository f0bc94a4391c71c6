package attempt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/exam-session/internal/auth"
	authjwt "github.com/gokatarajesh/exam-session/internal/auth/jwt"
	"github.com/gokatarajesh/exam-session/internal/session"
	httperrors "github.com/gokatarajesh/exam-session/pkg/http/errors"
	"github.com/gokatarajesh/exam-session/pkg/http/validate"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

// asCandidate stands in for the auth middleware, reading the candidate from
// a test header.
func asCandidate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Candidate")
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims := &authjwt.Claims{
			DisplayName:      "Cand " + id,
			RegisteredClaims: jwt.RegisteredClaims{Subject: id},
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func newMux(f *fixture) *http.ServeMux {
	mux := http.NewServeMux()
	NewHTTPHandlers(f.svc, validate.New(), zerolog.Nop()).Register(mux, asCandidate)
	return mux
}

func do(mux *http.ServeMux, method, target, candidate, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if candidate != "" {
		req.Header.Set("X-Candidate", candidate)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body httperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func startViaHTTP(t *testing.T, f *fixture, mux *http.ServeMux, candidate string) session.View {
	t.Helper()
	rec := do(mux, http.MethodPost, "/v1/tests/"+f.testID+"/sessions", candidate, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var view session.View
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	return view
}

func TestHTTPSessionLifecycle(t *testing.T) {
	f := newFixture(t, Options{})
	mux := newMux(f)

	view := startViaHTTP(t, f, mux, "c1")
	assert.Equal(t, f.testID, view.TestID)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, session.StatusInProgress, view.Status)
	for _, q := range view.Questions {
		assert.Empty(t, q.CorrectOptionID)
	}
	base := "/v1/sessions/" + view.SessionID

	rec := do(mux, http.MethodPost, "/v1/tests/"+f.testID+"/sessions", "c1", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(mux, http.MethodPut, base+"/answers/q1", "c1", `{"value":"q1-a"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var ack ws.AnswerAckPayload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.True(t, ack.Accepted)
	assert.Equal(t, 1, ack.AnsweredCount)

	rec = do(mux, http.MethodPost, base+"/navigation", "c1", `{"action":"next"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, 1, view.Current)

	rec = do(mux, http.MethodPost, base+"/bookmarks/q2", "c1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var toggled toggleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &toggled))
	assert.True(t, toggled.Active)

	rec = do(mux, http.MethodPost, base+"/submit", "c1", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var submitted submitResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &submitted))
	assert.Equal(t, string(session.StatusSubmitted), submitted.Status)
	require.NotNil(t, submitted.Ack.Score)
	assert.Equal(t, 2.0, submitted.Ack.Score.Points)

	rec = do(mux, http.MethodPost, base+"/submit", "c1", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeAlreadySubmitted, errorCodeOf(t, rec))

	rec = do(mux, http.MethodPut, base+"/answers/q2", "c1", `{"value":"q2-b"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, httperrors.ErrCodeAnswerRejected, errorCodeOf(t, rec))

	rec = do(mux, http.MethodGet, base, "c1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	assert.Equal(t, "q1-a", view.Questions[0].CorrectOptionID)

	rec = do(mux, http.MethodDelete, base, "c1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(mux, http.MethodGet, base, "c1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHTTPErrors(t *testing.T) {
	f := newFixture(t, Options{})
	mux := newMux(f)
	view := startViaHTTP(t, f, mux, "c1")
	base := "/v1/sessions/" + view.SessionID

	tests := []struct {
		name      string
		method    string
		target    string
		candidate string
		body      string
		status    int
		code      string
	}{
		{"no auth", http.MethodGet, base, "", "", http.StatusUnauthorized, httperrors.ErrCodeAuthenticationRequired},
		{"other candidate", http.MethodGet, base, "c2", "", http.StatusForbidden, httperrors.ErrCodeForbidden},
		{"unknown session", http.MethodGet, "/v1/sessions/nope", "c1", "", http.StatusNotFound, httperrors.ErrCodeSessionNotFound},
		{"unknown test", http.MethodPost, "/v1/tests/nope/sessions", "c1", "", http.StatusNotFound, httperrors.ErrCodeTestNotFound},
		{"unknown question", http.MethodPut, base + "/answers/q9", "c1", `{"value":"x"}`, http.StatusNotFound, httperrors.ErrCodeUnknownQuestion},
		{"unknown option", http.MethodPut, base + "/answers/q1", "c1", `{"value":"q2-a"}`, http.StatusBadRequest, httperrors.ErrCodeUnknownOption},
		{"bad json", http.MethodPut, base + "/answers/q1", "c1", `{`, http.StatusBadRequest, httperrors.ErrCodeInvalidRequest},
		{"bad action", http.MethodPost, base + "/navigation", "c1", `{"action":"jump"}`, http.StatusBadRequest, httperrors.ErrCodeValidationFailed},
		{"missing action", http.MethodPost, base + "/navigation", "c1", `{}`, http.StatusBadRequest, httperrors.ErrCodeMissingField},
		{"flag unknown question", http.MethodPost, base + "/flags/q9", "c1", "", http.StatusNotFound, httperrors.ErrCodeUnknownQuestion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(mux, tt.method, tt.target, tt.candidate, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, errorCodeOf(t, rec))
		})
	}
}

func TestHTTPSubmitFailureIsRetryable(t *testing.T) {
	f := newFixture(t, Options{})
	mux := newMux(f)
	view := startViaHTTP(t, f, mux, "c1")
	base := "/v1/sessions/" + view.SessionID

	f.submissions.err = errBoom
	rec := do(mux, http.MethodPost, base+"/submit", "c1", "")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code, rec.Body.String())
	var body httperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, httperrors.ErrCodeSubmitFailed, body.Error)
	assert.True(t, body.Retryable)

	f.submissions.mu.Lock()
	f.submissions.err = nil
	f.submissions.mu.Unlock()

	rec = do(mux, http.MethodPost, base+"/submit", "c1", "")
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestHTTPSubmitSurvivesClientDisconnect(t *testing.T) {
	f := newFixture(t, Options{})
	mux := newMux(f)
	view := startViaHTTP(t, f, mux, "c1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/sessions/"+view.SessionID+"/submit", nil).WithContext(ctx)
	req.Header.Set("X-Candidate", "c1")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, f.submissions.count())

	e, err := f.svc.Get(view.SessionID, "c1")
	require.NoError(t, err)
	assert.Equal(t, session.StatusSubmitted, e.Session.Status())
}
