package attempt

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/exam-session/internal/proctor"
	"github.com/gokatarajesh/exam-session/internal/session"
	httperrors "github.com/gokatarajesh/exam-session/pkg/http/errors"
	"github.com/gokatarajesh/exam-session/pkg/http/validate"
	ws "github.com/gokatarajesh/exam-session/pkg/http/ws"
)

type wsFixture struct {
	*fixture
	handler *Handler
	feed    *proctor.Feed
	replies *recordingSender
	entry   *Entry
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()
	f := newFixture(t, Options{})
	feed := proctor.NewFeed()
	f.svc.deps.Monitors = feed

	replies := &recordingSender{}
	h := NewHandler(f.svc, nil, nil, nil, feed, validate.New(), zerolog.Nop())
	h.send = replies

	return &wsFixture{fixture: f, handler: h, feed: feed, replies: replies, entry: f.start(t, "c1")}
}

func (w *wsFixture) dispatch(t *testing.T, msgType string, payload any) ws.Message {
	t.Helper()
	msg, err := ws.NewMessage(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, w.handler.handleMessage(context.Background(), w.entry, msg))
	return w.replies.last()
}

func TestWSSetAnswerAcks(t *testing.T) {
	w := newWSFixture(t)

	reply := w.dispatch(t, ws.TypeSetAnswer, ws.SetAnswerPayload{QuestionID: "q1", Value: "q1-b"})
	require.Equal(t, ws.TypeAnswerAck, reply.Type)

	var ack ws.AnswerAckPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &ack))
	assert.True(t, ack.Accepted)
	assert.Equal(t, 1, ack.AnsweredCount)

	value, ok := w.entry.Session.Answer("q1")
	assert.True(t, ok)
	assert.Equal(t, "q1-b", value)
}

func TestWSRejectsBadMessages(t *testing.T) {
	w := newWSFixture(t)

	cases := []struct {
		name    string
		msgType string
		payload any
		code    string
	}{
		{"unknown type", "teleport", nil, httperrors.ErrCodeUnknownMessageType},
		{"missing question", ws.TypeSetAnswer, ws.SetAnswerPayload{Value: "x"}, httperrors.ErrCodeValidationFailed},
		{"unknown option", ws.TypeSetAnswer, ws.SetAnswerPayload{QuestionID: "q1", Value: "nope"}, httperrors.ErrCodeUnknownOption},
		{"bad navigation", ws.TypeNavigate, ws.NavigatePayload{Action: "jump"}, httperrors.ErrCodeValidationFailed},
		{"unknown flag target", ws.TypeToggleFlag, ws.TogglePayload{QuestionID: "q9"}, httperrors.ErrCodeUnknownQuestion},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reply := w.dispatch(t, tc.msgType, tc.payload)
			require.Equal(t, ws.TypeError, reply.Type)
			var body ws.ErrorPayload
			require.NoError(t, json.Unmarshal(reply.Payload, &body))
			assert.Equal(t, tc.code, body.Code)
		})
	}

	require.NoError(t, w.handler.handleMessage(context.Background(), w.entry, ws.Message{Type: ws.TypeSetAnswer, Payload: json.RawMessage(`"x"`)}))
	var body ws.ErrorPayload
	require.NoError(t, json.Unmarshal(w.replies.last().Payload, &body))
	assert.Equal(t, httperrors.ErrCodeInvalidPayload, body.Code)
}

func TestWSNavigateSendsState(t *testing.T) {
	w := newWSFixture(t)

	reply := w.dispatch(t, ws.TypeNavigate, ws.NavigatePayload{Action: "goto", Index: 2})
	require.Equal(t, ws.TypeSessionState, reply.Type)

	var view session.View
	require.NoError(t, json.Unmarshal(reply.Payload, &view))
	assert.Equal(t, 2, view.Current)
}

func TestWSProctorSignalReachesSession(t *testing.T) {
	w := newWSFixture(t)

	w.dispatch(t, ws.TypeRequestState, nil)
	w.dispatch(t, ws.TypeProctorSignal, ws.ProctorSignalPayload{
		FaceDetected: false,
		TabFocusLost: true,
		Violations:   []ws.ViolationPayload{{Type: "tab_switch", Message: "left the tab", Timestamp: "2026-01-02T15:04:05Z"}},
	})

	view := w.entry.Session.View()
	require.NotNil(t, view.Signal)
	assert.True(t, view.Signal.TabFocusLost)
	require.Len(t, view.Violations, 1)
	assert.Equal(t, "tab_switch", view.Violations[0].Type)
	assert.Equal(t, 2026, view.Violations[0].Timestamp.Year())

	assert.Contains(t, w.sender.types(), ws.TypeViolation)
}

func TestWSSubmitRejectionIsReported(t *testing.T) {
	w := newWSFixture(t)

	w.dispatch(t, ws.TypeSubmit, nil)
	assert.Equal(t, session.StatusSubmitted, w.entry.Session.Status())
	assert.Contains(t, w.sender.types(), ws.TypeSessionSubmitted)

	reply := w.dispatch(t, ws.TypeSubmit, nil)
	require.Equal(t, ws.TypeError, reply.Type)
	var body ws.ErrorPayload
	require.NoError(t, json.Unmarshal(reply.Payload, &body))
	assert.Equal(t, httperrors.ErrCodeAlreadySubmitted, body.Code)
}

func TestWSPing(t *testing.T) {
	w := newWSFixture(t)
	reply := w.dispatch(t, ws.TypePing, nil)
	assert.Equal(t, ws.TypePong, reply.Type)
}
