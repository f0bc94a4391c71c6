package validate

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httperrors "github.com/gokatarajesh/exam-session/pkg/http/errors"
)

type navigateRequest struct {
	Action string `json:"action" validate:"required,oneof=next prev"`
	Index  int    `json:"index" validate:"gte=0"`
}

func TestDecodeJSONValid(t *testing.T) {
	v := New()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"next"}`))

	var req navigateRequest
	require.NoError(t, v.DecodeJSON(r, &req))
	assert.Equal(t, "next", req.Action)
}

func TestTranslateUsesJSONNames(t *testing.T) {
	v := New()
	err := v.Struct(navigateRequest{Action: "sideways", Index: -1})
	require.Error(t, err)

	fields := v.Translate(err)
	assert.Contains(t, fields, "action")
	assert.Contains(t, fields, "index")
}

func TestRespondMissingField(t *testing.T) {
	v := New()
	rec := httptest.NewRecorder()
	v.Respond(rec, v.Struct(navigateRequest{}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var body httperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, httperrors.ErrCodeMissingField, body.Error)
	assert.Contains(t, body.Details, "action")
}

func TestRespondMalformedJSON(t *testing.T) {
	v := New()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	var req navigateRequest
	err := v.DecodeJSON(r, &req)

	rec := httptest.NewRecorder()
	v.Respond(rec, err)
	var body httperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, httperrors.ErrCodeInvalidRequest, body.Error)
}
