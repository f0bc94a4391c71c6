package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error     string         `json:"error"`
	Message   string         `json:"message"`
	Field     string         `json:"field,omitempty"`
	Retryable bool           `json:"retryable,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Write encodes body with the given status.
func Write(w http.ResponseWriter, status int, body ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func RespondError(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, ErrorResponse{Error: code, Message: message})
}

// RespondRetryable marks the failure as safe to retry with the same request,
// e.g. a submission whose persistence failed.
func RespondRetryable(w http.ResponseWriter, status int, code, message string) {
	Write(w, status, ErrorResponse{Error: code, Message: message, Retryable: true})
}

// RespondErrorWithDetails attaches per-field details, as validation failures do.
func RespondErrorWithDetails(w http.ResponseWriter, status int, code, message string, details map[string]any) {
	Write(w, status, ErrorResponse{Error: code, Message: message, Details: details})
}

func RespondBadRequest(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusBadRequest, code, message)
}

func RespondUnauthorized(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusUnauthorized, code, message)
}

func RespondNotFound(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusNotFound, code, message)
}

func RespondConflict(w http.ResponseWriter, code, message string) {
	RespondError(w, http.StatusConflict, code, message)
}

func RespondServiceUnavailable(w http.ResponseWriter, code, message string) {
	RespondRetryable(w, http.StatusServiceUnavailable, code, message)
}
