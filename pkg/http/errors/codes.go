package errors

// Error codes for standardized error responses
const (
	// Authentication errors
	ErrCodeUnauthorized           = "unauthorized"
	ErrCodeForbidden              = "forbidden"
	ErrCodeInvalidToken           = "invalid_token"
	ErrCodeTokenExpired           = "token_expired"
	ErrCodeAuthenticationRequired = "authentication_required"

	// Validation errors
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationFailed = "validation_failed"
	ErrCodeMissingField     = "missing_field"

	// Resource errors
	ErrCodeNotFound      = "not_found"
	ErrCodeAlreadyExists = "already_exists"
	ErrCodeConflict      = "conflict"

	// Test/session errors
	ErrCodeTestNotFound       = "test_not_found"
	ErrCodeSessionNotFound    = "session_not_found"
	ErrCodeSessionStartFailed = "session_start_failed"
	ErrCodeSessionClosed      = "session_closed"
	ErrCodeUnknownQuestion    = "unknown_question"
	ErrCodeUnknownOption      = "unknown_option"
	ErrCodeAnswerRejected     = "answer_rejected"
	ErrCodeSubmitInFlight     = "submit_in_flight"
	ErrCodeAlreadySubmitted   = "already_submitted"
	ErrCodeSubmitFailed       = "submit_failed"

	// WebSocket errors
	ErrCodeInvalidPayload     = "invalid_payload"
	ErrCodeUnknownMessageType = "unknown_message_type"
	ErrCodeConnectionError    = "connection_error"

	// Server errors
	ErrCodeInternalError      = "internal_error"
	ErrCodeServiceUnavailable = "service_unavailable"
	ErrCodeUpstreamError      = "upstream_error"

	// Leaderboard errors
	ErrCodeLeaderboardFetchFailed = "leaderboard_fetch_failed"
)
