package errors

// Error codes shared by HTTP responses and websocket error payloads.
const (
	// Authentication
	ErrCodeUnauthorized = "unauthorized"
	ErrCodeForbidden    = "forbidden"
	ErrCodeInvalidToken = "invalid_token"

	// Validation
	ErrCodeInvalidRequest = "invalid_request"
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeMissingField   = "missing_field"

	// Session lifecycle
	ErrCodeSessionNotFound     = "session_not_found"
	ErrCodeSessionNotActive    = "session_not_active"
	ErrCodeInvalidTransition   = "invalid_transition"
	ErrCodeNotSessionCreator   = "not_session_creator"
	ErrCodeSessionCreateFailed = "session_create_failed"
	ErrCodeAccessCodeExhausted = "access_code_exhausted"
	ErrCodeInvalidSessionID    = "invalid_session_id"

	// Answers
	ErrCodeStaleOrUnknownQuestion = "stale_or_unknown_question"
	ErrCodeDuplicateAnswer        = "duplicate_answer"
	ErrCodeNotAParticipant        = "not_a_participant"

	// WebSocket
	ErrCodeUnknownMessageType = "unknown_message_type"

	// Server
	ErrCodeInternalError = "internal_error"
	ErrCodeUpstreamError = "upstream_error"

	// Standings
	ErrCodeStandingsFetchFailed = "standings_fetch_failed"
)
