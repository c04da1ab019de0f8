package session

import "errors"

var (
	// ErrInvalidTransition is returned when a teacher action arrives in a
	// question phase that cannot accept it.
	ErrInvalidTransition = errors.New("invalid question phase transition")
	// ErrSessionNotActive is returned for mutating calls on a session that is
	// not accepting them (pending broadcast ops, or already ended).
	ErrSessionNotActive = errors.New("session is not active")
	// ErrStaleOrUnknownQuestion rejects answers that reference a question no
	// longer (or never) on air.
	ErrStaleOrUnknownQuestion = errors.New("question is not currently on air")
	// ErrDuplicateAnswer enforces at most one answer per participant per question.
	ErrDuplicateAnswer = errors.New("question already answered by participant")
	// ErrNotAParticipant is returned when a user submits without having joined.
	ErrNotAParticipant = errors.New("user is not a participant of this session")
	// ErrAccessCodeExhausted is returned when code allocation hits its retry bound.
	ErrAccessCodeExhausted = errors.New("access code space exhausted after retries")
	// ErrNotSessionCreator gates teacher-only operations.
	ErrNotSessionCreator = errors.New("operation restricted to the session creator")
	// ErrSessionNotFound is returned for unknown session ids or access codes.
	ErrSessionNotFound = errors.New("session not found")
)
