package ws

import "encoding/json"

// MessageType constants for the session WebSocket protocol.
const (
	// Client -> Server
	TypeJoinSession   = "join_session"
	TypeSubmitAnswer  = "submit_answer"
	TypeBroadcastNext = "broadcast_next"
	TypeReveal        = "reveal"
	TypeEndSession    = "end_session"
	TypeLeaveSession  = "leave_session"

	// Server -> Client
	TypeJoined            = "joined"
	TypeQuestionBroadcast = "question_broadcast"
	TypeCountdownTick     = "countdown_tick"
	TypeRevealed          = "revealed"
	TypeParticipantList   = "participant_list"
	TypeSessionEnded      = "session_ended"
	TypeAnswerResult      = "answer_result"
	TypeError             = "error"
)

// Message wraps every payload crossing the socket.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Client messages (incoming)

type JoinSessionPayload struct {
	AccessCode  string `json:"access_code"`
	DisplayName string `json:"display_name,omitempty"`
}

type SubmitAnswerPayload struct {
	SessionID  string `json:"session_id"`
	QuestionID string `json:"question_id"`
	Value      string `json:"value"`
}

type BroadcastNextPayload struct {
	SessionID string `json:"session_id"`
}

type RevealPayload struct {
	SessionID string `json:"session_id"`
}

type EndSessionPayload struct {
	SessionID string `json:"session_id"`
}

type LeaveSessionPayload struct {
	SessionID string `json:"session_id"`
}

// Server messages (outgoing)

// JoinedPayload acknowledges a successful join to the joining client.
type JoinedPayload struct {
	SessionID   string `json:"session_id"`
	QuizID      string `json:"quiz_id"`
	DisplayName string `json:"display_name"`
	Score       int    `json:"score"`
}

// ErrorPayload reports a rejected action back to the sending client.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
