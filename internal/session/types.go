package session

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Session lifecycle states.
const (
	StatusPending = "pending"
	StatusActive  = "active"
	StatusEnded   = "ended"
)

// Question phases within an active session.
const (
	PhaseIdle         = "idle"
	PhaseBroadcasting = "broadcasting"
	PhaseRevealed     = "revealed"
	PhaseComplete     = "complete"
)

// Question types.
const (
	TypeMultipleChoice = "multiple_choice"
	TypeTrueFalse      = "true_false"
	TypeText           = "text"
)

// Session is the durable identity and lifecycle state of one live quiz run.
type Session struct {
	ID                   uuid.UUID
	QuizID               uuid.UUID
	AccessCode           string
	CreatorID            uuid.UUID
	Status               string
	CurrentQuestionIndex int // -1 before the first question goes on air
	StartedAt            *time.Time
	EndedAt              *time.Time
	CreatedAt            time.Time
}

// Question is authored content, loaded once per session and immutable after.
type Question struct {
	ID               uuid.UUID
	QuizID           uuid.UUID
	Text             string
	Type             string
	Options          []string // multiple choice only
	CorrectIndex     int      // multiple choice only
	CorrectAnswer    string   // true/false and text questions
	Order            int
	Points           int
	TimeLimitSeconds int // 0 means untimed
}

// revealAnswer returns the answer string clients see at reveal time.
func (q *Question) revealAnswer() string {
	if q.Type == TypeMultipleChoice {
		return strconv.Itoa(q.CorrectIndex)
	}
	return q.CorrectAnswer
}

// Participant is one student's membership in a session, keyed by user id so
// score and answer history survive reconnects.
type Participant struct {
	UserID       uuid.UUID
	ConnectionID uuid.UUID // uuid.Nil while disconnected
	DisplayName  string
	Score        int
	JoinedAt     time.Time

	joinSeq  int
	answered map[uuid.UUID]struct{}
}

// AnswerRecord is the append-only result of one scored submission.
type AnswerRecord struct {
	QuestionID    uuid.UUID `json:"question_id"`
	UserID        uuid.UUID `json:"user_id"`
	Submitted     string    `json:"submitted"`
	IsCorrect     bool      `json:"is_correct"`
	PointsAwarded int       `json:"points_awarded"`
	AnsweredAt    time.Time `json:"answered_at"`
}

// AnswerResult is what the submitting participant gets back.
type AnswerResult struct {
	IsCorrect     bool `json:"is_correct"`
	PointsAwarded int  `json:"points_awarded"`
}

// LeaderboardEntry is a derived ranking row; never stored.
type LeaderboardEntry struct {
	Rank        int       `json:"rank"`
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Score       int       `json:"score"`
}

// ParticipantInfo is the connected-roster view sent to the session creator.
type ParticipantInfo struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
}
