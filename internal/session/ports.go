package session

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store is the durable-store collaborator. Memory is authoritative while a
// session is live; the store is a write-behind audit log plus the cold-start
// source for access codes left behind by a crashed process.
type Store interface {
	CreateSession(ctx context.Context, s Session) error
	LoadSessionRow(ctx context.Context, sessionID uuid.UUID) (Session, error)
	LoadQuestions(ctx context.Context, quizID uuid.UUID) ([]Question, error)
	UpsertParticipantScore(ctx context.Context, sessionID, userID uuid.UUID, displayName string, score int) error
	AppendAnswerRecord(ctx context.Context, sessionID uuid.UUID, rec AnswerRecord) error
	MarkSessionStarted(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	MarkSessionEnded(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	ActiveAccessCodes(ctx context.Context) ([]string, error)
}

// EventSink is the output port to the connection layer. The engine never
// touches the websocket library; the transport adapter implements this.
type EventSink interface {
	Broadcast(sessionID uuid.UUID, event string, payload any)
	Unicast(userID uuid.UUID, event string, payload any)
}

// Archiver records final standings for the reporting side (dashboards) once a
// session ends. Optional; a nil archiver disables archiving.
type Archiver interface {
	RecordStandings(ctx context.Context, quizID, sessionID uuid.UUID, entries []LeaderboardEntry) error
}
