package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// stubStore is an in-memory Store. Function fields override individual
// methods; everything defaults to success.
type stubStore struct {
	mu sync.Mutex

	questions   []Question
	activeCodes []string
	storedRow   *Session

	createErr       error
	createCalls     int
	startedCalls    int
	endedCalls      int
	upsertCalls     int
	appendCalls     int
	appendedRecords []AnswerRecord
	upsertedScores  map[uuid.UUID]int

	upsertFn func(ctx context.Context) error
}

func newStubStore(questions []Question) *stubStore {
	return &stubStore{
		questions:      questions,
		upsertedScores: make(map[uuid.UUID]int),
	}
}

func (s *stubStore) CreateSession(ctx context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	return s.createErr
}

func (s *stubStore) LoadSessionRow(ctx context.Context, sessionID uuid.UUID) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storedRow != nil && s.storedRow.ID == sessionID {
		return *s.storedRow, nil
	}
	return Session{}, ErrSessionNotFound
}

func (s *stubStore) LoadQuestions(ctx context.Context, quizID uuid.UUID) ([]Question, error) {
	return s.questions, nil
}

func (s *stubStore) UpsertParticipantScore(ctx context.Context, sessionID, userID uuid.UUID, displayName string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upsertCalls++
	s.upsertedScores[userID] = score
	if s.upsertFn != nil {
		return s.upsertFn(ctx)
	}
	return nil
}

func (s *stubStore) AppendAnswerRecord(ctx context.Context, sessionID uuid.UUID, rec AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendCalls++
	s.appendedRecords = append(s.appendedRecords, rec)
	return nil
}

func (s *stubStore) MarkSessionStarted(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startedCalls++
	return nil
}

func (s *stubStore) MarkSessionEnded(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endedCalls++
	return nil
}

func (s *stubStore) ActiveAccessCodes(ctx context.Context) ([]string, error) {
	return s.activeCodes, nil
}

// sinkEvent is one captured emission, broadcast or unicast.
type sinkEvent struct {
	sessionID uuid.UUID
	userID    uuid.UUID
	event     string
	payload   any
}

// captureSink records every emission for assertions. Safe for concurrent use
// because countdown callbacks emit from the timer goroutine.
type captureSink struct {
	mu     sync.Mutex
	events []sinkEvent
}

func (c *captureSink) Broadcast(sessionID uuid.UUID, event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sinkEvent{sessionID: sessionID, event: event, payload: payload})
}

func (c *captureSink) Unicast(userID uuid.UUID, event string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, sinkEvent{userID: userID, event: event, payload: payload})
}

func (c *captureSink) count(event string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.event == event {
			n++
		}
	}
	return n
}

func (c *captureSink) last(event string) (sinkEvent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].event == event {
			return c.events[i], true
		}
	}
	return sinkEvent{}, false
}

func (c *captureSink) ofType(event string) []sinkEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]sinkEvent, 0)
	for _, e := range c.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// stubArchiver records archive calls.
type stubArchiver struct {
	mu    sync.Mutex
	calls int
	last  []LeaderboardEntry
}

func (a *stubArchiver) RecordStandings(ctx context.Context, quizID, sessionID uuid.UUID, entries []LeaderboardEntry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	a.last = entries
	return nil
}

func sampleQuestions(quizID uuid.UUID) []Question {
	return []Question{
		{
			ID:           uuid.New(),
			QuizID:       quizID,
			Text:         "Which planet is closest to the sun?",
			Type:         TypeMultipleChoice,
			Options:      []string{"Venus", "Mercury", "Mars", "Earth"},
			CorrectIndex: 1,
			Order:        1,
			Points:       5,
		},
		{
			ID:            uuid.New(),
			QuizID:        quizID,
			Text:          "The sun is a star.",
			Type:          TypeTrueFalse,
			CorrectAnswer: "true",
			Order:         2,
			Points:        3,
		},
		{
			ID:            uuid.New(),
			QuizID:        quizID,
			Text:          "What is the capital of France?",
			Type:          TypeText,
			CorrectAnswer: "Paris",
			Order:         3,
			Points:        2,
		},
	}
}

type testRig struct {
	registry *Registry
	store    *stubStore
	sink     *captureSink
	archive  *stubArchiver
}

func newTestRig(questions []Question) *testRig {
	store := newStubStore(questions)
	sink := &captureSink{}
	archive := &stubArchiver{}
	persister := NewPersister(zerolog.Nop(), PersisterOptions{})
	registry := NewRegistry(store, persister, sink, archive, zerolog.Nop())
	return &testRig{registry: registry, store: store, sink: sink, archive: archive}
}

// flush applies every queued durable write synchronously.
func (r *testRig) flush() {
	r.registry.persister.drain()
}
