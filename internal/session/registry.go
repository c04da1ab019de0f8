package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Registry is the process-wide directory of live orchestrators, indexed by
// session id and by access code. The two indexes are only ever mutated
// together, so a lookup can never find a session by one key that the other
// has already forgotten.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*Orchestrator
	byCode map[string]*Orchestrator

	codes     *AccessCodeAllocator
	store     Store
	persister *Persister
	sink      EventSink
	archive   Archiver
	logger    zerolog.Logger
	now       func() time.Time
}

// NewRegistry builds the session directory. archive may be nil.
func NewRegistry(store Store, persister *Persister, sink EventSink, archive Archiver, logger zerolog.Logger) *Registry {
	return &Registry{
		byID:      make(map[uuid.UUID]*Orchestrator),
		byCode:    make(map[string]*Orchestrator),
		codes:     NewAccessCodeAllocator(store),
		store:     store,
		persister: persister,
		sink:      sink,
		archive:   archive,
		logger:    logger.With().Str("component", "session_registry").Logger(),
		now:       time.Now,
	}
}

// Create provisions a new session for a quiz: questions loaded once, access
// code allocated, durable row inserted synchronously (creation is the one
// write that must not be deferred), then the orchestrator is registered under
// both indexes.
func (r *Registry) Create(ctx context.Context, quizID, creatorID uuid.UUID) (*Orchestrator, error) {
	questions, err := r.store.LoadQuestions(ctx, quizID)
	if err != nil {
		return nil, fmt.Errorf("load questions: %w", err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("quiz %s has no questions", quizID)
	}

	code, err := r.codes.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	sess := Session{
		ID:                   uuid.New(),
		QuizID:               quizID,
		AccessCode:           code,
		CreatorID:            creatorID,
		Status:               StatusPending,
		CurrentQuestionIndex: -1,
		CreatedAt:            r.now(),
	}

	if err := r.store.CreateSession(ctx, sess); err != nil {
		r.codes.Release(code)
		return nil, fmt.Errorf("create session row: %w", err)
	}

	orch := newOrchestrator(sess, questions, r.store, r.persister, r.sink, r.archive, r.logger, r.now)
	orch.detach = func() { r.remove(sess.ID, code) }

	r.mu.Lock()
	r.byID[sess.ID] = orch
	r.byCode[code] = orch
	r.mu.Unlock()
	metricActiveSessions.Inc()

	r.logger.Info().
		Str("session_id", sess.ID.String()).
		Str("quiz_id", quizID.String()).
		Str("access_code", code).
		Msg("session created")
	return orch, nil
}

// Get looks a session up by id.
func (r *Registry) Get(sessionID uuid.UUID) (*Orchestrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orch, ok := r.byID[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return orch, nil
}

// GetByAccessCode looks a session up by its join code.
func (r *Registry) GetByAccessCode(code string) (*Orchestrator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	orch, ok := r.byCode[code]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return orch, nil
}

// Len reports how many sessions are live.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Shutdown force-ends every live session; used on process teardown so no
// countdown goroutine outlives the registry.
func (r *Registry) Shutdown() {
	r.mu.RLock()
	live := make([]*Orchestrator, 0, len(r.byID))
	for _, orch := range r.byID {
		live = append(live, orch)
	}
	r.mu.RUnlock()

	for _, orch := range live {
		orch.Terminate()
	}
}

func (r *Registry) remove(sessionID uuid.UUID, code string) {
	r.mu.Lock()
	delete(r.byID, sessionID)
	delete(r.byCode, code)
	r.mu.Unlock()

	r.codes.Release(code)
	metricActiveSessions.Dec()
	r.logger.Info().Str("session_id", sessionID.String()).Msg("session removed from registry")
}
