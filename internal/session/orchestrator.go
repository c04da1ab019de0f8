package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Orchestrator composes the allocator, participant registry, question
// lifecycle, answer scoring, and leaderboard for a single session. Every
// mutating operation takes the session lock, so within one session calls
// behave like a single sequential actor; separate sessions run fully in
// parallel.
type Orchestrator struct {
	mu           sync.Mutex
	sess         Session
	participants *ParticipantRegistry
	lifecycle    *questionLifecycle
	store        Store
	persister    *Persister
	sink         EventSink
	archive      Archiver
	logger       zerolog.Logger
	now          func() time.Time

	// detach releases the access code and removes this orchestrator from the
	// registry indexes. Nulled after the first end so teardown is idempotent.
	detach func()
}

func newOrchestrator(sess Session, questions []Question, store Store, persister *Persister, sink EventSink, archive Archiver, logger zerolog.Logger, now func() time.Time) *Orchestrator {
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		sess:         sess,
		participants: newParticipantRegistry(now),
		lifecycle:    newQuestionLifecycle(questions),
		store:        store,
		persister:    persister,
		sink:         sink,
		archive:      archive,
		logger:       logger.With().Str("session_id", sess.ID.String()).Logger(),
		now:          now,
	}
}

// Snapshot returns a copy of the session's identity and lifecycle state.
func (o *Orchestrator) Snapshot() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess
}

// Start transitions the session from pending to active. Creator only.
func (o *Orchestrator) Start(userID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireCreator(userID); err != nil {
		return err
	}
	if o.sess.Status == StatusEnded {
		return ErrSessionNotActive
	}
	if o.sess.Status != StatusPending {
		return ErrInvalidTransition
	}

	startedAt := o.now()
	o.sess.Status = StatusActive
	o.sess.StartedAt = &startedAt
	metricSessionsStarted.Inc()

	sessionID := o.sess.ID
	o.persister.Enqueue("mark_session_started", func(ctx context.Context) error {
		return o.store.MarkSessionStarted(ctx, sessionID, startedAt)
	})

	o.logger.Info().Msg("session started")
	return nil
}

// Join registers a participant (or refreshes a rejoining one) and notifies
// the creator of the new roster. Joins are accepted while pending or active.
func (o *Orchestrator) Join(userID, connectionID uuid.UUID, displayName string) (Participant, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess.Status == StatusEnded {
		return Participant{}, ErrSessionNotActive
	}

	p := o.participants.Join(userID, connectionID, displayName)
	metricParticipantsJoined.Inc()

	// Upsert early so the durable row exists even if the participant never
	// answers anything.
	o.enqueueScoreUpsert(p)
	o.notifyRosterLocked()

	o.logger.Info().
		Str("user_id", userID.String()).
		Str("display_name", p.DisplayName).
		Msg("participant joined")
	return *p, nil
}

// Leave drops a participant's connection. The membership record survives so a
// rejoin within the session's lifetime resumes the same score.
func (o *Orchestrator) Leave(connectionID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess.Status == StatusEnded {
		return
	}
	userID, ok := o.participants.Leave(connectionID)
	if !ok {
		return
	}
	o.notifyRosterLocked()
	o.logger.Info().Str("user_id", userID.String()).Msg("participant left")
}

// BroadcastNext puts the next question on air, or ends the session when the
// sequence is exhausted. Creator only; session must be active.
func (o *Orchestrator) BroadcastNext(userID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireCreator(userID); err != nil {
		return err
	}
	if o.sess.Status != StatusActive {
		return ErrSessionNotActive
	}

	q, err := o.lifecycle.advance()
	if err != nil {
		return err
	}
	o.sess.CurrentQuestionIndex = o.lifecycle.index
	if q == nil {
		// Sequence exhausted: Complete, no question emitted.
		o.logger.Info().Msg("question sequence complete")
		o.endLocked()
		return nil
	}

	o.sink.Broadcast(o.sess.ID, EventQuestionBroadcast, questionView(o.sess.ID.String(), o.lifecycle.index, q))

	if q.TimeLimitSeconds > 0 {
		o.lifecycle.startCountdown(q.TimeLimitSeconds, o.countdownTick, o.countdownExpired)
	}

	o.logger.Info().
		Int("index", o.lifecycle.index).
		Str("question_id", q.ID.String()).
		Int("time_limit_s", q.TimeLimitSeconds).
		Msg("question broadcast")
	return nil
}

// Reveal closes the question on air and broadcasts answer + leaderboard.
// Creator only; session must be active.
func (o *Orchestrator) Reveal(userID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireCreator(userID); err != nil {
		return err
	}
	if o.sess.Status != StatusActive {
		return ErrSessionNotActive
	}
	return o.revealLocked()
}

func (o *Orchestrator) revealLocked() error {
	q, err := o.lifecycle.reveal()
	if err != nil {
		return err
	}

	lb := buildLeaderboard(o.participants.all())
	o.sink.Broadcast(o.sess.ID, EventRevealed, RevealView{
		SessionID:     o.sess.ID.String(),
		QuestionID:    q.ID.String(),
		CorrectAnswer: q.revealAnswer(),
		Leaderboard:   lb,
	})

	o.logger.Info().Str("question_id", q.ID.String()).Msg("question revealed")
	return nil
}

// countdownTick runs on the timer goroutine; it reacquires the session lock
// and drops itself if the timer it came from has been superseded.
func (o *Orchestrator) countdownTick(gen uint64, remaining int) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.timerCurrentLocked(gen) {
		return
	}
	q, _ := o.lifecycle.onAir()
	o.sink.Broadcast(o.sess.ID, EventCountdownTick, CountdownTickView{
		SessionID:        o.sess.ID.String(),
		QuestionID:       q.ID.String(),
		SecondsRemaining: remaining,
	})
}

// countdownExpired auto-reveals when the countdown reaches zero. The
// generation guard makes the auto-reveal fire at most once per broadcast even
// if a manual reveal races the final tick.
func (o *Orchestrator) countdownExpired(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.timerCurrentLocked(gen) {
		return
	}
	if err := o.revealLocked(); err != nil {
		o.logger.Warn().Err(err).Msg("auto reveal rejected")
	}
}

func (o *Orchestrator) timerCurrentLocked(gen uint64) bool {
	if o.sess.Status != StatusActive {
		return false
	}
	if o.lifecycle.generation != gen {
		return false
	}
	_, on := o.lifecycle.onAir()
	return on
}

// SubmitAnswer validates and scores one submission against the question on
// air, exactly once per participant per question.
func (o *Orchestrator) SubmitAnswer(userID, questionID uuid.UUID, value string) (AnswerResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.sess.Status != StatusActive {
		return AnswerResult{}, ErrSessionNotActive
	}
	q, on := o.lifecycle.onAir()
	if !on || q.ID != questionID {
		metricAnswers.WithLabelValues(answerOutcomeRejected).Inc()
		return AnswerResult{}, ErrStaleOrUnknownQuestion
	}
	p, ok := o.participants.Get(userID)
	if !ok {
		metricAnswers.WithLabelValues(answerOutcomeRejected).Inc()
		return AnswerResult{}, ErrNotAParticipant
	}

	result := evaluateAnswer(q, value)
	if err := o.participants.RecordAnswer(userID, questionID, result.PointsAwarded); err != nil {
		metricAnswers.WithLabelValues(answerOutcomeRejected).Inc()
		return AnswerResult{}, err
	}

	rec := AnswerRecord{
		QuestionID:    questionID,
		UserID:        userID,
		Submitted:     value,
		IsCorrect:     result.IsCorrect,
		PointsAwarded: result.PointsAwarded,
		AnsweredAt:    o.now(),
	}
	sessionID := o.sess.ID
	o.persister.Enqueue("append_answer", func(ctx context.Context) error {
		return o.store.AppendAnswerRecord(ctx, sessionID, rec)
	})
	o.enqueueScoreUpsert(p)

	if result.IsCorrect {
		metricAnswers.WithLabelValues(answerOutcomeCorrect).Inc()
	} else {
		metricAnswers.WithLabelValues(answerOutcomeIncorrect).Inc()
	}

	o.sink.Unicast(userID, EventAnswerResult, AnswerResultView{
		SessionID:     sessionID.String(),
		QuestionID:    questionID.String(),
		IsCorrect:     result.IsCorrect,
		PointsAwarded: result.PointsAwarded,
	})

	o.logger.Info().
		Str("user_id", userID.String()).
		Str("question_id", questionID.String()).
		Bool("correct", result.IsCorrect).
		Int("points", result.PointsAwarded).
		Msg("answer scored")
	return result, nil
}

// Leaderboard computes the current standings on demand.
func (o *Orchestrator) Leaderboard() []LeaderboardEntry {
	o.mu.Lock()
	defer o.mu.Unlock()
	return buildLeaderboard(o.participants.all())
}

// End terminates the session. Creator only. Valid from any non-ended state;
// a second call reports ErrSessionNotActive rather than silently succeeding.
func (o *Orchestrator) End(userID uuid.UUID) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err := o.requireCreator(userID); err != nil {
		return err
	}
	if o.sess.Status == StatusEnded {
		return ErrSessionNotActive
	}
	o.endLocked()
	return nil
}

// Terminate force-ends the session without a creator check; used by the
// registry during process shutdown. Safe to call on an ended session.
func (o *Orchestrator) Terminate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.sess.Status != StatusEnded {
		o.endLocked()
	}
}

// endLocked tears the session down: timer cancelled unconditionally, final
// scores flushed, access code released, registry entry removed, participants
// told the final standings.
func (o *Orchestrator) endLocked() {
	endedAt := o.now()
	o.sess.Status = StatusEnded
	o.sess.EndedAt = &endedAt
	o.lifecycle.stopCountdown()

	final := buildLeaderboard(o.participants.all())
	o.sink.Broadcast(o.sess.ID, EventSessionEnded, SessionEndedView{
		SessionID:        o.sess.ID.String(),
		FinalLeaderboard: final,
	})

	for _, p := range o.participants.all() {
		o.enqueueScoreUpsert(p)
	}
	sessionID := o.sess.ID
	o.persister.Enqueue("mark_session_ended", func(ctx context.Context) error {
		return o.store.MarkSessionEnded(ctx, sessionID, endedAt)
	})
	if o.archive != nil {
		quizID := o.sess.QuizID
		o.persister.Enqueue("archive_standings", func(ctx context.Context) error {
			return o.archive.RecordStandings(ctx, quizID, sessionID, final)
		})
	}

	metricSessionsEnded.Inc()
	if o.detach != nil {
		o.detach()
		o.detach = nil
	}
	o.logger.Info().Int("participants", len(final)).Msg("session ended")
}

func (o *Orchestrator) enqueueScoreUpsert(p *Participant) {
	sessionID := o.sess.ID
	userID := p.UserID
	displayName := p.DisplayName
	score := p.Score
	o.persister.Enqueue("upsert_score", func(ctx context.Context) error {
		return o.store.UpsertParticipantScore(ctx, sessionID, userID, displayName, score)
	})
}

func (o *Orchestrator) notifyRosterLocked() {
	o.sink.Unicast(o.sess.CreatorID, EventParticipantList, ParticipantListView{
		SessionID:      o.sess.ID.String(),
		ConnectedCount: o.participants.ConnectedCount(),
		Participants:   o.participants.ListConnected(),
	})
}

func (o *Orchestrator) requireCreator(userID uuid.UUID) error {
	if userID != o.sess.CreatorID {
		return ErrNotSessionCreator
	}
	return nil
}
