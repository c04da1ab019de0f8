package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/nsharathc/quizlive/internal/session"
)

// DB is the subset of pgxpool.Pool the repositories use; tests substitute it.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// SessionRepository is the Postgres implementation of the engine's durable
// store: session rows, question loading, score upserts, and the append-only
// answer log.
type SessionRepository struct {
	db DB
}

// NewSessionRepository constructs the repository.
func NewSessionRepository(db DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession inserts the durable row for a freshly provisioned session.
func (r *SessionRepository) CreateSession(ctx context.Context, s session.Session) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO quiz_sessions (session_id, quiz_id, access_code, creator_id, status, current_question_index, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.QuizID, s.AccessCode, s.CreatorID, s.Status, s.CurrentQuestionIndex, s.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// LoadSessionRow fetches a session's durable state.
func (r *SessionRepository) LoadSessionRow(ctx context.Context, sessionID uuid.UUID) (session.Session, error) {
	var (
		s         session.Session
		startedAt *time.Time
		endedAt   *time.Time
	)
	err := r.db.QueryRow(ctx, `
		SELECT session_id, quiz_id, access_code, creator_id, status, current_question_index, started_at, ended_at, created_at
		FROM quiz_sessions WHERE session_id = $1`,
		sessionID,
	).Scan(&s.ID, &s.QuizID, &s.AccessCode, &s.CreatorID, &s.Status, &s.CurrentQuestionIndex, &startedAt, &endedAt, &s.CreatedAt)
	if err != nil {
		return session.Session{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	s.StartedAt = startedAt
	s.EndedAt = endedAt
	return s, nil
}

// LoadQuestions returns a quiz's questions in broadcast order.
func (r *SessionRepository) LoadQuestions(ctx context.Context, quizID uuid.UUID) ([]session.Question, error) {
	rows, err := r.db.Query(ctx, `
		SELECT question_id, quiz_id, question_text, question_type, options, correct_index, correct_answer, ord, points, time_limit_seconds
		FROM questions WHERE quiz_id = $1 ORDER BY ord`,
		quizID,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	var questions []session.Question
	for rows.Next() {
		var (
			q       session.Question
			options []byte
		)
		if err := rows.Scan(&q.ID, &q.QuizID, &q.Text, &q.Type, &options, &q.CorrectIndex, &q.CorrectAnswer, &q.Order, &q.Points, &q.TimeLimitSeconds); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if len(options) > 0 {
			if err := json.Unmarshal(options, &q.Options); err != nil {
				return nil, fmt.Errorf("decode options for question %s: %w", q.ID, err)
			}
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// UpsertParticipantScore writes a participant's running score; the row is
// keyed by (session, user) so repeat flushes become updates.
func (r *SessionRepository) UpsertParticipantScore(ctx context.Context, sessionID, userID uuid.UUID, displayName string, score int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO session_participants (session_id, user_id, display_name, score)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, user_id)
		DO UPDATE SET display_name = EXCLUDED.display_name, score = EXCLUDED.score`,
		sessionID, userID, displayName, score,
	)
	if err != nil {
		return fmt.Errorf("upsert participant score: %w", err)
	}
	return nil
}

// AppendAnswerRecord appends one scored answer. The unique constraint on
// (session, question, user) is the durable backstop for the in-memory
// at-most-once invariant, so a replayed write is a no-op.
func (r *SessionRepository) AppendAnswerRecord(ctx context.Context, sessionID uuid.UUID, rec session.AnswerRecord) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO session_answers (session_id, question_id, user_id, submitted_value, is_correct, points_awarded, answered_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (session_id, question_id, user_id) DO NOTHING`,
		sessionID, rec.QuestionID, rec.UserID, rec.Submitted, rec.IsCorrect, rec.PointsAwarded, rec.AnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("append answer record: %w", err)
	}
	return nil
}

// MarkSessionStarted stamps the transition to active.
func (r *SessionRepository) MarkSessionStarted(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE quiz_sessions SET status = $2, started_at = $3 WHERE session_id = $1`,
		sessionID, session.StatusActive, at,
	)
	if err != nil {
		return fmt.Errorf("mark session started: %w", err)
	}
	return nil
}

// MarkSessionEnded stamps the terminal transition.
func (r *SessionRepository) MarkSessionEnded(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	_, err := r.db.Exec(ctx,
		`UPDATE quiz_sessions SET status = $2, ended_at = $3 WHERE session_id = $1`,
		sessionID, session.StatusEnded, at,
	)
	if err != nil {
		return fmt.Errorf("mark session ended: %w", err)
	}
	return nil
}

// ActiveAccessCodes lists codes for sessions not yet marked ended, including
// any a crashed process left behind.
func (r *SessionRepository) ActiveAccessCodes(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx,
		`SELECT access_code FROM quiz_sessions WHERE status <> $1`,
		session.StatusEnded,
	)
	if err != nil {
		return nil, fmt.Errorf("query active codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan access code: %w", err)
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}
