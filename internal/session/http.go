package session

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/nsharathc/quizlive/internal/auth"
	httperrors "github.com/nsharathc/quizlive/pkg/http/errors"
)

// CreateSessionRequest is the POST /v1/sessions body.
type CreateSessionRequest struct {
	QuizID string `json:"quiz_id"`
}

// CreateSessionResponse returns the identifiers students need to join.
type CreateSessionResponse struct {
	SessionID  string `json:"session_id"`
	QuizID     string `json:"quiz_id"`
	AccessCode string `json:"access_code"`
	Status     string `json:"status"`
}

// SessionStateResponse is the GET /v1/sessions/{id} body.
type SessionStateResponse struct {
	SessionID            string             `json:"session_id"`
	QuizID               string             `json:"quiz_id"`
	AccessCode           string             `json:"access_code"`
	Status               string             `json:"status"`
	CurrentQuestionIndex int                `json:"current_question_index"`
	Leaderboard          []LeaderboardEntry `json:"leaderboard"`
}

// HandleCreate provisions a session for a quiz. Teacher token required.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "method not allowed")
		return
	}

	claims, ok := h.authorize(w, r)
	if !ok {
		return
	}
	if claims.Role != auth.RoleTeacher {
		httperrors.RespondForbidden(w, httperrors.ErrCodeForbidden, "only teachers can create sessions")
		return
	}

	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidPayload, "invalid request body")
		return
	}
	quizID, err := uuid.Parse(req.QuizID)
	if err != nil {
		httperrors.RespondValidationError(w, httperrors.ErrCodeMissingField, "quiz_id must be a uuid", "quiz_id")
		return
	}

	orch, err := h.registry.Create(r.Context(), quizID, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrAccessCodeExhausted) {
			httperrors.RespondConflict(w, httperrors.ErrCodeAccessCodeExhausted, err.Error())
			return
		}
		h.logger.Error().Err(err).Str("quiz_id", quizID.String()).Msg("session creation failed")
		httperrors.RespondError(w, http.StatusBadGateway, httperrors.ErrCodeSessionCreateFailed, "could not create session")
		return
	}

	sess := orch.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(CreateSessionResponse{
		SessionID:  sess.ID.String(),
		QuizID:     sess.QuizID.String(),
		AccessCode: sess.AccessCode,
		Status:     sess.Status,
	})
}

// HandleGet returns a live session's state and current leaderboard.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondError(w, http.StatusMethodNotAllowed, httperrors.ErrCodeInvalidRequest, "method not allowed")
		return
	}
	if _, ok := h.authorize(w, r); !ok {
		return
	}

	rawID := strings.TrimPrefix(r.URL.Path, "/v1/sessions/")
	sessionID, err := uuid.Parse(rawID)
	if err != nil {
		httperrors.RespondBadRequest(w, httperrors.ErrCodeInvalidSessionID, "invalid session id")
		return
	}

	var (
		sess        Session
		leaderboard []LeaderboardEntry
	)
	orch, err := h.registry.Get(sessionID)
	if err == nil {
		sess = orch.Snapshot()
		leaderboard = orch.Leaderboard()
	} else {
		// Ended sessions leave the registry; fall back to the durable row.
		sess, err = h.registry.store.LoadSessionRow(r.Context(), sessionID)
		if err != nil {
			httperrors.RespondNotFound(w, httperrors.ErrCodeSessionNotFound, "session not found")
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(SessionStateResponse{
		SessionID:            sess.ID.String(),
		QuizID:               sess.QuizID.String(),
		AccessCode:           sess.AccessCode,
		Status:               sess.Status,
		CurrentQuestionIndex: sess.CurrentQuestionIndex,
		Leaderboard:          leaderboard,
	})
}

func (h *Handler) authorize(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeUnauthorized, "missing bearer token")
		return nil, false
	}
	claims, err := h.verifier.Validate(strings.TrimPrefix(header, "Bearer "))
	if err != nil {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeInvalidToken, "invalid token")
		return nil, false
	}
	return claims, true
}
