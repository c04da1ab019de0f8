package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/nsharathc/quizlive/internal/auth"
	httperrors "github.com/nsharathc/quizlive/pkg/http/errors"
	ws "github.com/nsharathc/quizlive/pkg/http/ws"
)

// Handler routes websocket messages to the session registry. It is the thin
// transport layer: every inbound message arrives already tagged with the
// verified identity extracted at upgrade time.
type Handler struct {
	registry *Registry
	hub      *ws.Hub
	verifier *auth.Verifier
	logger   zerolog.Logger
}

// NewHandler creates the session websocket handler.
func NewHandler(registry *Registry, hub *ws.Hub, verifier *auth.Verifier, logger zerolog.Logger) *Handler {
	return &Handler{
		registry: registry,
		hub:      hub,
		verifier: verifier,
		logger:   logger.With().Str("component", "session_handler").Logger(),
	}
}

// HandleConnection owns one client connection for its lifetime. Each
// connection gets a fresh connection id; a rejoin under the same user id
// replaces the participant's connection, not the participant.
func (h *Handler) HandleConnection(conn *websocket.Conn, claims *auth.Claims) {
	wsConn := ws.NewConnection(conn, h.logger)
	h.hub.RegisterConnection(claims.UserID, wsConn)
	connectionID := uuid.New()
	joined := make(map[uuid.UUID]struct{})

	go wsConn.WritePump()

	wsConn.ReadPump(func(msg ws.Message) error {
		return h.handleMessage(claims, connectionID, joined, msg)
	})

	// Disconnect: drop the connection mapping in every session this
	// connection joined; scores stay behind for a rejoin.
	for sessionID := range joined {
		if orch, err := h.registry.Get(sessionID); err == nil {
			orch.Leave(connectionID)
		}
		h.hub.LeaveSession(sessionID, claims.UserID)
	}
	h.hub.UnregisterConnection(claims.UserID, wsConn)
}

func (h *Handler) handleMessage(claims *auth.Claims, connectionID uuid.UUID, joined map[uuid.UUID]struct{}, msg ws.Message) error {
	switch msg.Type {
	case ws.TypeJoinSession:
		return h.handleJoin(claims, connectionID, joined, msg.Payload)
	case ws.TypeSubmitAnswer:
		return h.handleSubmitAnswer(claims, msg.Payload)
	case ws.TypeBroadcastNext:
		return h.handleBroadcastNext(claims, msg.Payload)
	case ws.TypeReveal:
		return h.handleReveal(claims, msg.Payload)
	case ws.TypeEndSession:
		return h.handleEndSession(claims, msg.Payload)
	case ws.TypeLeaveSession:
		return h.handleLeave(claims, connectionID, joined, msg.Payload)
	default:
		return h.sendError(claims.UserID, httperrors.ErrCodeUnknownMessageType, fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (h *Handler) handleJoin(claims *auth.Claims, connectionID uuid.UUID, joined map[uuid.UUID]struct{}, payload json.RawMessage) error {
	var req ws.JoinSessionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidPayload, "invalid join_session payload")
	}

	orch, err := h.registry.GetByAccessCode(req.AccessCode)
	if err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeSessionNotFound, "no session with that access code")
	}
	sess := orch.Snapshot()

	displayName := req.DisplayName
	if displayName == "" {
		displayName = claims.DisplayName
	}

	ack := ws.JoinedPayload{
		SessionID:   sess.ID.String(),
		QuizID:      sess.QuizID.String(),
		DisplayName: displayName,
	}

	// The creator observes the room without becoming a participant.
	if claims.UserID != sess.CreatorID {
		p, err := orch.Join(claims.UserID, connectionID, displayName)
		if err != nil {
			return h.sendWSError(claims.UserID, err)
		}
		ack.DisplayName = p.DisplayName
		ack.Score = p.Score
	}

	h.hub.JoinSession(sess.ID, claims.UserID)
	joined[sess.ID] = struct{}{}

	raw, _ := json.Marshal(ack)
	return h.hub.SendToUser(claims.UserID, ws.Message{Type: ws.TypeJoined, Payload: raw})
}

func (h *Handler) handleSubmitAnswer(claims *auth.Claims, payload json.RawMessage) error {
	var req ws.SubmitAnswerPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidPayload, "invalid submit_answer payload")
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidSessionID, "invalid session id")
	}
	questionID, err := uuid.Parse(req.QuestionID)
	if err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidPayload, "invalid question id")
	}

	orch, err := h.registry.Get(sessionID)
	if err != nil {
		return h.sendWSError(claims.UserID, err)
	}
	// The result unicast is emitted by the orchestrator on success.
	if _, err := orch.SubmitAnswer(claims.UserID, questionID, req.Value); err != nil {
		return h.sendWSError(claims.UserID, err)
	}
	return nil
}

func (h *Handler) handleBroadcastNext(claims *auth.Claims, payload json.RawMessage) error {
	var req ws.BroadcastNextPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidPayload, "invalid broadcast_next payload")
	}
	return h.teacherOp(claims, req.SessionID, func(orch *Orchestrator) error {
		return orch.BroadcastNext(claims.UserID)
	})
}

func (h *Handler) handleReveal(claims *auth.Claims, payload json.RawMessage) error {
	var req ws.RevealPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidPayload, "invalid reveal payload")
	}
	return h.teacherOp(claims, req.SessionID, func(orch *Orchestrator) error {
		return orch.Reveal(claims.UserID)
	})
}

func (h *Handler) handleEndSession(claims *auth.Claims, payload json.RawMessage) error {
	var req ws.EndSessionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidPayload, "invalid end_session payload")
	}
	return h.teacherOp(claims, req.SessionID, func(orch *Orchestrator) error {
		return orch.End(claims.UserID)
	})
}

func (h *Handler) handleLeave(claims *auth.Claims, connectionID uuid.UUID, joined map[uuid.UUID]struct{}, payload json.RawMessage) error {
	var req ws.LeaveSessionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidPayload, "invalid leave_session payload")
	}
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidSessionID, "invalid session id")
	}

	if orch, err := h.registry.Get(sessionID); err == nil {
		orch.Leave(connectionID)
	}
	h.hub.LeaveSession(sessionID, claims.UserID)
	delete(joined, sessionID)
	return nil
}

func (h *Handler) teacherOp(claims *auth.Claims, rawSessionID string, op func(*Orchestrator) error) error {
	sessionID, err := uuid.Parse(rawSessionID)
	if err != nil {
		return h.sendError(claims.UserID, httperrors.ErrCodeInvalidSessionID, "invalid session id")
	}
	orch, err := h.registry.Get(sessionID)
	if err != nil {
		return h.sendWSError(claims.UserID, err)
	}
	if err := op(orch); err != nil {
		return h.sendWSError(claims.UserID, err)
	}
	return nil
}

// sendWSError maps engine sentinels onto wire error codes.
func (h *Handler) sendWSError(userID uuid.UUID, err error) error {
	code := httperrors.ErrCodeInternalError
	switch {
	case errors.Is(err, ErrSessionNotFound):
		code = httperrors.ErrCodeSessionNotFound
	case errors.Is(err, ErrSessionNotActive):
		code = httperrors.ErrCodeSessionNotActive
	case errors.Is(err, ErrInvalidTransition):
		code = httperrors.ErrCodeInvalidTransition
	case errors.Is(err, ErrStaleOrUnknownQuestion):
		code = httperrors.ErrCodeStaleOrUnknownQuestion
	case errors.Is(err, ErrDuplicateAnswer):
		code = httperrors.ErrCodeDuplicateAnswer
	case errors.Is(err, ErrNotAParticipant):
		code = httperrors.ErrCodeNotAParticipant
	case errors.Is(err, ErrNotSessionCreator):
		code = httperrors.ErrCodeNotSessionCreator
	}
	return h.sendError(userID, code, err.Error())
}

func (h *Handler) sendError(userID uuid.UUID, code, message string) error {
	raw, _ := json.Marshal(ws.ErrorPayload{Code: code, Message: message})
	return h.hub.SendToUser(userID, ws.Message{Type: ws.TypeError, Payload: raw})
}
