package session

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	ws "github.com/nsharathc/quizlive/pkg/http/ws"
)

// HubSink adapts the websocket hub to the engine's EventSink port. Payloads
// are marshalled here so the engine itself never sees the wire format.
type HubSink struct {
	hub    *ws.Hub
	logger zerolog.Logger
}

// NewHubSink wraps a hub as an EventSink.
func NewHubSink(hub *ws.Hub, logger zerolog.Logger) *HubSink {
	return &HubSink{hub: hub, logger: logger}
}

// Broadcast fans an event out to every member of the session's room.
func (s *HubSink) Broadcast(sessionID uuid.UUID, event string, payload any) {
	msg, err := encodeEvent(event, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("encode broadcast payload")
		return
	}
	s.hub.BroadcastToSession(sessionID, msg)

	// session_ended is the room's final message; drop the room so its
	// membership does not accumulate across session churn.
	if event == EventSessionEnded {
		s.hub.CloseSession(sessionID)
	}
}

// Unicast delivers an event to a single user, if connected.
func (s *HubSink) Unicast(userID uuid.UUID, event string, payload any) {
	msg, err := encodeEvent(event, payload)
	if err != nil {
		s.logger.Error().Err(err).Str("event", event).Msg("encode unicast payload")
		return
	}
	if err := s.hub.SendToUser(userID, msg); err != nil {
		s.logger.Debug().Err(err).Str("user_id", userID.String()).Msg("unicast skipped")
	}
}

func encodeEvent(event string, payload any) (ws.Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ws.Message{}, err
	}
	return ws.Message{Type: event, Payload: raw}, nil
}
