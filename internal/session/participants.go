package session

import (
	"time"

	"github.com/google/uuid"
)

// ParticipantRegistry tracks one session's membership. It is not safe for
// concurrent use on its own; the owning orchestrator serializes all access
// under the session lock.
type ParticipantRegistry struct {
	byUser  map[uuid.UUID]*Participant
	byConn  map[uuid.UUID]uuid.UUID // connection id -> user id
	nextSeq int
	now     func() time.Time
}

func newParticipantRegistry(now func() time.Time) *ParticipantRegistry {
	if now == nil {
		now = time.Now
	}
	return &ParticipantRegistry{
		byUser: make(map[uuid.UUID]*Participant),
		byConn: make(map[uuid.UUID]uuid.UUID),
		now:    now,
	}
}

// Join registers a participant, or refreshes the connection of one who is
// rejoining. Score and answer history are preserved across rejoins.
func (r *ParticipantRegistry) Join(userID, connectionID uuid.UUID, displayName string) *Participant {
	if p, ok := r.byUser[userID]; ok {
		if p.ConnectionID != uuid.Nil {
			delete(r.byConn, p.ConnectionID)
		}
		p.ConnectionID = connectionID
		if displayName != "" {
			p.DisplayName = displayName
		}
		r.byConn[connectionID] = userID
		return p
	}

	p := &Participant{
		UserID:       userID,
		ConnectionID: connectionID,
		DisplayName:  displayName,
		JoinedAt:     r.now(),
		joinSeq:      r.nextSeq,
		answered:     make(map[uuid.UUID]struct{}),
	}
	r.nextSeq++
	r.byUser[userID] = p
	r.byConn[connectionID] = userID
	return p
}

// Leave drops the connection mapping only. The participant record stays keyed
// by user id so a rejoin resumes the same score.
func (r *ParticipantRegistry) Leave(connectionID uuid.UUID) (uuid.UUID, bool) {
	userID, ok := r.byConn[connectionID]
	if !ok {
		return uuid.Nil, false
	}
	delete(r.byConn, connectionID)
	if p, ok := r.byUser[userID]; ok && p.ConnectionID == connectionID {
		p.ConnectionID = uuid.Nil
	}
	return userID, true
}

// Get returns the participant for a user, if any.
func (r *ParticipantRegistry) Get(userID uuid.UUID) (*Participant, bool) {
	p, ok := r.byUser[userID]
	return p, ok
}

// RecordAnswer marks a question answered and accumulates points. Fails with
// ErrDuplicateAnswer if the participant already answered this question; the
// answered-set insert and the score add happen together or not at all.
func (r *ParticipantRegistry) RecordAnswer(userID, questionID uuid.UUID, pointsAwarded int) error {
	p, ok := r.byUser[userID]
	if !ok {
		return ErrNotAParticipant
	}
	if _, done := p.answered[questionID]; done {
		return ErrDuplicateAnswer
	}
	p.answered[questionID] = struct{}{}
	p.Score += pointsAwarded
	return nil
}

// ListConnected returns the roster of participants with a live connection.
func (r *ParticipantRegistry) ListConnected() []ParticipantInfo {
	infos := make([]ParticipantInfo, 0, len(r.byConn))
	for _, userID := range r.byConn {
		if p, ok := r.byUser[userID]; ok {
			infos = append(infos, ParticipantInfo{UserID: p.UserID, DisplayName: p.DisplayName})
		}
	}
	return infos
}

// ConnectedCount reports how many live connections the session has.
func (r *ParticipantRegistry) ConnectedCount() int {
	return len(r.byConn)
}

// all returns every participant, connected or not, for leaderboard and flush.
func (r *ParticipantRegistry) all() []*Participant {
	ps := make([]*Participant, 0, len(r.byUser))
	for _, p := range r.byUser {
		ps = append(ps, p)
	}
	return ps
}
