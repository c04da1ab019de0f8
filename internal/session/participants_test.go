package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParticipantJoinAndRejoin(t *testing.T) {
	r := newParticipantRegistry(nil)
	userID := uuid.New()
	conn1 := uuid.New()
	conn2 := uuid.New()

	p := r.Join(userID, conn1, "alice")
	assert.Equal(t, "alice", p.DisplayName)
	assert.Equal(t, conn1, p.ConnectionID)
	assert.Equal(t, 1, r.ConnectedCount())

	require.NoError(t, r.RecordAnswer(userID, uuid.New(), 5))

	// Rejoin with a new connection keeps score and history.
	p = r.Join(userID, conn2, "")
	assert.Equal(t, "alice", p.DisplayName)
	assert.Equal(t, conn2, p.ConnectionID)
	assert.Equal(t, 5, p.Score)
	assert.Equal(t, 1, r.ConnectedCount())
}

func TestParticipantLeaveKeepsMembership(t *testing.T) {
	r := newParticipantRegistry(nil)
	userID := uuid.New()
	conn := uuid.New()

	r.Join(userID, conn, "bob")
	gone, ok := r.Leave(conn)
	assert.True(t, ok)
	assert.Equal(t, userID, gone)
	assert.Equal(t, 0, r.ConnectedCount())

	p, ok := r.Get(userID)
	require.True(t, ok)
	assert.Equal(t, uuid.Nil, p.ConnectionID)

	// Unknown connection is a no-op.
	_, ok = r.Leave(uuid.New())
	assert.False(t, ok)
}

func TestRecordAnswerRejectsDuplicates(t *testing.T) {
	r := newParticipantRegistry(nil)
	userID := uuid.New()
	questionID := uuid.New()
	r.Join(userID, uuid.New(), "carol")

	require.NoError(t, r.RecordAnswer(userID, questionID, 3))
	err := r.RecordAnswer(userID, questionID, 3)
	assert.ErrorIs(t, err, ErrDuplicateAnswer)

	p, _ := r.Get(userID)
	assert.Equal(t, 3, p.Score)
}

func TestRecordAnswerUnknownUser(t *testing.T) {
	r := newParticipantRegistry(nil)
	err := r.RecordAnswer(uuid.New(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotAParticipant)
}

func TestListConnectedExcludesDisconnected(t *testing.T) {
	r := newParticipantRegistry(nil)
	connA := uuid.New()
	r.Join(uuid.New(), connA, "a")
	r.Join(uuid.New(), uuid.New(), "b")
	r.Leave(connA)

	infos := r.ListConnected()
	require.Len(t, infos, 1)
	assert.Equal(t, "b", infos[0].DisplayName)
}

func TestJoinSequenceIncrements(t *testing.T) {
	r := newParticipantRegistry(nil)
	p1 := r.Join(uuid.New(), uuid.New(), "first")
	p2 := r.Join(uuid.New(), uuid.New(), "second")
	assert.Less(t, p1.joinSeq, p2.joinSeq)
}
