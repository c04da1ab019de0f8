package leaderboard

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nsharathc/quizlive/internal/session"
)

func newTestArchive(t *testing.T) *Archive {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewArchive(client, zerolog.Nop(), ArchiveOptions{})
}

func TestRecordStandingsThenTop(t *testing.T) {
	archive := newTestArchive(t)
	quizID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	entries := []session.LeaderboardEntry{
		{Rank: 1, UserID: alice, DisplayName: "alice", Score: 8},
		{Rank: 2, UserID: bob, DisplayName: "bob", Score: 3},
	}
	require.NoError(t, archive.RecordStandings(context.Background(), quizID, uuid.New(), entries))

	top, err := archive.TopStandings(context.Background(), quizID, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, alice, top[0].UserID)
	assert.Equal(t, "alice", top[0].DisplayName)
	assert.Equal(t, 8, top[0].Score)
	assert.Equal(t, 1, top[0].Rank)
	assert.Equal(t, 1, top[0].Sessions)
	assert.Equal(t, bob, top[1].UserID)
	assert.Equal(t, 2, top[1].Rank)
}

func TestRecordStandingsAccumulatesAcrossSessions(t *testing.T) {
	archive := newTestArchive(t)
	quizID := uuid.New()
	userID := uuid.New()

	first := []session.LeaderboardEntry{{Rank: 1, UserID: userID, DisplayName: "carol", Score: 5}}
	second := []session.LeaderboardEntry{{Rank: 1, UserID: userID, DisplayName: "carol", Score: 7}}
	require.NoError(t, archive.RecordStandings(context.Background(), quizID, uuid.New(), first))
	require.NoError(t, archive.RecordStandings(context.Background(), quizID, uuid.New(), second))

	top, err := archive.TopStandings(context.Background(), quizID, 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 12, top[0].Score)
	assert.Equal(t, 2, top[0].Sessions)
}

func TestStandingsIsolatedPerQuiz(t *testing.T) {
	archive := newTestArchive(t)
	quizA := uuid.New()
	quizB := uuid.New()
	userID := uuid.New()

	entries := []session.LeaderboardEntry{{Rank: 1, UserID: userID, DisplayName: "dave", Score: 4}}
	require.NoError(t, archive.RecordStandings(context.Background(), quizA, uuid.New(), entries))

	top, err := archive.TopStandings(context.Background(), quizB, 10)
	require.NoError(t, err)
	assert.Empty(t, top)
}

func TestAllTimeFoldsAcrossQuizzes(t *testing.T) {
	archive := newTestArchive(t)
	userID := uuid.New()

	entriesA := []session.LeaderboardEntry{{Rank: 1, UserID: userID, DisplayName: "erin", Score: 5}}
	entriesB := []session.LeaderboardEntry{{Rank: 1, UserID: userID, DisplayName: "erin", Score: 2}}
	require.NoError(t, archive.RecordStandings(context.Background(), uuid.New(), uuid.New(), entriesA))
	require.NoError(t, archive.RecordStandings(context.Background(), uuid.New(), uuid.New(), entriesB))

	top, err := archive.AllTimeTop(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 7, top[0].Score)
	assert.Equal(t, 2, top[0].Sessions)
	assert.Equal(t, "erin", top[0].DisplayName)
}

func TestRecordStandingsEmptyIsNoop(t *testing.T) {
	archive := newTestArchive(t)
	require.NoError(t, archive.RecordStandings(context.Background(), uuid.New(), uuid.New(), nil))
}

func TestTopStandingsRespectsLimit(t *testing.T) {
	archive := newTestArchive(t)
	quizID := uuid.New()

	entries := make([]session.LeaderboardEntry, 0, 5)
	for i := 0; i < 5; i++ {
		entries = append(entries, session.LeaderboardEntry{
			Rank:        i + 1,
			UserID:      uuid.New(),
			DisplayName: "p",
			Score:       10 - i,
		})
	}
	require.NoError(t, archive.RecordStandings(context.Background(), quizID, uuid.New(), entries))

	top, err := archive.TopStandings(context.Background(), quizID, 3)
	require.NoError(t, err)
	assert.Len(t, top, 3)
	assert.Equal(t, 10, top[0].Score)
}
