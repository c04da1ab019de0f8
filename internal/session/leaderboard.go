package session

import (
	"bytes"
	"sort"
)

// buildLeaderboard ranks a participant snapshot: score descending, join order
// ascending, then user id ascending so equal inputs always produce equal
// output. Pure function; safe to call repeatedly.
func buildLeaderboard(participants []*Participant) []LeaderboardEntry {
	sorted := make([]*Participant, len(participants))
	copy(sorted, participants)

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.joinSeq != b.joinSeq {
			return a.joinSeq < b.joinSeq
		}
		return bytes.Compare(a.UserID[:], b.UserID[:]) < 0
	})

	entries := make([]LeaderboardEntry, len(sorted))
	for i, p := range sorted {
		entries[i] = LeaderboardEntry{
			Rank:        i + 1,
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Score:       p.Score,
		}
	}
	return entries
}
