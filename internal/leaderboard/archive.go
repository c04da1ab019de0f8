package leaderboard

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/nsharathc/quizlive/internal/session"
)

// Standing is an aggregated per-quiz record read back from Redis.
type Standing struct {
	UserID      uuid.UUID `json:"user_id"`
	DisplayName string    `json:"display_name"`
	Score       int       `json:"score"`
	Sessions    int       `json:"sessions"`
	Rank        int       `json:"rank"`
}

// ArchiveOptions configures archive behavior.
type ArchiveOptions struct {
	TopN           int
	RedisKeyPrefix string
}

// Archive accumulates per-quiz standings in Redis as sessions end. Scores
// from repeated sessions of the same quiz add up, so a quiz run several
// times builds a cumulative ranking across all of its rooms.
type Archive struct {
	redis  *redis.Client
	logger zerolog.Logger
	topN   int
	prefix string
}

// NewArchive constructs a standings archive backed by the given Redis client.
func NewArchive(redis *redis.Client, logger zerolog.Logger, opts ArchiveOptions) *Archive {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	prefix := opts.RedisKeyPrefix
	if prefix == "" {
		prefix = "standings"
	}
	return &Archive{
		redis:  redis,
		logger: logger.With().Str("component", "standings").Logger(),
		topN:   topN,
		prefix: prefix,
	}
}

// RecordStandings folds a finished session's leaderboard into the quiz's
// cumulative standings. One pipeline per session keeps the zset and the
// per-user metadata hashes consistent.
func (a *Archive) RecordStandings(ctx context.Context, quizID, sessionID uuid.UUID, entries []session.LeaderboardEntry) error {
	if len(entries) == 0 {
		return nil
	}

	zKey := a.standingsKey(quizID)
	pipe := a.redis.TxPipeline()
	for _, entry := range entries {
		member := entry.UserID.String()
		metaKey := a.metaKey(quizID, entry.UserID)
		pipe.ZIncrBy(ctx, zKey, float64(entry.Score), member)
		pipe.HIncrBy(ctx, metaKey, "sessions", 1)
		pipe.HSet(ctx, metaKey, map[string]interface{}{
			"display_name": entry.DisplayName,
		})

		// Global fold across every quiz.
		allMetaKey := a.allTimeMetaKey(entry.UserID)
		pipe.ZIncrBy(ctx, a.allTimeKey(), float64(entry.Score), member)
		pipe.HIncrBy(ctx, allMetaKey, "sessions", 1)
		pipe.HSet(ctx, allMetaKey, map[string]interface{}{
			"display_name": entry.DisplayName,
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record standings for quiz %s: %w", quizID, err)
	}

	a.logger.Debug().
		Str("quiz_id", quizID.String()).
		Str("session_id", sessionID.String()).
		Int("entries", len(entries)).
		Msg("session standings archived")
	return nil
}

// TopStandings retrieves the top N cumulative standings for a quiz.
func (a *Archive) TopStandings(ctx context.Context, quizID uuid.UUID, limit int) ([]Standing, error) {
	return a.top(ctx, a.standingsKey(quizID), func(userID uuid.UUID) string {
		return a.metaKey(quizID, userID)
	}, limit)
}

// AllTimeTop retrieves the top N standings folded across every quiz.
func (a *Archive) AllTimeTop(ctx context.Context, limit int) ([]Standing, error) {
	return a.top(ctx, a.allTimeKey(), a.allTimeMetaKey, limit)
}

func (a *Archive) top(ctx context.Context, zKey string, metaKey func(uuid.UUID) string, limit int) ([]Standing, error) {
	if limit <= 0 || limit > a.topN {
		limit = a.topN
	}

	results, err := a.redis.ZRevRangeWithScores(ctx, zKey, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch standings: %w", err)
	}

	standings := make([]Standing, 0, len(results))
	for i, z := range results {
		userID, err := uuid.Parse(z.Member.(string))
		if err != nil {
			a.logger.Warn().Str("member", z.Member.(string)).Msg("skipping malformed standings member")
			continue
		}
		standing := Standing{
			UserID: userID,
			Score:  int(z.Score),
			Rank:   i + 1,
		}
		meta, err := a.redis.HGetAll(ctx, metaKey(userID)).Result()
		if err != nil {
			a.logger.Warn().Err(err).Msg("failed to read standings metadata")
		} else {
			standing.DisplayName = meta["display_name"]
			standing.Sessions = parseInt(meta["sessions"])
		}
		standings = append(standings, standing)
	}
	return standings, nil
}

func (a *Archive) standingsKey(quizID uuid.UUID) string {
	return fmt.Sprintf("%s:quiz:%s", a.prefix, quizID.String())
}

func (a *Archive) metaKey(quizID, userID uuid.UUID) string {
	return fmt.Sprintf("%s:quiz:%s:meta:%s", a.prefix, quizID.String(), userID.String())
}

func (a *Archive) allTimeKey() string {
	return fmt.Sprintf("%s:all_time", a.prefix)
}

func (a *Archive) allTimeMetaKey(userID uuid.UUID) string {
	return fmt.Sprintf("%s:all_time:meta:%s", a.prefix, userID.String())
}

func parseInt(val string) int {
	if val == "" {
		return 0
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return i
}
