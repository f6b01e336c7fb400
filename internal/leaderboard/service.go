package leaderboard

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bennie10colado/JogoPOO-FORK/internal/game"
)

// Entry is one ranked player record.
type Entry struct {
	PlayerID    uuid.UUID `json:"player_id"`
	DisplayName string    `json:"display_name"`
	Score       int       `json:"score"`
}

// ServiceOptions configures the leaderboard.
type ServiceOptions struct {
	TopN      int
	KeyPrefix string
}

// Service keeps the all-time player ranking in Redis. Postgres stays the
// source of truth for account totals; the sorted set only serves rank reads.
type Service struct {
	redis  *redis.Client
	logger zerolog.Logger
	topN   int
	prefix string
}

var _ game.ScoreRecorder = (*Service)(nil)

// NewService constructs a leaderboard service.
func NewService(redis *redis.Client, logger zerolog.Logger, opts ServiceOptions) *Service {
	topN := opts.TopN
	if topN <= 0 {
		topN = 50
	}
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "lb"
	}
	return &Service{
		redis:  redis,
		logger: logger.With().Str("component", "leaderboard").Logger(),
		topN:   topN,
		prefix: prefix,
	}
}

// RecordScore credits points to a player's ranking entry.
func (s *Service) RecordScore(ctx context.Context, player game.Player, points int) error {
	pipe := s.redis.TxPipeline()
	pipe.ZIncrBy(ctx, s.rankKey(), float64(points), player.ID.String())
	pipe.HSet(ctx, s.metaKey(player.ID), map[string]interface{}{
		"display_name": player.DisplayName,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update player ranking: %w", err)
	}
	return nil
}

// Top retrieves the highest ranked players.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > s.topN {
		limit = s.topN
	}

	results, err := s.redis.ZRevRangeWithScores(ctx, s.rankKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("fetch ranking: %w", err)
	}

	entries := make([]Entry, 0, len(results))
	for _, z := range results {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		playerID, err := uuid.Parse(member)
		if err != nil {
			s.logger.Warn().Str("member", member).Msg("invalid ranking member")
			continue
		}
		entry := Entry{PlayerID: playerID, Score: int(z.Score)}
		if meta, err := s.redis.HGetAll(ctx, s.metaKey(playerID)).Result(); err == nil {
			entry.DisplayName = meta["display_name"]
		} else {
			s.logger.Warn().Err(err).Msg("failed to read ranking metadata")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *Service) rankKey() string {
	return s.prefix + ":players"
}

func (s *Service) metaKey(playerID uuid.UUID) string {
	return fmt.Sprintf("%s:players:meta:%s", s.prefix, playerID.String())
}
