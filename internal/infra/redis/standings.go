package redis

import (
	"context"
	"fmt"
	"time"

	"chat-trivia-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// StandingsRecorder keeps all-time points per channel in a sorted set and
// implements app.ResultRecorder.
// Scores are stored as: ZINCRBY trivia:standings:{channelID} {points} {participantID}
type StandingsRecorder struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStandingsRecorder keeps standings for ttl after the last finished quiz; zero keeps them forever.
func NewStandingsRecorder(client *redis.Client, ttl time.Duration) *StandingsRecorder {
	return &StandingsRecorder{client: client, ttl: ttl}
}

func (r *StandingsRecorder) RecordResult(ctx context.Context, result domain.QuizResult) error {
	key := r.key(result.ChannelID)
	pipe := r.client.TxPipeline()
	scored := false
	for _, e := range result.Leaderboard.Entries {
		if e.Score <= 0 {
			continue
		}
		pipe.ZIncrBy(ctx, key, float64(e.Score), e.ParticipantID)
		scored = true
	}
	if !scored {
		return nil
	}
	if r.ttl > 0 {
		pipe.Expire(ctx, key, r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record standings: %w", err)
	}
	return nil
}

// Top returns the channel's best participants, highest first.
func (r *StandingsRecorder) Top(ctx context.Context, channelID string, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	members, err := r.client.ZRevRangeWithScores(ctx, r.key(channelID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("load standings: %w", err)
	}
	entries := make([]domain.LeaderboardEntry, 0, len(members))
	for _, m := range members {
		id, _ := m.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{ParticipantID: id, Score: int(m.Score)})
	}
	return entries, nil
}

func (r *StandingsRecorder) key(channelID string) string {
	return "trivia:standings:" + channelID
}
