package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"chat-trivia-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ResultArchive stores finished quizzes and implements app.ResultRecorder.
type ResultArchive struct {
	pool *pgxpool.Pool
}

func NewResultArchive(pool *pgxpool.Pool) *ResultArchive {
	return &ResultArchive{pool: pool}
}

func (a *ResultArchive) RecordResult(ctx context.Context, result domain.QuizResult) error {
	standings, err := json.Marshal(result.Leaderboard)
	if err != nil {
		return fmt.Errorf("marshal standings: %w", err)
	}
	_, err = a.pool.Exec(ctx,
		`INSERT INTO quiz_results (session_id, channel_id, topic, policy, owner_id, standings, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6::jsonb, $7)
		 ON CONFLICT (session_id) DO NOTHING`,
		result.SessionID, result.ChannelID, result.Topic, string(result.Policy), result.OwnerID, string(standings), result.FinishedAt)
	if err != nil {
		return fmt.Errorf("insert quiz result: %w", err)
	}
	return nil
}

// Recent returns the channel's latest results, newest first.
func (a *ResultArchive) Recent(ctx context.Context, channelID string, limit int) ([]domain.QuizResult, error) {
	rows, err := a.pool.Query(ctx,
		`SELECT session_id, channel_id, topic, policy, owner_id, standings, finished_at
		 FROM quiz_results WHERE channel_id = $1 ORDER BY finished_at DESC LIMIT $2`, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("load quiz results: %w", err)
	}
	defer rows.Close()

	var out []domain.QuizResult
	for rows.Next() {
		var (
			r         domain.QuizResult
			policy    string
			standings []byte
		)
		if err := rows.Scan(&r.SessionID, &r.ChannelID, &r.Topic, &policy, &r.OwnerID, &standings, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan quiz result: %w", err)
		}
		r.Policy = domain.Policy(policy)
		if err := json.Unmarshal(standings, &r.Leaderboard); err != nil {
			return nil, fmt.Errorf("unmarshal standings: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
