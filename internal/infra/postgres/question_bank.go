package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"chat-trivia-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// QuestionBank loads and stores question JSONB rows keyed by topic.
// It satisfies memory.BankLoader.
type QuestionBank struct {
	pool *pgxpool.Pool
}

func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

// LoadBank returns every stored question for topic that is usable under policy.
func (b *QuestionBank) LoadBank(ctx context.Context, topic string, policy domain.Policy) ([]domain.Question, error) {
	rows, err := b.pool.Query(ctx,
		`SELECT data FROM question_bank WHERE topic = $1 ORDER BY id`, normalizeTopic(topic))
	if err != nil {
		return nil, fmt.Errorf("load question bank: %w", err)
	}
	defer rows.Close()

	var out []domain.Question
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("unmarshal question: %w", err)
		}
		q = q.ForPolicy(policy)
		if q.Validate(policy) == nil {
			out = append(out, q)
		}
	}
	return out, rows.Err()
}

// Seed stores questions under topic in one transaction, skipping prompts that already exist.
func (b *QuestionBank) Seed(ctx context.Context, topic string, questions []domain.Question) (int, error) {
	inserted := 0
	err := b.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		for _, q := range questions {
			data, err := json.Marshal(q)
			if err != nil {
				return fmt.Errorf("marshal question: %w", err)
			}
			tag, err := tx.Exec(ctx,
				`INSERT INTO question_bank (topic, prompt, data) VALUES ($1, $2, $3::jsonb)
				 ON CONFLICT (topic, prompt) DO NOTHING`,
				normalizeTopic(topic), q.Prompt, string(data))
			if err != nil {
				return fmt.Errorf("insert question: %w", err)
			}
			inserted += int(tag.RowsAffected())
		}
		return nil
	})
	return inserted, err
}

func normalizeTopic(topic string) string {
	return strings.ToLower(strings.TrimSpace(topic))
}
