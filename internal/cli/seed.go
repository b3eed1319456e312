package cli

import (
	"context"
	"fmt"
	"log"

	"chat-trivia-service/internal/config"
	"chat-trivia-service/internal/infra/memory"
	"chat-trivia-service/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewSeedCmd loads the built-in demo questions into the Postgres question bank.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the Postgres question bank with demo questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath)
		},
	}
}

func runSeed(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	bank := postgres.NewQuestionBank(pool)
	for topic, questions := range memory.DemoBank() {
		n, err := bank.Seed(ctx, topic, questions)
		if err != nil {
			return fmt.Errorf("seed %s: %w", topic, err)
		}
		log.Printf("seeded topic=%s inserted=%d", topic, n)
	}
	return nil
}
