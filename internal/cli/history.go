package cli

import (
	"context"
	"fmt"
	"io"

	"chat-trivia-service/internal/config"
	"chat-trivia-service/internal/domain"
	"chat-trivia-service/internal/infra/postgres"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewHistoryCmd prints a channel's most recent archived quizzes.
func NewHistoryCmd(configPath *string) *cobra.Command {
	var (
		channelID string
		limit     int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently finished quizzes for a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cmd.OutOrStdout(), *configPath, channelID, limit)
		},
	}
	cmd.Flags().StringVar(&channelID, "channel", "", "channel id")
	cmd.Flags().IntVar(&limit, "limit", 10, "number of quizzes to list")
	_ = cmd.MarkFlagRequired("channel")
	return cmd
}

func runHistory(ctx context.Context, out io.Writer, configPath, channelID string, limit int) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	results, err := postgres.NewResultArchive(pool).Recent(ctx, channelID, limit)
	if err != nil {
		return err
	}
	printHistory(out, channelID, results)
	return nil
}

func printHistory(out io.Writer, channelID string, results []domain.QuizResult) {
	if len(results) == 0 {
		fmt.Fprintf(out, "no finished quizzes for channel %s\n", channelID)
		return
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s  %-12s %-6s %d question(s)", r.FinishedAt.Format("2006-01-02 15:04"), r.Topic, r.Policy, r.Leaderboard.Total)
		if len(r.Leaderboard.Entries) > 0 {
			top := r.Leaderboard.Entries[0]
			fmt.Fprintf(out, "  top: %s (%d)", top.ParticipantID, top.Score)
		}
		fmt.Fprintln(out)
	}
}
