package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"chat-trivia-service/internal/app"
	"chat-trivia-service/internal/config"
	"chat-trivia-service/internal/domain"
	"chat-trivia-service/internal/infra/memory"
	"chat-trivia-service/internal/infra/openai"
	"chat-trivia-service/internal/infra/postgres"
	redisstore "chat-trivia-service/internal/infra/redis"
	"chat-trivia-service/internal/telemetry"
	"chat-trivia-service/internal/transport/discord"
	transport "chat-trivia-service/internal/transport/http"
	"github.com/bwmarrin/discordgo"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia bot and websocket server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := resolvePort(portFlag, cfg)

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 2*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	generator, err := newGenerator(cfg, pool)
	if err != nil {
		return err
	}

	var store app.SessionRepository = memory.NewSessionStore()
	var recorders []app.ResultRecorder
	var standings app.StandingsReader
	if redisClient != nil {
		sessions := redisstore.NewSessionStore(redisClient, redisTTL, redisstore.WithInstanceID(cfg.Redis.InstanceID))
		if n, err := sessions.ReleaseStale(ctx); err != nil {
			log.Printf("release stale channel markers instance=%s: %v", sessions.InstanceID(), err)
		} else if n > 0 {
			log.Printf("released %d stale channel markers instance=%s", n, sessions.InstanceID())
		}
		store = sessions

		recorder := redisstore.NewStandingsRecorder(redisClient, 0)
		recorders = append(recorders, recorder)
		standings = recorder
	}
	if pool != nil {
		recorders = append(recorders, postgres.NewResultArchive(pool))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := transport.NewHub()
	notifiers := app.Notifiers{hub}

	var session *discordgo.Session
	if cfg.Discord.Token != "" {
		session, err = discord.NewSession(cfg.Discord.Token)
		if err != nil {
			return err
		}
		notifiers = append(notifiers, discord.NewNotifier(session))
	}

	service := newService(cfg, store, generator, notifiers, recorders, standings, registry)
	var bot *discord.Bot
	if session != nil {
		bot = discord.New(session, service)
	}
	return serve(ctx, finalPort, service, hub, registry, bot)
}

// resolvePort prefers the --port flag, then server.port (or PORT), then 8080.
func resolvePort(flag string, cfg config.Config) string {
	if flag != "" {
		return flag
	}
	if cfg.Server.Port != "" {
		return cfg.Server.Port
	}
	return "8080"
}

func newService(cfg config.Config, store app.SessionRepository, generator app.QuestionGenerator, notifier app.Notifier, recorders []app.ResultRecorder, standings app.StandingsReader, reg prometheus.Registerer) *app.QuizService {
	policy, err := domain.ParsePolicy(cfg.Quiz.DefaultPolicy, domain.PolicyOpen)
	if err != nil {
		log.Printf("invalid default policy %q, using open", cfg.Quiz.DefaultPolicy)
		policy = domain.PolicyOpen
	}
	return app.NewQuizService(app.Config{
		Sessions:      store,
		Generator:     generator,
		Notifier:      notifier,
		Recorders:     recorders,
		Standings:     standings,
		Metrics:       telemetry.NewMetrics(reg),
		AnswerTimeout: config.TTLDuration(cfg.Quiz.AnswerTimeout, app.DefaultAnswerTimeout),
		MaxQuestions:  cfg.Quiz.MaxQuestions,
		DefaultPolicy: policy,
	})
}

func newGenerator(cfg config.Config, pool *pgxpool.Pool) (app.QuestionGenerator, error) {
	bankTTL := config.TTLDuration(cfg.Generator.BankTTL, 10*time.Minute)
	switch cfg.Generator.Backend {
	case "openai":
		if cfg.Generator.OpenAI.APIKey == "" {
			return nil, errors.New("openai generator requires an api key")
		}
		return openai.NewGenerator(openai.Config{
			APIKey:  cfg.Generator.OpenAI.APIKey,
			Model:   cfg.Generator.OpenAI.Model,
			BaseURL: cfg.Generator.OpenAI.BaseURL,
		}), nil
	case "postgres":
		if pool == nil {
			return nil, errors.New("postgres generator requires postgres.url")
		}
		return memory.NewQuestionBank(postgres.NewQuestionBank(pool), bankTTL), nil
	case "", "static":
		return memory.NewQuestionBank(memory.NewStaticBankLoader(memory.DemoBank()), bankTTL), nil
	default:
		return nil, fmt.Errorf("unknown generator backend %q", cfg.Generator.Backend)
	}
}

func serve(ctx context.Context, port string, service *app.QuizService, hub *transport.Hub, registry *prometheus.Registry, bot *discord.Bot) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/ws", transport.NewWSHandler(service, hub).ServeWS)

	server := &http.Server{
		Addr:        ":" + port,
		Handler:     mux,
		ReadTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("starting trivia service on :%s", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if bot != nil {
		g.Go(func() error {
			if err := bot.Start(); err != nil {
				return err
			}
			<-gctx.Done()
			return bot.Stop()
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Println("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
