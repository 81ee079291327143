package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tournament-session-service/internal/app"
	"tournament-session-service/internal/config"
	"tournament-session-service/internal/domain"
	"tournament-session-service/internal/infra/memory"
	pginfra "tournament-session-service/internal/infra/postgres"
	"tournament-session-service/internal/infra/questionbank"
	redisinfra "tournament-session-service/internal/infra/redis"
	"tournament-session-service/internal/sandbox"
	transport "tournament-session-service/internal/transport/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the tournament engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	// Question bank chain: Postgres-issued sets, the HTTP gateway, or a
	// static sample when running standalone.
	var loader memory.QuestionLoader
	switch {
	case pool != nil:
		loader = pginfra.NewQuestionLoader(pool)
	case cfg.QuestionBank.BaseURL != "":
		loader = questionbank.NewClient(cfg.QuestionBank.BaseURL, config.TTLDuration(cfg.QuestionBank.Timeout, 10*time.Second))
	default:
		loader = memory.NewStaticQuestionLoader(sampleQuestionSets())
	}

	cacheTTL := config.TTLDuration(cfg.QuestionBank.CacheTTL, 10*time.Minute)
	var questions app.QuestionRepository
	if redisClient != nil {
		questions = redisinfra.NewQuestionRepository(redisClient, loader, cacheTTL)
	} else {
		questions = memory.NewQuestionRepository(loader, cacheTTL)
	}

	var (
		tournaments  app.TournamentAdmin
		participants app.ParticipantStore
		attempts     app.AttemptStore
	)
	if pool != nil {
		tournaments = pginfra.NewTournamentStore(pool)
		participants = pginfra.NewParticipantStore(pool)
		attempts = pginfra.NewAttemptStore(pool)
	} else {
		tournaments = memory.NewTournamentStore(sampleTournament())
		participants = memory.NewParticipantStore()
		attempts = memory.NewAttemptStore()
	}

	var mirror app.LeaderboardMirror
	if redisClient != nil {
		mirror = redisinfra.NewLeaderboard(redisClient, redisTTL)
	}

	var runner app.CodeRunner
	sandboxTimeout := config.TTLDuration(cfg.Sandbox.Timeout, 30*time.Second)
	if cfg.Sandbox.Mode == "queue" && redisClient != nil {
		runner = sandbox.NewQueueRunner(redisClient, sandboxTimeout)
	} else {
		runner = sandbox.NewHTTPRunner(cfg.Sandbox.URL, sandboxTimeout)
	}

	var sessions app.SessionRepository
	if redisClient != nil {
		sessions = redisinfra.NewSessionStore(redisClient, redisTTL)
	} else {
		sessions = memory.NewSessionStore()
	}

	directory := app.NewDirectory(tournaments, app.ResolveStrategy(cfg.Session.ResolveStrategy))
	registry := app.NewRegistry(tournaments, participants)
	ranking := app.NewAggregator(participants, mirror)

	service := app.NewTournamentService(directory, registry, questions, attempts, ranking, sessions, runner, app.EngineConfig{
		Session:        app.SessionConfig{WrapQuestions: cfg.WrapQuestions()},
		SandboxTimeout: sandboxTimeout,
	})
	defer service.Close()

	sweeper := app.NewSweeper(tournaments)
	if err := sweeper.Start(); err != nil {
		return err
	}
	defer sweeper.Stop()

	restHandler := transport.NewRestHandler(service)
	wsHandler := transport.NewWSHandler(service)

	router := chi.NewRouter()
	router.Use(chimiddleware.Recoverer)
	restHandler.Routes(router)
	router.Get("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting tournament engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleTournament keeps the engine usable without Postgres.
func sampleTournament() domain.Tournament {
	now := time.Now()
	return domain.Tournament{
		ID:         "tournament-1",
		Title:      "Math Open",
		Discipline: domain.DisciplineMath,
		Status:     domain.TournamentActive,
		StartsAt:   now.Add(-time.Minute),
		EndsAt:     now.Add(2 * time.Hour),
		CreatedAt:  now.Add(-time.Hour),
	}
}

func sampleQuestionSets() map[string]domain.QuestionSet {
	return map[string]domain.QuestionSet{
		"tournament-1:math": {
			TournamentID: "tournament-1",
			Discipline:   domain.DisciplineMath,
			Questions: []domain.Question{
				{
					Index:      0,
					Discipline: domain.DisciplineMath,
					Difficulty: domain.DifficultyEasy,
					Prompt:     "What is 2 + 2?",
					Options: []domain.Option{
						{Index: 0, Text: "3"},
						{Index: 1, Text: "4"},
						{Index: 2, Text: "5"},
					},
					CorrectOption: 1,
				},
			},
		},
	}
}
