package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quiz-stats-service/internal/app"
	"quiz-stats-service/internal/config"
	"quiz-stats-service/internal/domain"
	"quiz-stats-service/internal/infra/memory"
	"quiz-stats-service/internal/infra/postgres"
	infraredis "quiz-stats-service/internal/infra/redis"
	transport "quiz-stats-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz statistics server",
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

	service, cleanup, err := newService(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	transport.NewQuizHandler(service).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz statistics service on :%s", finalPort)
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

// newService wires the stores named in cfg. Without Postgres the quizzes come
// from sampleQuizzes and results live in memory; without Redis the caches and
// statistics stay in process.
func newService(ctx context.Context, cfg config.Config) (*app.QuizService, func(), error) {
	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, nil, err
		}
	}

	cleanup := func() {
		if pool != nil {
			pool.Close()
		}
		if redisClient != nil {
			_ = redisClient.Close()
		}
	}

	var quizStore memory.QuizStore = memory.NewStaticQuizStore(sampleQuizzes())
	var results app.ResultRepository = memory.NewResultStore()
	if pool != nil {
		quizStore = postgres.NewQuizStore(pool)
		results = postgres.NewResultStore(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	if redisClient != nil {
		quizRepo = infraredis.NewQuizRepository(redisClient, quizStore, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(quizStore, quizTTL)
	}

	opts := []app.Option{
		app.WithWorkers(cfg.Evaluation.Workers),
		app.WithStrictEdits(cfg.Evaluation.StrictEdits),
	}
	var stats app.StatisticRepository
	if redisClient != nil {
		statsTTL := config.TTLDuration(cfg.Redis.StatsTTL, config.TTLDuration(cfg.Redis.TTL, time.Hour))
		store := infraredis.NewStatisticStore(redisClient, statsTTL)
		stats = store
		opts = append(opts, app.WithPublisher(store))
	} else {
		stats = memory.NewStatisticStore()
	}

	return app.NewQuizService(quizRepo, results, stats, opts...), cleanup, nil
}

// sampleQuizzes provides a minimal quiz for running without Postgres.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:    "quiz-1",
			Title: "Warm-up",
			Questions: []domain.Question{
				{
					ID:     1,
					Title:  "What is 2 + 2?",
					Points: 1,
					Body: domain.MultipleChoice{
						SingleChoice: true,
						Options: []domain.AnswerOption{
							{ID: 11, Text: "3", IsCorrect: false},
							{ID: 12, Text: "4", IsCorrect: true},
							{ID: 13, Text: "5", IsCorrect: false},
						},
					},
				},
				{
					ID:     2,
					Title:  "The language with goroutines is ___.",
					Points: 2,
					Body: domain.ShortAnswer{
						Spots:     []domain.Spot{{ID: 21, Nr: 1}},
						Solutions: []domain.Solution{{ID: 31, Text: "Go"}, {ID: 32, Text: "Golang"}},
						Mappings: []domain.SpotMapping{
							{ID: 41, SpotID: 21, SolutionID: 31},
							{ID: 42, SpotID: 21, SolutionID: 32},
						},
					},
				},
			},
		},
	}
}
