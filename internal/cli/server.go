package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"classboard-service/internal/app"
	"classboard-service/internal/config"
	"classboard-service/internal/domain"
	"classboard-service/internal/infra/memory"
	pgstore "classboard-service/internal/infra/postgres"
	redisinfra "classboard-service/internal/infra/redis"
	transport "classboard-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the classboard server",
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

	var store transport.ExerciseStore = memory.NewStaticExerciseStore(sampleExercises())
	if pool != nil {
		store = pgstore.NewExerciseStore(pool)
	}

	exerciseTTL := config.TTLDuration(cfg.Exercise.TTL, 10*time.Minute)
	var exerciseRepo app.ExerciseRepository
	if redisClient != nil {
		exerciseRepo = redisinfra.NewExerciseRepository(redisClient, loaderFor(store), exerciseTTL)
	} else {
		exerciseRepo = memory.NewExerciseRepository(loaderFor(store), exerciseTTL)
	}

	var rooms app.RoomRepository
	if redisClient != nil {
		rooms = redisinfra.NewRoomStore(redisClient, redisTTL)
	} else {
		rooms = memory.NewRoomStore()
	}
	service := app.NewRoomService(rooms, exerciseRepo)
	wsHandler := transport.NewWSHandler(service)
	restHandler := transport.NewRESTHandler(store, service)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go service.RunSweeper(sweepCtx,
		config.TTLDuration(cfg.Room.SweepInterval, 5*time.Minute),
		config.TTLDuration(cfg.Room.IdleTTL, 2*time.Hour))

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	restHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting classboard service on :%s", finalPort)
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

// loaderFor narrows the store to the read-only loader the caches consume.
func loaderFor(store transport.ExerciseStore) exerciseLoader {
	return exerciseLoader{store: store}
}

type exerciseLoader struct {
	store transport.ExerciseStore
}

func (l exerciseLoader) LoadExercise(ctx context.Context, exerciseID string) (domain.Exercise, error) {
	return l.store.LoadExercise(ctx, exerciseID)
}

// sampleExercises provides demo content when no Postgres is configured.
func sampleExercises() map[string]domain.Exercise {
	return map[string]domain.Exercise{
		"demo-1": {
			ID:           "demo-1",
			PIN:          "123456",
			Kind:         domain.KindFillBlanks,
			Title:        "Fruit vocabulary",
			OriginalText: "I ate an apple and a banana.",
			Blanks: []domain.Blank{
				{ID: "b1", Index: 3, Word: "apple"},
				{ID: "b2", Index: 6, Word: "banana"},
			},
			CreatedAt: time.Now(),
		},
	}
}
