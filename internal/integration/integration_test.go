package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"classboard-service/internal/app"
	"classboard-service/internal/domain"
	pgstore "classboard-service/internal/infra/postgres"
	pgmigrations "classboard-service/internal/infra/postgres/migrations"
	infraredis "classboard-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestRoomSessionEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedExercise(t, ctx, pgURL, sampleExercise())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewExerciseStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	exerciseRepo := infraredis.NewExerciseRepository(redisClient, store, 5*time.Minute)
	rooms := infraredis.NewRoomStore(redisClient, 5*time.Minute)
	service := app.NewRoomService(rooms, exerciseRepo)

	// The PIN the students typed resolves to this exercise.
	byPIN, err := store.FindByPIN(ctx, "424242")
	if err != nil {
		t.Fatalf("find by pin: %v", err)
	}
	if byPIN.ID != "ex-1" {
		t.Fatalf("expected ex-1 behind the pin, got %s", byPIN.ID)
	}

	service.Join(ctx, "ex-1", "conn-t", domain.ObserverName)
	service.Join(ctx, "ex-1", "conn-1", "Alice")
	service.Submit(ctx, "ex-1", "Alice", &domain.Answer{
		Kind:   domain.KindFillBlanks,
		Blanks: map[string]string{"b1": "apple", "b2": "orange"},
	})

	// Reconnect keeps the record across the loaded stack.
	service.DropConnection("ex-1", "conn-1")
	service.Join(ctx, "ex-1", "conn-2", "Alice")

	snapshot, err := service.Snapshot(ctx, "ex-1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snapshot) != 1 || snapshot[0].DisplayName != "Alice" {
		t.Fatalf("expected one student after reconnect, got %+v", snapshot)
	}
	if snapshot[0].Report.Progress != 100 || snapshot[0].Report.Accuracy != 50 {
		t.Fatalf("expected progress 100 accuracy 50, got %+v", snapshot[0].Report)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "board", "POSTGRES_PASSWORD": "boardpass", "POSTGRES_DB": "boarddb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://board:boardpass@%s:%s/boarddb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedExercise(t *testing.T, ctx context.Context, dsn string, exercise domain.Exercise) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(exercise)
	if err != nil {
		t.Fatalf("marshal exercise: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO exercises (id, pin, data) VALUES (?, ?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET pin=EXCLUDED.pin, data=EXCLUDED.data`, exercise.ID, exercise.PIN, string(data)); err != nil {
		t.Fatalf("insert exercise: %v", err)
	}
}

func sampleExercise() domain.Exercise {
	return domain.Exercise{
		ID:    "ex-1",
		PIN:   "424242",
		Kind:  domain.KindFillBlanks,
		Title: "Fruit vocabulary",
		Blanks: []domain.Blank{
			{ID: "b1", Index: 0, Word: "apple"},
			{ID: "b2", Index: 1, Word: "banana"},
		},
		CreatedAt: time.Now().UTC(),
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
