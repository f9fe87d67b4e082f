package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"classboard-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ExerciseStore persists exercise JSONB in Postgres. It is the document-store
// collaborator: the real-time core only reads from it (via the cache layer);
// writes come from the authoring REST surface.
type ExerciseStore struct {
	pool *pgxpool.Pool
}

func NewExerciseStore(pool *pgxpool.Pool) *ExerciseStore {
	return &ExerciseStore{pool: pool}
}

func (s *ExerciseStore) LoadExercise(ctx context.Context, exerciseID string) (domain.Exercise, error) {
	return s.scanOne(ctx, `SELECT data FROM exercises WHERE id=$1`, exerciseID)
}

// FindByPIN resolves the join code students type into the exercise document.
func (s *ExerciseStore) FindByPIN(ctx context.Context, pin string) (domain.Exercise, error) {
	return s.scanOne(ctx, `SELECT data FROM exercises WHERE pin=$1`, pin)
}

func (s *ExerciseStore) SaveExercise(ctx context.Context, exercise domain.Exercise) error {
	data, err := json.Marshal(exercise)
	if err != nil {
		return fmt.Errorf("marshal exercise: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO exercises (id, pin, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (id) DO UPDATE SET pin=EXCLUDED.pin, data=EXCLUDED.data`,
		exercise.ID, exercise.PIN, data)
	if err != nil {
		return fmt.Errorf("save exercise: %w", err)
	}
	return nil
}

func (s *ExerciseStore) scanOne(ctx context.Context, query, arg string) (domain.Exercise, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, query, arg).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Exercise{}, domain.ErrExerciseNotFound
	}
	if err != nil {
		return domain.Exercise{}, fmt.Errorf("load exercise: %w", err)
	}
	var exercise domain.Exercise
	if err := json.Unmarshal(raw, &exercise); err != nil {
		return domain.Exercise{}, fmt.Errorf("unmarshal exercise: %w", err)
	}
	return exercise, nil
}
