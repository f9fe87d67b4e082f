package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"classboard-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ExerciseLoader fetches exercise documents from a backing store (e.g., document DB).
type ExerciseLoader interface {
	LoadExercise(ctx context.Context, exerciseID string) (domain.Exercise, error)
}

// ExerciseRepository caches exercises with TTL to avoid repeated store hits;
// every join and monitor snapshot reads the same few documents.
type ExerciseRepository struct {
	loader ExerciseLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedExercise
}

type cachedExercise struct {
	exercise  domain.Exercise
	expiresAt time.Time
}

func NewExerciseRepository(loader ExerciseLoader, ttl time.Duration) *ExerciseRepository {
	return &ExerciseRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedExercise),
	}
}

func (r *ExerciseRepository) GetExercise(ctx context.Context, exerciseID string) (domain.Exercise, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[exerciseID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.exercise, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(exerciseID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[exerciseID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.exercise, nil
		}
		r.mu.RUnlock()

		exercise, err := r.loader.LoadExercise(ctx, exerciseID)
		if err != nil {
			return domain.Exercise{}, err
		}

		r.mu.Lock()
		r.cache[exerciseID] = cachedExercise{
			exercise:  exercise,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return exercise, nil
	})
	if err != nil {
		return domain.Exercise{}, err
	}
	return result.(domain.Exercise), nil
}

func (r *ExerciseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticExerciseStore is a map-backed loader that also accepts writes and PIN
// lookups, standing in for the document store in tests/demos and when no
// Postgres is configured.
type StaticExerciseStore struct {
	mu        sync.RWMutex
	exercises map[string]domain.Exercise
	pins      map[string]string
}

func NewStaticExerciseStore(exercises map[string]domain.Exercise) *StaticExerciseStore {
	pins := make(map[string]string, len(exercises))
	for id, ex := range exercises {
		if ex.PIN != "" {
			pins[ex.PIN] = id
		}
	}
	return &StaticExerciseStore{exercises: exercises, pins: pins}
}

func (s *StaticExerciseStore) LoadExercise(_ context.Context, exerciseID string) (domain.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if exercise, ok := s.exercises[exerciseID]; ok {
		return exercise, nil
	}
	return domain.Exercise{}, domain.ErrExerciseNotFound
}

func (s *StaticExerciseStore) FindByPIN(_ context.Context, pin string) (domain.Exercise, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id, ok := s.pins[pin]; ok {
		if exercise, ok := s.exercises[id]; ok {
			return exercise, nil
		}
	}
	return domain.Exercise{}, domain.ErrExerciseNotFound
}

func (s *StaticExerciseStore) SaveExercise(_ context.Context, exercise domain.Exercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.exercises[exercise.ID] = exercise
	if exercise.PIN != "" {
		s.pins[exercise.PIN] = exercise.ID
	}
	return nil
}
