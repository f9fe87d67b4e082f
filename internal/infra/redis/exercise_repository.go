package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"classboard-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ExerciseLoader fetches exercise documents from a backing store (e.g., document DB).
type ExerciseLoader interface {
	LoadExercise(ctx context.Context, exerciseID string) (domain.Exercise, error)
}

// ExerciseRepository caches exercise documents in Redis and falls back to a
// loader on cache miss. Documents are stored whole as JSON:
// SET exercise:{exerciseID} {doc} EX ttl
// The monitor needs the full answer key (blanks/steps/items), so unlike a
// score cache there is no lightweight form worth keeping.
type ExerciseRepository struct {
	client *redis.Client
	loader ExerciseLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewExerciseRepository(client *redis.Client, loader ExerciseLoader, ttl time.Duration) *ExerciseRepository {
	return &ExerciseRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ExerciseRepository) GetExercise(ctx context.Context, exerciseID string) (domain.Exercise, error) {
	key := r.key(exerciseID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		var exercise domain.Exercise
		if err := json.Unmarshal(raw, &exercise); err == nil {
			return exercise, nil
		}
		// fall through: a corrupt entry is replaced by a fresh load
	}

	result, err, _ := r.sf.Do(exerciseID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			var exercise domain.Exercise
			if err := json.Unmarshal(raw, &exercise); err == nil {
				return exercise, nil
			}
		}

		exercise, err := r.loader.LoadExercise(ctx, exerciseID)
		if err != nil {
			return domain.Exercise{}, err
		}

		if raw, err := json.Marshal(exercise); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return exercise, nil
	})
	if err != nil {
		return domain.Exercise{}, err
	}
	return result.(domain.Exercise), nil
}

func (r *ExerciseRepository) key(exerciseID string) string {
	return "exercise:" + exerciseID
}

func (r *ExerciseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
