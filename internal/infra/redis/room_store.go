package redis

import (
	"context"
	"sync"
	"time"

	"classboard-service/internal/app"
	"github.com/redis/go-redis/v9"
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Notes:
//   - It still keeps a local in-memory map of rooms to reuse the in-process
//     fan-out logic; answer state is transient by contract and never leaves
//     the process.
//   - Redis is used to mark room liveness (and could be extended to route
//     cross-instance pub/sub if the single-process registry ever has to go).
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration
	mu     sync.RWMutex
	rooms  map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) GetOrCreate(roomID string) *app.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[roomID]; ok {
		// best-effort liveness refresh
		_ = s.client.Expire(context.Background(), s.key(roomID), s.ttl).Err()
		return room
	}
	room := app.NewRoom(roomID)
	s.rooms[roomID] = room
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(roomID), "1", s.ttl).Err()
	return room
}

func (s *RoomStore) Get(roomID string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[roomID]
	return room, ok
}

func (s *RoomStore) DeleteIdle(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for id, room := range s.rooms {
		if room.LastActive().Before(cutoff) {
			delete(s.rooms, id)
			_ = s.client.Del(context.Background(), s.key(id)).Err()
			evicted++
		}
	}
	return evicted
}

func (s *RoomStore) key(roomID string) string {
	return "room:live:" + roomID
}
