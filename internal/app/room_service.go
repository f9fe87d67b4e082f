package app

import (
	"context"
	"log"
	"time"

	"classboard-service/internal/domain"
)

// RoomRepository abstracts how rooms are stored (in-memory, Redis-marked, etc).
type RoomRepository interface {
	GetOrCreate(roomID string) *Room
	Get(roomID string) (*Room, bool)
	// DeleteIdle evicts rooms with no activity since the cutoff and returns
	// how many were removed.
	DeleteIdle(cutoff time.Time) int
}

// ExerciseRepository loads exercise content (from cache/backing store).
type ExerciseRepository interface {
	GetExercise(ctx context.Context, exerciseID string) (domain.Exercise, error)
}

// RoomService contains the real-time session use cases: presence, answer
// relay, directed messages, and the monitor snapshot.
type RoomService struct {
	rooms     RoomRepository
	exercises ExerciseRepository
}

func NewRoomService(rooms RoomRepository, exercises ExerciseRepository) *RoomService {
	return &RoomService{rooms: rooms, exercises: exercises}
}

// Join registers or refreshes a participant. A rejoin under a known display
// name keeps the existing record and swaps in the new connection id. Blank
// identifiers are ignored rather than rejected; the exercise document is
// preloaded into cache on a best-effort basis (a missing document never
// blocks a join — this core is not the authority for exercise content).
func (s *RoomService) Join(ctx context.Context, roomID, connectionID, displayName string) (domain.ParticipantSummary, bool) {
	if roomID == "" || displayName == "" {
		return domain.ParticipantSummary{}, false
	}

	if _, err := s.exercises.GetExercise(ctx, roomID); err != nil {
		log.Printf("room %s: exercise preload: %v", roomID, err)
	}

	room := s.rooms.GetOrCreate(roomID)
	return room.join(connectionID, displayName)
}

// Subscribe attaches a connection to the room's event stream. The caller must
// invoke the returned cancel function to avoid leaks.
func (s *RoomService) Subscribe(roomID, connectionID string) (<-chan Event, func(), error) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.attach(connectionID)
	return ch, cancel, nil
}

// Submit overwrites the participant's latest answer and fans it out to the
// room. An unknown room is created implicitly; state arriving before the join
// creates a minimal participant record. Blank identifiers are dropped
// silently, matching the best-effort channel contract.
func (s *RoomService) Submit(_ context.Context, roomID, displayName string, answer *domain.Answer) {
	if roomID == "" || displayName == "" {
		return
	}
	room := s.rooms.GetOrCreate(roomID)
	room.recordAnswer(displayName, answer)
}

// SendDirected delivers a one-off message to a single student connection.
// The target's connection id is re-read from the live participant record at
// send time so delivery follows reconnects; a target that cannot be resolved
// or whose connection is gone drops the message silently.
func (s *RoomService) SendDirected(roomID, targetName, targetConnectionID, message, from string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	room.touch()

	var target domain.ParticipantSummary
	switch {
	case targetName != "":
		target, ok = room.resolveByName(targetName)
	case targetConnectionID != "":
		target, ok = room.resolveByConnection(targetConnectionID)
	default:
		return
	}
	if !ok {
		return
	}

	room.sendTo(target.ConnectionID, Event{
		Type:    EventMessage,
		Message: message,
		From:    from,
		SentAt:  time.Now(),
	})
}

// DropConnection detaches a disconnected transport connection. The
// participant's record and accumulated answer survive for the room's
// lifetime so a rejoin by name finds them.
func (s *RoomService) DropConnection(roomID, connectionID string) {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return
	}
	room.dropConnection(connectionID)
}

// Participants snapshots the room's student list in first-seen order.
func (s *RoomService) Participants(roomID string, excludeObservers bool) []domain.ParticipantSummary {
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return nil
	}
	return room.listParticipants(excludeObservers)
}

// Snapshot evaluates every student's latest answer against the exercise,
// giving the monitor its bootstrap view without replaying the event stream.
func (s *RoomService) Snapshot(ctx context.Context, roomID string) ([]StudentProgress, error) {
	exercise, err := s.exercises.GetExercise(ctx, roomID)
	if err != nil {
		return nil, err
	}
	room, ok := s.rooms.Get(roomID)
	if !ok {
		return []StudentProgress{}, nil
	}

	students := room.listParticipants(true)
	out := make([]StudentProgress, 0, len(students))
	for _, student := range students {
		out = append(out, StudentProgress{
			ConnectionID: student.ConnectionID,
			DisplayName:  student.DisplayName,
			Report:       Evaluate(exercise, student.Answer),
			UpdatedAt:    student.UpdatedAt,
		})
	}
	return out, nil
}

// RunSweeper evicts rooms idle beyond idleTTL every interval until the
// context is canceled, bounding memory for sessions that are inherently
// short-lived.
func (s *RoomService) RunSweeper(ctx context.Context, interval, idleTTL time.Duration) {
	if interval <= 0 || idleTTL <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.rooms.DeleteIdle(time.Now().Add(-idleTTL)); n > 0 {
				log.Printf("room sweep: evicted %d idle room(s)", n)
			}
		}
	}
}
