package app

import (
	"sync"
	"time"

	"classboard-service/internal/domain"
)

// EventType discriminates outbound room events.
type EventType string

const (
	EventJoined  EventType = "joined"
	EventUpdated EventType = "updated"
	EventMessage EventType = "messageReceived"
)

// Event is one outbound notification delivered to room connections. The
// transport layer maps it onto the wire envelope.
type Event struct {
	Type        EventType
	Participant domain.ParticipantSummary
	Message     string
	From        string
	SentAt      time.Time
}

// Room is the in-memory state for one exercise session: who is here, their
// latest answers, and the live connections to fan events out to.
//
// Participants are keyed by display name, which is the identity that survives
// reconnects; connection ids are overwritten in place when a known name
// rejoins. Connections are tracked separately so a participant record outlives
// its transport connection.
type Room struct {
	id        string
	createdAt time.Time
	now       func() time.Time

	mu           sync.RWMutex
	lastActive   time.Time
	participants map[string]*domain.Participant
	order        []string // display names in first-seen order, for stable listing
	conns        map[string]chan Event
}

func newRoom(id string) *Room {
	return newRoomWithClock(id, time.Now)
}

// newRoomWithClock allows deterministic timestamps in tests.
func newRoomWithClock(id string, now func() time.Time) *Room {
	return &Room{
		id:           id,
		createdAt:    now(),
		now:          now,
		lastActive:   now(),
		participants: make(map[string]*domain.Participant),
		order:        make([]string, 0, 8),
		conns:        make(map[string]chan Event),
	}
}

// NewRoom is exported for infrastructure layers that need to seed rooms.
func NewRoom(id string) *Room {
	return newRoom(id)
}

// NewRoomWithClock is test-only for deterministic timestamps.
func NewRoomWithClock(id string, now func() time.Time) *Room {
	return newRoomWithClock(id, now)
}

// ID returns the room identifier (the exercise instance id).
func (r *Room) ID() string {
	return r.id
}

// join records or refreshes a participant. A known display name keeps its
// record (including the accumulated answer) and only gets a new connection
// id; only a genuinely new name produces a joined broadcast, so the monitor
// never sees a duplicate card after a reconnect.
func (r *Room) join(connectionID, displayName string) (domain.ParticipantSummary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.lastActive = now

	if p, ok := r.participants[displayName]; ok {
		p.ConnectionID = connectionID
		p.UpdatedAt = now
		return p.Summary(), true
	}

	p := &domain.Participant{
		ConnectionID: connectionID,
		DisplayName:  displayName,
		Observer:     displayName == domain.ObserverName,
		JoinedAt:     now,
		UpdatedAt:    now,
	}
	r.participants[displayName] = p
	r.order = append(r.order, displayName)

	if !p.Observer {
		r.broadcastLocked(Event{Type: EventJoined, Participant: p.Summary(), SentAt: now})
	}
	return p.Summary(), false
}

// recordAnswer overwrites the participant's latest state and fans the update
// out to every current connection. State arriving before the join creates a
// minimal record rather than being dropped.
func (r *Room) recordAnswer(displayName string, answer *domain.Answer) domain.ParticipantSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.lastActive = now

	p, ok := r.participants[displayName]
	if !ok {
		p = &domain.Participant{
			DisplayName: displayName,
			Observer:    displayName == domain.ObserverName,
			JoinedAt:    now,
		}
		r.participants[displayName] = p
		r.order = append(r.order, displayName)
	}
	p.Answer = answer
	p.UpdatedAt = now

	summary := p.Summary()
	r.broadcastLocked(Event{Type: EventUpdated, Participant: summary, SentAt: now})
	return summary
}

// attach subscribes a connection to the room's event stream. The caller must
// invoke the returned cancel function (or dropConnection) to avoid leaks.
func (r *Room) attach(connectionID string) (<-chan Event, func()) {
	ch := make(chan Event, 16)

	r.mu.Lock()
	r.conns[connectionID] = ch
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if existing, ok := r.conns[connectionID]; ok && existing == ch {
			delete(r.conns, connectionID)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// dropConnection detaches a connection after a transport disconnect. The
// participant record and its accumulated answer stay behind so a rejoin under
// the same display name picks them back up.
func (r *Room) dropConnection(connectionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.conns[connectionID]; ok {
		delete(r.conns, connectionID)
		close(ch)
	}
}

// sendTo delivers an event to one connection. A vanished connection is a
// silent no-op.
func (r *Room) sendTo(connectionID string, ev Event) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ch, ok := r.conns[connectionID]
	if !ok {
		return false
	}
	deliver(ch, ev)
	return true
}

// resolveByName re-reads the participant's live record, returning the current
// connection id for directed delivery.
func (r *Room) resolveByName(displayName string) (domain.ParticipantSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[displayName]
	if !ok {
		return domain.ParticipantSummary{}, false
	}
	return p.Summary(), true
}

// resolveByConnection finds the participant currently holding a connection id.
func (r *Room) resolveByConnection(connectionID string) (domain.ParticipantSummary, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.participants {
		if p.ConnectionID == connectionID {
			return p.Summary(), true
		}
	}
	return domain.ParticipantSummary{}, false
}

// listParticipants snapshots the room in first-seen order.
func (r *Room) listParticipants(excludeObservers bool) []domain.ParticipantSummary {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ParticipantSummary, 0, len(r.order))
	for _, name := range r.order {
		p, ok := r.participants[name]
		if !ok {
			continue
		}
		if excludeObservers && p.Observer {
			continue
		}
		out = append(out, p.Summary())
	}
	return out
}

// LastActive reports the room's most recent join/submit/message activity.
func (r *Room) LastActive() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastActive
}

func (r *Room) touch() {
	r.mu.Lock()
	r.lastActive = r.now()
	r.mu.Unlock()
}

func (r *Room) broadcastLocked(ev Event) {
	for _, ch := range r.conns {
		deliver(ch, ev)
	}
}

// deliver is a non-blocking send that drops the oldest pending event when a
// consumer's buffer is full, so one slow connection cannot stall the room.
func deliver(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- ev:
		default:
		}
	}
}
