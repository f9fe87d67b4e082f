package domain

import "time"

// ObserverName is the reserved display name the monitoring view joins with.
// A participant carrying it is never listed or counted as a student.
const ObserverName = "TEACHER_MONITOR"

// Participant is one connected student (or the observer) in a room. The
// display name is the identity key: it survives reconnects, while
// ConnectionID is replaced on every new transport connection.
type Participant struct {
	ConnectionID string
	DisplayName  string
	Observer     bool
	Answer       *Answer // nil until the first submit
	JoinedAt     time.Time
	UpdatedAt    time.Time
}

// ParticipantSummary is the wire-facing snapshot of a participant carried by
// joined and updated events.
type ParticipantSummary struct {
	ConnectionID string    `json:"id"`
	DisplayName  string    `json:"name"`
	Answer       *Answer   `json:"answer,omitempty"`
	JoinedAt     time.Time `json:"joinedAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Summary snapshots the participant for broadcasting.
func (p *Participant) Summary() ParticipantSummary {
	return ParticipantSummary{
		ConnectionID: p.ConnectionID,
		DisplayName:  p.DisplayName,
		Answer:       p.Answer,
		JoinedAt:     p.JoinedAt,
		UpdatedAt:    p.UpdatedAt,
	}
}
