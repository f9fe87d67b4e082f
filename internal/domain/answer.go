package domain

import (
	"encoding/json"
	"fmt"
)

// Placement is one free-drop item as the student currently has it: either
// still in the tray (Placed=false) or dropped on the canvas at (X, Y),
// expressed as percentages of the board size.
type Placement struct {
	ItemID string  `json:"id"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Placed bool    `json:"isPlaced"`
}

// Answer is the tagged variant for a student's in-progress state. Exactly one
// of the payload fields is meaningful, selected by Kind. Answers are
// transient: they live only in room memory and are overwritten wholesale on
// every submit.
type Answer struct {
	Kind ExerciseKind

	// Blanks maps blank id to the submitted word (fill-blanks). Keys may be
	// a subset of the exercise's blanks.
	Blanks map[string]string

	// Steps holds step ids in the order the student placed them
	// (order-matching). May be shorter than the canonical sequence.
	Steps []string

	// Placements holds one record per board item (free-drop).
	Placements []Placement
}

type answerEnvelope struct {
	Kind    ExerciseKind    `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalJSON encodes the answer as {"kind": ..., "payload": ...} with the
// kind-specific payload shape the clients exchange.
func (a Answer) MarshalJSON() ([]byte, error) {
	var payload any
	switch a.Kind {
	case KindFillBlanks:
		payload = a.Blanks
	case KindOrderMatching:
		payload = a.Steps
	case KindFreeDrop:
		payload = a.Placements
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, a.Kind)
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(answerEnvelope{Kind: a.Kind, Payload: raw})
}

// UnmarshalJSON decodes the tagged envelope, dispatching on kind.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var env answerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	decoded := Answer{Kind: env.Kind}
	switch env.Kind {
	case KindFillBlanks:
		if err := json.Unmarshal(env.Payload, &decoded.Blanks); err != nil {
			return err
		}
	case KindOrderMatching:
		if err := json.Unmarshal(env.Payload, &decoded.Steps); err != nil {
			return err
		}
	case KindFreeDrop:
		if err := json.Unmarshal(env.Payload, &decoded.Placements); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
	*a = decoded
	return nil
}

// PlacedCount counts free-drop items currently on the canvas.
func (a Answer) PlacedCount() int {
	n := 0
	for _, p := range a.Placements {
		if p.Placed {
			n++
		}
	}
	return n
}
