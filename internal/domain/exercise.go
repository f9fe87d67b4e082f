package domain

import "time"

// ExerciseKind selects the answer payload shape and the progress formulas.
type ExerciseKind string

const (
	KindFillBlanks    ExerciseKind = "fill-blanks"
	KindOrderMatching ExerciseKind = "order-matching"
	KindFreeDrop      ExerciseKind = "free-drop"
)

// Valid reports whether the kind is one of the three supported exercise types.
func (k ExerciseKind) Valid() bool {
	switch k {
	case KindFillBlanks, KindOrderMatching, KindFreeDrop:
		return true
	}
	return false
}

// Blank is one hidden word in a fill-in-blank exercise.
type Blank struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Word  string `json:"word"`
}

// Step is one entry of the canonical order in an order-matching exercise.
type Step struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// BoardItem is a placeable element of a free-drop board. Geometry is
// normalized to the board's base width; there is no canonical placement.
type BoardItem struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"` // "text" or "image"
	Content string  `json:"content"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width,omitempty"`
	Height  float64 `json:"height,omitempty"`
}

// Exercise is the stored document for one activity. The kind decides which
// of Blanks, Steps, or Items carries the content.
type Exercise struct {
	ID              string       `json:"id"`
	PIN             string       `json:"pinNumber"`
	Kind            ExerciseKind `json:"type"`
	Title           string       `json:"title"`
	OriginalText    string       `json:"originalText,omitempty"`
	Blanks          []Blank      `json:"blanks,omitempty"`
	AllowDuplicates bool         `json:"allowDuplicates,omitempty"`
	Steps           []Step       `json:"steps,omitempty"`
	Items           []BoardItem  `json:"items,omitempty"`
	BackgroundURL   string       `json:"backgroundUrl,omitempty"`
	BaseWidth       float64      `json:"baseWidth,omitempty"`
	AspectRatio     float64      `json:"aspectRatio,omitempty"`
	CreatedAt       time.Time    `json:"createdAt"`
}

// TotalUnits is the denominator for progress: blanks, steps, or items
// depending on the kind.
func (e Exercise) TotalUnits() int {
	switch e.Kind {
	case KindFillBlanks:
		return len(e.Blanks)
	case KindOrderMatching:
		return len(e.Steps)
	case KindFreeDrop:
		return len(e.Items)
	}
	return 0
}
