// Package gesture turns motion samples into coarse gesture events.
//
// The categories describe where motion happened, not what was signed. The
// vocabulary tokens attached to some events are placeholders drawn from a
// fixed word list and must never be shown as a translation.
package gesture

import "time"

// Category is the coarse class of detected activity.
type Category string

const (
	CategoryNone               Category = "none"
	CategoryWave               Category = "wave"
	CategoryTwoHand            Category = "two-hand"
	CategorySingleHandDominant Category = "single-hand-dominant"
	CategoryGenericHand        Category = "generic-hand"
	CategoryBodyMovement       Category = "body-movement"
)

// Categories lists every category in classification precedence order,
// followed by none.
var Categories = []Category{
	CategoryWave,
	CategoryTwoHand,
	CategorySingleHandDominant,
	CategoryGenericHand,
	CategoryBodyMovement,
	CategoryNone,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// HandPresence records which hand zones showed motion.
type HandPresence struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
}

// Event is an immutable gesture record. Consumers must not modify Tokens.
type Event struct {
	Timestamp  time.Time    `json:"timestamp"`
	Category   Category     `json:"category"`
	Confidence float64      `json:"confidence"`
	Hands      HandPresence `json:"hand_presence"`
	Tokens     []string     `json:"vocabulary_tokens,omitempty"`
	// Held marks a debounce repeat of an earlier gesture.
	Held bool `json:"held,omitempty"`
}

// NoneEvent returns an event with no activity at ts.
func NoneEvent(ts time.Time) Event {
	return Event{Timestamp: ts, Category: CategoryNone}
}

// IsGesture reports whether the event carries a category other than none.
func (e Event) IsGesture() bool {
	return e.Category != CategoryNone && e.Category != ""
}

// Clone returns a copy that shares nothing with e.
func (e Event) Clone() Event {
	if e.Tokens != nil {
		e.Tokens = append([]string(nil), e.Tokens...)
	}
	return e
}
