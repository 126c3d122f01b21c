// Package state holds the drawing data model and the per-canvas editing
// session: stroke lifecycle, undo/redo, and the document capacity invariant.
package state

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"sharedink/internal/geometry"
)

// MaxStrokes is the hard capacity of one canvas document. Operations that
// would push a document past it fail with ErrCapacityExceeded; nothing is
// ever silently truncated.
const MaxStrokes = 1000

// ErrCapacityExceeded reports an add or redo that would exceed MaxStrokes.
// The document is left untouched when it is returned.
var ErrCapacityExceeded = errors.New("canvas stroke capacity exceeded")

// Stroke is one continuous pen-down-to-pen-up gesture. A stroke starts open
// (points still being appended by the session) and is finalized exactly once;
// after that its content never changes. Strokes are equal when their IDs are.
type Stroke struct {
	ID         string           `json:"id"`
	Points     []geometry.Point `json:"points"`
	Color      string           `json:"color"`
	Width      float64          `json:"width"`
	AuthoredAt time.Time        `json:"authored_at"`
	AuthorID   string           `json:"author_id"`
}

// NewStroke creates an open stroke with its first point. Identity, style and
// authorship are fixed here and never change afterwards.
func NewStroke(p geometry.Point, color string, width float64, authorID string) Stroke {
	return Stroke{
		ID:         uuid.NewString(),
		Points:     []geometry.Point{p},
		Color:      color,
		Width:      width,
		AuthoredAt: time.Now(),
		AuthorID:   authorID,
	}
}

// Clone returns a deep copy of the stroke.
func (s Stroke) Clone() Stroke {
	out := s
	out.Points = make([]geometry.Point, len(s.Points))
	copy(out.Points, s.Points)
	return out
}
