package state

import (
	"fmt"
	"log/slog"
	"sync"

	"sharedink/internal/geometry"
)

// Session is the drawing state machine for one canvas and one local author.
// It cycles between idle (no open stroke) and editing (exactly one open
// stroke accumulating points), owns the local view of the document, and keeps
// the undo/redo history.
//
// All methods are safe for concurrent use; internally every operation runs
// under one mutex, which is what lets the reconciler apply remote snapshots
// from its own goroutine without tearing an in-progress gesture.
type Session struct {
	mu       sync.Mutex
	doc      Document
	redo     []Stroke // previously undone strokes, most recent last
	open     *Stroke
	authorID string
	log      *slog.Logger
}

// NewSession creates an idle session over an empty document.
func NewSession(canvasID, authorID string, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		doc:      NewDocument(canvasID),
		authorID: authorID,
		log:      logger,
	}
}

// StartStroke opens a new stroke with one point and the given style. It is a
// silent no-op when a stroke is already open or the canvas is full. A
// non-finite point is rejected with an error before any state changes.
func (s *Session) StartStroke(p geometry.Point, color string, width float64) error {
	if !p.IsFinite() {
		return fmt.Errorf("start stroke: %w", geometry.ErrInvalidGeometry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open != nil || !s.doc.CanAdd() {
		return nil
	}
	st := NewStroke(p, color, width, s.authorID)
	s.open = &st
	return nil
}

// AppendPoint adds a point to the open stroke. It is a no-op when idle.
func (s *Session) AppendPoint(p geometry.Point) error {
	if !p.IsFinite() {
		return fmt.Errorf("append point: %w", geometry.ErrInvalidGeometry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open == nil {
		return nil
	}
	s.open.Points = append(s.open.Points, p)
	return nil
}

// FinalizeStroke closes the open stroke: its points are smoothed (when there
// are enough of them to interpolate), the stroke becomes immutable, is
// appended to the document, and the redo history is cleared. The finalized
// stroke is returned so the caller can hand it to the reconciler.
//
// When idle it is a no-op returning (nil, nil). When the canvas is full the
// stroke is discarded, nothing is mutated, and ErrCapacityExceeded is
// returned — a distinct outcome, not a silent success.
func (s *Session) FinalizeStroke() (*Stroke, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open == nil {
		return nil, nil
	}

	st := *s.open
	s.open = nil

	if len(st.Points) >= 4 {
		st.Points = geometry.Smooth(st.Points)
	}

	if err := s.doc.AddStroke(st); err != nil {
		s.log.Warn("stroke discarded, canvas full",
			"canvas", s.doc.CanvasID, "stroke", st.ID)
		return nil, err
	}
	s.redo = nil
	return &st, nil
}

// CancelStroke discards the open stroke without committing it anywhere. Used
// when an input gesture is interrupted externally. No-op when idle.
func (s *Session) CancelStroke() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.open = nil
}

// Undo removes the most recently appended stroke from the document and parks
// it on the redo stack. It returns the removed stroke so the caller can
// propagate the removal remotely, and false when there was nothing to undo.
func (s *Session) Undo() (Stroke, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.doc.RemoveLast()
	if !ok {
		return Stroke{}, false
	}
	s.redo = append(s.redo, st)
	return st, true
}

// Redo re-appends the most recently undone stroke to the end of the document
// (append order, not its original position). When idle on the redo stack it
// returns (nil, nil); when re-adding would exceed capacity the stroke stays
// on the redo stack and ErrCapacityExceeded is returned.
func (s *Session) Redo() (*Stroke, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.redo) == 0 {
		return nil, nil
	}
	st := s.redo[len(s.redo)-1]
	if err := s.doc.AddStroke(st); err != nil {
		return nil, err
	}
	s.redo = s.redo[:len(s.redo)-1]
	return &st, nil
}

// Clear discards every stroke, both history stacks, and any open stroke.
// Irreversible: clearing does not populate the redo stack.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doc.Clear()
	s.redo = nil
	s.open = nil
}

// ReplaceIfIdle swaps the whole local document for a remote snapshot, unless
// a stroke is open, in which case the snapshot is dropped and false is
// returned. The check and the swap are atomic with respect to every other
// session operation.
func (s *Session) ReplaceIfIdle(doc Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.open != nil {
		return false
	}
	s.doc = doc.Clone()
	return true
}

// IsEditing reports whether a stroke is currently open.
func (s *Session) IsEditing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open != nil
}

// CanUndo reports whether the document has strokes to undo.
func (s *Session) CanUndo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.doc.Strokes) > 0
}

// CanRedo reports whether any undone strokes are available.
func (s *Session) CanRedo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.redo) > 0
}

// CanAddStroke reports whether the document is below capacity.
func (s *Session) CanAddStroke() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.CanAdd()
}

// Document returns a deep copy of the current document for rendering.
func (s *Session) Document() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// OpenStroke returns a copy of the in-progress stroke, if any, so a renderer
// can preview the gesture before it is finalized.
func (s *Session) OpenStroke() (Stroke, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open == nil {
		return Stroke{}, false
	}
	return s.open.Clone(), true
}
