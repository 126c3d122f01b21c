package state

import (
	"errors"
	"math"
	"testing"

	"sharedink/internal/geometry"
)

func newTestSession() *Session {
	return NewSession("canvas-1", "author-1", nil)
}

func drawStroke(t *testing.T, s *Session) Stroke {
	t.Helper()
	if err := s.StartStroke(geometry.Pt(0, 0), "#ff0000", 2); err != nil {
		t.Fatalf("StartStroke: %v", err)
	}
	s.AppendPoint(geometry.Pt(1, 1))
	st, err := s.FinalizeStroke()
	if err != nil {
		t.Fatalf("FinalizeStroke: %v", err)
	}
	if st == nil {
		t.Fatal("FinalizeStroke returned no stroke")
	}
	return *st
}

func TestSession_DrawUndoRedoRoundTrip(t *testing.T) {
	s := newTestSession()

	st := drawStroke(t, s)
	if got := len(s.Document().Strokes); got != 1 {
		t.Fatalf("after finalize: %d strokes, want 1", got)
	}

	undone, ok := s.Undo()
	if !ok || undone.ID != st.ID {
		t.Fatalf("Undo = (%s, %v), want stroke %s", undone.ID, ok, st.ID)
	}
	if got := len(s.Document().Strokes); got != 0 {
		t.Fatalf("after undo: %d strokes, want 0", got)
	}
	if !s.CanRedo() {
		t.Fatal("CanRedo() = false after undo")
	}

	redone, err := s.Redo()
	if err != nil || redone == nil {
		t.Fatalf("Redo = (%v, %v)", redone, err)
	}
	if redone.ID != st.ID {
		t.Errorf("redone stroke id = %s, want %s", redone.ID, st.ID)
	}
	if got := len(s.Document().Strokes); got != 1 {
		t.Errorf("after redo: %d strokes, want 1", got)
	}
}

func TestSession_StartWhileEditingIsNoop(t *testing.T) {
	s := newTestSession()
	s.StartStroke(geometry.Pt(0, 0), "#000000", 1)
	s.StartStroke(geometry.Pt(9, 9), "#ffffff", 8)

	open, ok := s.OpenStroke()
	if !ok {
		t.Fatal("no open stroke")
	}
	if open.Color != "#000000" || open.Width != 1 {
		t.Errorf("second StartStroke replaced the open stroke: %+v", open)
	}
}

func TestSession_AppendWhileIdleIsNoop(t *testing.T) {
	s := newTestSession()
	if err := s.AppendPoint(geometry.Pt(1, 1)); err != nil {
		t.Fatalf("AppendPoint while idle: %v", err)
	}
	if s.IsEditing() {
		t.Error("IsEditing() = true after idle append")
	}
}

func TestSession_FinalizeWhileIdleIsNoop(t *testing.T) {
	s := newTestSession()
	st, err := s.FinalizeStroke()
	if st != nil || err != nil {
		t.Errorf("FinalizeStroke while idle = (%v, %v), want (nil, nil)", st, err)
	}
}

func TestSession_FinalizeSmoothsLongStrokes(t *testing.T) {
	s := newTestSession()
	s.StartStroke(geometry.Pt(0, 0), "#000000", 2)
	s.AppendPoint(geometry.Pt(1, 1))
	s.AppendPoint(geometry.Pt(2, 0))
	s.AppendPoint(geometry.Pt(3, 1))
	s.AppendPoint(geometry.Pt(4, 0))

	st, err := s.FinalizeStroke()
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Points) <= 5 {
		t.Errorf("finalized stroke has %d points, want smoothed > 5", len(st.Points))
	}
}

func TestSession_FinalizeKeepsShortStrokesRaw(t *testing.T) {
	s := newTestSession()
	s.StartStroke(geometry.Pt(0, 0), "#000000", 2)
	s.AppendPoint(geometry.Pt(1, 1))
	s.AppendPoint(geometry.Pt(2, 0))

	st, err := s.FinalizeStroke()
	if err != nil {
		t.Fatal(err)
	}
	if len(st.Points) != 3 {
		t.Errorf("3-point stroke has %d points after finalize, want raw 3", len(st.Points))
	}
}

func TestSession_CancelDiscardsOpenStroke(t *testing.T) {
	s := newTestSession()
	s.StartStroke(geometry.Pt(0, 0), "#000000", 2)
	s.CancelStroke()

	if s.IsEditing() {
		t.Error("IsEditing() = true after cancel")
	}
	if got := len(s.Document().Strokes); got != 0 {
		t.Errorf("cancelled stroke reached the document: %d strokes", got)
	}
	if s.CanRedo() {
		t.Error("cancelled stroke reached the redo stack")
	}
}

func TestSession_NewStrokeClearsRedoHistory(t *testing.T) {
	s := newTestSession()
	drawStroke(t, s)
	s.Undo()
	if !s.CanRedo() {
		t.Fatal("CanRedo() = false after undo")
	}

	drawStroke(t, s)
	if s.CanRedo() {
		t.Fatal("redo history survived a new finalize")
	}
	if st, err := s.Redo(); st != nil || err != nil {
		t.Errorf("Redo after cleared history = (%v, %v), want (nil, nil)", st, err)
	}
}

func TestSession_StartStrokeAtCapacityIsNoop(t *testing.T) {
	s := newTestSession()
	for i := 0; i < MaxStrokes; i++ {
		drawStroke(t, s)
	}
	if s.CanAddStroke() {
		t.Fatal("CanAddStroke() = true at capacity")
	}

	s.StartStroke(geometry.Pt(0, 0), "#000000", 2)
	if s.IsEditing() {
		t.Error("stroke opened past capacity")
	}
}

func TestSession_FinalizeAtCapacity(t *testing.T) {
	s := newTestSession()
	for i := 0; i < MaxStrokes; i++ {
		drawStroke(t, s)
	}

	// Undo/redo do not care whether a stroke is open, so the document can
	// fill back up underneath an in-progress gesture.
	s.Undo()
	s.StartStroke(geometry.Pt(0, 0), "#000000", 2)
	if _, err := s.Redo(); err != nil {
		t.Fatalf("redo under open stroke: %v", err)
	}

	st, err := s.FinalizeStroke()
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("FinalizeStroke into full document = (%v, %v), want ErrCapacityExceeded", st, err)
	}
	if got := len(s.Document().Strokes); got != MaxStrokes {
		t.Errorf("document mutated by failed finalize: %d strokes", got)
	}
	if s.IsEditing() {
		t.Error("session still editing after discarded finalize")
	}
}

func TestSession_RedoCapacityFailureLeavesStackIntact(t *testing.T) {
	s := newTestSession()
	drawStroke(t, s)
	s.Undo()

	// A full remote snapshot arrives while the undone stroke sits on the
	// redo stack; the redo now has nowhere to go.
	full := NewDocument("canvas-1")
	for i := 0; i < MaxStrokes; i++ {
		full.AddStroke(testStroke("other"))
	}
	if !s.ReplaceIfIdle(full) {
		t.Fatal("ReplaceIfIdle failed while idle")
	}

	if _, err := s.Redo(); !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("Redo into full document = %v, want ErrCapacityExceeded", err)
	}
	if !s.CanRedo() {
		t.Error("failed redo consumed the stroke from the redo stack")
	}
	if got := len(s.Document().Strokes); got != MaxStrokes {
		t.Errorf("document mutated by failed redo: %d strokes", got)
	}
}

func TestSession_ClearIsIrreversible(t *testing.T) {
	s := newTestSession()
	drawStroke(t, s)
	drawStroke(t, s)
	s.Undo()
	s.StartStroke(geometry.Pt(3, 3), "#000000", 2)

	s.Clear()

	if got := len(s.Document().Strokes); got != 0 {
		t.Errorf("after clear: %d strokes, want 0", got)
	}
	if s.CanUndo() || s.CanRedo() || s.IsEditing() {
		t.Error("clear left history or an open stroke behind")
	}
}

func TestSession_RejectsNonFinitePoints(t *testing.T) {
	s := newTestSession()
	if err := s.StartStroke(geometry.Pt(math.NaN(), 0), "#000000", 2); !errors.Is(err, geometry.ErrInvalidGeometry) {
		t.Errorf("StartStroke(NaN) = %v, want ErrInvalidGeometry", err)
	}
	if s.IsEditing() {
		t.Fatal("invalid point opened a stroke")
	}

	s.StartStroke(geometry.Pt(0, 0), "#000000", 2)
	if err := s.AppendPoint(geometry.Pt(0, math.Inf(-1))); !errors.Is(err, geometry.ErrInvalidGeometry) {
		t.Errorf("AppendPoint(-Inf) = %v, want ErrInvalidGeometry", err)
	}
	open, _ := s.OpenStroke()
	if len(open.Points) != 1 {
		t.Errorf("invalid point was appended: %d points", len(open.Points))
	}
}

func TestSession_ReplaceIfIdle(t *testing.T) {
	s := newTestSession()
	remote := NewDocument("canvas-1")
	remote.AddStroke(testStroke("other"))
	remote.Version = 7

	s.StartStroke(geometry.Pt(0, 0), "#000000", 2)
	if s.ReplaceIfIdle(remote) {
		t.Fatal("snapshot applied while editing")
	}
	if got := len(s.Document().Strokes); got != 0 {
		t.Fatalf("document changed while editing: %d strokes", got)
	}

	s.FinalizeStroke()
	if !s.ReplaceIfIdle(remote) {
		t.Fatal("snapshot rejected while idle")
	}
	doc := s.Document()
	if doc.Version != 7 || len(doc.Strokes) != 1 {
		t.Errorf("document = version %d with %d strokes, want version 7 with 1", doc.Version, len(doc.Strokes))
	}
}
