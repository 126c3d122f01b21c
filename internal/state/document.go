package state

import "time"

// Document is the content of one canvas: an ordered list of finalized
// strokes, in append order (not necessarily timestamp order when several
// authors interleave). Version is bumped by the remote store on every
// accepted mutation and serves only as a change signal, never for conflict
// resolution.
type Document struct {
	CanvasID    string    `json:"canvas_id"`
	Strokes     []Stroke  `json:"strokes"`
	Version     int64     `json:"version"`
	LastUpdated time.Time `json:"last_updated"`
}

// NewDocument creates an empty document for a canvas.
func NewDocument(canvasID string) Document {
	return Document{CanvasID: canvasID}
}

// CanAdd reports whether one more stroke fits under MaxStrokes.
func (d *Document) CanAdd() bool {
	return len(d.Strokes) < MaxStrokes
}

// AddStroke appends a finalized stroke. It returns ErrCapacityExceeded,
// leaving the document untouched, when the canvas is full.
func (d *Document) AddStroke(s Stroke) error {
	if !d.CanAdd() {
		return ErrCapacityExceeded
	}
	d.Strokes = append(d.Strokes, s)
	d.LastUpdated = time.Now()
	return nil
}

// RemoveLast removes and returns the most recently appended stroke.
func (d *Document) RemoveLast() (Stroke, bool) {
	if len(d.Strokes) == 0 {
		return Stroke{}, false
	}
	s := d.Strokes[len(d.Strokes)-1]
	d.Strokes = d.Strokes[:len(d.Strokes)-1]
	d.LastUpdated = time.Now()
	return s, true
}

// RemoveStroke removes the stroke with the given id, keeping order. It is a
// no-op returning false when the id is absent.
func (d *Document) RemoveStroke(id string) bool {
	for i, s := range d.Strokes {
		if s.ID == id {
			d.Strokes = append(d.Strokes[:i], d.Strokes[i+1:]...)
			d.LastUpdated = time.Now()
			return true
		}
	}
	return false
}

// Clear removes every stroke.
func (d *Document) Clear() {
	d.Strokes = nil
	d.LastUpdated = time.Now()
}

// Clone returns a deep copy, safe to hand to renderers or other goroutines.
func (d Document) Clone() Document {
	out := d
	out.Strokes = make([]Stroke, len(d.Strokes))
	for i, s := range d.Strokes {
		out.Strokes[i] = s.Clone()
	}
	return out
}
