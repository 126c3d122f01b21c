package geometry

import (
	"math"
	"reflect"
	"testing"
)

const epsilon = 1e-9

func pointsEqual(p, q Point, eps float64) bool {
	return math.Abs(p.X-q.X) < eps && math.Abs(p.Y-q.Y) < eps
}

func TestSmooth_ShortInputUnchanged(t *testing.T) {
	tests := []struct {
		name string
		pts  []Point
	}{
		{"nil", nil},
		{"empty", []Point{}},
		{"single", []Point{Pt(1, 2)}},
		{"pair", []Point{Pt(0, 0), Pt(1, 1)}},
		{"triple", []Point{Pt(0, 0), Pt(1, 1), Pt(2, 0)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Smooth(tt.pts)
			if !reflect.DeepEqual(got, tt.pts) {
				t.Errorf("Smooth(%v) = %v, want input unchanged", tt.pts, got)
			}
		})
	}
}

func TestSmooth_OutputLongerThanInput(t *testing.T) {
	pts := []Point{Pt(0, 0), Pt(1, 1), Pt(2, 0), Pt(3, 1), Pt(4, 0)}
	got := Smooth(pts)
	if len(got) <= len(pts) {
		t.Fatalf("len(Smooth(pts)) = %d, want > %d", len(got), len(pts))
	}
}

func TestSmooth_AnchorEndpoints(t *testing.T) {
	pts := []Point{Pt(0, 0), Pt(1, 1), Pt(2, 0), Pt(3, 1), Pt(4, 0)}
	got := Smooth(pts)

	if !pointsEqual(got[0], Pt(1, 1), epsilon) {
		t.Errorf("first smoothed point = %v, want (1,1)", got[0])
	}
	if !pointsEqual(got[len(got)-1], Pt(3, 1), epsilon) {
		t.Errorf("last smoothed point = %v, want (3,1)", got[len(got)-1])
	}
}

func TestSmooth_PassesThroughInteriorPoints(t *testing.T) {
	pts := []Point{Pt(0, 0), Pt(1, 1), Pt(2, 0), Pt(3, 1), Pt(4, 0), Pt(5, 1)}
	got := Smooth(pts)

	// Each interior input point serves as a window anchor, so it must appear
	// in the output (t=1 of the window that ends on it).
	for _, anchor := range pts[1 : len(pts)-1] {
		found := false
		for _, p := range got {
			if pointsEqual(p, anchor, epsilon) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("anchor %v missing from smoothed output", anchor)
		}
	}
}

func TestSmooth_Deterministic(t *testing.T) {
	pts := []Point{Pt(0, 0), Pt(1.3, 2.7), Pt(2.1, 0.4), Pt(3.9, 1.8), Pt(4.2, 0.1)}
	a := Smooth(pts)
	b := Smooth(pts)
	if !reflect.DeepEqual(a, b) {
		t.Error("Smooth is not deterministic for identical input")
	}
}

func TestSmooth_DoesNotMutateInput(t *testing.T) {
	pts := []Point{Pt(0, 0), Pt(1, 1), Pt(2, 0), Pt(3, 1), Pt(4, 0)}
	orig := make([]Point, len(pts))
	copy(orig, pts)
	Smooth(pts)
	if !reflect.DeepEqual(pts, orig) {
		t.Error("Smooth mutated its input")
	}
}
