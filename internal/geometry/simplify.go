package geometry

import "math"

// Simplify reduces a point sequence with the Ramer-Douglas-Peucker algorithm:
// the point farthest from the chord between the first and last point is kept
// if its distance exceeds tolerance, and the two halves are simplified
// recursively; otherwise the whole segment collapses to its endpoints.
//
// The result is always a subsequence of the input, both endpoints are always
// retained, and sequences shorter than 3 points are returned unchanged.
func Simplify(pts []Point, tolerance float64) []Point {
	if len(pts) < 3 {
		return pts
	}

	first, last := pts[0], pts[len(pts)-1]
	maxDist := 0.0
	maxIdx := 0
	for i := 1; i < len(pts)-1; i++ {
		if d := perpendicularDistance(pts[i], first, last); d > maxDist {
			maxDist = d
			maxIdx = i
		}
	}

	if maxDist <= tolerance {
		return []Point{first, last}
	}

	left := Simplify(pts[:maxIdx+1], tolerance)
	right := Simplify(pts[maxIdx:], tolerance)

	// The split point ends left and starts right; keep it once.
	out := make([]Point, 0, len(left)+len(right)-1)
	out = append(out, left[:len(left)-1]...)
	out = append(out, right...)
	return out
}

// perpendicularDistance is the distance from p to the segment a-b. A
// zero-length segment degenerates to plain point-to-point distance.
func perpendicularDistance(p, a, b Point) float64 {
	chord := b.Sub(a)
	l2 := chord.LengthSquared()
	if l2 == 0 {
		return p.Distance(a)
	}
	return math.Abs(chord.Cross(p.Sub(a))) / math.Sqrt(l2)
}
