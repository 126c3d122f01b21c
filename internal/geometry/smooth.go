package geometry

// samplesPerSegment is how many interpolated points each 4-point window
// contributes between its two anchor points.
const samplesPerSegment = 10

// Smooth interpolates a jittery point sequence into a smooth curve using the
// Catmull-Rom cubic basis. The input is walked as overlapping 4-point windows
// (p0,p1,p2,p3), advancing one point at a time; each window emits
// samplesPerSegment points between p1 and p2, so the curve passes through
// every interior input point.
//
// Sequences shorter than 4 points are returned unchanged: there is no window
// to build the interpolation basis from.
func Smooth(pts []Point) []Point {
	if len(pts) < 4 {
		return pts
	}

	out := make([]Point, 0, (len(pts)-3)*samplesPerSegment+2)

	// The first window's p1 anchors the start of the curve.
	out = append(out, pts[1])

	for i := 0; i+3 < len(pts); i++ {
		p0, p1, p2, p3 := pts[i], pts[i+1], pts[i+2], pts[i+3]
		for s := 1; s <= samplesPerSegment; s++ {
			t := float64(s) / samplesPerSegment
			out = append(out, catmullRom(p0, p1, p2, p3, t))
		}
	}

	// Close with the second-to-last input point so the tail does not need a
	// virtual trailing control point.
	out = append(out, pts[len(pts)-2])
	return out
}

// catmullRom evaluates the Catmull-Rom spline through p1..p2 at parameter t:
//
//	q(t) = 0.5 * (2*p1 + (-p0+p2)*t + (2*p0-5*p1+4*p2-p3)*t² + (-p0+3*p1-3*p2+p3)*t³)
//
// The summation order is fixed so results are bit-identical across calls.
func catmullRom(p0, p1, p2, p3 Point, t float64) Point {
	t2 := t * t
	t3 := t2 * t
	return Point{
		X: 0.5 * (2*p1.X + (-p0.X+p2.X)*t + (2*p0.X-5*p1.X+4*p2.X-p3.X)*t2 + (-p0.X+3*p1.X-3*p2.X+p3.X)*t3),
		Y: 0.5 * (2*p1.Y + (-p0.Y+p2.Y)*t + (2*p0.Y-5*p1.Y+4*p2.Y-p3.Y)*t2 + (-p0.Y+3*p1.Y-3*p2.Y+p3.Y)*t3),
	}
}
