package game

import "math"

// distanceToLine returns the perpendicular distance from p to the infinite
// line through a and b. A degenerate line falls back to the distance to a.
func distanceToLine(p, a, b Vec2) float64 {
	ab := b.Minus(a)
	length := ab.Magnitude()
	if length == 0 {
		return p.DistanceTo(a)
	}
	return math.Abs(ab.Cross(p.Minus(a))) / length
}

// centroid returns the mean position of the balls.
func centroid(balls []*Ball) Vec2 {
	if len(balls) == 0 {
		return Vec2{}
	}
	var sum Vec2
	for _, b := range balls {
		sum = sum.Plus(b.Position)
	}
	return sum.Times(1 / float64(len(balls)))
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// headingDifference returns |heading(a) - heading(b)| in radians, as
// computed from the raw atan2 headings (no wrap-around).
func headingDifference(a, b Vec2) float64 {
	return math.Abs(a.Heading() - b.Heading())
}
