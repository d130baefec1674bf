package sim

import "math"

// Point is a 2D render coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return math.Hypot(b.X-a.X, b.Y-a.Y)
}

// Lerp linearly interpolates between two points.
func Lerp(a, b Point, fraction float64) Point {
	return Point{
		X: a.X + (b.X-a.X)*fraction,
		Y: a.Y + (b.Y-a.Y)*fraction,
	}
}

// PathLength returns the total polyline length.
func PathLength(points []Point) float64 {
	var total float64
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// PointAlongPath returns the point at the given progress fraction of the
// polyline's total length. Degenerate inputs (fewer than two points, or a
// zero-length polyline) resolve to the first available point, or the origin
// when there is none, rather than failing.
func PointAlongPath(points []Point, progress float64) Point {
	if len(points) == 0 {
		return Point{}
	}
	if len(points) == 1 {
		return points[0]
	}

	progress = Clamp(progress, 0, 1)
	if progress >= 1 {
		return points[len(points)-1]
	}

	total := PathLength(points)
	if total <= 0 {
		return points[0]
	}

	target := total * progress
	var walked float64
	for i := 1; i < len(points); i++ {
		seg := Distance(points[i-1], points[i])
		if seg <= 0 {
			continue
		}
		if walked+seg >= target {
			return Lerp(points[i-1], points[i], (target-walked)/seg)
		}
		walked += seg
	}
	return points[len(points)-1]
}

// Clamp constrains a value between min and max.
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
