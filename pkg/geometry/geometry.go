// Package geometry provides the point and box types shared by the ROI packages.
package geometry

import "math"

// Point is a position in image pixel coordinates.
type Point struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns the sum of two points.
func (p Point) Add(other Point) Point {
	return Point{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point) Sub(other Point) Point {
	return Point{X: p.X - other.X, Y: p.Y - other.Y}
}

// Distance returns the Euclidean distance to another point.
func (p Point) Distance(other Point) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Round rounds both coordinates to the nearest integer.
func (p Point) Round() (int, int) {
	return int(math.Round(p.X)), int(math.Round(p.Y))
}

// IsIntegral reports whether both coordinates are whole numbers.
func (p Point) IsIntegral() bool {
	return p.X == math.Trunc(p.X) && p.Y == math.Trunc(p.Y)
}

// Translate returns a copy of pts shifted by delta.
func Translate(pts []Point, delta Point) []Point {
	out := make([]Point, len(pts))
	for i, p := range pts {
		out[i] = p.Add(delta)
	}
	return out
}

// Clone returns a copy of pts.
func Clone(pts []Point) []Point {
	if pts == nil {
		return nil
	}
	out := make([]Point, len(pts))
	copy(out, pts)
	return out
}

// Equal reports whether two point lists are identical.
func Equal(a, b []Point) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Rect is an axis-aligned box given by its minimum corner and extent.
type Rect struct {
	Min  Point
	Size Point
}

// Max returns the corner opposite Min.
func (r Rect) Max() Point {
	return r.Min.Add(r.Size)
}

// Contains reports whether p lies inside the box (edges inclusive).
func (r Rect) Contains(p Point) bool {
	mx := r.Max()
	return p.X >= r.Min.X && p.X <= mx.X && p.Y >= r.Min.Y && p.Y <= mx.Y
}

// BoundingBox computes the axis-aligned bounding box of a set of points.
func BoundingBox(points []Point) Rect {
	if len(points) == 0 {
		return Rect{}
	}
	minX, minY := points[0].X, points[0].Y
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return Rect{Min: Pt(minX, minY), Size: Pt(maxX-minX, maxY-minY)}
}

// PointInPolygon tests if a point is inside a polygon using ray casting.
func PointInPolygon(p Point, polygon []Point) bool {
	if len(polygon) < 3 {
		return false
	}

	inside := false
	n := len(polygon)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		pi, pj := polygon[i], polygon[j]

		// Ray from p going right crosses edge pi-pj
		if ((pi.Y > p.Y) != (pj.Y > p.Y)) &&
			(p.X < (pj.X-pi.X)*(p.Y-pi.Y)/(pj.Y-pi.Y)+pi.X) {
			inside = !inside
		}
	}
	return inside
}
