// Package geometry holds the 2D kernel shared by the planners and the ray sensor:
// points, polygons, and the intersection and containment predicates over them.
//
// Polygon boundaries are exclusive everywhere in this package. A point on an edge
// is not inside, and a segment that only touches or runs along an edge does not
// collide with the polygon.
package geometry

import "math"

// Epsilon is the absolute tolerance used by the predicates.
const Epsilon = 1e-9

// Point is a position in the workspace.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Pt is shorthand for Point{X: x, Y: y}.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p + q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Scale returns p scaled by f.
func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Dot returns the dot product of p and q.
func (p Point) Dot(q Point) float64 {
	return p.X*q.X + p.Y*q.Y
}

// Cross returns the z component of the cross product of p and q.
func (p Point) Cross(q Point) float64 {
	return p.X*q.Y - p.Y*q.X
}

// Norm returns the length of p as a vector.
func (p Point) Norm() float64 {
	return math.Hypot(p.X, p.Y)
}

// Distance calculates Euclidean distance between two points
func (p Point) Distance(other Point) float64 {
	return p.Sub(other).Norm()
}

// ApproxEqual reports whether p and q are within tol of each other on both axes.
func (p Point) ApproxEqual(q Point, tol float64) bool {
	return math.Abs(p.X-q.X) <= tol && math.Abs(p.Y-q.Y) <= tol
}

// Segment is a line segment between two points.
type Segment struct {
	P1 Point `json:"p1"`
	P2 Point `json:"p2"`
}

// Length returns the length of the segment.
func (s Segment) Length() float64 {
	return s.P1.Distance(s.P2)
}

// Bounds is an axis-aligned box. Containment is inclusive on all sides.
type Bounds struct {
	Min Point `json:"min"`
	Max Point `json:"max"`
}

// BoundsOf returns the smallest box holding every given point.
func BoundsOf(points ...Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

// Width returns the extent along X.
func (b Bounds) Width() float64 {
	return b.Max.X - b.Min.X
}

// Height returns the extent along Y.
func (b Bounds) Height() float64 {
	return b.Max.Y - b.Min.Y
}

// Contains reports whether p lies in the box or on its border.
func (b Bounds) Contains(p Point) bool {
	return p.X >= b.Min.X && p.X <= b.Max.X && p.Y >= b.Min.Y && p.Y <= b.Max.Y
}

// Intersects reports whether the two boxes share at least one point.
func (b Bounds) Intersects(o Bounds) bool {
	return b.Min.X <= o.Max.X && o.Min.X <= b.Max.X && b.Min.Y <= o.Max.Y && o.Min.Y <= b.Max.Y
}

// Expand grows the box by pad on every side.
func (b Bounds) Expand(pad float64) Bounds {
	return Bounds{
		Min: Point{X: b.Min.X - pad, Y: b.Min.Y - pad},
		Max: Point{X: b.Max.X + pad, Y: b.Max.Y + pad},
	}
}
