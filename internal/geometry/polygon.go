package geometry

import "github.com/pkg/errors"

// ErrInvalidGeometry is returned for polygons with fewer than three vertices.
var ErrInvalidGeometry = errors.New("invalid geometry")

// Polygon represents an obstacle as a closed ring of vertices. The last vertex
// connects back to the first. Polygons are immutable once built.
type Polygon struct {
	vertices []Point
	bounds   Bounds
}

// NewPolygon copies vertices into a new polygon. A trailing vertex equal to the
// first one is treated as an explicit closure and dropped.
func NewPolygon(vertices []Point) (Polygon, error) {
	n := len(vertices)
	if n > 1 && vertices[0] == vertices[n-1] {
		n--
	}
	if n < 3 {
		return Polygon{}, errors.Wrapf(ErrInvalidGeometry, "polygon has %d vertices, need at least 3", n)
	}

	vs := make([]Point, n)
	copy(vs, vertices[:n])
	return Polygon{vertices: vs, bounds: BoundsOf(vs...)}, nil
}

// MustPolygon is NewPolygon for literals known to be valid.
func MustPolygon(vertices ...Point) Polygon {
	p, err := NewPolygon(vertices)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of vertices.
func (p Polygon) Len() int {
	return len(p.vertices)
}

// Vertex returns the i-th vertex.
func (p Polygon) Vertex(i int) Point {
	return p.vertices[i]
}

// Vertices returns a copy of the vertex ring.
func (p Polygon) Vertices() []Point {
	vs := make([]Point, len(p.vertices))
	copy(vs, p.vertices)
	return vs
}

// Edge returns the segment from vertex i to vertex i+1, wrapping at the end.
func (p Polygon) Edge(i int) Segment {
	return Segment{P1: p.vertices[i], P2: p.vertices[(i+1)%len(p.vertices)]}
}

// Bounds returns the axis-aligned bounding box of the polygon.
func (p Polygon) Bounds() Bounds {
	return p.bounds
}
