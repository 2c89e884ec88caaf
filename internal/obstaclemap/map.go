// Package obstaclemap holds the immutable planning input: workspace bounds,
// obstacle polygons and a start/end pair.
package obstaclemap

import (
	"github.com/pkg/errors"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/spatial"
)

var (
	// ErrInvalidGeometry is returned when an obstacle has fewer than three vertices.
	ErrInvalidGeometry = geometry.ErrInvalidGeometry
	// ErrInvalidBounds is returned when the workspace box is empty or inverted.
	ErrInvalidBounds = errors.New("invalid workspace bounds")
)

// Map is the read-only description of a planning problem. A Map is never
// mutated after New returns, so one value may back any number of concurrent
// planning calls.
type Map struct {
	bounds    geometry.Bounds
	obstacles []geometry.Polygon
	index     *spatial.ObstacleIndex
	start     geometry.Point
	end       geometry.Point
}

// New validates the obstacles and builds a map. Vertex lists are copied.
func New(bounds geometry.Bounds, obstacles [][]geometry.Point, start, end geometry.Point) (*Map, error) {
	if !(bounds.Min.X < bounds.Max.X) || !(bounds.Min.Y < bounds.Max.Y) {
		return nil, errors.Wrapf(ErrInvalidBounds, "min %v max %v", bounds.Min, bounds.Max)
	}

	polygons := make([]geometry.Polygon, 0, len(obstacles))
	for i, vertices := range obstacles {
		polygon, err := geometry.NewPolygon(vertices)
		if err != nil {
			return nil, errors.Wrapf(err, "obstacle %d", i)
		}
		polygons = append(polygons, polygon)
	}

	return &Map{
		bounds:    bounds,
		obstacles: polygons,
		index:     spatial.NewObstacleIndex(polygons),
		start:     start,
		end:       end,
	}, nil
}

// WithEndpoints returns a map sharing this map's workspace and obstacles but
// with a different start and end.
func (m *Map) WithEndpoints(start, end geometry.Point) *Map {
	return &Map{
		bounds:    m.bounds,
		obstacles: m.obstacles,
		index:     m.index,
		start:     start,
		end:       end,
	}
}

// Bounds returns the workspace box.
func (m *Map) Bounds() geometry.Bounds {
	return m.bounds
}

// Start returns the start point.
func (m *Map) Start() geometry.Point {
	return m.start
}

// End returns the end point.
func (m *Map) End() geometry.Point {
	return m.end
}

// NumObstacles returns the number of obstacle polygons.
func (m *Map) NumObstacles() int {
	return len(m.obstacles)
}

// Obstacles returns the obstacle polygons. The slice is a copy.
func (m *Map) Obstacles() []geometry.Polygon {
	out := make([]geometry.Polygon, len(m.obstacles))
	copy(out, m.obstacles)
	return out
}

// Candidates returns the obstacles whose bounding box meets b.
func (m *Map) Candidates(b geometry.Bounds) []geometry.Polygon {
	ids := m.index.Query(b)
	out := make([]geometry.Polygon, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.obstacles[id])
	}
	return out
}

// Blocked reports whether p lies strictly inside any obstacle.
func (m *Map) Blocked(p geometry.Point) bool {
	for _, id := range m.index.Query(geometry.BoundsOf(p)) {
		if geometry.PointInPolygon(p, m.obstacles[id]) {
			return true
		}
	}
	return false
}

// SegmentBlocked reports whether the straight move p1-p2 passes through the
// interior of any obstacle.
func (m *Map) SegmentBlocked(p1, p2 geometry.Point) bool {
	for _, id := range m.index.Query(geometry.BoundsOf(p1, p2)) {
		if geometry.SegmentCrossesOrWithinPolygon(p1, p2, m.obstacles[id]) {
			return true
		}
	}
	return false
}

// EndpointsFree reports whether neither the start nor the end lies inside an obstacle.
func (m *Map) EndpointsFree() bool {
	return !m.Blocked(m.start) && !m.Blocked(m.end)
}
