package mapfile

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"

	"path-planning-env/internal/geometry"
)

// Simplify reduces each obstacle ring with Douglas-Peucker at the given
// tolerance. A ring that would drop below three vertices is kept as is.
func Simplify(obstacles []orb.Ring, tolerance float64) []orb.Ring {
	out := make([]orb.Ring, len(obstacles))
	for i, ring := range obstacles {
		out[i] = simplifyRing(ring, tolerance)
	}
	return out
}

func simplifyRing(ring orb.Ring, tolerance float64) orb.Ring {
	if tolerance <= 0 || len(ring) <= 3 {
		return ring.Clone()
	}

	// simplify against the closed outline so the closing edge counts
	ls := orb.LineString(closeRing(ring))
	s := simplify.DouglasPeucker(tolerance).Simplify(ls.Clone())
	result, ok := s.(orb.LineString)
	if !ok {
		return ring.Clone()
	}
	simplified := openRing(orb.Ring(result))
	if len(simplified) < 3 {
		return ring.Clone()
	}
	return simplified
}

// PruneContained drops obstacles that lie entirely inside another obstacle.
// They add collision checks without changing the free space. Rings with fewer
// than three vertices are passed through for map construction to reject.
func PruneContained(obstacles []orb.Ring) []orb.Ring {
	if len(obstacles) <= 1 {
		return obstacles
	}

	polygons := make([]*geometry.Polygon, len(obstacles))
	for i, ring := range obstacles {
		if p, err := geometry.NewPolygon(ringToPoints(ring)); err == nil {
			polygons[i] = &p
		}
	}

	contained := make([]bool, len(obstacles))
	for i := range polygons {
		if contained[i] || polygons[i] == nil {
			continue
		}
		for j := range polygons {
			if i == j || contained[j] || polygons[j] == nil {
				continue
			}
			if containedIn(*polygons[i], *polygons[j]) {
				contained[i] = true
				break
			}
			if containedIn(*polygons[j], *polygons[i]) {
				contained[j] = true
			}
		}
	}

	result := make([]orb.Ring, 0, len(obstacles))
	for i, ring := range obstacles {
		if !contained[i] {
			result = append(result, ring)
		}
	}
	return result
}

// containedIn reports whether a lies strictly inside b: every vertex is inside
// and no edge meets b's boundary. The edge test matters when b is concave.
func containedIn(a, b geometry.Polygon) bool {
	ab, bb := a.Bounds(), b.Bounds()
	if ab.Min.X < bb.Min.X || ab.Max.X > bb.Max.X || ab.Min.Y < bb.Min.Y || ab.Max.Y > bb.Max.Y {
		return false
	}
	for _, v := range a.Vertices() {
		if !geometry.PointInPolygon(v, b) {
			return false
		}
	}
	for i := 0; i < a.Len(); i++ {
		e := a.Edge(i)
		if len(geometry.SegmentPolygonIntersections(e.P1, e.P2, b)) > 0 {
			return false
		}
	}
	return true
}
