package geometry

import (
	"math"
	"sort"
)

// PointInPolygon checks if a point is strictly inside a polygon using ray casting.
// Points on the boundary are reported as outside.
func PointInPolygon(point Point, polygon Polygon) bool {
	n := len(polygon.vertices)
	if n < 3 || !polygon.bounds.Contains(point) {
		return false
	}
	if PointOnBoundary(point, polygon) {
		return false
	}

	count := 0
	for i := 0; i < n; i++ {
		v1 := polygon.vertices[i]
		v2 := polygon.vertices[(i+1)%n]

		// Only edges straddling the horizontal through point can be crossed.
		if (v1.Y > point.Y) != (v2.Y > point.Y) {
			side := (point.X-v1.X)*(v2.Y-v1.Y) - (v2.X-v1.X)*(point.Y-v1.Y)
			if v2.Y > v1.Y {
				if side > 0 {
					count++
				}
			} else if side < 0 {
				count++
			}
		}
	}

	return count%2 == 1
}

// PointOnBoundary reports whether point lies on one of the polygon edges.
func PointOnBoundary(point Point, polygon Polygon) bool {
	for i := range polygon.vertices {
		e := polygon.Edge(i)
		if distanceToSegment(point, e.P1, e.P2) <= Epsilon {
			return true
		}
	}
	return false
}

// SegmentsIntersect returns the intersection point of segments a1-a2 and b1-b2.
// Parallel, near-parallel, collinear and degenerate segments report no intersection.
func SegmentsIntersect(a1, a2, b1, b2 Point) (Point, bool) {
	r := a2.Sub(a1)
	s := b2.Sub(b1)

	denom := r.Cross(s)
	if math.Abs(denom) <= Epsilon*r.Norm()*s.Norm() || denom == 0 {
		return Point{}, false
	}

	qp := b1.Sub(a1)
	t := qp.Cross(s) / denom
	u := qp.Cross(r) / denom
	if t < -Epsilon || t > 1+Epsilon || u < -Epsilon || u > 1+Epsilon {
		return Point{}, false
	}

	return a1.Add(r.Scale(clamp01(t))), true
}

// SegmentPolygonIntersections returns every point where segment p1-p2 meets the
// polygon boundary, ordered by distance from p1. Crossings through a vertex are
// reported once.
func SegmentPolygonIntersections(p1, p2 Point, polygon Polygon) []Point {
	if !polygon.bounds.Intersects(BoundsOf(p1, p2)) {
		return nil
	}

	var hits []Point
	for i := range polygon.vertices {
		e := polygon.Edge(i)
		if pt, ok := SegmentsIntersect(p1, p2, e.P1, e.P2); ok {
			hits = append(hits, pt)
		}
	}
	if len(hits) < 2 {
		return hits
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return p1.Distance(hits[i]) < p1.Distance(hits[j])
	})
	out := hits[:1]
	for _, pt := range hits[1:] {
		if !pt.ApproxEqual(out[len(out)-1], Epsilon) {
			out = append(out, pt)
		}
	}
	return out
}

// SegmentCrossesOrWithinPolygon reports whether segment p1-p2 passes through the
// interior of polygon: it either crosses the boundary into the polygon or lies
// entirely inside it. Touching a vertex or sliding along an edge is not a collision.
func SegmentCrossesOrWithinPolygon(p1, p2 Point, polygon Polygon) bool {
	if !polygon.bounds.Intersects(BoundsOf(p1, p2)) {
		return false
	}

	d := p2.Sub(p1)
	lenSq := d.Dot(d)
	if lenSq <= Epsilon*Epsilon {
		return PointInPolygon(p1, polygon)
	}

	// Split the segment at every boundary contact. Each piece is then wholly
	// inside, wholly outside, or on the boundary, so its midpoint decides it.
	params := []float64{0, 1}
	for i := range polygon.vertices {
		e := polygon.Edge(i)
		if pt, ok := SegmentsIntersect(p1, p2, e.P1, e.P2); ok {
			params = append(params, clamp01(pt.Sub(p1).Dot(d)/lenSq))
		}
	}
	for _, v := range polygon.vertices {
		if distanceToSegment(v, p1, p2) <= Epsilon {
			params = append(params, clamp01(v.Sub(p1).Dot(d)/lenSq))
		}
	}
	sort.Float64s(params)

	for i := 1; i < len(params); i++ {
		if params[i]-params[i-1] <= Epsilon {
			continue
		}
		mid := p1.Add(d.Scale((params[i-1] + params[i]) / 2))
		if PointInPolygon(mid, polygon) {
			return true
		}
	}
	return false
}

// distanceToSegment returns the distance from p to the closest point of a-b.
func distanceToSegment(p, a, b Point) float64 {
	d := b.Sub(a)
	lenSq := d.Dot(d)
	if lenSq == 0 {
		return p.Distance(a)
	}
	t := clamp01(p.Sub(a).Dot(d) / lenSq)
	return p.Distance(a.Add(d.Scale(t)))
}

func clamp01(t float64) float64 {
	return math.Max(0, math.Min(1, t))
}
