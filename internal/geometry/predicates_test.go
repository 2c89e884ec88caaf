package geometry

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"go.viam.com/test"
)

var (
	square = MustPolygon(Pt(0, 0), Pt(4, 0), Pt(4, 4), Pt(0, 4))
	// U opens upwards; the notch spans x in (1,3), y in (1,4).
	cup = MustPolygon(Pt(0, 0), Pt(4, 0), Pt(4, 4), Pt(3, 4), Pt(3, 1), Pt(1, 1), Pt(1, 4), Pt(0, 4))
)

func TestNewPolygon(t *testing.T) {
	_, err := NewPolygon([]Point{Pt(0, 0), Pt(1, 1)})
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)

	// explicit closure does not count as a vertex
	_, err = NewPolygon([]Point{Pt(0, 0), Pt(1, 0), Pt(0, 0)})
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)

	p, err := NewPolygon([]Point{Pt(0, 0), Pt(1, 0), Pt(1, 1), Pt(0, 0)})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, p.Len(), test.ShouldEqual, 3)
	test.That(t, p.Bounds(), test.ShouldResemble, Bounds{Min: Pt(0, 0), Max: Pt(1, 1)})

	vs := p.Vertices()
	vs[0] = Pt(100, 100)
	test.That(t, p.Vertex(0), test.ShouldResemble, Pt(0, 0))
}

func TestPointInPolygon(t *testing.T) {
	test.That(t, PointInPolygon(Pt(2, 2), square), test.ShouldBeTrue)
	test.That(t, PointInPolygon(Pt(0.001, 3.999), square), test.ShouldBeTrue)
	test.That(t, PointInPolygon(Pt(10, 10), square), test.ShouldBeFalse)
	test.That(t, PointInPolygon(Pt(-1, 2), square), test.ShouldBeFalse)

	// boundary is exclusive
	test.That(t, PointInPolygon(Pt(0, 2), square), test.ShouldBeFalse)
	test.That(t, PointInPolygon(Pt(4, 4), square), test.ShouldBeFalse)
	test.That(t, PointOnBoundary(Pt(0, 2), square), test.ShouldBeTrue)

	test.That(t, PointInPolygon(Pt(0.5, 3), cup), test.ShouldBeTrue)
	test.That(t, PointInPolygon(Pt(2, 0.5), cup), test.ShouldBeTrue)
	test.That(t, PointInPolygon(Pt(2, 3), cup), test.ShouldBeFalse)
}

func TestPointInPolygonRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 500; i++ {
		inside := Pt(0.01+rng.Float64()*3.98, 0.01+rng.Float64()*3.98)
		test.That(t, PointInPolygon(inside, square), test.ShouldBeTrue)

		far := Pt(5+rng.Float64()*100, -100+rng.Float64()*200)
		test.That(t, PointInPolygon(far, square), test.ShouldBeFalse)
		test.That(t, PointInPolygon(far, cup), test.ShouldBeFalse)
	}
}

func TestSegmentsIntersect(t *testing.T) {
	pt, ok := SegmentsIntersect(Pt(0, 0), Pt(2, 2), Pt(0, 2), Pt(2, 0))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pt.ApproxEqual(Pt(1, 1), 1e-12), test.ShouldBeTrue)

	_, ok = SegmentsIntersect(Pt(0, 0), Pt(1, 0), Pt(0, 1), Pt(1, 1))
	test.That(t, ok, test.ShouldBeFalse)

	// near-parallel is treated as parallel
	_, ok = SegmentsIntersect(Pt(0, 0), Pt(1, 0), Pt(0, 1e-12), Pt(1, 2e-12))
	test.That(t, ok, test.ShouldBeFalse)

	// collinear overlap has no single intersection point
	_, ok = SegmentsIntersect(Pt(0, 0), Pt(2, 0), Pt(1, 0), Pt(3, 0))
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = SegmentsIntersect(Pt(0, 0), Pt(1, 1), Pt(2, 0), Pt(3, -1))
	test.That(t, ok, test.ShouldBeFalse)

	_, ok = SegmentsIntersect(Pt(0, 0), Pt(0, 0), Pt(-1, 0), Pt(1, 0))
	test.That(t, ok, test.ShouldBeFalse)

	// touching at an endpoint counts
	pt, ok = SegmentsIntersect(Pt(0, 0), Pt(1, 0), Pt(1, -1), Pt(1, 1))
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, pt.ApproxEqual(Pt(1, 0), 1e-12), test.ShouldBeTrue)
}

func TestSegmentPolygonIntersections(t *testing.T) {
	hits := SegmentPolygonIntersections(Pt(-1, 2), Pt(5, 2), square)
	test.That(t, hits, test.ShouldHaveLength, 2)
	test.That(t, hits[0].ApproxEqual(Pt(0, 2), 1e-12), test.ShouldBeTrue)
	test.That(t, hits[1].ApproxEqual(Pt(4, 2), 1e-12), test.ShouldBeTrue)

	// reversed direction keeps distance ordering from the first endpoint
	hits = SegmentPolygonIntersections(Pt(5, 2), Pt(-1, 2), square)
	test.That(t, hits[0].ApproxEqual(Pt(4, 2), 1e-12), test.ShouldBeTrue)

	// through two vertices, each reported once
	hits = SegmentPolygonIntersections(Pt(-1, -1), Pt(5, 5), square)
	test.That(t, hits, test.ShouldHaveLength, 2)

	hits = SegmentPolygonIntersections(Pt(-1, 3), Pt(5, 3), cup)
	test.That(t, hits, test.ShouldHaveLength, 4)

	test.That(t, SegmentPolygonIntersections(Pt(1, 1), Pt(3, 3), square), test.ShouldBeEmpty)
	test.That(t, SegmentPolygonIntersections(Pt(10, 10), Pt(20, 20), square), test.ShouldBeEmpty)
}

func TestSegmentCrossesOrWithinPolygon(t *testing.T) {
	for _, tc := range []struct {
		name   string
		p1, p2 Point
		want   bool
	}{
		{"crosses", Pt(-1, 2), Pt(5, 2), true},
		{"enters", Pt(-1, 2), Pt(2, 2), true},
		{"inside", Pt(1, 1), Pt(3, 3), true},
		{"from boundary inwards", Pt(0, 2), Pt(1, 2), true},
		{"outside", Pt(5, 5), Pt(6, 8), false},
		{"along edge", Pt(0, 0), Pt(4, 0), false},
		{"along extended edge", Pt(-2, 4), Pt(6, 4), false},
		{"touches corner", Pt(-1, 1), Pt(1, -1), false},
		{"ends on boundary", Pt(-1, 2), Pt(0, 2), false},
		{"point inside", Pt(2, 2), Pt(2, 2), true},
		{"point outside", Pt(8, 2), Pt(8, 2), false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			test.That(t, SegmentCrossesOrWithinPolygon(tc.p1, tc.p2, square), test.ShouldEqual, tc.want)
		})
	}

	// spans the notch of the cup without touching its interior
	test.That(t, SegmentCrossesOrWithinPolygon(Pt(1.5, 2), Pt(2.5, 3), cup), test.ShouldBeFalse)
	// bridges both arms of the cup
	test.That(t, SegmentCrossesOrWithinPolygon(Pt(0.5, 3), Pt(3.5, 3), cup), test.ShouldBeTrue)
	// runs down the inner wall of the notch
	test.That(t, SegmentCrossesOrWithinPolygon(Pt(1, 4), Pt(1, 1), cup), test.ShouldBeFalse)
}

func TestSegmentOutsideBoundingRegion(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 500; i++ {
		p1 := Pt(-50+rng.Float64()*45, -50+rng.Float64()*100)
		p2 := Pt(-50+rng.Float64()*45, -50+rng.Float64()*100)
		test.That(t, SegmentCrossesOrWithinPolygon(p1, p2, square), test.ShouldBeFalse)
		test.That(t, SegmentCrossesOrWithinPolygon(p1, p2, cup), test.ShouldBeFalse)
	}
}
