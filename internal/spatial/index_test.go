package spatial

import (
	"math/rand"
	"testing"

	"go.viam.com/test"

	"path-planning-env/internal/geometry"
)

func TestObstacleIndexQuery(t *testing.T) {
	polygons := []geometry.Polygon{
		geometry.MustPolygon(geometry.Pt(0, 0), geometry.Pt(1, 0), geometry.Pt(1, 1), geometry.Pt(0, 1)),
		geometry.MustPolygon(geometry.Pt(5, 5), geometry.Pt(6, 5), geometry.Pt(6, 6)),
		// degenerate bounding box along Y
		geometry.MustPolygon(geometry.Pt(-3, 2), geometry.Pt(-1, 2), geometry.Pt(-2, 2)),
	}
	idx := NewObstacleIndex(polygons)
	test.That(t, idx.Len(), test.ShouldEqual, 3)

	test.That(t, idx.Query(geometry.BoundsOf(geometry.Pt(-10, -10), geometry.Pt(10, 10))), test.ShouldResemble, []int{0, 1, 2})
	test.That(t, idx.Query(geometry.BoundsOf(geometry.Pt(0.5, 0.5))), test.ShouldResemble, []int{0})
	test.That(t, idx.Query(geometry.BoundsOf(geometry.Pt(5.5, 4), geometry.Pt(5.5, 7))), test.ShouldResemble, []int{1})
	test.That(t, idx.Query(geometry.BoundsOf(geometry.Pt(-2, 0), geometry.Pt(-2, 3))), test.ShouldResemble, []int{2})
	test.That(t, idx.Query(geometry.BoundsOf(geometry.Pt(2, 2), geometry.Pt(4, 4))), test.ShouldBeEmpty)

	// touching box corners still count
	test.That(t, idx.Query(geometry.BoundsOf(geometry.Pt(1, 1), geometry.Pt(2, 2))), test.ShouldResemble, []int{0})
}

func TestNearestMatchesLinearScan(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	tree := NewNodeIndex()
	linear := NewLinearIndex()

	_, ok := tree.Nearest(geometry.Pt(0, 0))
	test.That(t, ok, test.ShouldBeFalse)
	_, ok = linear.Nearest(geometry.Pt(0, 0))
	test.That(t, ok, test.ShouldBeFalse)

	for id := 0; id < 400; id++ {
		p := geometry.Pt(rng.Float64()*20-10, rng.Float64()*20-10)
		tree.Insert(id, p)
		linear.Insert(id, p)

		// query after every insertion, not just at the end
		q := geometry.Pt(rng.Float64()*20-10, rng.Float64()*20-10)
		got, ok := tree.Nearest(q)
		test.That(t, ok, test.ShouldBeTrue)
		want, _ := linear.Nearest(q)
		test.That(t, got, test.ShouldEqual, want)
	}
	test.That(t, tree.Len(), test.ShouldEqual, 400)
	test.That(t, linear.Len(), test.ShouldEqual, 400)
}

func TestNearestTieGoesToFirstInserted(t *testing.T) {
	for _, idx := range []NearestIndex{NewNodeIndex(), NewLinearIndex()} {
		idx.Insert(0, geometry.Pt(-1, 0))
		idx.Insert(1, geometry.Pt(1, 0))
		idx.Insert(2, geometry.Pt(0, 1))

		got, ok := idx.Nearest(geometry.Pt(0, 0))
		test.That(t, ok, test.ShouldBeTrue)
		test.That(t, got, test.ShouldEqual, 0)

		got, _ = idx.Nearest(geometry.Pt(0.9, 0.1))
		test.That(t, got, test.ShouldEqual, 1)
	}
}
