// Package spatial wraps rtreego for the two spatial queries the planners run
// repeatedly: which obstacles can touch a region, and which tree node is nearest
// to a sample.
package spatial

import (
	"sort"

	"github.com/dhconnelly/rtreego"

	"path-planning-env/internal/geometry"
)

// rtreego treats touching rectangles as disjoint and rejects zero-length sides,
// so every rectangle handed to it is grown by this much.
const boundsPad = 1e-7

// obstacleEntry wraps a polygon's bounding box for R-tree storage
type obstacleEntry struct {
	id   int
	bbox rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *obstacleEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// ObstacleIndex answers "which polygons may touch this box" queries. It is
// read-only after construction and safe for concurrent queries.
type ObstacleIndex struct {
	tree *rtreego.Rtree
	all  []int
}

// NewObstacleIndex indexes polygons by their position in the slice.
func NewObstacleIndex(polygons []geometry.Polygon) *ObstacleIndex {
	tree := rtreego.NewTree(2, 25, 50) // 2D, min 25, max 50 entries per node
	all := make([]int, 0, len(polygons))

	for id, polygon := range polygons {
		all = append(all, id)
		bbox, err := toRect(polygon.Bounds())
		if err != nil {
			continue
		}
		tree.Insert(&obstacleEntry{id: id, bbox: bbox})
	}

	return &ObstacleIndex{tree: tree, all: all}
}

// Len returns the number of indexed polygons.
func (si *ObstacleIndex) Len() int {
	return len(si.all)
}

// Query returns, in ascending order, the ids of polygons whose bounding box
// meets b. The result is a superset of the polygons that geometrically touch b.
func (si *ObstacleIndex) Query(b geometry.Bounds) []int {
	bbox, err := toRect(b)
	if err != nil {
		// Non-finite query box: fall back to every polygon.
		out := make([]int, len(si.all))
		copy(out, si.all)
		return out
	}

	results := si.tree.SearchIntersect(bbox)
	ids := make([]int, 0, len(results))
	for _, item := range results {
		ids = append(ids, item.(*obstacleEntry).id)
	}
	sort.Ints(ids)
	return ids
}

// toRect converts b into a padded rtreego rectangle.
func toRect(b geometry.Bounds) (rtreego.Rect, error) {
	b = b.Expand(boundsPad)
	return rtreego.NewRect(
		rtreego.Point{b.Min.X, b.Min.Y},
		[]float64{b.Width(), b.Height()},
	)
}
