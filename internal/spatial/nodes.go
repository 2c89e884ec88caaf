package spatial

import (
	"math"

	"github.com/dhconnelly/rtreego"

	"path-planning-env/internal/geometry"
)

// nodeTolerance is the half-width of the box stored for each node point.
const nodeTolerance = 1e-6

// NearestIndex is an append-only set of numbered points supporting exact
// nearest-neighbour queries. Ties go to the lowest id.
type NearestIndex interface {
	Insert(id int, p geometry.Point)
	Nearest(p geometry.Point) (int, bool)
	Len() int
}

type nodeEntry struct {
	id    int
	point geometry.Point
	bbox  rtreego.Rect
}

// Bounds implements rtreego.Spatial interface
func (e *nodeEntry) Bounds() rtreego.Rect {
	return e.bbox
}

// NodeIndex is an R-tree over tree nodes, updated incrementally on insert.
type NodeIndex struct {
	tree *rtreego.Rtree
	size int
}

// NewNodeIndex creates an empty node index.
func NewNodeIndex() *NodeIndex {
	return &NodeIndex{tree: rtreego.NewTree(2, 25, 50)}
}

// Insert adds point p under id.
func (ni *NodeIndex) Insert(id int, p geometry.Point) {
	ni.tree.Insert(&nodeEntry{
		id:    id,
		point: p,
		bbox:  rtreego.Point{p.X, p.Y}.ToRect(nodeTolerance),
	})
	ni.size++
}

// Len returns the number of indexed nodes.
func (ni *NodeIndex) Len() int {
	return ni.size
}

// Nearest returns the id of the node closest to p.
func (ni *NodeIndex) Nearest(p geometry.Point) (int, bool) {
	if ni.size == 0 {
		return -1, false
	}

	seed := ni.tree.NearestNeighbor(rtreego.Point{p.X, p.Y}).(*nodeEntry)
	radius := seed.point.Distance(p) + 2*nodeTolerance

	// The R-tree ranks by box distance, which can reorder near ties. Every node
	// within radius is a candidate; settle them on exact point distance.
	box, err := rtreego.NewRect(
		rtreego.Point{p.X - radius, p.Y - radius},
		[]float64{2 * radius, 2 * radius},
	)
	if err != nil {
		return seed.id, true
	}

	best := seed.id
	bestDist := math.Inf(1)
	for _, item := range ni.tree.SearchIntersect(box) {
		e := item.(*nodeEntry)
		d := e.point.Distance(p)
		if d < bestDist || (d == bestDist && e.id < best) {
			best, bestDist = e.id, d
		}
	}
	return best, true
}

// LinearIndex finds the nearest node by scanning every point. It is the
// reference implementation for NodeIndex and fine for small trees.
type LinearIndex struct {
	points []geometry.Point
	ids    []int
}

// NewLinearIndex creates an empty linear index.
func NewLinearIndex() *LinearIndex {
	return &LinearIndex{}
}

// Insert adds point p under id.
func (li *LinearIndex) Insert(id int, p geometry.Point) {
	li.points = append(li.points, p)
	li.ids = append(li.ids, id)
}

// Len returns the number of indexed nodes.
func (li *LinearIndex) Len() int {
	return len(li.points)
}

// Nearest finds the closest node to a given point
func (li *LinearIndex) Nearest(p geometry.Point) (int, bool) {
	if len(li.points) == 0 {
		return -1, false
	}

	nearest := 0
	minDist := p.Distance(li.points[0])
	for i := 1; i < len(li.points); i++ {
		dist := p.Distance(li.points[i])
		if dist < minDist || (dist == minDist && li.ids[i] < li.ids[nearest]) {
			minDist = dist
			nearest = i
		}
	}
	return li.ids[nearest], true
}
