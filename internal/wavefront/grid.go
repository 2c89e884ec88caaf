package wavefront

import (
	"math"

	"github.com/pkg/errors"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/obstaclemap"
)

// ErrGridTooLarge is returned when the resolution would need more cells than allowed.
var ErrGridTooLarge = errors.New("occupancy grid too large")

// Cell is a column/row index into a grid.
type Cell struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// Add returns the cell offset by o.
func (c Cell) Add(o Cell) Cell {
	return Cell{Col: c.Col + o.Col, Row: c.Row + o.Row}
}

// neighbors lists the 8-connected offsets in the order the fill and the
// backtrace visit them: axis moves first, then diagonals.
var neighbors = [8]Cell{
	{1, 0}, {-1, 0}, {0, 1}, {0, -1},
	{1, 1}, {-1, 1}, {1, -1}, {-1, -1},
}

// Grid is a free/occupied rasterization of a map. Cell (c, r) samples the
// lattice point origin + (c, r)*resolution, where origin is the workspace's
// minimum corner.
type Grid struct {
	origin     geometry.Point
	resolution float64
	cols       int
	rows       int
	occupied   []bool
}

// NewGrid rasterizes m at the given resolution. A cell is occupied iff its
// lattice point lies strictly inside an obstacle.
func NewGrid(m *obstaclemap.Map, resolution float64, maxCells int) (*Grid, error) {
	if !(resolution > 0) {
		return nil, errors.Errorf("wavefront: resolution must be positive, got %v", resolution)
	}

	b := m.Bounds()
	cols := math.Round(b.Width()/resolution) + 1
	rows := math.Round(b.Height()/resolution) + 1
	if maxCells > 0 && cols*rows > float64(maxCells) {
		return nil, errors.Wrapf(ErrGridTooLarge, "%.0fx%.0f cells at resolution %v exceeds %d", cols, rows, resolution, maxCells)
	}

	g := &Grid{
		origin:     b.Min,
		resolution: resolution,
		cols:       int(cols),
		rows:       int(rows),
	}
	g.occupied = make([]bool, g.cols*g.rows)

	// Only lattice points inside a polygon's bounding box can be inside it.
	for _, polygon := range m.Obstacles() {
		pb := polygon.Bounds()
		c0 := max(0, int(math.Ceil((pb.Min.X-g.origin.X)/resolution)))
		c1 := min(g.cols-1, int(math.Floor((pb.Max.X-g.origin.X)/resolution)))
		r0 := max(0, int(math.Ceil((pb.Min.Y-g.origin.Y)/resolution)))
		r1 := min(g.rows-1, int(math.Floor((pb.Max.Y-g.origin.Y)/resolution)))

		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				i := g.offset(Cell{Col: c, Row: r})
				if g.occupied[i] {
					continue
				}
				if geometry.PointInPolygon(g.CellToPosition(Cell{Col: c, Row: r}), polygon) {
					g.occupied[i] = true
				}
			}
		}
	}

	return g, nil
}

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Resolution returns the cell size in workspace units.
func (g *Grid) Resolution() float64 { return g.resolution }

// Origin returns the position of cell (0, 0).
func (g *Grid) Origin() geometry.Point { return g.origin }

// InBounds reports whether c indexes a cell of the grid.
func (g *Grid) InBounds(c Cell) bool {
	return c.Col >= 0 && c.Col < g.cols && c.Row >= 0 && c.Row < g.rows
}

// Occupied reports whether c is blocked. Cells outside the grid are blocked.
func (g *Grid) Occupied(c Cell) bool {
	if !g.InBounds(c) {
		return true
	}
	return g.occupied[g.offset(c)]
}

// Passable reports whether a single move from c by off stays in free space. A
// diagonal move also needs both axis cells it cuts between to be free, so the
// leg never clips an obstacle corner.
func (g *Grid) Passable(c, off Cell) bool {
	if g.Occupied(c.Add(off)) {
		return false
	}
	if off.Col != 0 && off.Row != 0 {
		return !g.Occupied(c.Add(Cell{Col: off.Col})) && !g.Occupied(c.Add(Cell{Row: off.Row}))
	}
	return true
}

// OccupiedCount returns the number of occupied cells.
func (g *Grid) OccupiedCount() int {
	n := 0
	for _, o := range g.occupied {
		if o {
			n++
		}
	}
	return n
}

// PositionToCell rounds p to the nearest lattice index. The result may lie
// outside the grid.
func (g *Grid) PositionToCell(p geometry.Point) Cell {
	return Cell{
		Col: int(math.Round((p.X - g.origin.X) / g.resolution)),
		Row: int(math.Round((p.Y - g.origin.Y) / g.resolution)),
	}
}

// CellToPosition returns the lattice point sampled by c.
func (g *Grid) CellToPosition(c Cell) geometry.Point {
	return geometry.Point{
		X: g.origin.X + float64(c.Col)*g.resolution,
		Y: g.origin.Y + float64(c.Row)*g.resolution,
	}
}

func (g *Grid) offset(c Cell) int {
	return c.Row*g.cols + c.Col
}
