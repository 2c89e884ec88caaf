package wavefront

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"go.uber.org/zap/zaptest"
	"go.viam.com/test"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/obstaclemap"
	"path-planning-env/internal/planning"
)

var workspace = geometry.Bounds{Min: geometry.Pt(-10, -10), Max: geometry.Pt(10, 10)}

// Obstacle corners sit at quarter offsets so no lattice point at resolution 0.5
// lands on a boundary.
func box(x0, y0, x1, y1 float64) []geometry.Point {
	return []geometry.Point{geometry.Pt(x0, y0), geometry.Pt(x1, y0), geometry.Pt(x1, y1), geometry.Pt(x0, y1)}
}

func newMap(t *testing.T, start, end geometry.Point, obstacles ...[]geometry.Point) *obstaclemap.Map {
	t.Helper()
	m, err := obstaclemap.New(workspace, obstacles, start, end)
	test.That(t, err, test.ShouldBeNil)
	return m
}

func newPlanner(t *testing.T, m *obstaclemap.Map, resolution float64) *Planner {
	t.Helper()
	opts := DefaultOptions()
	opts.Resolution = resolution
	p, err := New(m, opts, zaptest.NewLogger(t).Sugar())
	test.That(t, err, test.ShouldBeNil)
	return p
}

func assertEightConnected(t *testing.T, g *Grid, path planning.Path) {
	t.Helper()
	for i := 1; i < len(path); i++ {
		a, b := g.PositionToCell(path[i-1]), g.PositionToCell(path[i])
		dc, dr := b.Col-a.Col, b.Row-a.Row
		test.That(t, dc >= -1 && dc <= 1 && dr >= -1 && dr <= 1, test.ShouldBeTrue)
		test.That(t, a, test.ShouldNotResemble, b)
	}
}

func TestGrid(t *testing.T) {
	m := newMap(t, geometry.Pt(-9, -9), geometry.Pt(9, 9), box(-3.25, -1.25, 3.25, 1.25))
	g, err := NewGrid(m, 0.5, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Cols(), test.ShouldEqual, 41)
	test.That(t, g.Rows(), test.ShouldEqual, 41)
	test.That(t, g.Origin(), test.ShouldResemble, geometry.Pt(-10, -10))
	test.That(t, g.Resolution(), test.ShouldEqual, 0.5)

	// 13 columns x in [-3, 3] by 5 rows y in [-1, 1]
	test.That(t, g.OccupiedCount(), test.ShouldEqual, 65)
	test.That(t, g.Occupied(g.PositionToCell(geometry.Pt(0, 0))), test.ShouldBeTrue)
	test.That(t, g.Occupied(g.PositionToCell(geometry.Pt(3.5, 0))), test.ShouldBeFalse)
	test.That(t, g.Occupied(Cell{Col: -1, Row: 0}), test.ShouldBeTrue)
	test.That(t, g.Occupied(Cell{Col: 41, Row: 0}), test.ShouldBeTrue)

	c := g.PositionToCell(geometry.Pt(-9, -9))
	test.That(t, c, test.ShouldResemble, Cell{Col: 2, Row: 2})
	test.That(t, g.CellToPosition(c), test.ShouldResemble, geometry.Pt(-9, -9))

	// rounding to the nearest lattice point
	test.That(t, g.PositionToCell(geometry.Pt(-8.8, -9.2)), test.ShouldResemble, Cell{Col: 2, Row: 2})
	test.That(t, g.PositionToCell(geometry.Pt(-8.7, -9.3)), test.ShouldResemble, Cell{Col: 3, Row: 1})

	for col := 0; col < g.Cols(); col += 7 {
		for row := 0; row < g.Rows(); row += 5 {
			cell := Cell{Col: col, Row: row}
			test.That(t, g.PositionToCell(g.CellToPosition(cell)), test.ShouldResemble, cell)
		}
	}
}

func TestGridTooLarge(t *testing.T) {
	m := newMap(t, geometry.Pt(-9, -9), geometry.Pt(9, 9))
	_, err := NewGrid(m, 0.01, 1000)
	test.That(t, errors.Is(err, ErrGridTooLarge), test.ShouldBeTrue)

	opts := Options{Resolution: 0.01, MaxCells: 1000}
	p, err := New(m, opts, nil)
	test.That(t, err, test.ShouldBeNil)
	_, err = p.Plan(context.Background())
	test.That(t, errors.Is(err, ErrGridTooLarge), test.ShouldBeTrue)
}

func TestPlanEmptyMap(t *testing.T) {
	m := newMap(t, geometry.Pt(-9, -9), geometry.Pt(9, 9))
	p := newPlanner(t, m, 0.5)

	path, err := p.Plan(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path, test.ShouldHaveLength, 37)
	test.That(t, path[0], test.ShouldResemble, geometry.Pt(-9, -9))
	test.That(t, path[len(path)-1], test.ShouldResemble, geometry.Pt(9, 9))

	start := p.Grid().PositionToCell(m.Start())
	test.That(t, p.Field().At(start), test.ShouldEqual, len(path)-1)
	assertEightConnected(t, p.Grid(), path)

	for i := 1; i < len(path); i++ {
		test.That(t, path[i].X, test.ShouldBeGreaterThan, path[i-1].X)
		test.That(t, path[i].Y, test.ShouldBeGreaterThan, path[i-1].Y)
	}
}

func TestPlanAroundObstacle(t *testing.T) {
	m := newMap(t, geometry.Pt(0, -9), geometry.Pt(0, 9), box(-5.25, -1.25, 5.25, 1.25))
	p := newPlanner(t, m, 0.5)

	res, err := p.Solve(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, planning.Found)
	test.That(t, planning.Validate(m, res.Path, 1e-9), test.ShouldBeNil)
	assertEightConnected(t, p.Grid(), res.Path)

	start := p.Grid().PositionToCell(m.Start())
	test.That(t, p.Field().At(start), test.ShouldEqual, len(res.Path)-1)

	obstacle := m.Obstacles()[0]
	for _, wp := range res.Path {
		test.That(t, geometry.PointInPolygon(wp, obstacle), test.ShouldBeFalse)
	}
	for _, s := range res.Path.Segments() {
		test.That(t, geometry.SegmentCrossesOrWithinPolygon(s.P1, s.P2, obstacle), test.ShouldBeFalse)
	}
}

// Obstacle edges on lattice lines: diagonal legs must not clip the corners.
func TestPlanAroundCorner(t *testing.T) {
	m := newMap(t, geometry.Pt(9, 0), geometry.Pt(0, 9), box(0.3, 0.3, 9.7, 9.7))
	for _, resolution := range []float64{1, 0.5, 0.1} {
		p := newPlanner(t, m, resolution)
		res, err := p.Solve(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Outcome, test.ShouldEqual, planning.Found)
		test.That(t, planning.Validate(m, res.Path, 1e-9), test.ShouldBeNil)
		assertEightConnected(t, p.Grid(), res.Path)
		test.That(t, p.Field().At(p.Grid().PositionToCell(m.Start())), test.ShouldEqual, len(res.Path)-1)
	}
}

func TestPassable(t *testing.T) {
	m := newMap(t, geometry.Pt(-9, -9), geometry.Pt(9, 9), box(0.5, 0.5, 1.5, 1.5))
	g, err := NewGrid(m, 1, 0)
	test.That(t, err, test.ShouldBeNil)

	blocked := g.PositionToCell(geometry.Pt(1, 1))
	test.That(t, g.Occupied(blocked), test.ShouldBeTrue)

	// (1,0) -> (0,1) cuts between (0,0) and the blocked (1,1)
	from := g.PositionToCell(geometry.Pt(1, 0))
	test.That(t, g.Passable(from, Cell{Col: -1, Row: 1}), test.ShouldBeFalse)
	test.That(t, g.Passable(from, Cell{Col: -1, Row: 0}), test.ShouldBeTrue)
	test.That(t, g.Passable(from, Cell{Col: 0, Row: 1}), test.ShouldBeFalse)

	// away from the obstacle every move is allowed
	free := g.PositionToCell(geometry.Pt(-5, -5))
	for _, off := range neighbors {
		test.That(t, g.Passable(free, off), test.ShouldBeTrue)
	}
}

func TestPlanIdempotent(t *testing.T) {
	m := newMap(t, geometry.Pt(0, -9), geometry.Pt(2.5, 9), box(-5.25, -1.25, 5.25, 1.25), box(2.25, 3.25, 8.75, 4.75))

	p := newPlanner(t, m, 0.5)
	first, err := p.Plan(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, first, test.ShouldNotBeNil)

	second, err := p.Plan(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, second, test.ShouldResemble, first)

	third, err := newPlanner(t, m, 0.5).Plan(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, third, test.ShouldResemble, first)
}

func TestPlanUnreachable(t *testing.T) {
	wall := box(-5.25, -1.25, 5.25, 1.25)
	for _, m := range []*obstaclemap.Map{
		newMap(t, geometry.Pt(0, 0), geometry.Pt(0, 9), wall),
		newMap(t, geometry.Pt(0, -9), geometry.Pt(1, 0.5), wall),
		newMap(t, geometry.Pt(0, -9), geometry.Pt(30, 0), wall),
	} {
		res, err := newPlanner(t, m, 0.5).Solve(context.Background())
		test.That(t, err, test.ShouldBeNil)
		test.That(t, res.Outcome, test.ShouldEqual, planning.Unreachable)
		test.That(t, res.Path, test.ShouldBeNil)
	}
}

func TestPlanEnclosedGoal(t *testing.T) {
	m := newMap(t, geometry.Pt(-9, -9), geometry.Pt(5, 5),
		box(3.25, 3.25, 6.75, 3.75),
		box(3.25, 6.25, 6.75, 6.75),
		box(3.25, 3.25, 3.75, 6.75),
		box(6.25, 3.25, 6.75, 6.75),
	)
	p := newPlanner(t, m, 0.5)

	res, err := p.Solve(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, res.Outcome, test.ShouldEqual, planning.Exhausted)
	test.That(t, res.Path, test.ShouldBeNil)
	test.That(t, p.Field().Labeled(p.Grid().PositionToCell(m.Start())), test.ShouldBeFalse)
	// goal plus the 5x5 pocket around it
	test.That(t, p.Field().Count(), test.ShouldEqual, 25)
}

func TestPlanSamePoint(t *testing.T) {
	m := newMap(t, geometry.Pt(2, 2), geometry.Pt(2, 2))
	p := newPlanner(t, m, 0.5)

	path, err := p.Plan(context.Background())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, path, test.ShouldResemble, planning.Path{geometry.Pt(2, 2)})
	test.That(t, p.Field().At(p.Grid().PositionToCell(geometry.Pt(2, 2))), test.ShouldEqual, 0)
}

func TestPlanCancelled(t *testing.T) {
	m := newMap(t, geometry.Pt(-9, -9), geometry.Pt(9, 9))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newPlanner(t, m, 0.5).Plan(ctx)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
}

func TestBacktraceDetectsInconsistency(t *testing.T) {
	g := &Grid{resolution: 1, cols: 3, rows: 3, occupied: make([]bool, 9)}
	field := newDistanceField(3, 3)
	field.set(Cell{Col: 0, Row: 0}, 0)
	field.set(Cell{Col: 2, Row: 2}, 4)
	field.set(Cell{Col: 1, Row: 2}, 5)

	cells, ok := backtrace(g, field, Cell{Col: 2, Row: 2}, Cell{Col: 0, Row: 0})
	test.That(t, ok, test.ShouldBeFalse)
	test.That(t, cells, test.ShouldResemble, []Cell{{Col: 2, Row: 2}})

	field.set(Cell{Col: 1, Row: 1}, 1)
	cells, ok = backtrace(g, field, Cell{Col: 2, Row: 2}, Cell{Col: 0, Row: 0})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, cells, test.ShouldResemble, []Cell{{Col: 2, Row: 2}, {Col: 1, Row: 1}, {Col: 0, Row: 0}})
}

func TestNewValidatesOptions(t *testing.T) {
	m := newMap(t, geometry.Pt(-9, -9), geometry.Pt(9, 9))
	_, err := New(m, Options{Resolution: 0}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New(m, Options{Resolution: 1, MaxCells: -1}, nil)
	test.That(t, err, test.ShouldNotBeNil)
	_, err = New(nil, DefaultOptions(), nil)
	test.That(t, err, test.ShouldNotBeNil)
}
