// Package planning defines what every planner returns: an ordered path of
// waypoints, or no path at all.
package planning

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/obstaclemap"
)

// ErrInternalInconsistency marks a planner bug, as opposed to a problem with no
// solution. Tests watch for it.
var ErrInternalInconsistency = errors.New("internal inconsistency")

// Path is an ordered sequence of waypoints from start to end, both inclusive.
type Path []geometry.Point

// Length returns the summed length of the path legs.
func (p Path) Length() float64 {
	var total float64
	for i := 1; i < len(p); i++ {
		total += p[i-1].Distance(p[i])
	}
	return total
}

// Segments returns the path legs.
func (p Path) Segments() []geometry.Segment {
	if len(p) < 2 {
		return nil
	}
	out := make([]geometry.Segment, 0, len(p)-1)
	for i := 1; i < len(p); i++ {
		out = append(out, geometry.Segment{P1: p[i-1], P2: p[i]})
	}
	return out
}

// Outcome says how a planning call ended.
type Outcome int

const (
	// Found means a path was produced.
	Found Outcome = iota
	// Unreachable means the start or end lies inside an obstacle.
	Unreachable
	// Exhausted means the search ran out of iterations or cells.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Found:
		return "found"
	case Unreachable:
		return "unreachable"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// Result is the detailed answer of a planning call.
type Result struct {
	Path       Path
	Outcome    Outcome
	Iterations int
	Elapsed    time.Duration
}

// Planner is the narrow interface external tooling plans through. A nil path
// with a nil error means no path exists; errors are reserved for cancellation
// and planner faults.
type Planner interface {
	Plan(ctx context.Context) (Path, error)
}

// Solver is a Planner that also reports why it failed.
type Solver interface {
	Planner
	Solve(ctx context.Context) (Result, error)
}

// Validate checks that path starts at the map start, ends at the map end (within
// tol), keeps every waypoint outside the obstacles and that no leg passes
// through an obstacle.
func Validate(m *obstaclemap.Map, path Path, tol float64) error {
	if len(path) == 0 {
		return errors.New("empty path")
	}
	if !path[0].ApproxEqual(m.Start(), tol) {
		return errors.Errorf("path starts at %v, want %v", path[0], m.Start())
	}
	if last := path[len(path)-1]; !last.ApproxEqual(m.End(), tol) {
		return errors.Errorf("path ends at %v, want %v", last, m.End())
	}
	for i, p := range path {
		if m.Blocked(p) {
			return errors.Errorf("waypoint %d %v is inside an obstacle", i, p)
		}
	}
	for i, s := range path.Segments() {
		if m.SegmentBlocked(s.P1, s.P2) {
			return errors.Errorf("leg %d %v -> %v crosses an obstacle", i, s.P1, s.P2)
		}
	}
	return nil
}
