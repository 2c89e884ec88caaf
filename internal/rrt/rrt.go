// Package rrt implements a Rapidly-exploring Random Tree planner over an
// obstacle map. The agent is a point with straight-line steering.
package rrt

import (
	"context"
	"math/rand"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/obstaclemap"
	"path-planning-env/internal/planning"
	"path-planning-env/internal/spatial"
)

const (
	defaultStepSize = 0.5
	// Number of planner iterations before giving up.
	defaultMaxIterations = 1000
)

// noParent marks the root in the parent table.
const noParent = -1

// Options configures the planner.
type Options struct {
	StepSize      float64 `json:"step_size"`
	MaxIterations int     `json:"max_iterations"`
	// GoalThreshold is how close a new node must be to the end before a direct
	// connection is tried. Zero means StepSize.
	GoalThreshold float64 `json:"goal_threshold,omitempty"`
	// LinearNearest swaps the R-tree for a brute-force nearest-neighbour scan.
	LinearNearest bool `json:"linear_nearest,omitempty"`
}

// DefaultOptions returns a step of 0.5 and 1000 iterations.
func DefaultOptions() Options {
	return Options{
		StepSize:      defaultStepSize,
		MaxIterations: defaultMaxIterations,
	}
}

// Planner grows a tree from the map start toward the map end. A Planner owns
// its tree and random source and must not be shared between goroutines; the
// map may be.
type Planner struct {
	m      *obstaclemap.Map
	opts   Options
	rng    *rand.Rand
	logger *zap.SugaredLogger

	tree   []geometry.Point
	parent []int
	index  spatial.NearestIndex
}

// New creates a planner. rng drives all sampling; the same seed gives the same path.
func New(m *obstaclemap.Map, opts Options, rng *rand.Rand, logger *zap.SugaredLogger) (*Planner, error) {
	if m == nil {
		return nil, errors.New("rrt: map is required")
	}
	if rng == nil {
		return nil, errors.New("rrt: random source is required")
	}
	if !(opts.StepSize > 0) {
		return nil, errors.Errorf("rrt: step size must be positive, got %v", opts.StepSize)
	}
	if opts.MaxIterations <= 0 {
		return nil, errors.Errorf("rrt: max iterations must be positive, got %d", opts.MaxIterations)
	}
	if opts.GoalThreshold < 0 {
		return nil, errors.Errorf("rrt: goal threshold must not be negative, got %v", opts.GoalThreshold)
	}
	if opts.GoalThreshold == 0 {
		opts.GoalThreshold = opts.StepSize
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Planner{m: m, opts: opts, rng: rng, logger: logger}, nil
}

// Plan returns the path from start to end, or nil if none was found.
func (p *Planner) Plan(ctx context.Context) (planning.Path, error) {
	res, err := p.Solve(ctx)
	if err != nil {
		return nil, err
	}
	return res.Path, nil
}

// Solve runs the search and reports how it ended. Each call starts a fresh tree.
func (p *Planner) Solve(ctx context.Context) (planning.Result, error) {
	started := time.Now()
	start, end := p.m.Start(), p.m.End()
	p.reset(start)

	if !p.m.EndpointsFree() {
		p.logger.Debugw("start or end inside an obstacle", "start", start, "end", end)
		return planning.Result{Outcome: planning.Unreachable, Elapsed: time.Since(started)}, nil
	}
	if start == end {
		return planning.Result{Path: planning.Path{start}, Outcome: planning.Found, Elapsed: time.Since(started)}, nil
	}
	if p.reachesGoal(0) {
		return p.found(p.insert(end, 0), 0, started), nil
	}

	for i := 1; i <= p.opts.MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return planning.Result{}, errors.Wrapf(err, "rrt stopped after %d iterations", i-1)
		}

		sample := p.sample()
		near, _ := p.index.Nearest(sample)
		from := p.tree[near]

		direction := sample.Sub(from)
		dist := direction.Norm()
		if dist <= geometry.Epsilon {
			// sample sits on an existing node: no direction to steer in
			continue
		}
		candidate := from.Add(direction.Scale(p.opts.StepSize / dist))

		if p.m.SegmentBlocked(from, candidate) {
			continue
		}

		idx := p.insert(candidate, near)
		if p.reachesGoal(idx) {
			return p.found(p.insert(end, idx), i, started), nil
		}
	}

	p.logger.Debugw("rrt exhausted", "iterations", p.opts.MaxIterations, "nodes", len(p.tree))
	return planning.Result{
		Outcome:    planning.Exhausted,
		Iterations: p.opts.MaxIterations,
		Elapsed:    time.Since(started),
	}, nil
}

// Tree returns a copy of the nodes grown by the last Solve, root first.
func (p *Planner) Tree() []geometry.Point {
	out := make([]geometry.Point, len(p.tree))
	copy(out, p.tree)
	return out
}

// Edges returns the tree grown by the last Solve as parent-to-child segments.
func (p *Planner) Edges() []geometry.Segment {
	edges := make([]geometry.Segment, 0, len(p.tree))
	for child, parent := range p.parent {
		if parent == noParent {
			continue
		}
		edges = append(edges, geometry.Segment{P1: p.tree[parent], P2: p.tree[child]})
	}
	return edges
}

func (p *Planner) reset(root geometry.Point) {
	p.tree = p.tree[:0]
	p.parent = p.parent[:0]
	if p.opts.LinearNearest {
		p.index = spatial.NewLinearIndex()
	} else {
		p.index = spatial.NewNodeIndex()
	}
	p.insert(root, noParent)
}

func (p *Planner) insert(pt geometry.Point, parent int) int {
	idx := len(p.tree)
	p.tree = append(p.tree, pt)
	p.parent = append(p.parent, parent)
	p.index.Insert(idx, pt)
	return idx
}

// sample draws a uniform point inside the workspace.
func (p *Planner) sample() geometry.Point {
	b := p.m.Bounds()
	x := b.Min.X + p.rng.Float64()*b.Width()
	y := b.Min.Y + p.rng.Float64()*b.Height()
	return geometry.Pt(x, y)
}

func (p *Planner) reachesGoal(idx int) bool {
	node, end := p.tree[idx], p.m.End()
	return node.Distance(end) < p.opts.GoalThreshold && !p.m.SegmentBlocked(node, end)
}

func (p *Planner) found(goal, iterations int, started time.Time) planning.Result {
	path := p.extractPath(goal)
	p.logger.Debugw("rrt found path",
		"iterations", iterations,
		"nodes", len(p.tree),
		"waypoints", len(path),
		"length", path.Length(),
	)
	return planning.Result{
		Path:       path,
		Outcome:    planning.Found,
		Iterations: iterations,
		Elapsed:    time.Since(started),
	}
}

// extractPath follows parent links from idx to the root and reverses them.
func (p *Planner) extractPath(idx int) planning.Path {
	var path planning.Path
	for idx != noParent {
		path = append(path, p.tree[idx])
		idx = p.parent[idx]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
