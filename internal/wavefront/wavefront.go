// Package wavefront implements a grid planner: it rasterizes the obstacle map,
// flood-fills hop counts outward from the goal cell and descends them from the
// start cell.
package wavefront

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"path-planning-env/internal/obstaclemap"
	"path-planning-env/internal/planning"
)

const (
	defaultResolution = 0.1
	defaultMaxCells   = 4_000_000
)

// Options configures the planner.
type Options struct {
	// Resolution is the cell size in workspace units.
	Resolution float64 `json:"resolution"`
	// MaxCells caps the grid size; zero disables the cap.
	MaxCells int `json:"max_cells"`
}

// DefaultOptions returns a 0.1 resolution with a four million cell ceiling.
func DefaultOptions() Options {
	return Options{Resolution: defaultResolution, MaxCells: defaultMaxCells}
}

// Planner plans over a fresh grid on every call. It holds no randomness, so
// the same map always yields the same path.
type Planner struct {
	m      *obstaclemap.Map
	opts   Options
	logger *zap.SugaredLogger

	grid  *Grid
	field *DistanceField
}

// New creates a planner.
func New(m *obstaclemap.Map, opts Options, logger *zap.SugaredLogger) (*Planner, error) {
	if m == nil {
		return nil, errors.New("wavefront: map is required")
	}
	if !(opts.Resolution > 0) {
		return nil, errors.Errorf("wavefront: resolution must be positive, got %v", opts.Resolution)
	}
	if opts.MaxCells < 0 {
		return nil, errors.Errorf("wavefront: max cells must not be negative, got %d", opts.MaxCells)
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Planner{m: m, opts: opts, logger: logger}, nil
}

// Plan returns the path from the start cell to the end cell, or nil if none exists.
func (p *Planner) Plan(ctx context.Context) (planning.Path, error) {
	res, err := p.Solve(ctx)
	if err != nil {
		return nil, err
	}
	return res.Path, nil
}

// Solve runs the fill and backtrace and reports how planning ended.
func (p *Planner) Solve(ctx context.Context) (planning.Result, error) {
	started := time.Now()
	p.grid, p.field = nil, nil

	grid, err := NewGrid(p.m, p.opts.Resolution, p.opts.MaxCells)
	if err != nil {
		return planning.Result{}, err
	}
	p.grid = grid

	start := grid.PositionToCell(p.m.Start())
	goal := grid.PositionToCell(p.m.End())
	if grid.Occupied(start) || grid.Occupied(goal) {
		p.logger.Debugw("start or end cell blocked", "start", start, "goal", goal)
		return planning.Result{Outcome: planning.Unreachable, Elapsed: time.Since(started)}, nil
	}

	field, reached, err := flood(ctx, grid, goal, start)
	p.field = field
	if err != nil {
		return planning.Result{}, errors.Wrap(err, "wavefront fill stopped")
	}
	if !reached {
		p.logger.Debugw("wavefront exhausted", "labelled", field.Count(), "cells", grid.cols*grid.rows)
		return planning.Result{
			Outcome:    planning.Exhausted,
			Iterations: field.Count(),
			Elapsed:    time.Since(started),
		}, nil
	}

	cells, ok := backtrace(grid, field, start, goal)
	if !ok {
		last := cells[len(cells)-1]
		return planning.Result{}, errors.Wrapf(planning.ErrInternalInconsistency,
			"no descending neighbour at cell %v (distance %d)", last, field.At(last))
	}

	path := make(planning.Path, len(cells))
	for i, c := range cells {
		path[i] = grid.CellToPosition(c)
	}

	p.logger.Debugw("wavefront found path",
		"grid", []int{grid.cols, grid.rows},
		"occupied", grid.OccupiedCount(),
		"hops", field.At(start),
		"length", path.Length(),
	)
	return planning.Result{
		Path:       path,
		Outcome:    planning.Found,
		Iterations: field.Count(),
		Elapsed:    time.Since(started),
	}, nil
}

// Grid returns the occupancy grid built by the last Solve.
func (p *Planner) Grid() *Grid {
	return p.grid
}

// Field returns the distance field built by the last Solve.
func (p *Planner) Field() *DistanceField {
	return p.field
}
