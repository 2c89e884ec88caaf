package wavefront

import "context"

// Unvisited is the distance reported for cells the fill never labelled.
const Unvisited = -1

// ctxCheckInterval is how many dequeues pass between cancellation checks.
const ctxCheckInterval = 1024

// DistanceField holds hop counts from the goal cell, one per grid cell.
type DistanceField struct {
	cols int
	rows int
	dist []int
}

func newDistanceField(cols, rows int) *DistanceField {
	dist := make([]int, cols*rows)
	for i := range dist {
		dist[i] = Unvisited
	}
	return &DistanceField{cols: cols, rows: rows, dist: dist}
}

// At returns the hop count of c, or Unvisited.
func (f *DistanceField) At(c Cell) int {
	if c.Col < 0 || c.Col >= f.cols || c.Row < 0 || c.Row >= f.rows {
		return Unvisited
	}
	return f.dist[c.Row*f.cols+c.Col]
}

// Labeled reports whether the fill reached c.
func (f *DistanceField) Labeled(c Cell) bool {
	return f.At(c) != Unvisited
}

// Count returns the number of labelled cells.
func (f *DistanceField) Count() int {
	n := 0
	for _, d := range f.dist {
		if d != Unvisited {
			n++
		}
	}
	return n
}

func (f *DistanceField) set(c Cell, d int) {
	f.dist[c.Row*f.cols+c.Col] = d
}

// flood runs a breadth-first fill outward from goal over free cells and stops
// as soon as start is labelled. It reports whether start was reached.
func flood(ctx context.Context, g *Grid, goal, start Cell) (*DistanceField, bool, error) {
	field := newDistanceField(g.cols, g.rows)
	field.set(goal, 0)
	if goal == start {
		return field, true, nil
	}

	queue := []Cell{goal}
	for head := 0; head < len(queue); head++ {
		if head%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return field, false, err
			}
		}

		cur := queue[head]
		next := field.At(cur) + 1
		for _, off := range neighbors {
			n := cur.Add(off)
			if field.Labeled(n) || !g.Passable(cur, off) {
				continue
			}
			field.set(n, next)
			if n == start {
				return field, true, nil
			}
			queue = append(queue, n)
		}
	}
	return field, false, nil
}

// backtrace walks from start to goal, always stepping to the neighbour with the
// strictly smallest distance over the moves the fill allows. Ties go to the
// first neighbour in visiting order.
func backtrace(g *Grid, field *DistanceField, start, goal Cell) ([]Cell, bool) {
	cells := []Cell{start}
	cur := start
	for cur != goal {
		best, bestDist := cur, field.At(cur)
		for _, off := range neighbors {
			n := cur.Add(off)
			if d := field.At(n); d != Unvisited && d < bestDist && g.Passable(cur, off) {
				best, bestDist = n, d
			}
		}
		if best == cur {
			return cells, false
		}
		cur = best
		cells = append(cells, cur)
	}
	return cells, true
}
