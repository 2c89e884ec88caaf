package mapfile

import (
	"math/rand"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/obstaclemap"
)

// DefaultMinRunDistance is the minimum start/end separation used by the editor.
const DefaultMinRunDistance = 10.0

// maxPairAttempts bounds the rejection sampling for a single pair.
const maxPairAttempts = 1000

// ErrNoValidPair is returned when no free start/end pair far enough apart was
// found within the attempt limit.
var ErrNoValidPair = errors.New("no valid start/end pair")

// RandomRuns samples n start/end pairs uniformly in m's workspace. Both points
// of a pair lie outside every obstacle and are more than minDist apart. Run IDs
// are drawn from rng as well, so a fixed seed reproduces the runs exactly.
func RandomRuns(rng *rand.Rand, m *obstaclemap.Map, n int, minDist float64) ([]Run, error) {
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	runs := make([]Run, 0, n)
	for len(runs) < n {
		start, end, err := randomPair(rng, m, minDist)
		if err != nil {
			return runs, errors.Wrapf(err, "pair %d", len(runs))
		}
		id, err := uuid.NewRandomFromReader(rng)
		if err != nil {
			return runs, errors.Wrap(err, "run id")
		}
		runs = append(runs, Run{ID: id.String(), Start: toOrb(start), End: toOrb(end)})
	}
	return runs, nil
}

func randomPair(rng *rand.Rand, m *obstaclemap.Map, minDist float64) (geometry.Point, geometry.Point, error) {
	for attempt := 0; attempt < maxPairAttempts; attempt++ {
		start := randomPoint(rng, m.Bounds())
		end := randomPoint(rng, m.Bounds())
		if m.Blocked(start) || m.Blocked(end) {
			continue
		}
		if start.Distance(end) > minDist {
			return start, end, nil
		}
	}
	return geometry.Point{}, geometry.Point{}, errors.Wrapf(ErrNoValidPair, "after %d attempts", maxPairAttempts)
}

func randomPoint(rng *rand.Rand, b geometry.Bounds) geometry.Point {
	return geometry.Point{
		X: b.Min.X + rng.Float64()*b.Width(),
		Y: b.Min.Y + rng.Float64()*b.Height(),
	}
}
