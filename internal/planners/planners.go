// Package planners builds a planner by name, so the binaries and the batch
// runner can switch algorithms from configuration.
package planners

import (
	"math/rand"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"path-planning-env/internal/obstaclemap"
	"path-planning-env/internal/planning"
	"path-planning-env/internal/rrt"
	"path-planning-env/internal/wavefront"
)

// Algorithm names.
const (
	RRT       = "rrt"
	Wavefront = "wavefront"
)

// ErrUnknownAlgorithm is returned for a name that is not RRT or Wavefront.
var ErrUnknownAlgorithm = errors.New("unknown planning algorithm")

// Settings carries the options for every algorithm; New uses the relevant part.
type Settings struct {
	RRT       rrt.Options
	Wavefront wavefront.Options
	// Seed seeds the RRT random source.
	Seed int64
}

// DefaultSettings returns each planner's defaults with seed 1.
func DefaultSettings() Settings {
	return Settings{
		RRT:       rrt.DefaultOptions(),
		Wavefront: wavefront.DefaultOptions(),
		Seed:      1,
	}
}

// Names lists the known algorithms.
func Names() []string {
	return []string{RRT, Wavefront}
}

// New builds the named planner over m. Every call gets its own planner state,
// including a fresh random source for RRT.
func New(algorithm string, m *obstaclemap.Map, s Settings, logger *zap.SugaredLogger) (planning.Solver, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	switch strings.ToLower(strings.TrimSpace(algorithm)) {
	case RRT:
		p, err := rrt.New(m, s.RRT, rand.New(rand.NewSource(s.Seed)), logger.Named(RRT))
		if err != nil {
			return nil, err
		}
		return p, nil
	case Wavefront:
		p, err := wavefront.New(m, s.Wavefront, logger.Named(Wavefront))
		if err != nil {
			return nil, err
		}
		return p, nil
	default:
		return nil, errors.Wrapf(ErrUnknownAlgorithm, "%q (want one of %s)", algorithm, strings.Join(Names(), ", "))
	}
}
