// Package lidar simulates a planar range finder: a fan of rays cast from a pose
// against the obstacle polygons of a map.
package lidar

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"

	"path-planning-env/internal/geometry"
	"path-planning-env/internal/obstaclemap"
)

const (
	defaultNumRays  = 16
	defaultMaxRange = 10.0
	defaultFOV      = 2 * math.Pi
)

// Options configures the ray fan.
type Options struct {
	NumRays  int     `json:"num_rays"`
	MaxRange float64 `json:"max_range"`
	// FOV is the field of view in radians. Rays are spread evenly over
	// [yaw-FOV/2, yaw+FOV/2], both ends included.
	FOV float64 `json:"fov"`
}

// DefaultOptions returns 16 rays with a range of 10 over a full circle.
func DefaultOptions() Options {
	return Options{NumRays: defaultNumRays, MaxRange: defaultMaxRange, FOV: defaultFOV}
}

// Reading is the nearest hit along one ray.
type Reading struct {
	Angle    float64        `json:"angle"`
	Distance float64        `json:"distance"`
	Point    geometry.Point `json:"point"`
}

// Sensor casts rays against a map. It holds no per-scan state and is safe for
// concurrent use.
type Sensor struct {
	m    *obstaclemap.Map
	opts Options
}

// New creates a sensor over m.
func New(m *obstaclemap.Map, opts Options) (*Sensor, error) {
	if m == nil {
		return nil, errors.New("lidar: map is required")
	}
	if opts.NumRays <= 0 {
		return nil, errors.Errorf("lidar: ray count must be positive, got %d", opts.NumRays)
	}
	if !(opts.MaxRange > 0) {
		return nil, errors.Errorf("lidar: max range must be positive, got %v", opts.MaxRange)
	}
	if opts.FOV < 0 || opts.FOV > 2*math.Pi {
		return nil, errors.Errorf("lidar: field of view must be within [0, 2pi], got %v", opts.FOV)
	}
	return &Sensor{m: m, opts: opts}, nil
}

// Options returns the sensor configuration.
func (s *Sensor) Options() Options {
	return s.opts
}

// Angles returns the absolute ray angles for a pose heading yaw.
func (s *Sensor) Angles(yaw float64) []float64 {
	if s.opts.NumRays == 1 {
		return []float64{yaw}
	}
	angles := floats.Span(make([]float64, s.opts.NumRays), yaw-s.opts.FOV/2, yaw+s.opts.FOV/2)
	return angles
}

// Scan casts every ray from pose and returns the hits in ray order. Rays that
// reach MaxRange without hitting anything are left out. A pose inside an
// obstacle yields no readings.
func (s *Sensor) Scan(pose Pose) []Reading {
	origin := pose.Position()
	if s.m.Blocked(origin) {
		return nil
	}

	candidates := s.m.Candidates(geometry.BoundsOf(origin).Expand(s.opts.MaxRange))
	var readings []Reading
	for _, angle := range s.Angles(pose.Yaw) {
		if r, ok := s.cast(origin, angle, candidates); ok {
			readings = append(readings, r)
		}
	}
	return readings
}

// Ranges returns one distance per ray, with MaxRange for rays that hit nothing.
// A pose inside an obstacle reports zero on every ray.
func (s *Sensor) Ranges(pose Pose) []float64 {
	out := make([]float64, s.opts.NumRays)
	origin := pose.Position()
	if s.m.Blocked(origin) {
		return out
	}

	candidates := s.m.Candidates(geometry.BoundsOf(origin).Expand(s.opts.MaxRange))
	for i, angle := range s.Angles(pose.Yaw) {
		out[i] = s.opts.MaxRange
		if r, ok := s.cast(origin, angle, candidates); ok {
			out[i] = r.Distance
		}
	}
	return out
}

func (s *Sensor) cast(origin geometry.Point, angle float64, candidates []geometry.Polygon) (Reading, bool) {
	sin, cos := math.Sincos(angle)
	end := geometry.Point{X: origin.X + s.opts.MaxRange*cos, Y: origin.Y + s.opts.MaxRange*sin}

	best := Reading{Angle: angle, Distance: math.Inf(1)}
	for _, polygon := range candidates {
		// intersections come back ordered by distance from origin
		hits := geometry.SegmentPolygonIntersections(origin, end, polygon)
		if len(hits) == 0 {
			continue
		}
		if d := origin.Distance(hits[0]); d < best.Distance {
			best.Distance = d
			best.Point = hits[0]
		}
	}
	if math.IsInf(best.Distance, 1) {
		return Reading{}, false
	}
	return best, true
}
