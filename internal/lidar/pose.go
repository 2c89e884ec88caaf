package lidar

import (
	"math"

	"path-planning-env/internal/geometry"
)

// Pose is a position plus a heading in radians, measured counter-clockwise
// from the +x axis.
type Pose struct {
	X   float64 `json:"x"`
	Y   float64 `json:"y"`
	Yaw float64 `json:"yaw"`
}

// PoseAt returns a pose at p facing yaw.
func PoseAt(p geometry.Point, yaw float64) Pose {
	return Pose{X: p.X, Y: p.Y, Yaw: yaw}
}

// Position returns the pose's location.
func (p Pose) Position() geometry.Point {
	return geometry.Point{X: p.X, Y: p.Y}
}

// Advance moves d units along the heading.
func (p Pose) Advance(d float64) Pose {
	sin, cos := math.Sincos(p.Yaw)
	return Pose{X: p.X + d*cos, Y: p.Y + d*sin, Yaw: p.Yaw}
}

// Turn rotates the heading by delta and wraps it into [-pi, pi].
func (p Pose) Turn(delta float64) Pose {
	p.Yaw = normalizeAngle(p.Yaw + delta)
	return p
}

// Toward returns the pose rotated to face target. The heading is unchanged if
// target is the current position.
func (p Pose) Toward(target geometry.Point) Pose {
	d := target.Sub(p.Position())
	if d.Norm() <= geometry.Epsilon {
		return p
	}
	p.Yaw = math.Atan2(d.Y, d.X)
	return p
}

func normalizeAngle(a float64) float64 {
	return math.Remainder(a, 2*math.Pi)
}
