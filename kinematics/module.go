// Package kinematics converts between per module wheel states and whole body
// motion for a drive with independently steered modules at fixed offsets.
package kinematics

import (
	"github.com/swervelabs/planardrive/spatialmath"
)

// ModuleState is the commanded or measured drive speed and steering angle of
// one wheel module.
type ModuleState struct {
	Speed float64
	Angle spatialmath.Rotation
}

// ModulePosition is the positional analogue of ModuleState used by odometry:
// cumulative distance traveled by the wheel and its steering angle. Odometry
// integrates displacement, not rate.
type ModulePosition struct {
	Distance float64
	Angle    spatialmath.Rotation
}
