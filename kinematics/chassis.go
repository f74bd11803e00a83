package kinematics

import (
	"github.com/swervelabs/planardrive/spatialmath"
)

// ChassisSpeeds is the whole body velocity: linear x and y rates in the robot
// frame plus the angular rate.
type ChassisSpeeds struct {
	VX    float64
	VY    float64
	Omega float64
}

// FromFieldRelative converts speeds commanded in the field frame into the
// robot frame given the robot's current heading.
func FromFieldRelative(speeds ChassisSpeeds, heading spatialmath.Rotation) ChassisSpeeds {
	rotated := spatialmath.NewTranslation(speeds.VX, speeds.VY).RotateBy(heading.Inverse())
	return ChassisSpeeds{rotated.X, rotated.Y, speeds.Omega}
}

// Discretize compensates for the curvature swept while a velocity is held
// constant over a control period. It returns the adjusted speeds whose exact
// arc integration over dt lands on the pose that naive straight line
// application of the original speeds would reach.
func Discretize(speeds ChassisSpeeds, dt float64) ChassisSpeeds {
	desired := spatialmath.NewPose(
		spatialmath.NewTranslation(speeds.VX*dt, speeds.VY*dt),
		spatialmath.NewRotation(speeds.Omega*dt),
	)
	twist := spatialmath.NewZeroPose().Log(desired)
	return ChassisSpeeds{twist.Dx / dt, twist.Dy / dt, twist.Dtheta / dt}
}
