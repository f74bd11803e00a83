// Package odometry accumulates a planar pose from successive wheel module
// positions and gyro headings.
package odometry

import (
	"github.com/pkg/errors"

	"github.com/swervelabs/planardrive/kinematics"
	"github.com/swervelabs/planardrive/spatialmath"
)

// Integrator tracks the pose implied by relative wheel and gyro motion. Each
// update converts per module distance deltas into a body frame twist, swaps
// the wheel derived rotation for the gyro delta (wheel slip corrupts
// rotational odometry far more than translational), and integrates the twist
// along its exact constant curvature arc.
type Integrator struct {
	model             *kinematics.Model
	pose              spatialmath.Pose
	gyroOffset        spatialmath.Rotation
	previousAngle     spatialmath.Rotation
	previousPositions []kinematics.ModulePosition
}

// New returns an integrator seeded at the given pose. The gyro reading and
// module positions taken at the same instant establish the reference the
// following updates are measured against.
func New(
	model *kinematics.Model,
	gyro spatialmath.Rotation,
	initial spatialmath.Pose,
	positions []kinematics.ModulePosition,
) (*Integrator, error) {
	if len(positions) != model.NumModules() {
		return nil, errors.Errorf("expected %d module positions but got %d", model.NumModules(), len(positions))
	}
	odo := &Integrator{
		model:             model,
		previousPositions: make([]kinematics.ModulePosition, len(positions)),
	}
	odo.seed(initial, gyro, positions)
	return odo, nil
}

// Pose returns the accumulated pose.
func (odo *Integrator) Pose() spatialmath.Pose {
	return odo.pose
}

// ResetPosition reseeds the accumulated pose, atomically replacing all
// integration state. The gyro does not need to be rezeroed by the caller; the
// integrator maintains its own offset.
func (odo *Integrator) ResetPosition(
	pose spatialmath.Pose,
	gyro spatialmath.Rotation,
	positions []kinematics.ModulePosition,
) error {
	if len(positions) != odo.model.NumModules() {
		return errors.Errorf("expected %d module positions but got %d", odo.model.NumModules(), len(positions))
	}
	odo.seed(pose, gyro, positions)
	return nil
}

func (odo *Integrator) seed(pose spatialmath.Pose, gyro spatialmath.Rotation, positions []kinematics.ModulePosition) {
	odo.pose = pose
	odo.gyroOffset = pose.Rotation().RotateBy(gyro.Inverse())
	odo.previousAngle = pose.Rotation()
	copy(odo.previousPositions, positions)
}

// Update advances the accumulated pose given a fresh gyro reading and fresh
// cumulative module positions, returning the new pose.
func (odo *Integrator) Update(gyro spatialmath.Rotation, positions []kinematics.ModulePosition) (spatialmath.Pose, error) {
	if len(positions) != odo.model.NumModules() {
		return spatialmath.Pose{}, errors.Errorf(
			"expected %d module positions but got %d", odo.model.NumModules(), len(positions))
	}

	deltas := make([]kinematics.ModulePosition, len(positions))
	for i := range positions {
		deltas[i] = kinematics.ModulePosition{
			Distance: positions[i].Distance - odo.previousPositions[i].Distance,
			Angle:    positions[i].Angle,
		}
	}

	twist, err := odo.model.TwistFromDeltas(deltas...)
	if err != nil {
		return spatialmath.Pose{}, err
	}

	angle := gyro.RotateBy(odo.gyroOffset)
	twist.Dtheta = angle.RotateBy(odo.previousAngle.Inverse()).Radians()

	moved := odo.pose.Exp(twist)
	// keep the exact gyro heading rather than the integrated one
	odo.pose = spatialmath.NewPose(moved.Translation(), angle)

	copy(odo.previousPositions, positions)
	odo.previousAngle = angle
	return odo.pose, nil
}
