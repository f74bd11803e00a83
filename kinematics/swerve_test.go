package kinematics

import (
	"math"
	"testing"

	"go.viam.com/test"

	"github.com/swervelabs/planardrive/spatialmath"
)

func squareOffsets() []spatialmath.Translation {
	return []spatialmath.Translation{
		spatialmath.NewTranslation(1, 1),
		spatialmath.NewTranslation(1, -1),
		spatialmath.NewTranslation(-1, -1),
		spatialmath.NewTranslation(-1, 1),
	}
}

func TestNewModelValidation(t *testing.T) {
	_, err := NewModel()
	test.That(t, err, test.ShouldNotBeNil)

	model, err := NewModel(spatialmath.NewTranslation(0.5, 0))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.NumModules(), test.ShouldEqual, 1)
}

func TestInverseKinematicsStraight(t *testing.T) {
	model, err := NewModel(squareOffsets()...)
	test.That(t, err, test.ShouldBeNil)

	states := model.ToModuleStates(ChassisSpeeds{VX: 2})
	for _, s := range states {
		test.That(t, s.Speed, test.ShouldAlmostEqual, 2)
		test.That(t, s.Angle.Radians(), test.ShouldAlmostEqual, 0)
	}
}

func TestInverseKinematicsSpinInPlace(t *testing.T) {
	model, err := NewModel(squareOffsets()...)
	test.That(t, err, test.ShouldBeNil)

	states := model.ToModuleStates(ChassisSpeeds{Omega: 1})
	for i, s := range states {
		// each module moves tangentially at radius*omega
		test.That(t, s.Speed, test.ShouldAlmostEqual, math.Sqrt2)
		tangent := squareOffsets()[i].RotateBy(spatialmath.NewRotationFromDegrees(90)).Angle()
		test.That(t, spatialmath.RotationAlmostEqual(s.Angle, tangent, 1e-9), test.ShouldBeTrue)
	}
}

func TestInverseKinematicsRetainsAngleAtZero(t *testing.T) {
	model, err := NewModel(squareOffsets()...)
	test.That(t, err, test.ShouldBeNil)

	model.ToModuleStates(ChassisSpeeds{VX: 1, VY: 1})
	expected := spatialmath.NewRotationFromDegrees(45)

	stopped := model.ToModuleStates(ChassisSpeeds{})
	for _, s := range stopped {
		test.That(t, s.Speed, test.ShouldAlmostEqual, 0)
		test.That(t, spatialmath.RotationAlmostEqual(s.Angle, expected, 1e-9), test.ShouldBeTrue)
	}
}

func TestForwardInverseRoundTrip(t *testing.T) {
	model, err := NewModel(squareOffsets()...)
	test.That(t, err, test.ShouldBeNil)

	cases := []ChassisSpeeds{
		{},
		{VX: 1},
		{VY: -2},
		{Omega: 0.75},
		{VX: 1.5, VY: -0.5, Omega: 1.2},
		{VX: -3, VY: 2, Omega: -2},
	}
	for _, c := range cases {
		recovered, err := model.ToChassisSpeeds(model.ToModuleStates(c)...)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, recovered.VX, test.ShouldAlmostEqual, c.VX, 1e-9)
		test.That(t, recovered.VY, test.ShouldAlmostEqual, c.VY, 1e-9)
		test.That(t, recovered.Omega, test.ShouldAlmostEqual, c.Omega, 1e-9)
	}
}

func TestForwardKinematicsCountMismatch(t *testing.T) {
	model, err := NewModel(squareOffsets()...)
	test.That(t, err, test.ShouldBeNil)

	_, err = model.ToChassisSpeeds(ModuleState{Speed: 1, Angle: spatialmath.NewZeroRotation()})
	test.That(t, err, test.ShouldNotBeNil)

	_, err = model.TwistFromDeltas(
		ModulePosition{Distance: 1, Angle: spatialmath.NewZeroRotation()},
		ModulePosition{Distance: 1, Angle: spatialmath.NewZeroRotation()},
	)
	test.That(t, err, test.ShouldNotBeNil)
}

func TestTwistFromDeltas(t *testing.T) {
	model, err := NewModel(squareOffsets()...)
	test.That(t, err, test.ShouldBeNil)

	// all modules rolled 0.1 straight ahead
	deltas := make([]ModulePosition, 4)
	for i := range deltas {
		deltas[i] = ModulePosition{Distance: 0.1, Angle: spatialmath.NewZeroRotation()}
	}
	twist, err := model.TwistFromDeltas(deltas...)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, twist.Dx, test.ShouldAlmostEqual, 0.1, 1e-9)
	test.That(t, twist.Dy, test.ShouldAlmostEqual, 0, 1e-9)
	test.That(t, twist.Dtheta, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestDesaturateModuleSpeeds(t *testing.T) {
	states := []ModuleState{
		{Speed: 2, Angle: spatialmath.NewZeroRotation()},
		{Speed: 4, Angle: spatialmath.NewRotationFromDegrees(90)},
		{Speed: -1, Angle: spatialmath.NewRotationFromDegrees(45)},
	}

	limited := DesaturateModuleSpeeds(states, 2)
	test.That(t, limited[0].Speed, test.ShouldAlmostEqual, 1)
	test.That(t, limited[1].Speed, test.ShouldAlmostEqual, 2)
	test.That(t, limited[2].Speed, test.ShouldAlmostEqual, -0.5)
	// ratios preserved
	test.That(t, limited[1].Speed/limited[0].Speed, test.ShouldAlmostEqual, states[1].Speed/states[0].Speed)

	// already within the limit: a no-op
	again := DesaturateModuleSpeeds(limited, 2)
	for i := range again {
		test.That(t, again[i].Speed, test.ShouldAlmostEqual, limited[i].Speed)
	}
}

func TestDiscretize(t *testing.T) {
	dt := 0.02
	speeds := ChassisSpeeds{VX: 2, VY: 0, Omega: 3}
	adjusted := Discretize(speeds, dt)

	// integrating the adjusted speeds along an exact arc for dt must land on
	// the straight line target of the original speeds
	target := spatialmath.NewPose(
		spatialmath.NewTranslation(speeds.VX*dt, speeds.VY*dt),
		spatialmath.NewRotation(speeds.Omega*dt),
	)
	reached := spatialmath.NewZeroPose().Exp(spatialmath.Twist{
		Dx:     adjusted.VX * dt,
		Dy:     adjusted.VY * dt,
		Dtheta: adjusted.Omega * dt,
	})
	test.That(t, spatialmath.PoseAlmostEqual(reached, target, 1e-9), test.ShouldBeTrue)

	// zero rotation leaves the speeds untouched
	unchanged := Discretize(ChassisSpeeds{VX: 1.5}, dt)
	test.That(t, unchanged.VX, test.ShouldAlmostEqual, 1.5, 1e-9)
	test.That(t, unchanged.VY, test.ShouldAlmostEqual, 0, 1e-9)
}

func TestFromFieldRelative(t *testing.T) {
	// robot facing 90°: field +x is robot -y
	speeds := FromFieldRelative(ChassisSpeeds{VX: 1}, spatialmath.NewRotationFromDegrees(90))
	test.That(t, speeds.VX, test.ShouldAlmostEqual, 0, 1e-12)
	test.That(t, speeds.VY, test.ShouldAlmostEqual, -1, 1e-12)
}
