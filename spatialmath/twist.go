package spatialmath

import "math"

// Below this angular magnitude the exponential and logarithmic maps switch to
// their analytic limit branches to avoid dividing by a vanishing angle.
const twistAngleEpsilon = 1e-9

// Twist is an instantaneous body frame velocity or an infinitesimal motion
// increment: linear x, linear y and angular components.
type Twist struct {
	Dx, Dy, Dtheta float64
}

// Exp integrates the twist over unit time along the constant curvature arc it
// describes, returning the pose reached from p. This is exact for circular
// arc motion, not a straight line extrapolation.
func (p Pose) Exp(delta Twist) Pose {
	sinTheta := math.Sin(delta.Dtheta)
	cosTheta := math.Cos(delta.Dtheta)

	var s, c float64
	if math.Abs(delta.Dtheta) < twistAngleEpsilon {
		s = 1 - delta.Dtheta*delta.Dtheta/6
		c = delta.Dtheta / 2
	} else {
		s = sinTheta / delta.Dtheta
		c = (1 - cosTheta) / delta.Dtheta
	}

	transform := Transform{
		Translation{X: delta.Dx*s - delta.Dy*c, Y: delta.Dx*c + delta.Dy*s},
		NewRotationFromComponents(cosTheta, sinTheta),
	}
	return p.TransformBy(transform)
}

// Log recovers the twist that, integrated over unit time via Exp, carries p
// onto end. It is the inverse of Exp, including in the near zero angular rate
// regime.
func (p Pose) Log(end Pose) Twist {
	transform := NewTransformBetween(p, end)
	dtheta := transform.rotation.Radians()
	halfDtheta := dtheta / 2

	cosMinusOne := transform.rotation.cos - 1
	var halfThetaByTanOfHalfDtheta float64
	if math.Abs(cosMinusOne) < twistAngleEpsilon {
		halfThetaByTanOfHalfDtheta = 1 - dtheta*dtheta/12
	} else {
		halfThetaByTanOfHalfDtheta = -(halfDtheta * transform.rotation.sin) / cosMinusOne
	}

	translationPart := transform.translation.
		RotateBy(NewRotationFromComponents(halfThetaByTanOfHalfDtheta, -halfDtheta)).
		Scale(math.Hypot(halfThetaByTanOfHalfDtheta, halfDtheta))

	return Twist{translationPart.X, translationPart.Y, dtheta}
}

// Scale returns the twist with every component scaled by the given factor.
func (t Twist) Scale(f float64) Twist {
	return Twist{t.Dx * f, t.Dy * f, t.Dtheta * f}
}
