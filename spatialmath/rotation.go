// Package spatialmath defines the planar spatial mathematical operations shared
// by the kinematics, odometry and estimator packages.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/swervelabs/planardrive/utils"
)

// Rotation is a heading in the plane. It is stored as the unit vector
// (cos, sin) so that composition is exact vector rotation rather than angle
// wraparound arithmetic, and so repeated composition never re-evaluates
// trigonometric functions.
//
// The zero value of this struct is not a valid rotation; use NewZeroRotation
// instead of Rotation{}.
type Rotation struct {
	cos, sin float64
}

// NewZeroRotation returns the identity rotation.
func NewZeroRotation() Rotation {
	return Rotation{1, 0}
}

// NewRotation returns the rotation for the given angle in radians.
func NewRotation(radians float64) Rotation {
	return Rotation{math.Cos(radians), math.Sin(radians)}
}

// NewRotationFromDegrees returns the rotation for the given angle in degrees.
func NewRotationFromDegrees(degrees float64) Rotation {
	return NewRotation(utils.DegToRad(degrees))
}

// NewRotationFromComponents builds a rotation pointing along the (x, y)
// direction vector, renormalizing to absorb floating point drift. A zero
// vector yields the identity rotation.
func NewRotationFromComponents(x, y float64) Rotation {
	norm := math.Hypot(x, y)
	if norm == 0 {
		return NewZeroRotation()
	}
	return Rotation{x / norm, y / norm}
}

// Radians returns the angle of the rotation in (-pi, pi].
func (r Rotation) Radians() float64 {
	return math.Atan2(r.sin, r.cos)
}

// Degrees returns the angle of the rotation in (-180, 180].
func (r Rotation) Degrees() float64 {
	return utils.RadToDeg(r.Radians())
}

// Cos returns the cosine component of the rotation.
func (r Rotation) Cos() float64 {
	return r.cos
}

// Sin returns the sine component of the rotation.
func (r Rotation) Sin() float64 {
	return r.sin
}

// RotateBy composes two rotations by complex multiplication of their unit
// vectors, renormalizing the product.
func (r Rotation) RotateBy(o Rotation) Rotation {
	return NewRotationFromComponents(
		r.cos*o.cos-r.sin*o.sin,
		r.cos*o.sin+r.sin*o.cos,
	)
}

// Inverse returns the rotation that undoes this one.
func (r Rotation) Inverse() Rotation {
	return Rotation{r.cos, -r.sin}
}

// Mul scales the angle of the rotation by the given factor.
func (r Rotation) Mul(scalar float64) Rotation {
	return NewRotation(r.Radians() * scalar)
}

func (r Rotation) String() string {
	return fmt.Sprintf("%.4f°", r.Degrees())
}
