package spatialmath

import "fmt"

// Pose is a position and heading in the world frame. It is an immutable
// value; all operations return new poses.
type Pose struct {
	translation Translation
	rotation    Rotation
}

// NewZeroPose returns the pose at the world origin with identity heading.
func NewZeroPose() Pose {
	return Pose{rotation: NewZeroRotation()}
}

// NewPose returns the pose at the given position and heading.
func NewPose(t Translation, r Rotation) Pose {
	return Pose{t, r}
}

// Translation returns the position component of the pose.
func (p Pose) Translation() Translation {
	return p.translation
}

// Rotation returns the heading component of the pose.
func (p Pose) Rotation() Rotation {
	return p.rotation
}

// TransformBy composes the pose with a relative motion, returning the pose
// reached by applying the transform in the pose's own frame.
func (p Pose) TransformBy(t Transform) Pose {
	return Pose{
		p.translation.Add(t.translation.RotateBy(p.rotation)),
		p.rotation.RotateBy(t.rotation),
	}
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.4f, %.4f, %s)", p.translation.X, p.translation.Y, p.rotation)
}

// Transform is a relative rigid motion between two poses. Transforms form a
// group under Compose, with NewZeroTransform as the identity and Inverse
// supplying inverses.
//
// The zero value of this struct is not a valid transform; use
// NewZeroTransform instead of Transform{}.
type Transform struct {
	translation Translation
	rotation    Rotation
}

// NewZeroTransform returns the identity transform.
func NewZeroTransform() Transform {
	return Transform{rotation: NewZeroRotation()}
}

// NewTransform returns the relative motion with the given translation and
// rotation components.
func NewTransform(t Translation, r Rotation) Transform {
	return Transform{t, r}
}

// NewTransformBetween returns the transform that carries the from pose onto
// the to pose, expressed in the frame of the from pose.
func NewTransformBetween(from, to Pose) Transform {
	return Transform{
		to.translation.Sub(from.translation).RotateBy(from.rotation.Inverse()),
		to.rotation.RotateBy(from.rotation.Inverse()),
	}
}

// Translation returns the translation component of the transform.
func (t Transform) Translation() Translation {
	return t.translation
}

// Rotation returns the rotation component of the transform.
func (t Transform) Rotation() Rotation {
	return t.rotation
}

// Compose returns the transform equivalent to applying t and then o.
func (t Transform) Compose(o Transform) Transform {
	return Transform{
		t.translation.Add(o.translation.RotateBy(t.rotation)),
		t.rotation.RotateBy(o.rotation),
	}
}

// Inverse returns the transform that undoes this one.
func (t Transform) Inverse() Transform {
	inv := t.rotation.Inverse()
	return Transform{
		t.translation.RotateBy(inv).Scale(-1),
		inv,
	}
}
