package spatialmath

import "math"

// RotationAlmostEqual returns whether the two rotations' unit vectors are
// within epsilon of each other. Comparing vectors rather than angles avoids a
// false mismatch across the ±180° boundary.
func RotationAlmostEqual(a, b Rotation, epsilon float64) bool {
	return math.Hypot(a.cos-b.cos, a.sin-b.sin) <= epsilon
}

// TranslationAlmostEqual returns whether the two translations are within
// epsilon of each other.
func TranslationAlmostEqual(a, b Translation, epsilon float64) bool {
	return a.Distance(b) <= epsilon
}

// PoseAlmostEqual returns whether the two poses coincide within epsilon.
func PoseAlmostEqual(a, b Pose, epsilon float64) bool {
	return TranslationAlmostEqual(a.translation, b.translation, epsilon) &&
		RotationAlmostEqual(a.rotation, b.rotation, epsilon)
}

// TransformAlmostEqual returns whether the two transforms coincide within
// epsilon.
func TransformAlmostEqual(a, b Transform, epsilon float64) bool {
	return TranslationAlmostEqual(a.translation, b.translation, epsilon) &&
		RotationAlmostEqual(a.rotation, b.rotation, epsilon)
}

// TwistAlmostEqual returns whether the two twists' components are within
// epsilon of each other.
func TwistAlmostEqual(a, b Twist, epsilon float64) bool {
	return math.Abs(a.Dx-b.Dx) <= epsilon &&
		math.Abs(a.Dy-b.Dy) <= epsilon &&
		math.Abs(a.Dtheta-b.Dtheta) <= epsilon
}
