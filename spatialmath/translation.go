package spatialmath

import (
	"github.com/golang/geo/r2"
)

// Translation is a displacement in the fixed world frame.
type Translation r2.Point

// NewTranslation returns the translation with the given world frame
// components.
func NewTranslation(x, y float64) Translation {
	return Translation{X: x, Y: y}
}

// Add returns the vector sum of two translations.
func (t Translation) Add(o Translation) Translation {
	return Translation(r2.Point(t).Add(r2.Point(o)))
}

// Sub returns the vector difference of two translations.
func (t Translation) Sub(o Translation) Translation {
	return Translation(r2.Point(t).Sub(r2.Point(o)))
}

// Scale returns the translation scaled by the given factor.
func (t Translation) Scale(f float64) Translation {
	return Translation(r2.Point(t).Mul(f))
}

// Norm returns the length of the translation.
func (t Translation) Norm() float64 {
	return r2.Point(t).Norm()
}

// Distance returns the euclidean distance between two translations.
func (t Translation) Distance(o Translation) float64 {
	return r2.Point(o).Sub(r2.Point(t)).Norm()
}

// RotateBy rotates the translation about the origin by the given rotation.
func (t Translation) RotateBy(r Rotation) Translation {
	return Translation{
		X: t.X*r.cos - t.Y*r.sin,
		Y: t.X*r.sin + t.Y*r.cos,
	}
}

// Angle returns the direction of the translation as a rotation. The direction
// of a zero translation is reported as the identity rotation.
func (t Translation) Angle() Rotation {
	return NewRotationFromComponents(t.X, t.Y)
}
