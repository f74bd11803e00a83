package kinematics

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/swervelabs/planardrive/spatialmath"
)

// Model holds the fixed geometry of a set of drive modules and converts
// between per module states and whole body motion. Forward kinematics is the
// least squares solution of the overdetermined 2Nx3 system built from the
// module offsets; the pseudo-inverse of that fixed matrix is computed once at
// construction since the offsets never change.
type Model struct {
	offsets []spatialmath.Translation
	forward *mat.Dense // 3 x 2N pseudo-inverse of the module geometry matrix
	// last states returned by ToModuleStates, consulted when a module's
	// resultant velocity is zero and its steering direction is undefined
	prev []ModuleState
}

// NewModel builds a kinematics model from the positions of each module
// relative to the center of the robot. At least one module is required.
func NewModel(offsets ...spatialmath.Translation) (*Model, error) {
	n := len(offsets)
	if n == 0 {
		return nil, errors.New("need at least one module offset to build a kinematics model")
	}

	inverse := mat.NewDense(2*n, 3, nil)
	for i, off := range offsets {
		inverse.Set(2*i, 0, 1)
		inverse.Set(2*i, 2, -off.Y)
		inverse.Set(2*i+1, 1, 1)
		inverse.Set(2*i+1, 2, off.X)
	}

	var svd mat.SVD
	if ok := svd.Factorize(inverse, mat.SVDThin); !ok {
		return nil, errors.New("failed to factorize module geometry matrix")
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	values := svd.Values(nil)
	sigmaInv := mat.NewDiagDense(len(values), nil)
	for i, sv := range values {
		if sv > 1e-12 {
			sigmaInv.SetDiag(i, 1/sv)
		}
	}
	var tmp, forward mat.Dense
	tmp.Mul(&v, sigmaInv)
	forward.Mul(&tmp, u.T())

	prev := make([]ModuleState, n)
	for i := range prev {
		prev[i].Angle = spatialmath.NewZeroRotation()
	}

	model := &Model{
		offsets: make([]spatialmath.Translation, n),
		forward: &forward,
		prev:    prev,
	}
	copy(model.offsets, offsets)
	return model, nil
}

// NumModules returns the number of modules the model was built with.
func (m *Model) NumModules() int {
	return len(m.offsets)
}

// ToModuleStates performs inverse kinematics, returning the module states that
// realize the given chassis speeds. Each module's velocity is the chassis
// linear velocity plus the cross term from the angular rate and the module's
// offset. A module whose resultant is exactly zero keeps its previously
// reported steering angle.
func (m *Model) ToModuleStates(speeds ChassisSpeeds) []ModuleState {
	states := make([]ModuleState, len(m.offsets))
	for i, off := range m.offsets {
		vx := speeds.VX - speeds.Omega*off.Y
		vy := speeds.VY + speeds.Omega*off.X
		speed := math.Hypot(vx, vy)
		angle := m.prev[i].Angle
		if speed != 0 {
			angle = spatialmath.NewRotationFromComponents(vx, vy)
		}
		states[i] = ModuleState{speed, angle}
	}
	copy(m.prev, states)
	return states
}

// ToChassisSpeeds performs forward kinematics, recovering the whole body
// velocity that best explains the given module states in the least squares
// sense. The number of states must match the model.
func (m *Model) ToChassisSpeeds(states ...ModuleState) (ChassisSpeeds, error) {
	solved, err := m.solve(len(states), func(i int) (float64, spatialmath.Rotation) {
		return states[i].Speed, states[i].Angle
	})
	if err != nil {
		return ChassisSpeeds{}, err
	}
	return ChassisSpeeds{solved.Dx, solved.Dy, solved.Dtheta}, nil
}

// TwistFromDeltas performs forward kinematics on per module distance deltas,
// producing the body frame motion increment they best explain. The number of
// deltas must match the model.
func (m *Model) TwistFromDeltas(deltas ...ModulePosition) (spatialmath.Twist, error) {
	return m.solve(len(deltas), func(i int) (float64, spatialmath.Rotation) {
		return deltas[i].Distance, deltas[i].Angle
	})
}

func (m *Model) solve(n int, component func(int) (float64, spatialmath.Rotation)) (spatialmath.Twist, error) {
	if n != len(m.offsets) {
		return spatialmath.Twist{}, errors.Errorf("expected %d module values but got %d", len(m.offsets), n)
	}
	vec := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		magnitude, angle := component(i)
		vec.SetVec(2*i, magnitude*angle.Cos())
		vec.SetVec(2*i+1, magnitude*angle.Sin())
	}
	var solved mat.VecDense
	solved.MulVec(m.forward, vec)
	return spatialmath.Twist{Dx: solved.AtVec(0), Dy: solved.AtVec(1), Dtheta: solved.AtVec(2)}, nil
}

// DesaturateModuleSpeeds uniformly scales all module speeds down so that none
// exceeds max, preserving each module's direction and the relative speed
// ratios. A set already within the limit is returned unchanged.
func DesaturateModuleSpeeds(states []ModuleState, max float64) []ModuleState {
	highest := 0.0
	for _, s := range states {
		if abs := math.Abs(s.Speed); abs > highest {
			highest = abs
		}
	}
	out := make([]ModuleState, len(states))
	copy(out, states)
	if highest <= max || highest == 0 {
		return out
	}
	scale := max / highest
	for i := range out {
		out[i].Speed *= scale
	}
	return out
}
