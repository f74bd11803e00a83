// Package estimator fuses high rate wheel/gyro odometry with low rate,
// latency affected absolute pose fixes such as vision detections.
//
// The estimator never blocks waiting on the slow signal: every control tick
// advances odometry immediately, while fixes are folded into a bounded,
// time indexed history of pose samples whenever they arrive, however late or
// out of order. A fix is anchored at the point in history where it was
// actually true, the estimate there is nudged toward it by per dimension
// gains, and the recorded odometry deltas are replayed forward to bring the
// current estimate back to the present.
//
// An estimator has a single logical owner: all methods must be called from
// one control loop goroutine or under external mutual exclusion. If fixes are
// produced on a separate perception goroutine, hand them off (for example
// through a channel) before calling Fuse on the owning goroutine.
package estimator

import (
	"math"
	"sort"
	"time"

	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/swervelabs/planardrive/kinematics"
	"github.com/swervelabs/planardrive/odometry"
	"github.com/swervelabs/planardrive/spatialmath"
	"github.com/swervelabs/planardrive/utils"
)

// DefaultHistory is how long pose samples are retained for delayed fusion
// when Config.History is left zero.
const DefaultHistory = 1500 * time.Millisecond

// Config parameterizes the trust placed in odometry and in absolute fixes.
// Standard deviations are per state dimension (x, y, heading) in world length
// units and radians.
type Config struct {
	// ProcessStdDevs describes the odometry noise. Increase a dimension to
	// trust the wheel derived estimate of it less.
	ProcessStdDevs [3]float64 `json:"process_std_devs"`
	// GyroStdDev describes the gyro heading noise; it contributes to the
	// heading dimension only.
	GyroStdDev float64 `json:"gyro_std_dev"`
	// MeasurementStdDevs describes the default absolute fix noise. Increase a
	// dimension to trust fixes less. A Fuse call may override these for that
	// call only.
	MeasurementStdDevs [3]float64 `json:"measurement_std_devs"`
	// History is how long samples are retained for delayed fusion; fixes
	// older than the retained window are ignored.
	History time.Duration `json:"history"`
}

// Validate checks the configuration for nonsensical noise magnitudes.
func (c *Config) Validate() error {
	var err error
	for i, sd := range c.ProcessStdDevs {
		if sd < 0 {
			err = multierr.Combine(err, errors.Errorf("process std dev %d is negative", i))
		}
	}
	for i, sd := range c.MeasurementStdDevs {
		if sd < 0 {
			err = multierr.Combine(err, errors.Errorf("measurement std dev %d is negative", i))
		}
	}
	if c.GyroStdDev < 0 {
		err = multierr.Combine(err, errors.New("gyro std dev is negative"))
	}
	if c.History < 0 {
		err = multierr.Combine(err, errors.New("history duration is negative"))
	}
	return err
}

// poseSample is one tick of history: the fused estimate at t and the
// odometry-only pose at t. The odometry track is immutable once recorded;
// the fused track is recomputed whenever a late fix lands in the past.
type poseSample struct {
	t     time.Time
	fused spatialmath.Pose
	odom  spatialmath.Pose
}

// absoluteFix is a retained measurement together with the gains it is applied
// with, kept so that replay is a pure function of the measurement set.
type absoluteFix struct {
	t     time.Time
	pose  spatialmath.Pose
	gains [3]float64
}

// PoseEstimator owns an odometry integrator and a bounded history of pose
// samples, and fuses delayed absolute fixes into that history.
type PoseEstimator struct {
	integrator *odometry.Integrator
	cfg        Config
	q          [3]float64 // per dimension process variance
	gains      [3]float64 // precomputed gains for the default fix noise
	samples    []poseSample
	fixes      []absoluteFix
	// fused pose at samples[0] excluding every retained fix, so the fused
	// track can be rebuilt deterministically from the front of the buffer
	baseFused spatialmath.Pose
	logger    golog.Logger
}

// New returns an estimator seeded at the given pose. The gyro reading and
// module positions establish the odometry reference, as in odometry.New.
func New(
	model *kinematics.Model,
	gyro spatialmath.Rotation,
	initial spatialmath.Pose,
	positions []kinematics.ModulePosition,
	cfg Config,
	logger golog.Logger,
) (*PoseEstimator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid estimator config")
	}
	if cfg.History == 0 {
		cfg.History = DefaultHistory
	}
	integrator, err := odometry.New(model, gyro, initial, positions)
	if err != nil {
		return nil, err
	}

	pe := &PoseEstimator{
		integrator: integrator,
		cfg:        cfg,
		logger:     logger,
		baseFused:  initial,
	}
	for i, sd := range cfg.ProcessStdDevs {
		pe.q[i] = sd * sd
	}
	// the gyro feeds the heading dimension of the process
	pe.q[2] += cfg.GyroStdDev * cfg.GyroStdDev
	pe.gains = correctionGains(pe.q, cfg.MeasurementStdDevs)
	return pe, nil
}

// correctionGains computes the per dimension steady state gain
// q/(q+sqrt(q(q+r))), clamped to [0, 1]. A dimension with zero process
// variance never moves toward a fix; a noiseless measurement moves the
// estimate halfway toward it per fix.
func correctionGains(q [3]float64, measurementStdDevs [3]float64) [3]float64 {
	var gains [3]float64
	for i := range q {
		if q[i] == 0 {
			continue
		}
		r := measurementStdDevs[i] * measurementStdDevs[i]
		gains[i] = utils.Clamp(q[i]/(q[i]+math.Sqrt(q[i]*(q[i]+r))), 0, 1)
	}
	return gains
}

// Pose returns the current fused estimate. It may be called at any time and
// has no side effects.
func (pe *PoseEstimator) Pose() spatialmath.Pose {
	if n := len(pe.samples); n > 0 {
		return pe.samples[n-1].fused
	}
	return pe.integrator.Pose()
}

// ResetPosition discards all history and restarts integration from the given
// pose, for use after a discontinuity such as a hard reset or detected
// divergence.
func (pe *PoseEstimator) ResetPosition(
	pose spatialmath.Pose,
	gyro spatialmath.Rotation,
	positions []kinematics.ModulePosition,
) error {
	if err := pe.integrator.ResetPosition(pose, gyro, positions); err != nil {
		return err
	}
	pe.samples = pe.samples[:0]
	pe.fixes = pe.fixes[:0]
	pe.baseFused = pose
	return nil
}

// Advance feeds one control tick of odometry into the estimator and returns
// the new fused estimate. Calls must be monotonic in t; fixes submitted via
// Fuse carry no such requirement.
func (pe *PoseEstimator) Advance(
	t time.Time,
	gyro spatialmath.Rotation,
	positions []kinematics.ModulePosition,
) (spatialmath.Pose, error) {
	lastOdom := pe.integrator.Pose()
	odom, err := pe.integrator.Update(gyro, positions)
	if err != nil {
		return spatialmath.Pose{}, err
	}

	// between corrections the fused track follows odometry one to one
	fused := odom
	if n := len(pe.samples); n > 0 {
		delta := spatialmath.NewTransformBetween(lastOdom, odom)
		fused = pe.samples[n-1].fused.TransformBy(delta)
	}
	pe.samples = append(pe.samples, poseSample{t: t, fused: fused, odom: odom})
	if len(pe.samples) == 1 {
		pe.baseFused = fused
	}

	pe.evict(t.Add(-pe.cfg.History))
	return fused, nil
}

// evict drops samples strictly older than cutoff, always keeping the newest,
// and bakes the corrections of fixes that fall off the window into the new
// base of the buffer.
func (pe *PoseEstimator) evict(cutoff time.Time) {
	idx := 0
	for idx < len(pe.samples)-1 && pe.samples[idx].t.Before(cutoff) {
		idx++
	}
	if idx > 0 {
		pe.samples = append(pe.samples[:0], pe.samples[idx:]...)
		// a fix no older than the new front can still be re-anchored; the
		// rest are now permanent parts of the base estimate
		pe.baseFused = pe.samples[0].fused
		keep := pe.fixes[:0]
		for _, f := range pe.fixes {
			if f.t.After(pe.samples[0].t) {
				keep = append(keep, f)
			}
		}
		pe.fixes = keep
	}
}

// Fuse incorporates an absolute pose fix taken at t, typically delayed
// relative to the odometry stream. A fix that predates the retained history
// (or arrives before any odometry) cannot be placed causally and is silently
// ignored; late and duplicate fixes are operational noise, not faults.
//
// An optional set of standard deviations overrides the configured measurement
// trust for this fix only.
func (pe *PoseEstimator) Fuse(measured spatialmath.Pose, t time.Time, measurementStdDevs ...[3]float64) {
	if len(pe.samples) == 0 || t.Before(pe.samples[0].t) {
		if pe.logger != nil {
			pe.logger.Debugw("ignoring stale absolute fix", "t", t)
		}
		return
	}

	gains := pe.gains
	if len(measurementStdDevs) > 0 {
		gains = correctionGains(pe.q, measurementStdDevs[0])
	}

	// a fix newer than the newest sample is applied at the newest sample;
	// there is no odometry beyond it to interpolate against
	if newest := pe.samples[len(pe.samples)-1].t; t.After(newest) {
		t = newest
	}

	idx := sort.Search(len(pe.fixes), func(i int) bool {
		return pe.fixes[i].t.After(t)
	})
	pe.fixes = append(pe.fixes, absoluteFix{})
	copy(pe.fixes[idx+1:], pe.fixes[idx:])
	pe.fixes[idx] = absoluteFix{t: t, pose: measured, gains: gains}

	pe.recompute()
}

// recompute rebuilds the fused track from the front of the buffer: walk the
// samples chronologically, carrying the fused pose forward by the recorded
// odometry deltas, and at each fix interpolate an anchor, nudge it toward the
// measurement, and continue from the corrected anchor. The result depends
// only on the retained samples and the set of retained fixes, never on fix
// arrival order.
func (pe *PoseEstimator) recompute() {
	cursorT := pe.samples[0].t
	cursorOdom := pe.samples[0].odom
	cursorFused := pe.baseFused

	fi := 0
	for si := range pe.samples {
		s := pe.samples[si]
		for fi < len(pe.fixes) && !pe.fixes[fi].t.After(s.t) {
			fix := pe.fixes[fi]
			fi++

			// odometry pose at the fix instant: position linear, heading
			// shortest arc through the rotation vector form
			frac := fraction(cursorT, s.t, fix.t)
			odomAt := interpolatePose(cursorOdom, s.odom, frac)
			fusedAt := cursorFused.TransformBy(spatialmath.NewTransformBetween(cursorOdom, odomAt))

			cursorFused = correct(fusedAt, fix.pose, fix.gains)
			cursorOdom = odomAt
			cursorT = fix.t
		}

		cursorFused = cursorFused.TransformBy(spatialmath.NewTransformBetween(cursorOdom, s.odom))
		cursorOdom = s.odom
		cursorT = s.t
		pe.samples[si].fused = cursorFused
	}
}

// correct nudges the estimate toward the measurement by the per dimension
// gains. Unit gains reproduce the measurement exactly; zero gains leave the
// estimate untouched.
func correct(estimate, measured spatialmath.Pose, gains [3]float64) spatialmath.Pose {
	twist := estimate.Log(measured)
	twist.Dx *= gains[0]
	twist.Dy *= gains[1]
	twist.Dtheta *= gains[2]
	return estimate.Exp(twist)
}

func interpolatePose(a, b spatialmath.Pose, frac float64) spatialmath.Pose {
	if frac <= 0 {
		return a
	}
	if frac >= 1 {
		return b
	}
	position := a.Translation().Add(b.Translation().Sub(a.Translation()).Scale(frac))
	heading := a.Rotation().RotateBy(b.Rotation().RotateBy(a.Rotation().Inverse()).Mul(frac))
	return spatialmath.NewPose(position, heading)
}

func fraction(a, b, t time.Time) float64 {
	window := b.Sub(a).Seconds()
	if window <= 0 {
		return 1
	}
	return t.Sub(a).Seconds() / window
}
