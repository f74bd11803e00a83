// Package main simulates a four module drive on a snaking closed course and
// reports how well the fused pose estimate tracks ground truth when odometry
// is noisy and absolute fixes arrive late. It optionally plots the ground
// truth, raw odometry and fused paths to a PNG.
package main

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/edaniels/golog"
	"github.com/pkg/errors"
	"go.viam.com/utils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/swervelabs/planardrive/estimator"
	"github.com/swervelabs/planardrive/kinematics"
	"github.com/swervelabs/planardrive/odometry"
	"github.com/swervelabs/planardrive/spatialmath"
)

var logger = golog.NewDevelopmentLogger("simdrive")

func main() {
	utils.ContextualMain(mainWithArgs, logger)
}

// Arguments for the command.
type Arguments struct {
	ConfigFile string `flag:"config,usage=path to a simulation config JSON file"`
	PlotFile   string `flag:"plot,usage=write a path comparison PNG to this file"`
	Realtime   bool   `flag:"realtime,usage=pace the simulation at wall clock speed"`
}

// SimConfig controls the simulated course and noise magnitudes.
type SimConfig struct {
	Duration      float64 `json:"duration_secs"`
	TickRate      float64 `json:"tick_rate_secs"`
	Speed         float64 `json:"speed"`
	TurnAmplitude float64 `json:"turn_amplitude"`
	GyroNoise     float64 `json:"gyro_noise"`
	FixNoise      float64 `json:"fix_noise"`
	FixHeadNoise  float64 `json:"fix_heading_noise"`
	FixTrust      float64 `json:"fix_trust"`
	FixPeriod     float64 `json:"fix_period_secs"`
	FixLatency    float64 `json:"fix_latency_secs"`
	Seed          uint64  `json:"seed"`
}

// DefaultSimConfig mirrors the noise regime of a vision localized indoor
// robot: centimeter scale wheel odometry, decimeter scale vision.
func DefaultSimConfig() SimConfig {
	return SimConfig{
		Duration:      8,
		TickRate:      0.02,
		Speed:         1.5,
		TurnAmplitude: 1.2,
		GyroNoise:     0.05,
		FixNoise:      0.1,
		FixHeadNoise:  0.05,
		FixTrust:      0.9,
		FixPeriod:     0.1,
		FixLatency:    0.14,
		Seed:          42,
	}
}

// Validate checks the simulation parameters.
func (c *SimConfig) Validate() error {
	if c.Duration <= 0 || c.TickRate <= 0 {
		return errors.New("duration and tick rate must be positive")
	}
	if c.FixPeriod < c.TickRate {
		return errors.New("fix period must be at least one tick")
	}
	return nil
}

func loadConfig(path string) (SimConfig, error) {
	cfg := DefaultSimConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "reading sim config")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrap(err, "parsing sim config")
	}
	return cfg, cfg.Validate()
}

func mainWithArgs(ctx context.Context, args []string, logger golog.Logger) error {
	var argsParsed Arguments
	if err := utils.ParseFlags(args, &argsParsed); err != nil {
		return err
	}
	cfg, err := loadConfig(argsParsed.ConfigFile)
	if err != nil {
		return err
	}

	clk := clock.New()
	result, err := run(ctx, cfg, clk, argsParsed.Realtime, logger)
	if err != nil {
		return err
	}

	logger.Infow("simulation finished",
		"ticks", len(result.fusedErr),
		"odometry_mean_err", stat.Mean(result.odomErr, nil),
		"fused_mean_err", stat.Mean(result.fusedErr, nil),
		"fused_peak_err", peakError(result.fusedErr),
	)

	if argsParsed.PlotFile != "" {
		if err := savePlot(argsParsed.PlotFile, result); err != nil {
			return err
		}
		logger.Infof("wrote path comparison to %s", argsParsed.PlotFile)
	}
	return nil
}

type simResult struct {
	truth    []spatialmath.Pose
	odom     []spatialmath.Pose
	fused    []spatialmath.Pose
	odomErr  []float64
	fusedErr []float64
}

type pendingFix struct {
	pose    spatialmath.Pose
	t       time.Time
	deliver time.Time
}

func run(ctx context.Context, cfg SimConfig, clk clock.Clock, realtime bool, logger golog.Logger) (*simResult, error) {
	model, err := kinematics.NewModel(
		spatialmath.NewTranslation(1, 1),
		spatialmath.NewTranslation(1, -1),
		spatialmath.NewTranslation(-1, -1),
		spatialmath.NewTranslation(-1, 1),
	)
	if err != nil {
		return nil, err
	}

	positions := make([]kinematics.ModulePosition, model.NumModules())
	for i := range positions {
		positions[i].Angle = spatialmath.NewZeroRotation()
	}

	pe, err := estimator.New(
		model,
		spatialmath.NewZeroRotation(),
		spatialmath.NewZeroPose(),
		positions,
		estimator.Config{
			ProcessStdDevs:     [3]float64{0.1, 0.1, 0.1},
			GyroStdDev:         cfg.GyroNoise,
			MeasurementStdDevs: [3]float64{cfg.FixTrust, cfg.FixTrust, cfg.FixTrust},
		},
		logger,
	)
	if err != nil {
		return nil, err
	}
	// a second integrator shows what raw odometry alone would believe
	rawOdo, err := odometry.New(model, spatialmath.NewZeroRotation(), spatialmath.NewZeroPose(), positions)
	if err != nil {
		return nil, err
	}

	src := rand.NewSource(cfg.Seed)
	gyroNoise := distuv.Normal{Mu: 0, Sigma: cfg.GyroNoise, Src: src}
	fixNoise := distuv.Normal{Mu: 0, Sigma: cfg.FixNoise, Src: src}
	fixHeadNoise := distuv.Normal{Mu: 0, Sigma: cfg.FixHeadNoise, Src: src}

	truth := spatialmath.NewZeroPose()
	base := time.Unix(0, 0)
	var pending []pendingFix
	var result simResult
	lastFix := -cfg.FixPeriod

	for tick := 0; ; tick++ {
		now := float64(tick) * cfg.TickRate
		if now >= cfg.Duration {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if realtime {
			clk.Sleep(time.Duration(cfg.TickRate * float64(time.Second)))
		}
		stamp := base.Add(time.Duration(now * float64(time.Second)))

		speeds := kinematics.ChassisSpeeds{
			VX:    cfg.Speed,
			Omega: cfg.TurnAmplitude * math.Sin(2*math.Pi*now/cfg.Duration),
		}
		states := model.ToModuleStates(speeds)
		for i, s := range states {
			positions[i].Distance += s.Speed * cfg.TickRate
			positions[i].Angle = s.Angle
		}
		truth = truth.Exp(spatialmath.Twist{
			Dx:     speeds.VX * cfg.TickRate,
			Dy:     speeds.VY * cfg.TickRate,
			Dtheta: speeds.Omega * cfg.TickRate,
		})

		if now-lastFix >= cfg.FixPeriod {
			lastFix = now
			measured := spatialmath.NewPose(
				truth.Translation().Add(spatialmath.NewTranslation(fixNoise.Rand(), fixNoise.Rand())),
				truth.Rotation().RotateBy(spatialmath.NewRotation(fixHeadNoise.Rand())),
			)
			pending = append(pending, pendingFix{
				pose:    measured,
				t:       stamp,
				deliver: stamp.Add(time.Duration(cfg.FixLatency * float64(time.Second))),
			})
		}

		gyro := truth.Rotation().RotateBy(spatialmath.NewRotation(gyroNoise.Rand()))
		if _, err := pe.Advance(stamp, gyro, positions); err != nil {
			return nil, err
		}
		odomPose, err := rawOdo.Update(gyro, positions)
		if err != nil {
			return nil, err
		}

		remaining := pending[:0]
		for _, fix := range pending {
			if !fix.deliver.After(stamp) {
				pe.Fuse(fix.pose, fix.t)
			} else {
				remaining = append(remaining, fix)
			}
		}
		pending = remaining

		fused := pe.Pose()
		result.truth = append(result.truth, truth)
		result.odom = append(result.odom, odomPose)
		result.fused = append(result.fused, fused)
		result.odomErr = append(result.odomErr, truth.Translation().Distance(odomPose.Translation()))
		result.fusedErr = append(result.fusedErr, truth.Translation().Distance(fused.Translation()))
	}
	return &result, nil
}

func peakError(values []float64) float64 {
	highest := math.Inf(-1)
	for _, v := range values {
		if v > highest {
			highest = v
		}
	}
	return highest
}
