package main

import (
	"image/color"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/swervelabs/planardrive/spatialmath"
)

func pathPoints(poses []spatialmath.Pose) plotter.XYs {
	pts := make(plotter.XYs, len(poses))
	for i, p := range poses {
		pts[i].X = p.Translation().X
		pts[i].Y = p.Translation().Y
	}
	return pts
}

func savePlot(path string, result *simResult) error {
	p := plot.New()
	p.Title.Text = "simulated drive"
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	for _, series := range []struct {
		name  string
		poses []spatialmath.Pose
		color color.RGBA
	}{
		{"ground truth", result.truth, color.RGBA{G: 160, A: 255}},
		{"odometry only", result.odom, color.RGBA{R: 220, A: 255}},
		{"fused estimate", result.fused, color.RGBA{B: 220, A: 255}},
	} {
		line, err := plotter.NewLine(pathPoints(series.poses))
		if err != nil {
			return errors.Wrapf(err, "plotting %s", series.name)
		}
		line.Color = series.color
		p.Add(line)
		p.Legend.Add(series.name, line)
	}

	return p.Save(8*vg.Inch, 8*vg.Inch, path)
}
