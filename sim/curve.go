// sim/curve.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	gomath "math"

	"github.com/slipstream-vr/slipstream/math"
)

// Curve is a closed track centerline: an ordered loop of oriented
// control points, with piecewise interpolation between consecutive
// points. Fractional positions along the curve are expressed in control
// point units, so t=2.5 is halfway between control points 2 and 3.
type Curve struct {
	ctrlps []math.Transform
}

// MakeCurve wraps the given control points as a closed curve. The
// points are copied; the caller's slice is not retained.
func MakeCurve(ctrlps []math.Transform) (*Curve, error) {
	if len(ctrlps) < 2 {
		return nil, ErrDegenerateCurve
	}
	c := &Curve{ctrlps: make([]math.Transform, len(ctrlps))}
	copy(c.ctrlps, ctrlps)
	return c, nil
}

func (c *Curve) Len() int { return len(c.ctrlps) }

// ControlPoint returns the i'th control point; the index wraps around
// the loop in both directions.
func (c *Curve) ControlPoint(i int) math.Transform {
	n := len(c.ctrlps)
	return c.ctrlps[((i%n)+n)%n]
}

// Lerp evaluates the curve at t, interpolating position and orientation
// between the bracketing control points. t wraps modulo the number of
// control points and so is valid for any number of laps around the loop.
func (c *Curve) Lerp(t float32) math.Transform {
	i := int(gomath.Floor(float64(t)))
	frac := t - math.Floor(t)
	return math.LerpTransform(frac, c.ControlPoint(i), c.ControlPoint(i+1))
}

// NearestControlPoint returns the index of the control point closest to
// p. Ties go to the lowest index.
func (c *Curve) NearestControlPoint(p [3]float32) int {
	nearest, minDist := 0, float32(gomath.MaxFloat32)
	for i, cp := range c.ctrlps {
		if d := math.Distance3f(cp.Pos, p); d < minDist {
			nearest, minDist = i, d
		}
	}
	return nearest
}
