// math/math_test.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"
	"testing"
)

func close3f(a, b [3]float32, eps float32) bool {
	return Abs(a[0]-b[0]) < eps && Abs(a[1]-b[1]) < eps && Abs(a[2]-b[2]) < eps
}

func TestNormalize3f(t *testing.T) {
	if v := Normalize3f([3]float32{0, 0, 0}); v != ([3]float32{0, 0, 0}) {
		t.Errorf("normalizing the zero vector gave %v, expected zero", v)
	}
	if v := Normalize3f([3]float32{3, 0, 4}); !close3f(v, [3]float32{0.6, 0, 0.8}, 1e-6) {
		t.Errorf("got %v, expected (0.6, 0, 0.8)", v)
	}
}

func TestCross3f(t *testing.T) {
	x := [3]float32{1, 0, 0}
	y := [3]float32{0, 1, 0}
	z := [3]float32{0, 0, 1}
	if c := Cross3f(x, y); !close3f(c, z, 1e-6) {
		t.Errorf("x cross y = %v, expected z", c)
	}
	if c := Cross3f(y, x); !close3f(c, Scale3f(z, -1), 1e-6) {
		t.Errorf("y cross x = %v, expected -z", c)
	}
}

func TestQuatRotate(t *testing.T) {
	type testCase struct {
		axis  [3]float32
		angle float32
		in    [3]float32
		out   [3]float32
	}
	testCases := []testCase{
		// 90 degrees about y takes +x to -z
		{axis: [3]float32{0, 1, 0}, angle: gomath.Pi / 2, in: [3]float32{1, 0, 0}, out: [3]float32{0, 0, -1}},
		// 180 degrees about z negates x
		{axis: [3]float32{0, 0, 1}, angle: gomath.Pi, in: [3]float32{1, 0, 0}, out: [3]float32{-1, 0, 0}},
		// rotation about the vector itself is a no-op
		{axis: [3]float32{1, 1, 1}, angle: 1.234, in: [3]float32{2, 2, 2}, out: [3]float32{2, 2, 2}},
	}

	for _, c := range testCases {
		q := MakeQuatAxisAngle(c.axis, c.angle)
		if got := q.Rotate(c.in); !close3f(got, c.out, 1e-5) {
			t.Errorf("axis %v angle %g: rotated %v to %v, expected %v", c.axis, c.angle, c.in, got, c.out)
		}
	}
}

func TestQuatInverse(t *testing.T) {
	q := MakeQuatAxisAngle([3]float32{.3, -.5, .2}, 0.7)
	v := [3]float32{1, 2, 3}
	if got := q.Inverse().Rotate(q.Rotate(v)); !close3f(got, v, 1e-5) {
		t.Errorf("inverse rotation round trip gave %v, expected %v", got, v)
	}
}

func TestQuatSlerp(t *testing.T) {
	a := IdentityQuat()
	b := MakeQuatAxisAngle([3]float32{0, 1, 0}, gomath.Pi/2)

	// Endpoints
	if got := a.Slerp(0, b); Abs(got.Dot(a)) < 0.99999 {
		t.Errorf("slerp(0) = %+v, expected %+v", got, a)
	}
	if got := a.Slerp(1, b); Abs(got.Dot(b)) < 0.99999 {
		t.Errorf("slerp(1) = %+v, expected %+v", got, b)
	}

	// Halfway should be a 45 degree rotation about y.
	mid := a.Slerp(0.5, b)
	want := MakeQuatAxisAngle([3]float32{0, 1, 0}, gomath.Pi/4)
	if Abs(mid.Dot(want)) < 0.99999 {
		t.Errorf("slerp(0.5) = %+v, expected %+v", mid, want)
	}

	// Nearly-parallel endpoints must not blow up.
	c := MakeQuatAxisAngle([3]float32{0, 1, 0}, 1e-5)
	n := a.Slerp(0.5, c)
	if n.Dot(n) < 0.99999 || n.Dot(n) > 1.00001 {
		t.Errorf("slerp of near-parallel quats isn't normalized: %+v", n)
	}
}

func TestTransformCompose(t *testing.T) {
	// A transform times its inverse is the identity.
	tf := Transform{
		Pos:    [3]float32{5, -2, 9},
		Orient: MakeQuatAxisAngle([3]float32{1, 2, 0}, 0.9),
	}
	id := tf.Mul(tf.Inverse())
	if !close3f(id.Pos, [3]float32{}, 1e-4) {
		t.Errorf("tf * tf^-1 translation = %v, expected zero", id.Pos)
	}
	if Abs(id.Orient.Dot(IdentityQuat())) < 0.99999 {
		t.Errorf("tf * tf^-1 rotation = %+v, expected identity", id.Orient)
	}

	// Expressing a world point in a frame and mapping it back round-trips.
	p := [3]float32{1, 2, 3}
	local := tf.Inverse().TransformPoint(p)
	if got := tf.TransformPoint(local); !close3f(got, p, 1e-4) {
		t.Errorf("frame round trip gave %v, expected %v", got, p)
	}
}

func TestMakeQuatFromScaledAxis(t *testing.T) {
	// Zero angular velocity gives the identity, not NaNs.
	if q := MakeQuatFromScaledAxis([3]float32{}); q != IdentityQuat() {
		t.Errorf("zero scaled axis gave %+v, expected identity", q)
	}

	w := [3]float32{0, 0, 1.5}
	q := MakeQuatFromScaledAxis(w)
	want := MakeQuatAxisAngle([3]float32{0, 0, 1}, 1.5)
	if Abs(q.Dot(want)) < 0.99999 {
		t.Errorf("scaled axis %v gave %+v, expected %+v", w, q, want)
	}
}
