// math/vecmat.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

///////////////////////////////////////////////////////////////////////////
// point/vector 3f

// Various useful functions for arithmetic with 3D points/vectors.
// Names are brief in order to avoid clutter when they're used.

// a+b
func Add3f(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

// a-b
func Sub3f(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

// a*s
func Scale3f(a [3]float32, s float32) [3]float32 {
	return [3]float32{s * a[0], s * a[1], s * a[2]}
}

func Dot3f(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func Cross3f(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

// Linearly interpolate x of the way between a and b.
func Lerp3f(x float32, a, b [3]float32) [3]float32 {
	return [3]float32{(1-x)*a[0] + x*b[0], (1-x)*a[1] + x*b[1], (1-x)*a[2] + x*b[2]}
}

// Length of v
func Length3f(v [3]float32) float32 {
	return Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Distance between two points
func Distance3f(a, b [3]float32) float32 {
	return Length3f(Sub3f(a, b))
}

// Normalizes the given vector; zero vectors are returned unchanged rather
// than dividing by zero.
func Normalize3f(a [3]float32) [3]float32 {
	l := Length3f(a)
	if l == 0 {
		return [3]float32{0, 0, 0}
	}
	return Scale3f(a, 1/l)
}

///////////////////////////////////////////////////////////////////////////
// quaternions

// Quat is a unit quaternion representing a 3D rotation.
type Quat struct {
	W, X, Y, Z float32
}

func IdentityQuat() Quat {
	return Quat{W: 1}
}

// MakeQuatAxisAngle returns the rotation of angle radians about the given
// axis, which need not be normalized. A zero axis gives the identity.
func MakeQuatAxisAngle(axis [3]float32, angle float32) Quat {
	axis = Normalize3f(axis)
	if axis == ([3]float32{}) {
		return IdentityQuat()
	}
	s, c := Sin(angle/2), Cos(angle/2)
	return Quat{W: c, X: s * axis[0], Y: s * axis[1], Z: s * axis[2]}
}

// MakeQuatFromScaledAxis returns the rotation whose axis is v's direction
// and whose angle is v's length (the exponential map, e.g. an angular
// velocity integrated over a time step).
func MakeQuatFromScaledAxis(v [3]float32) Quat {
	return MakeQuatAxisAngle(v, Length3f(v))
}

// MakeQuatEulerXYZ composes rotations about the x, y, and z axes (applied
// in that order).
func MakeQuatEulerXYZ(x, y, z float32) Quat {
	qx := MakeQuatAxisAngle([3]float32{1, 0, 0}, x)
	qy := MakeQuatAxisAngle([3]float32{0, 1, 0}, y)
	qz := MakeQuatAxisAngle([3]float32{0, 0, 1}, z)
	return qz.Mul(qy).Mul(qx)
}

// MakeQuatFromAxes returns the rotation that maps the standard basis to
// the given orthonormal frame (x, y, z as the columns of the rotation
// matrix). Shepperd's method: branch on the largest diagonal term for
// numerical stability.
func MakeQuatFromAxes(x, y, z [3]float32) Quat {
	// Matrix entries m[row][col], columns x, y, z.
	m00, m01, m02 := x[0], y[0], z[0]
	m10, m11, m12 := x[1], y[1], z[1]
	m20, m21, m22 := x[2], y[2], z[2]

	var q Quat
	if tr := m00 + m11 + m22; tr > 0 {
		s := Sqrt(tr + 1)
		q.W = s / 2
		s = 1 / (2 * s)
		q.X = (m21 - m12) * s
		q.Y = (m02 - m20) * s
		q.Z = (m10 - m01) * s
	} else if m00 >= m11 && m00 >= m22 {
		s := Sqrt(1 + m00 - m11 - m22)
		q.X = s / 2
		s = 1 / (2 * s)
		q.W = (m21 - m12) * s
		q.Y = (m01 + m10) * s
		q.Z = (m02 + m20) * s
	} else if m11 >= m22 {
		s := Sqrt(1 + m11 - m00 - m22)
		q.Y = s / 2
		s = 1 / (2 * s)
		q.W = (m02 - m20) * s
		q.X = (m01 + m10) * s
		q.Z = (m12 + m21) * s
	} else {
		s := Sqrt(1 + m22 - m00 - m11)
		q.Z = s / 2
		s = 1 / (2 * s)
		q.W = (m10 - m01) * s
		q.X = (m02 + m20) * s
		q.Y = (m12 + m21) * s
	}
	return q.Normalize()
}

// Mul returns the composed rotation: r applied first, then q (the
// Hamilton product q*r).
func (q Quat) Mul(r Quat) Quat {
	return Quat{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// Inverse returns the reverse rotation; q is assumed to be unit length.
func (q Quat) Inverse() Quat {
	return Quat{W: q.W, X: -q.X, Y: -q.Y, Z: -q.Z}
}

func (q Quat) Dot(r Quat) float32 {
	return q.W*r.W + q.X*r.X + q.Y*r.Y + q.Z*r.Z
}

func (q Quat) Normalize() Quat {
	l := Sqrt(q.Dot(q))
	if l == 0 {
		return IdentityQuat()
	}
	return Quat{W: q.W / l, X: q.X / l, Y: q.Y / l, Z: q.Z / l}
}

// Rotate applies the rotation to v.
func (q Quat) Rotate(v [3]float32) [3]float32 {
	// v' = v + 2*cross(q.xyz, cross(q.xyz, v) + w*v)
	u := [3]float32{q.X, q.Y, q.Z}
	t := Scale3f(Cross3f(u, v), 2)
	return Add3f(Add3f(v, Scale3f(t, q.W)), Cross3f(u, t))
}

// Slerp spherically interpolates x of the way from q to r. x is not
// clamped; negative x or x > 1 extrapolate, which the flight model relies
// on. Nearly-parallel quaternions fall back to normalized lerp.
func (q Quat) Slerp(x float32, r Quat) Quat {
	d := q.Dot(r)
	if d < 0 {
		// Take the short way around.
		r = Quat{W: -r.W, X: -r.X, Y: -r.Y, Z: -r.Z}
		d = -d
	}

	if d > 0.9995 {
		return Quat{
			W: Lerp(x, q.W, r.W),
			X: Lerp(x, q.X, r.X),
			Y: Lerp(x, q.Y, r.Y),
			Z: Lerp(x, q.Z, r.Z),
		}.Normalize()
	}

	theta := SafeACos(d)
	s := Sin(theta)
	wq, wr := Sin((1-x)*theta)/s, Sin(x*theta)/s
	return Quat{
		W: wq*q.W + wr*r.W,
		X: wq*q.X + wr*r.X,
		Y: wq*q.Y + wr*r.Y,
		Z: wq*q.Z + wr*r.Z,
	}.Normalize()
}

///////////////////////////////////////////////////////////////////////////
// rigid transforms

// Transform is a rigid transformation: a rotation followed by a
// translation. It doubles as a pose (position + orientation).
type Transform struct {
	Pos    [3]float32
	Orient Quat
}

func IdentityTransform() Transform {
	return Transform{Orient: IdentityQuat()}
}

// Mul composes two transforms; t is applied after o.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		Pos:    Add3f(t.Pos, t.Orient.Rotate(o.Pos)),
		Orient: t.Orient.Mul(o.Orient),
	}
}

func (t Transform) Inverse() Transform {
	inv := t.Orient.Inverse()
	return Transform{
		Pos:    Scale3f(inv.Rotate(t.Pos), -1),
		Orient: inv,
	}
}

// TransformPoint maps p from t's local space to world space.
func (t Transform) TransformPoint(p [3]float32) [3]float32 {
	return Add3f(t.Pos, t.Orient.Rotate(p))
}

// LerpTransform interpolates positions linearly and orientations
// spherically, x of the way from a to b.
func LerpTransform(x float32, a, b Transform) Transform {
	return Transform{
		Pos:    Lerp3f(x, a.Pos, b.Pos),
		Orient: a.Orient.Slerp(x, b.Orient),
	}
}
