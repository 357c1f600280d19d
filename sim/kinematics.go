// sim/kinematics.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "github.com/slipstream-vr/slipstream/math"

// KinematicState is the velocity-level state of a rigid body: linear
// and angular velocity plus the mass properties that convert impulses
// into velocity changes. Positions live in the body's Transform so that
// the same state can drive ships, pickups, and decorations alike.
type KinematicState struct {
	Vel    [3]float32
	AngVel [3]float32
	Mass   float32
	Moment float32
}

// Force applies a linear impulse: the velocity change is the impulse
// scaled by the inverse mass. Callers fold dt into the impulse.
func (k *KinematicState) Force(impulse [3]float32) {
	k.Vel = math.Add3f(k.Vel, math.Scale3f(impulse, 1/k.Mass))
}

// Torque applies an angular impulse about the body's center, scaled by
// the inverse moment of inertia.
func (k *KinematicState) Torque(impulse [3]float32) {
	k.AngVel = math.Add3f(k.AngVel, math.Scale3f(impulse, 1/k.Moment))
}

// Integrate advances tf by one explicit Euler step: position moves
// along Vel and the orientation is pre-multiplied by the rotation that
// AngVel sweeps out over dt.
func (k *KinematicState) Integrate(tf *math.Transform, dt float32) {
	tf.Pos = math.Add3f(tf.Pos, math.Scale3f(k.Vel, dt))
	tf.Orient = math.MakeQuatFromScaledAxis(math.Scale3f(k.AngVel, dt)).Mul(tf.Orient).Normalize()
}

// Body pairs a pose with its kinematic state; ambient entities that the
// server owns outright (pickups, floating scenery) are simulated as
// plain Bodies.
type Body struct {
	Transform  math.Transform
	Kinematics KinematicState
}

// Simulate advances every body by one step, applying gravity first so a
// body's velocity already includes this step's acceleration when its
// position is integrated.
func Simulate(bodies []*Body, gravity [3]float32, dt float32) {
	for _, b := range bodies {
		b.Kinematics.Vel = math.Add3f(b.Kinematics.Vel, math.Scale3f(gravity, dt))
		b.Kinematics.Integrate(&b.Transform, dt)
	}
}
