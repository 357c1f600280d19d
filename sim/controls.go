// sim/controls.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "github.com/slipstream-vr/slipstream/math"

// Track cross-section: ships are confined to a box around the
// centerline this wide and tall, and consecutive control points are
// nominally this far apart.
const (
	TrackWidth         = 32
	TrackHeight        = 10
	TrackSegmentLength = 10
)

const (
	throttleDeadzone = 0.1
	rollDeadzone     = 0.05

	// How far ahead of the nearest control point the ship steers
	// toward, in control point units.
	steeringLookAhead = 3.5

	// Max visual bank angle at full roll input.
	maxBankAngle = math.Pi / 16
)

// InputAbstraction is one frame's worth of normalized control input,
// each axis in [-1, 1]. It is device-independent; whatever produces it
// (keyboard, gamepad, a bot) is irrelevant to the controller.
type InputAbstraction struct {
	Pitch    float32
	Yaw      float32
	Roll     float32
	Throttle float32
}

// ShipCharacteristics are the tuning constants for one ship model.
type ShipCharacteristics struct {
	Mass       float32
	Moment     float32
	MaxTwirl   float32
	MaxImpulse float32
}

// DefaultShip is the tuning every client currently flies with.
func DefaultShip() ShipCharacteristics {
	return ShipCharacteristics{
		Mass:       1,
		Moment:     1,
		MaxTwirl:   math.Pi / 4,
		MaxImpulse: 30,
	}
}

// ShipController applies one tick of flight control to a ship: out of
// bounds recovery, throttle thrust, roll-driven lateral thrust, track
// following steering, and the vertical rail lock that keeps the ship
// glued to the track surface. It mutates tf and kt in place; the caller
// integrates afterwards. The controller is a pure function of its
// arguments, so client prediction and replays stay deterministic.
func ShipController(dt float32, ship ShipCharacteristics, input InputAbstraction,
	path *Curve, tf *math.Transform, kt *KinematicState) {
	nearestIdx := path.NearestControlPoint(tf.Pos)
	nearest := path.ControlPoint(nearestIdx)

	// Out of bounds: snap back onto the centerline and kill all motion.
	local := nearest.Inverse().Mul(*tf)
	if math.Abs(local.Pos[2]) > TrackWidth/2 || math.Abs(local.Pos[1]) > TrackHeight/2 {
		*tf = nearest
		kt.Vel = [3]float32{}
		kt.AngVel = [3]float32{}
		return
	}

	// Throttle thrust along the ship's own forward axis.
	if math.Abs(input.Throttle) > throttleDeadzone {
		wanted := math.Scale3f(tf.Orient.Rotate([3]float32{1, 0, 0}),
			input.Throttle*ship.MaxImpulse)
		if mag := math.Length3f(wanted); mag > 0 {
			impulse := math.Scale3f(wanted, min(mag, ship.MaxImpulse)/mag)
			kt.Force(math.Scale3f(impulse, dt))
		}
	}

	desiredRoll := input.Roll
	if math.Abs(desiredRoll) < rollDeadzone {
		desiredRoll = 0
	}

	// Steer toward a point a few control points ahead, banked by the
	// roll input. The slerp rate scales with forward speed so a parked
	// ship doesn't spin in place.
	future := path.Lerp(float32(nearestIdx) + steeringLookAhead)
	wantedOrient := future.Orient.Mul(
		math.MakeQuatAxisAngle([3]float32{1, 0, 0}, desiredRoll*maxBankAngle))

	trackRelVel := nearest.Orient.Inverse().Rotate(kt.Vel)
	lerpSpeed := dt * trackRelVel[0] / TrackSegmentLength
	tf.Orient = tf.Orient.Slerp(2*lerpSpeed, wantedOrient)

	// Lateral thrusters: rolling slides the ship across the track, with
	// available power growing with speed so turns stay flyable at pace.
	horizForce := nearest.Orient.Rotate([3]float32{0, 0, 1})
	availablePower := math.Pow(math.Abs(trackRelVel[0]), 1.1) + math.Abs(trackRelVel[2]) + 1
	kt.Vel = math.Add3f(kt.Vel,
		math.Scale3f(horizForce, dt*availablePower*math.Sin(desiredRoll*math.Pi/2)))

	// Vertical rail lock: cancel motion off the track plane and ease
	// the ship's height onto the centerline's.
	kt.Vel = math.Sub3f(kt.Vel,
		math.Scale3f(nearest.Orient.Rotate([3]float32{0, 1, 0}), trackRelVel[1]))
	tf.Pos[1] = math.Lerp(lerpSpeed, tf.Pos[1], nearest.Pos[1])
}
