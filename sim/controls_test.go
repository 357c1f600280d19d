// sim/controls_test.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"

	"github.com/slipstream-vr/slipstream/math"
)

const controllerDt = 1.0 / 60

func TestControllerOutOfBoundsRespawn(t *testing.T) {
	path := straightTrack(t, 20)
	cp := path.ControlPoint(5)

	// Past the lateral edge of the track.
	tf := math.Transform{
		Pos:    math.Add3f(cp.Pos, [3]float32{0, 0, TrackWidth/2 + 1}),
		Orient: math.IdentityQuat(),
	}
	kt := KinematicState{Vel: [3]float32{25, 0, 0}, Mass: 1, Moment: 1}

	ShipController(controllerDt, DefaultShip(), InputAbstraction{}, path, &tf, &kt)

	if math.Distance3f(tf.Pos, cp.Pos) > 1e-5 {
		t.Errorf("got position %v, expected respawn at %v", tf.Pos, cp.Pos)
	}
	if math.Length3f(kt.Vel) != 0 || math.Length3f(kt.AngVel) != 0 {
		t.Errorf("respawn kept motion: vel %v angvel %v", kt.Vel, kt.AngVel)
	}
}

func TestControllerAboveTrackRespawn(t *testing.T) {
	path := straightTrack(t, 20)
	cp := path.ControlPoint(5)

	tf := math.Transform{
		Pos:    math.Add3f(cp.Pos, [3]float32{0, TrackHeight/2 + 1, 0}),
		Orient: math.IdentityQuat(),
	}
	kt := KinematicState{Mass: 1, Moment: 1}

	ShipController(controllerDt, DefaultShip(), InputAbstraction{}, path, &tf, &kt)

	if math.Distance3f(tf.Pos, cp.Pos) > 1e-5 {
		t.Errorf("got position %v, expected respawn at %v", tf.Pos, cp.Pos)
	}
}

func TestControllerThrottleDeadzone(t *testing.T) {
	path := straightTrack(t, 20)
	tf := path.ControlPoint(5)
	kt := KinematicState{Mass: 1, Moment: 1}

	ShipController(controllerDt, DefaultShip(), InputAbstraction{Throttle: 0.05},
		path, &tf, &kt)

	if math.Length3f(kt.Vel) != 0 {
		t.Errorf("deadzone throttle produced velocity %v", kt.Vel)
	}
}

func TestControllerThrottleThrust(t *testing.T) {
	path := straightTrack(t, 20)
	ship := DefaultShip()
	tf := path.ControlPoint(5)
	kt := KinematicState{Mass: ship.Mass, Moment: ship.Moment}

	ShipController(controllerDt, ship, InputAbstraction{Throttle: 1}, path, &tf, &kt)

	want := ship.MaxImpulse * controllerDt / ship.Mass
	if got := math.Length3f(kt.Vel); math.Abs(got-want) > 1e-4 {
		t.Errorf("got speed %v, expected %v", got, want)
	}
	// Thrust pushes along the track's forward axis here.
	if kt.Vel[0] <= 0 {
		t.Errorf("expected forward velocity, got %v", kt.Vel)
	}
}

func TestControllerRollSlides(t *testing.T) {
	path := straightTrack(t, 20)
	tf := path.ControlPoint(5)
	kt := KinematicState{Vel: [3]float32{10, 0, 0}, Mass: 1, Moment: 1}

	ShipController(controllerDt, DefaultShip(), InputAbstraction{Roll: 1}, path, &tf, &kt)

	if kt.Vel[2] <= 0 {
		t.Errorf("full roll should slide the ship laterally, got velocity %v", kt.Vel)
	}
}

func TestControllerRollDeadzone(t *testing.T) {
	path := straightTrack(t, 20)
	tf := path.ControlPoint(5)
	kt := KinematicState{Vel: [3]float32{10, 0, 0}, Mass: 1, Moment: 1}

	ShipController(controllerDt, DefaultShip(), InputAbstraction{Roll: 0.02}, path, &tf, &kt)

	if kt.Vel[2] != 0 {
		t.Errorf("deadzone roll should not slide the ship, got velocity %v", kt.Vel)
	}
}

func TestControllerVerticalRailLock(t *testing.T) {
	path := straightTrack(t, 20)
	tf := path.ControlPoint(5)
	kt := KinematicState{Vel: [3]float32{10, 4, 0}, Mass: 1, Moment: 1}

	ShipController(controllerDt, DefaultShip(), InputAbstraction{}, path, &tf, &kt)

	if math.Abs(kt.Vel[1]) > 1e-5 {
		t.Errorf("vertical velocity survived the rail lock: %v", kt.Vel)
	}
}

func TestControllerDeterministic(t *testing.T) {
	path := DefaultCircuit()
	ship := DefaultShip()
	input := InputAbstraction{Throttle: 0.8, Roll: -0.3}

	run := func() (math.Transform, KinematicState) {
		tf := path.ControlPoint(0)
		kt := KinematicState{Mass: ship.Mass, Moment: ship.Moment}
		for i := 0; i < 300; i++ {
			ShipController(controllerDt, ship, input, path, &tf, &kt)
			kt.Integrate(&tf, controllerDt)
		}
		return tf, kt
	}

	tfa, kta := run()
	tfb, ktb := run()
	if tfa != tfb || kta != ktb {
		t.Errorf("identical runs diverged: %+v/%+v vs %+v/%+v", tfa, kta, tfb, ktb)
	}
}
