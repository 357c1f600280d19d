// client/client_test.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"testing"

	"github.com/slipstream-vr/slipstream/math"
	"github.com/slipstream-vr/slipstream/sim"
)

// straightTrack gives identity-oriented control points along +x with
// the finish line at the origin.
func straightTrack(t *testing.T) *sim.Curve {
	t.Helper()
	ctrlps := make([]math.Transform, 20)
	for i := range ctrlps {
		ctrlps[i] = math.Transform{
			Pos:    [3]float32{float32(i-sim.FinishLineIndex) * sim.TrackSegmentLength, 0, 0},
			Orient: math.IdentityQuat(),
		}
	}
	c, err := sim.MakeCurve(ctrlps)
	if err != nil {
		t.Fatalf("MakeCurve: %v", err)
	}
	return c
}

func makeOfflineClient(t *testing.T) *RaceClient {
	t.Helper()
	return NewRaceClient(1, "test", "token", straightTrack(t), nil, nil)
}

func startOfflineRace(c *RaceClient, spawn math.Transform, now float32) sim.FrameTime {
	c.handleEvent(sim.Event{Type: sim.RaceStartedEvent, Client: c.id, Spawn: spawn})
	ft := sim.FrameTime{Delta: 1.0 / 60, Time: now}
	c.countdown.Update(ft)
	return ft
}

func TestClientRaceStartedEvent(t *testing.T) {
	c := makeOfflineClient(t)

	spawn := math.Transform{Pos: [3]float32{0, 0, -5}, Orient: math.IdentityQuat()}

	// Someone else's start event is not ours.
	c.handleEvent(sim.Event{Type: sim.RaceStartedEvent, Client: 7, Spawn: spawn})
	if _, ok := c.Mode().(Spectator); !ok {
		t.Fatalf("another client's start event changed our mode to %v", c.Mode())
	}

	c.handleEvent(sim.Event{Type: sim.RaceStartedEvent, Client: c.id, Spawn: spawn})
	racing, ok := c.Mode().(Racing)
	if !ok {
		t.Fatalf("got mode %v, expected Racing", c.Mode())
	}
	if racing.Lap != 0 {
		t.Errorf("got lap %d, expected 0", racing.Lap)
	}
	if c.Ship.Transform.Pos != spawn.Pos {
		t.Errorf("ship at %v, expected spawn %v", c.Ship.Transform.Pos, spawn.Pos)
	}
}

func TestClientFrozenDuringCountdown(t *testing.T) {
	c := makeOfflineClient(t)
	spawn := math.Transform{Pos: [3]float32{-95, 0, 0}, Orient: math.IdentityQuat()}
	ft := startOfflineRace(c, spawn, 100)

	// Full throttle during the countdown goes nowhere.
	for i := 0; i < 60; i++ {
		c.updateShip(ft, sim.InputAbstraction{Throttle: 1})
	}
	if c.Ship.Transform.Pos != spawn.Pos {
		t.Errorf("ship moved to %v during countdown", c.Ship.Transform.Pos)
	}

	// After the countdown it flies.
	ft.Time += sim.CountdownSeconds
	c.countdown.Update(ft)
	for i := 0; i < 60; i++ {
		c.updateShip(ft, sim.InputAbstraction{Throttle: 1})
	}
	if c.Ship.Transform.Pos == spawn.Pos {
		t.Errorf("ship never moved after the countdown")
	}
}

func TestClientLapsAndFinish(t *testing.T) {
	c := makeOfflineClient(t)
	spawn := math.Transform{Pos: [3]float32{-5, 0, 0}, Orient: math.IdentityQuat()}
	ft := startOfflineRace(c, spawn, 0)
	ft.Time += sim.CountdownSeconds + 1
	c.countdown.Update(ft)

	sub := c.Subscribe()

	crossLine := func() {
		// Teleport the ship across the finish plane, as the track
		// loop would carry it.
		c.Ship.Transform.Pos = [3]float32{-5, 0, 0}
		c.laps.Reset(c.Ship.Transform.Pos)
		c.Ship.Kinematics.Vel = [3]float32{600, 0, 0} // 10/tick
		c.updateShip(ft, sim.InputAbstraction{})
	}

	// The first crossing is the start line; the race runs until the lap
	// counter passes NLaps, i.e. NLaps+1 crossings in total.
	for lap := 1; lap <= sim.NLaps; lap++ {
		crossLine()
		racing, ok := c.Mode().(Racing)
		if !ok {
			t.Fatalf("crossing %d: got mode %v, expected Racing", lap, c.Mode())
		}
		if racing.Lap != lap {
			t.Fatalf("got lap %d, expected %d", racing.Lap, lap)
		}
	}

	// Final crossing ends the race.
	crossLine()
	if _, ok := c.Mode().(Spectator); !ok {
		t.Fatalf("got mode %v, expected Spectator after finishing", c.Mode())
	}

	// Every crossing gets a lap event, the final one included.
	var laps, finishes int
	for _, ev := range sub.Get() {
		switch ev.Type {
		case sim.LapCompletedEvent:
			laps++
		case sim.RaceFinishedEvent:
			finishes++
		}
	}
	if laps != sim.NLaps+1 || finishes != 1 {
		t.Errorf("got %d lap events and %d finish events, expected %d and 1",
			laps, finishes, sim.NLaps+1)
	}
}

func TestClientToggleReady(t *testing.T) {
	c := makeOfflineClient(t)

	c.ToggleReady()
	if spec, ok := c.Mode().(Spectator); !ok || !spec.Ready {
		t.Errorf("got mode %v, expected ready Spectator", c.Mode())
	}
	c.ToggleReady()
	if spec, ok := c.Mode().(Spectator); !ok || spec.Ready {
		t.Errorf("got mode %v, expected not-ready Spectator", c.Mode())
	}

	// Ready is meaningless mid-race.
	c.mode = Racing{Client: c.id, Lap: 1}
	c.ToggleReady()
	if _, ok := c.Mode().(Racing); !ok {
		t.Errorf("ToggleReady while racing changed mode to %v", c.Mode())
	}
}

func TestClientCycleWatch(t *testing.T) {
	c := makeOfflineClient(t)
	c.State.Ships = map[sim.ClientID]*sim.ShipRecord{
		2: {Client: 2},
		5: {Client: 5},
	}

	watching := func() *sim.ClientID {
		return c.Mode().(Spectator).Watching
	}

	if w := watching(); w != nil {
		t.Fatalf("initially watching %d, expected overview", *w)
	}
	c.CycleWatch()
	if w := watching(); w == nil || *w != 2 {
		t.Errorf("got %v, expected ship 2", w)
	}
	c.CycleWatch()
	if w := watching(); w == nil || *w != 5 {
		t.Errorf("got %v, expected ship 5", w)
	}
	c.CycleWatch()
	if w := watching(); w != nil {
		t.Errorf("got %d, expected overview after the last ship", *w)
	}

	// A departing ship stops being watched.
	c.CycleWatch()
	c.handleEvent(sim.Event{Type: sim.ClientLeftEvent, Client: 2})
	if w := watching(); w != nil {
		t.Errorf("still watching %d after it left", *w)
	}
}

func TestClientAutoWatch(t *testing.T) {
	c := makeOfflineClient(t)
	c.State.Ships = map[sim.ClientID]*sim.ShipRecord{
		2: {Client: 2},
		5: {Client: 5, IsRacing: true},
	}

	// A spectator with no target latches onto the first racing ship.
	c.ensureWatchTarget()
	if w := c.Mode().(Spectator).Watching; w == nil || *w != 5 {
		t.Errorf("got %v, expected ship 5", w)
	}

	// An explicit choice is left alone.
	two := sim.ClientID(2)
	c.mode = Spectator{Watching: &two}
	c.ensureWatchTarget()
	if w := c.Mode().(Spectator).Watching; w == nil || *w != 2 {
		t.Errorf("got %v, expected ship 2 to stick", w)
	}

	// Nobody racing: stay on the overview.
	c.mode = Spectator{}
	c.State.Ships[5].IsRacing = false
	c.ensureWatchTarget()
	if w := c.Mode().(Spectator).Watching; w != nil {
		t.Errorf("watching %d with nobody racing", *w)
	}
}
