// server/manager_test.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"errors"
	"testing"
	"time"

	"github.com/slipstream-vr/slipstream/sim"
)

func join(t *testing.T, rm *RaceManager, name string) JoinResult {
	t.Helper()
	var result JoinResult
	err := rm.Join(&JoinRequest{Version: SlipstreamRPCVersion, Name: name}, &result)
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	return result
}

func TestManagerJoin(t *testing.T) {
	rm := NewRaceManager(sim.DefaultCircuit(), "", 0, nil)

	a := join(t, rm, "ayrton")
	b := join(t, rm, "")

	if a.ClientID == b.ClientID {
		t.Errorf("both clients assigned id %d", a.ClientID)
	}
	if a.Token == b.Token || a.Token == "" {
		t.Errorf("bad tokens %q, %q", a.Token, b.Token)
	}
	if a.Track != sim.DefaultTrackName {
		t.Errorf("got track %q, expected %q", a.Track, sim.DefaultTrackName)
	}
}

func TestManagerVersionMismatch(t *testing.T) {
	rm := NewRaceManager(sim.DefaultCircuit(), "", 0, nil)

	var result JoinResult
	err := rm.Join(&JoinRequest{Version: SlipstreamRPCVersion + 1}, &result)
	if !errors.Is(err, ErrRPCVersionMismatch) {
		t.Errorf("got %v, expected ErrRPCVersionMismatch", err)
	}
}

func TestManagerServerFull(t *testing.T) {
	rm := NewRaceManager(sim.DefaultCircuit(), "", 1, nil)

	join(t, rm, "first")

	var result JoinResult
	err := rm.Join(&JoinRequest{Version: SlipstreamRPCVersion}, &result)
	if !errors.Is(err, ErrServerFull) {
		t.Errorf("got %v, expected ErrServerFull", err)
	}
}

func TestManagerInvalidToken(t *testing.T) {
	rm := NewRaceManager(sim.DefaultCircuit(), "", 0, nil)

	var update RaceStateUpdate
	if err := rm.GetStateUpdate("nope", &update); !errors.Is(err, ErrInvalidClientToken) {
		t.Errorf("GetStateUpdate: got %v, expected ErrInvalidClientToken", err)
	}
	if err := rm.SetReady("nope", true); !errors.Is(err, ErrInvalidClientToken) {
		t.Errorf("SetReady: got %v, expected ErrInvalidClientToken", err)
	}
	if err := rm.SignOff("nope"); !errors.Is(err, ErrInvalidClientToken) {
		t.Errorf("SignOff: got %v, expected ErrInvalidClientToken", err)
	}
}

func TestManagerStateUpdate(t *testing.T) {
	rm := NewRaceManager(sim.DefaultCircuit(), "", 0, nil)

	a := join(t, rm, "ayrton")

	// Wait for the race loop to pick the client up from the roster.
	deadline := time.Now().Add(2 * time.Second)
	for {
		var update RaceStateUpdate
		if err := rm.GetStateUpdate(a.Token, &update); err != nil {
			t.Fatalf("GetStateUpdate: %v", err)
		}
		if _, ok := update.Ships[a.ClientID]; ok {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("ship record never appeared in state updates")
		}
		time.Sleep(raceUpdateInterval)
	}
}

func TestManagerSignOffRemovesShip(t *testing.T) {
	rm := NewRaceManager(sim.DefaultCircuit(), "", 0, nil)

	a := join(t, rm, "ayrton")
	b := join(t, rm, "alain")

	if err := rm.SignOff(a.Token); err != nil {
		t.Fatalf("SignOff: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		var update RaceStateUpdate
		if err := rm.GetStateUpdate(b.Token, &update); err != nil {
			t.Fatalf("GetStateUpdate: %v", err)
		}
		_, gone := update.Ships[a.ClientID]
		if _, ok := update.Ships[b.ClientID]; ok && !gone {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("departed ship still in state updates: %v", update.Ships)
		}
		time.Sleep(raceUpdateInterval)
	}

	// The departed token no longer works.
	var update RaceStateUpdate
	if err := rm.GetStateUpdate(a.Token, &update); !errors.Is(err, ErrInvalidClientToken) {
		t.Errorf("got %v, expected ErrInvalidClientToken", err)
	}
}

func TestManagerChatRelay(t *testing.T) {
	rm := NewRaceManager(sim.DefaultCircuit(), "", 0, nil)

	a := join(t, rm, "ayrton")
	b := join(t, rm, "alain")

	if err := rm.SendChat(a.Token, "good race"); err != nil {
		t.Fatalf("SendChat: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		var update RaceStateUpdate
		if err := rm.GetStateUpdate(b.Token, &update); err != nil {
			t.Fatalf("GetStateUpdate: %v", err)
		}
		var found bool
		for _, ev := range update.Events {
			if ev.Type == sim.ChatMessageEvent && ev.Client == a.ClientID {
				if want := "ayrton: good race"; ev.Message != want {
					t.Errorf("got chat %q, expected %q", ev.Message, want)
				}
				found = true
			}
		}
		if found {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("chat message never arrived")
		}
		time.Sleep(raceUpdateInterval)
	}
}
