// sim/state.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"

	"github.com/slipstream-vr/slipstream/math"
)

// ClientID identifies one connected client for the lifetime of its
// session. IDs are never reused while the server is running.
type ClientID uint32

// FrameTime carries the per-tick clock: Delta is the seconds elapsed
// since the previous tick and Time is seconds since the session started.
type FrameTime struct {
	Delta float32
	Time  float32
}

// ShipRecord is the server's view of a single connected client's ship.
// Transform and Kinematics are whatever the client last uploaded; the
// server relays them without re-simulating.
type ShipRecord struct {
	Client     ClientID
	IsRacing   bool
	IsReady    bool
	Transform  math.Transform
	Kinematics KinematicState
}

func (s *ShipRecord) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("client", uint64(s.Client)),
		slog.Bool("racing", s.IsRacing),
		slog.Bool("ready", s.IsReady))
}

// ShipUpload is one client's per-tick report of its own ship state.
type ShipUpload struct {
	Transform  math.Transform
	Kinematics KinematicState
}

// Winner records the first (or earliest-finishing) client to complete
// the race; it is cleared again when the race resets.
type Winner struct {
	Client     ClientID
	FinishTime float32
}

// StateUpdate is the snapshot returned to each client when it polls the
// server; Ships is deep-copied so callers can hold it without racing
// the simulation.
type StateUpdate struct {
	ServerTime float32
	Ships      map[ClientID]*ShipRecord
	Winner     *Winner
}
