// client/state.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"fmt"

	"github.com/slipstream-vr/slipstream/sim"
)

// GameMode is the client's position in the race lifecycle. It is a
// closed sum: at any instant a client is either spectating or racing,
// never both, and the compiler enforces that code switching on the mode
// handles exactly these two cases.
type GameMode interface {
	isGameMode()
	String() string
}

// Spectator is the mode between races: the client may watch another
// ship and flag itself ready for the next start.
type Spectator struct {
	// Watching is the ship the camera follows, or nil for the overview.
	Watching *sim.ClientID
	Ready    bool
}

// Racing is the mode while driving: the client owns a ship. Lap counts
// completed finish line crossings, starting at zero on spawn; the first
// crossing is the start line, so the race takes NLaps+1 crossings.
type Racing struct {
	Client sim.ClientID
	Lap    int
}

func (Spectator) isGameMode() {}
func (Racing) isGameMode()    {}

func (s Spectator) String() string {
	switch {
	case s.Ready:
		return "spectating (ready)"
	case s.Watching != nil:
		return fmt.Sprintf("spectating ship %d", *s.Watching)
	default:
		return "spectating"
	}
}

func (r Racing) String() string {
	return fmt.Sprintf("racing, lap %d/%d", min(r.Lap+1, sim.NLaps), sim.NLaps)
}
