// sim/errors.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "errors"

var (
	ErrDegenerateCurve  = errors.New("track curve needs at least two control points")
	ErrMalformedPathOBJ = errors.New("malformed track path OBJ")
	ErrNoSuchTrack      = errors.New("no such track")
	ErrUnknownClient    = errors.New("unknown client")
)
