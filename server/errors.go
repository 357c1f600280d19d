// server/errors.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"errors"

	"github.com/slipstream-vr/slipstream/sim"
)

var (
	ErrInvalidClientToken = errors.New("Invalid client token")
	ErrRPCTimeout         = errors.New("RPC call timed out")
	ErrRPCVersionMismatch = errors.New("Client and server RPC versions don't match")
	ErrServerDisconnected = errors.New("Server disconnected")
	ErrServerFull         = errors.New("Server is full")
)

// net/rpc flattens errors to strings on the wire; this map recovers the
// sentinel values on the client side so errors.Is keeps working.
var errorStringToError = map[string]error{
	sim.ErrDegenerateCurve.Error():  sim.ErrDegenerateCurve,
	sim.ErrMalformedPathOBJ.Error(): sim.ErrMalformedPathOBJ,
	sim.ErrNoSuchTrack.Error():      sim.ErrNoSuchTrack,
	sim.ErrUnknownClient.Error():    sim.ErrUnknownClient,

	ErrInvalidClientToken.Error(): ErrInvalidClientToken,
	ErrRPCTimeout.Error():         ErrRPCTimeout,
	ErrRPCVersionMismatch.Error(): ErrRPCVersionMismatch,
	ErrServerDisconnected.Error(): ErrServerDisconnected,
	ErrServerFull.Error():         ErrServerFull,
}

func TryDecodeError(e error) error {
	if e == nil {
		return e
	}
	if err, ok := errorStringToError[e.Error()]; ok {
		return err
	}
	return e
}
