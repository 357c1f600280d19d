// server/dispatcher.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"github.com/slipstream-vr/slipstream/sim"
)

// dispatcher exposes the RaceManager over net/rpc. The RPC layer spawns
// a goroutine per request, so every method catches and reports panics
// rather than taking the whole server down.
type dispatcher struct {
	rm *RaceManager
}

const JoinRPC = "Race.Join"

func (rd *dispatcher) Join(req *JoinRequest, result *JoinResult) error {
	defer rd.rm.lg.CatchAndReportCrash()

	return rd.rm.Join(req, result)
}

const SignOffRPC = "Race.SignOff"

func (rd *dispatcher) SignOff(token string, _ *struct{}) error {
	defer rd.rm.lg.CatchAndReportCrash()

	return rd.rm.SignOff(token)
}

const GetStateUpdateRPC = "Race.GetStateUpdate"

func (rd *dispatcher) GetStateUpdate(token string, update *RaceStateUpdate) error {
	defer rd.rm.lg.CatchAndReportCrash()

	return rd.rm.GetStateUpdate(token, update)
}

type SetReadyArgs struct {
	ClientToken string
	Ready       bool
}

const SetReadyRPC = "Race.SetReady"

func (rd *dispatcher) SetReady(r *SetReadyArgs, _ *struct{}) error {
	defer rd.rm.lg.CatchAndReportCrash()

	return rd.rm.SetReady(r.ClientToken, r.Ready)
}

type UploadShipArgs struct {
	ClientToken string
	Upload      sim.ShipUpload
}

const UploadShipRPC = "Race.UploadShip"

func (rd *dispatcher) UploadShip(u *UploadShipArgs, _ *struct{}) error {
	defer rd.rm.lg.CatchAndReportCrash()

	return rd.rm.UploadShip(u.ClientToken, u.Upload)
}

type ReportFinishedArgs struct {
	ClientToken string
	ElapsedTime float32
}

const ReportFinishedRPC = "Race.ReportFinished"

func (rd *dispatcher) ReportFinished(r *ReportFinishedArgs, _ *struct{}) error {
	defer rd.rm.lg.CatchAndReportCrash()

	return rd.rm.ReportFinished(r.ClientToken, r.ElapsedTime)
}

type SendChatArgs struct {
	ClientToken string
	Message     string
}

const SendChatRPC = "Race.SendChat"

func (rd *dispatcher) SendChat(c *SendChatArgs, _ *struct{}) error {
	defer rd.rm.lg.CatchAndReportCrash()

	return rd.rm.SendChat(c.ClientToken, c.Message)
}
