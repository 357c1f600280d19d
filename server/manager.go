// server/manager.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	crand "crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/slipstream-vr/slipstream/log"
	"github.com/slipstream-vr/slipstream/sim"
	"github.com/slipstream-vr/slipstream/util"
)

// The server tick; clients run their own simulation faster, so this
// only bounds how often relayed state and events go out.
const raceUpdateInterval = 15 * time.Millisecond

// RaceManager owns the one race a server hosts and the set of client
// connections to it. Connections are keyed by an opaque token handed
// out at join time; everything a client may do later requires it.
type RaceManager struct {
	race      *sim.Race
	trackName string
	maxShips  int

	connectionsByToken map[string]*connectionState
	nextClientID       sim.ClientID

	startTime time.Time
	lg        *log.Logger
	mu        util.LoggingMutex
}

// connectionState holds the server-side state of one client connection.
type connectionState struct {
	token               string
	id                  sim.ClientID
	name                string
	lastUpdateCall      time.Time
	warnedNoUpdateCalls bool
	eventSub            *sim.EventsSubscription
}

func NewRaceManager(track *sim.Curve, trackName string, maxShips int, lg *log.Logger) *RaceManager {
	if trackName == "" {
		trackName = sim.DefaultTrackName
	}
	rm := &RaceManager{
		race:               sim.NewRace(track, lg),
		trackName:          trackName,
		maxShips:           maxShips,
		connectionsByToken: make(map[string]*connectionState),
		nextClientID:       1,
		startTime:          time.Now(),
		lg:                 lg,
	}

	go rm.runRaceLoop()

	return rm
}

func (rm *RaceManager) runRaceLoop() {
	defer rm.lg.CatchAndReportCrash()

	last := time.Now()
	ticker := time.NewTicker(raceUpdateInterval)
	for now := range ticker.C {
		rm.cullIdleClients()

		rm.race.SetRoster(rm.currentRoster())
		rm.race.Update(sim.FrameTime{
			Delta: float32(now.Sub(last).Seconds()),
			Time:  float32(now.Sub(rm.startTime).Seconds()),
		})
		last = now
	}
}

func (rm *RaceManager) currentRoster() []sim.ClientID {
	rm.mu.Lock(rm.lg)
	defer rm.mu.Unlock(rm.lg)

	roster := make([]sim.ClientID, 0, len(rm.connectionsByToken))
	for _, conn := range rm.connectionsByToken {
		roster = append(roster, conn.id)
	}
	return roster
}

// cullIdleClients signs off clients we haven't heard from in 15 seconds
// so their ships don't sit abandoned on the track, warning over chat
// after 5.
func (rm *RaceManager) cullIdleClients() {
	rm.mu.Lock(rm.lg)

	var tokensToSignOff []string
	for token, conn := range rm.connectionsByToken {
		if time.Since(conn.lastUpdateCall) > 5*time.Second {
			if !conn.warnedNoUpdateCalls {
				conn.warnedNoUpdateCalls = true
				rm.lg.Warnf("%d (%s): no messages for 5 seconds", conn.id, conn.name)
				rm.race.PostEvent(sim.Event{
					Type:   sim.StatusMessageEvent,
					Client: conn.id,
					Message: fmt.Sprintf("%s has not been heard from for 5 seconds. Connection lost?",
						conn.name),
				})
			}

			if time.Since(conn.lastUpdateCall) > 15*time.Second {
				rm.lg.Warnf("%d (%s): signing off idle client", conn.id, conn.name)
				tokensToSignOff = append(tokensToSignOff, token)
			}
		}
	}
	rm.mu.Unlock(rm.lg)

	for _, token := range tokensToSignOff {
		if err := rm.SignOff(token); err != nil {
			rm.lg.Errorf("error signing off idle client: %v", err)
		}
	}
}

func makeClientToken() string {
	var buf [16]byte
	if _, err := crand.Read(buf[:]); err != nil {
		return ""
	}
	return base64.StdEncoding.EncodeToString(buf[:])
}

///////////////////////////////////////////////////////////////////////////
// Join/SignOff

type JoinRequest struct {
	Version int
	Name    string
}

type JoinResult struct {
	ClientID sim.ClientID
	Token    string
	Track    string
}

func (rm *RaceManager) Join(req *JoinRequest, result *JoinResult) error {
	if req.Version != SlipstreamRPCVersion {
		return ErrRPCVersionMismatch
	}

	rm.mu.Lock(rm.lg)
	defer rm.mu.Unlock(rm.lg)

	if rm.maxShips > 0 && len(rm.connectionsByToken) >= rm.maxShips {
		return ErrServerFull
	}

	token := makeClientToken()
	if token == "" {
		return ErrServerDisconnected
	}

	conn := &connectionState{
		token:          token,
		id:             rm.nextClientID,
		name:           req.Name,
		lastUpdateCall: time.Now(),
		eventSub:       rm.race.SubscribeToEvents(),
	}
	rm.nextClientID++
	if conn.name == "" {
		conn.name = fmt.Sprintf("racer %d", conn.id)
	}
	rm.connectionsByToken[token] = conn

	rm.lg.Infof("%d (%s): signed on", conn.id, conn.name)
	rm.race.PostEvent(sim.Event{
		Type:    sim.StatusMessageEvent,
		Client:  conn.id,
		Message: conn.name + " has joined the race.",
	})

	*result = JoinResult{ClientID: conn.id, Token: token, Track: rm.trackName}
	return nil
}

func (rm *RaceManager) SignOff(token string) error {
	rm.mu.Lock(rm.lg)
	defer rm.mu.Unlock(rm.lg)

	conn, ok := rm.connectionsByToken[token]
	if !ok {
		return ErrInvalidClientToken
	}
	delete(rm.connectionsByToken, token)
	conn.eventSub.Unsubscribe()

	rm.lg.Infof("%d (%s): signed off", conn.id, conn.name)
	rm.race.PostEvent(sim.Event{
		Type:    sim.StatusMessageEvent,
		Client:  conn.id,
		Message: conn.name + " has left the race.",
	})
	return nil
}

func (rm *RaceManager) lookup(token string) (*connectionState, error) {
	rm.mu.Lock(rm.lg)
	defer rm.mu.Unlock(rm.lg)

	conn, ok := rm.connectionsByToken[token]
	if !ok {
		return nil, ErrInvalidClientToken
	}
	return conn, nil
}

///////////////////////////////////////////////////////////////////////////
// Per-tick client calls

// RaceStateUpdate wraps sim.StateUpdate and adds the events posted
// since the client's last poll.
type RaceStateUpdate struct {
	sim.StateUpdate

	Events []sim.Event
}

// RaceState is the client-side accumulation of relayed server state.
type RaceState struct {
	ServerTime float32
	Ships      map[sim.ClientID]*sim.ShipRecord
	Winner     *sim.Winner
}

// Apply folds the update into the state. If eventStream is non-nil the
// update's events are reposted to it for local consumers.
func (su *RaceStateUpdate) Apply(state *RaceState, eventStream *sim.EventStream) {
	state.ServerTime = su.ServerTime
	state.Ships = su.Ships
	state.Winner = su.Winner

	if eventStream != nil {
		for _, e := range su.Events {
			eventStream.Post(e)
		}
	}
}

func (rm *RaceManager) GetStateUpdate(token string, update *RaceStateUpdate) error {
	conn, err := rm.lookup(token)
	if err != nil {
		return err
	}

	rm.mu.Lock(rm.lg)
	conn.lastUpdateCall = time.Now()
	conn.warnedNoUpdateCalls = false
	rm.mu.Unlock(rm.lg)

	*update = RaceStateUpdate{
		StateUpdate: rm.race.GetStateUpdate(),
		Events:      conn.eventSub.Get(),
	}
	return nil
}

func (rm *RaceManager) SetReady(token string, ready bool) error {
	conn, err := rm.lookup(token)
	if err != nil {
		return err
	}
	rm.race.SetReady(conn.id, ready)
	return nil
}

func (rm *RaceManager) UploadShip(token string, up sim.ShipUpload) error {
	conn, err := rm.lookup(token)
	if err != nil {
		return err
	}
	rm.race.UploadShip(conn.id, up)
	return nil
}

func (rm *RaceManager) ReportFinished(token string, elapsed float32) error {
	conn, err := rm.lookup(token)
	if err != nil {
		return err
	}
	rm.race.ReportFinished(conn.id, elapsed)
	return nil
}

func (rm *RaceManager) SendChat(token string, message string) error {
	conn, err := rm.lookup(token)
	if err != nil {
		return err
	}
	rm.race.PostEvent(sim.Event{
		Type:    sim.ChatMessageEvent,
		Client:  conn.id,
		Message: conn.name + ": " + message,
	})
	return nil
}
