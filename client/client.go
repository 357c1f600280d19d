// client/client.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/slipstream-vr/slipstream/log"
	"github.com/slipstream-vr/slipstream/math"
	"github.com/slipstream-vr/slipstream/server"
	"github.com/slipstream-vr/slipstream/sim"
	"github.com/slipstream-vr/slipstream/util"
)

// Wait between state update fetches and ship uploads; the local
// simulation ticks faster and extrapolates in between.
const updateInterval = 50 * time.Millisecond

// RaceClient runs the local side of a race: it simulates the player's
// own ship every tick, detects its lap crossings, and exchanges state
// with the server asynchronously so a slow network never stalls the
// simulation loop.
type RaceClient struct {
	clientToken string
	client      *RPCClient

	id   sim.ClientID
	name string

	mode      GameMode
	shipCfg   sim.ShipCharacteristics
	path      *sim.Curve
	countdown sim.Countdown
	laps      sim.LapTracker

	// The player's own ship; authoritative here, relayed to the server.
	Ship sim.Body

	eventStream *sim.EventStream

	lg *log.Logger
	mu sync.Mutex

	lastUpdateRequest time.Time
	lastUploadTime    time.Time
	updateCall        *pendingCall
	pendingCalls      []*pendingCall

	// This is all read-only data that we expect other parts of the system
	// to access directly.
	State server.RaceState
}

func NewRaceClient(id sim.ClientID, name string, token string, path *sim.Curve,
	client *RPCClient, lg *log.Logger) *RaceClient {
	cfg := sim.DefaultShip()
	return &RaceClient{
		clientToken: token,
		client:      client,
		id:          id,
		name:        name,
		mode:        Spectator{},
		shipCfg:     cfg,
		path:        path,
		laps:        sim.MakeLapTracker(path),
		Ship: sim.Body{
			Transform:  math.IdentityTransform(),
			Kinematics: sim.KinematicState{Mass: cfg.Mass, Moment: cfg.Moment},
		},
		eventStream: sim.NewEventStream(lg),
		lg:          lg,
	}
}

func (c *RaceClient) ClientID() sim.ClientID { return c.id }
func (c *RaceClient) Path() *sim.Curve       { return c.path }

func (c *RaceClient) Mode() GameMode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// CountdownStage returns the whole seconds left on the pre-race
// countdown, or zero once the race is underway.
func (c *RaceClient) CountdownStage(ft sim.FrameTime) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.mode.(Racing); !ok {
		return 0
	}
	return c.countdown.Stage(ft)
}

// Subscribe returns a subscription to the client's local event stream,
// which carries both server events and locally generated status
// messages.
func (c *RaceClient) Subscribe() *sim.EventsSubscription {
	return c.eventStream.Subscribe()
}

func (c *RaceClient) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.client != nil
}

func (c *RaceClient) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client == nil {
		return
	}
	if err := c.client.callWithTimeout(server.SignOffRPC, c.clientToken, nil); err != nil {
		c.lg.Errorf("Error signing off: %v", err)
	}
	c.client.Close()
	c.client = nil
	c.State.Ships = nil
}

///////////////////////////////////////////////////////////////////////////
// Per-tick update

// Update advances the client by one tick: it drains completed RPCs,
// runs the flight controller and integrator for the player's ship,
// checks for lap crossings, and kicks off the next round of
// asynchronous server calls. onErr is called, outside the client's
// lock, for RPC failures that mean the connection is gone.
func (c *RaceClient) Update(ft sim.FrameTime, input sim.InputAbstraction, onErr func(error)) {
	c.mu.Lock()

	if c.client == nil {
		c.mu.Unlock()
		return
	}

	callbackErr := c.drainCompletedCalls()

	c.countdown.Update(ft)
	c.updateShip(ft, input)

	if time.Since(c.lastUpdateRequest) > updateInterval && c.updateCall == nil {
		c.lastUpdateRequest = time.Now()

		var update server.RaceStateUpdate
		c.updateCall = &pendingCall{
			Call:      c.client.Go(server.GetStateUpdateRPC, c.clientToken, &update, nil),
			IssueTime: time.Now(),
			OnSuccess: func() {
				update.Apply(&c.State, c.eventStream)
				for _, ev := range update.Events {
					c.handleEvent(ev)
				}
				c.ensureWatchTarget()
			},
		}
	}

	c.mu.Unlock()

	if callbackErr != nil && onErr != nil {
		onErr(callbackErr)
	}
}

// drainCompletedCalls runs the callbacks of finished RPCs and reports
// the first error from a failed or timed out call. Called with the
// client's lock held.
func (c *RaceClient) drainCompletedCalls() error {
	var err error

	if c.updateCall != nil {
		if c.updateCall.CheckFinished() {
			c.updateCall.InvokeCallback(c.eventStream, c.lg)
			c.updateCall = nil
		} else if c.updateCall.TimedOut() {
			err = c.postTimeout()
			c.updateCall = nil
		}
	}

	c.pendingCalls = slices.DeleteFunc(c.pendingCalls,
		func(call *pendingCall) bool {
			if call.CheckFinished() {
				call.InvokeCallback(c.eventStream, c.lg)
				return true
			}
			return false
		})
	for _, call := range c.pendingCalls {
		if call.TimedOut() {
			if err == nil {
				err = c.postTimeout()
			}
		}
	}

	return err
}

func (c *RaceClient) postTimeout() error {
	c.eventStream.Post(sim.Event{
		Type:    sim.StatusMessageEvent,
		Message: "No response from server for over 5 seconds. Network connection may be lost.",
	})
	return server.ErrRPCTimeout
}

// updateShip runs one tick of the local ship simulation. Called with
// the client's lock held.
func (c *RaceClient) updateShip(ft sim.FrameTime, input sim.InputAbstraction) {
	if racing, isRacing := c.mode.(Racing); isRacing {
		if c.countdown.MatchStarted(ft) {
			sim.ShipController(ft.Delta, c.shipCfg, input, c.path,
				&c.Ship.Transform, &c.Ship.Kinematics)
		} else {
			// Frozen on the grid until the countdown runs out.
			c.Ship.Kinematics.Vel = [3]float32{}
			c.Ship.Kinematics.AngVel = [3]float32{}
		}
		c.Ship.Kinematics.Integrate(&c.Ship.Transform, ft.Delta)

		if c.laps.Advance(c.Ship.Transform.Pos) && c.countdown.MatchStarted(ft) {
			c.finishLap(racing, c.countdown.Elapsed(ft))
		}
	}

	// Upload whether racing or not, so everyone sees parked ships too.
	if c.client != nil && time.Since(c.lastUploadTime) > updateInterval {
		c.lastUploadTime = time.Now()
		c.addCall(makeRPCCall(c.client.Go(server.UploadShipRPC, &server.UploadShipArgs{
			ClientToken: c.clientToken,
			Upload: sim.ShipUpload{
				Transform:  c.Ship.Transform,
				Kinematics: c.Ship.Kinematics,
			},
		}, nil, nil), nil))
	}
}

// finishLap handles a finish line crossing: advance the lap counter,
// tell everyone, and hand the race back to the server when it was the
// last one. Every crossing gets a lap time message, the final one
// included. Called with the client's lock held.
func (c *RaceClient) finishLap(racing Racing, elapsed float32) {
	lapTime := sim.DecomposeLapTime(elapsed)
	racing.Lap++

	c.lg.Infof("completed lap %d in %s", racing.Lap, lapTime)
	c.sendChat(fmt.Sprintf("lap %d in %s", racing.Lap, lapTime))
	c.eventStream.Post(sim.Event{Type: sim.LapCompletedEvent, Client: c.id,
		Lap: racing.Lap, ElapsedTime: elapsed})

	if racing.Lap <= sim.NLaps {
		c.mode = racing
		return
	}

	c.lg.Infof("finished the race in %s", lapTime)
	if c.client != nil {
		c.addCall(makeRPCCall(c.client.Go(server.ReportFinishedRPC, &server.ReportFinishedArgs{
			ClientToken: c.clientToken,
			ElapsedTime: elapsed,
		}, nil, nil), nil))
	}
	c.sendChat(fmt.Sprintf("finished in %s", lapTime))
	c.eventStream.Post(sim.Event{Type: sim.RaceFinishedEvent, Client: c.id,
		ElapsedTime: elapsed})
	c.mode = Spectator{}
}

func (c *RaceClient) handleEvent(ev sim.Event) {
	switch ev.Type {
	case sim.RaceStartedEvent:
		if ev.Client != c.id {
			return
		}
		c.mode = Racing{Client: c.id}
		c.countdown.Restart()
		c.Ship.Transform = ev.Spawn
		c.Ship.Kinematics.Vel = [3]float32{}
		c.Ship.Kinematics.AngVel = [3]float32{}
		c.laps.Reset(ev.Spawn.Pos)

	case sim.ClientLeftEvent:
		// Stop watching a ship that no longer exists.
		if spec, ok := c.mode.(Spectator); ok &&
			spec.Watching != nil && *spec.Watching == ev.Client {
			spec.Watching = nil
			c.mode = spec
		}
	}
}

///////////////////////////////////////////////////////////////////////////
// Spectator controls

// ToggleReady flips the ready flag; a no-op while racing.
func (c *RaceClient) ToggleReady() {
	c.mu.Lock()
	defer c.mu.Unlock()

	spec, ok := c.mode.(Spectator)
	if !ok || c.client == nil {
		return
	}
	spec.Ready = !spec.Ready
	c.mode = spec

	c.addCall(makeRPCCall(c.client.Go(server.SetReadyRPC, &server.SetReadyArgs{
		ClientToken: c.clientToken,
		Ready:       spec.Ready,
	}, nil, nil), nil))
	c.sendChat(util.Select(spec.Ready, "Ready!", "(not ready)"))
}

// ensureWatchTarget points an idle spectator camera at the first racing
// ship, so a client arriving (or finishing) mid-race sees the action
// without having to cycle. Called with the client's lock held.
func (c *RaceClient) ensureWatchTarget() {
	spec, ok := c.mode.(Spectator)
	if !ok || spec.Watching != nil {
		return
	}
	for _, id := range util.SortedMapKeys(c.State.Ships) {
		if c.State.Ships[id].IsRacing {
			spec.Watching = &id
			c.mode = spec
			return
		}
	}
}

// CycleWatch moves the spectator camera to the next connected ship, or
// back to the overview past the last one.
func (c *RaceClient) CycleWatch() {
	c.mu.Lock()
	defer c.mu.Unlock()

	spec, ok := c.mode.(Spectator)
	if !ok {
		return
	}

	ids := util.SortedMapKeys(c.State.Ships)
	if len(ids) == 0 {
		spec.Watching = nil
	} else if spec.Watching == nil {
		spec.Watching = &ids[0]
	} else if i := slices.Index(ids, *spec.Watching); i == -1 || i+1 == len(ids) {
		spec.Watching = nil
	} else {
		spec.Watching = &ids[i+1]
	}
	c.mode = spec
}

// SendChat relays a chat line to everyone via the server.
func (c *RaceClient) SendChat(message string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		return
	}
	c.sendChat(message)
}

// sendChat is SendChat without the locking, for callers already holding
// the client's lock.
func (c *RaceClient) sendChat(message string) {
	if c.client == nil {
		return
	}
	c.addCall(makeRPCCall(c.client.Go(server.SendChatRPC, &server.SendChatArgs{
		ClientToken: c.clientToken,
		Message:     message,
	}, nil, nil), nil))
}

func (c *RaceClient) addCall(pc *pendingCall) {
	c.pendingCalls = append(c.pendingCalls, pc)
}
