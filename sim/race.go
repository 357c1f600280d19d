// sim/race.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"log/slog"

	"github.com/brunoga/deep"
	"github.com/slipstream-vr/slipstream/log"
	"github.com/slipstream-vr/slipstream/math"
	"github.com/slipstream-vr/slipstream/util"
)

const (
	// Once somebody wins, everyone else has this long to finish before
	// the race resets.
	ResetTime = 50

	// Spawn positions fan out from here, one ship per slot, alternating
	// sides of the centerline and backing away from the start.
	spawnStep = 5
)

var spawnOrigin = [3]float32{0, 0, -5}

// Race is the authoritative race state machine. It trusts clients with
// their own ships: uploads are relayed verbatim and finish reports are
// taken at face value. What the server owns is the roster, the
// ready/start handshake, the winner, and the ambient bodies.
//
// RPC handlers enqueue messages under the lock; Update drains them in a
// fixed order each tick so the outcome doesn't depend on network
// arrival order within a tick.
type Race struct {
	mu util.LoggingMutex

	path *Curve

	Ships     map[ClientID]*ShipRecord
	shipOrder []ClientID // join order; fixes spawn slots and iteration order

	winner        *Winner
	resetDeadline float32

	ambient []*Body
	gravity [3]float32

	now float32

	pendingRoster  []ClientID
	rosterValid    bool
	pendingReady   []readyMsg
	pendingFinish  []finishMsg
	pendingUploads map[ClientID]ShipUpload

	eventStream *EventStream
	lg          *log.Logger
}

type readyMsg struct {
	client ClientID
	ready  bool
}

type finishMsg struct {
	client  ClientID
	elapsed float32
}

func NewRace(path *Curve, lg *log.Logger) *Race {
	return &Race{
		path:           path,
		Ships:          make(map[ClientID]*ShipRecord),
		gravity:        [3]float32{0, -9.8, 0},
		pendingUploads: make(map[ClientID]ShipUpload),
		eventStream:    NewEventStream(lg),
		lg:             lg,
	}
}

func (r *Race) Path() *Curve { return r.path }

// SubscribeToEvents returns a fresh subscription to the race's event
// stream, for delivery to one client.
func (r *Race) SubscribeToEvents() *EventsSubscription {
	return r.eventStream.Subscribe()
}

func (r *Race) PostEvent(ev Event) {
	r.eventStream.Post(ev)
}

// AddAmbientBody hands the race a body it will simulate itself, e.g.
// floating scenery around the track.
func (r *Race) AddAmbientBody(b *Body) {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)
	r.ambient = append(r.ambient, b)
}

// SetRoster replaces the set of connected clients; Update reconciles
// ship records against it on the next tick.
func (r *Race) SetRoster(clients []ClientID) {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)
	r.pendingRoster = append(r.pendingRoster[:0], clients...)
	r.rosterValid = true
}

func (r *Race) SetReady(client ClientID, ready bool) {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)
	r.pendingReady = append(r.pendingReady, readyMsg{client: client, ready: ready})
}

func (r *Race) ReportFinished(client ClientID, elapsed float32) {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)
	r.pendingFinish = append(r.pendingFinish, finishMsg{client: client, elapsed: elapsed})
}

// UploadShip records a client's latest ship state; only the most recent
// upload per client within a tick survives.
func (r *Race) UploadShip(client ClientID, up ShipUpload) {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)
	r.pendingUploads[client] = up
}

// Update advances the race by one tick. The phases run in a fixed
// order: roster churn first so later phases see an accurate Ships map,
// then ambient physics, the ready handshake, win/reset bookkeeping, and
// finally the upload relay.
func (r *Race) Update(ft FrameTime) {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)

	r.now = ft.Time

	r.applyRoster()
	Simulate(r.ambient, r.gravity, ft.Delta)
	r.updateReady()
	r.updateWinner()
	r.relayUploads()
}

func (r *Race) applyRoster() {
	if !r.rosterValid {
		return
	}
	r.rosterValid = false

	present := make(map[ClientID]interface{})
	for _, id := range r.pendingRoster {
		present[id] = nil
		if _, ok := r.Ships[id]; !ok {
			r.Ships[id] = &ShipRecord{Client: id, Transform: math.IdentityTransform()}
			r.shipOrder = append(r.shipOrder, id)
			r.lg.Infof("%d: client joined", id)
			r.eventStream.Post(Event{Type: ClientJoinedEvent, Client: id})
		}
	}

	for i := 0; i < len(r.shipOrder); {
		id := r.shipOrder[i]
		if _, ok := present[id]; ok {
			i++
			continue
		}
		delete(r.Ships, id)
		r.shipOrder = append(r.shipOrder[:i], r.shipOrder[i+1:]...)
		r.lg.Infof("%d: client left", id)
		r.eventStream.Post(Event{Type: ClientLeftEvent, Client: id})
	}
}

func (r *Race) updateReady() {
	for _, msg := range r.pendingReady {
		ship, ok := r.Ships[msg.client]
		if !ok {
			r.lg.Warnf("%d: ready report from unknown client", msg.client)
			continue
		}
		ship.IsReady = msg.ready
		r.eventStream.Post(Event{Type: ClientReadyEvent, Client: msg.client, Ready: msg.ready})
	}
	r.pendingReady = r.pendingReady[:0]

	// The race starts when every connected ship is ready and there's at
	// least one of them. Ships go un-ready the moment their race starts,
	// so a running race never retriggers on its own; a mid-race restart
	// takes every racer deliberately readying up again.
	anyReady, allReady := false, true
	for _, id := range r.shipOrder {
		ship := r.Ships[id]
		anyReady = anyReady || ship.IsReady
		allReady = allReady && ship.IsReady
	}
	if !anyReady || !allReady {
		return
	}

	r.lg.Info("race starting", slog.Int("n_ships", len(r.shipOrder)))
	spawn := math.Transform{Pos: spawnOrigin, Orient: math.IdentityQuat()}
	for _, id := range r.shipOrder {
		ship := r.Ships[id]
		ship.IsRacing = true
		ship.IsReady = false
		ship.Transform = spawn
		ship.Kinematics.Vel = [3]float32{}
		ship.Kinematics.AngVel = [3]float32{}
		r.eventStream.Post(Event{Type: RaceStartedEvent, Client: id, Spawn: spawn})

		spawn.Pos[0] -= spawnStep
		spawn.Pos[2] = -spawn.Pos[2]
	}
}

func (r *Race) updateWinner() {
	for _, msg := range r.pendingFinish {
		ship, ok := r.Ships[msg.client]
		if !ok {
			r.lg.Warnf("%d: finish report from unknown client", msg.client)
			continue
		}
		ship.IsRacing = false
		ship.IsReady = false

		// First finisher wins; on overlapping reports the strictly
		// earlier elapsed time takes the title.
		if r.winner != nil && msg.elapsed >= r.winner.FinishTime {
			continue
		}
		r.winner = &Winner{Client: msg.client, FinishTime: msg.elapsed}
		r.resetDeadline = r.now + ResetTime
		r.lg.Infof("%d: won the race in %s", msg.client, DecomposeLapTime(msg.elapsed))
		r.eventStream.Post(Event{Type: RaceFinishedEvent, Client: msg.client,
			ElapsedTime: msg.elapsed})
	}
	r.pendingFinish = r.pendingFinish[:0]

	if r.winner == nil {
		return
	}

	anybodyRacing := false
	for _, ship := range r.Ships {
		anybodyRacing = anybodyRacing || ship.IsRacing
	}
	if r.now > r.resetDeadline || !anybodyRacing {
		r.winner = nil
		r.eventStream.Post(Event{Type: RaceResetEvent})
	}
}

func (r *Race) relayUploads() {
	for id, up := range r.pendingUploads {
		delete(r.pendingUploads, id)
		ship, ok := r.Ships[id]
		if !ok {
			continue
		}
		ship.Transform = up.Transform
		ship.Kinematics = up.Kinematics
	}
}

// CurrentWinner returns the winner, or nil when no race has concluded
// since the last reset.
func (r *Race) CurrentWinner() *Winner {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)
	if r.winner == nil {
		return nil
	}
	w := *r.winner
	return &w
}

// GetStateUpdate snapshots the race for one client. The ship records
// are deep-copied so the caller can serialize them off the tick loop.
func (r *Race) GetStateUpdate() StateUpdate {
	r.mu.Lock(r.lg)
	defer r.mu.Unlock(r.lg)

	update := StateUpdate{
		ServerTime: r.now,
		Ships:      deep.MustCopy(r.Ships),
	}
	if r.winner != nil {
		w := *r.winner
		update.Winner = &w
	}
	return update
}
