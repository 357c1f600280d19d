// sim/eventstream.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"github.com/slipstream-vr/slipstream/log"
	"github.com/slipstream-vr/slipstream/math"
)

// EventStream provides a basic pub/sub event interface that allows any
// part of the system to post an event to the stream and other parts to
// subscribe and receive messages from the stream. It is the backbone
// for carrying race lifecycle events and chat both inside the server
// and out to polling clients.
type EventStream struct {
	mu            sync.Mutex
	lg            *log.Logger
	events        []Event
	lastCompact   time.Time
	subscriptions map[*EventsSubscription]interface{}
}

type EventPoster interface {
	PostEvent(Event)
}

type EventsSubscription struct {
	stream *EventStream
	// offset is offset in the EventStream stream array up to which the
	// subscriber has consumed events so far.
	offset int
	source string
}

func (e *EventsSubscription) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("offset", e.offset),
		slog.String("source", e.source))
}

func NewEventStream(lg *log.Logger) *EventStream {
	return &EventStream{
		lg:            lg,
		subscriptions: make(map[*EventsSubscription]interface{}),
	}
}

// Subscribe registers a new subscriber to the stream and returns an
// EventsSubscription that can be used to consume its events.
func (e *EventStream) Subscribe() *EventsSubscription {
	// Record the subscriber's callsite, so that we can more easily debug
	// subscribers that aren't consuming events.
	_, fn, line, _ := runtime.Caller(1)
	source := fmt.Sprintf("%s:%d", fn, line)

	sub := &EventsSubscription{
		stream: e,
		offset: len(e.events),
		source: source,
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.subscriptions[sub] = nil
	return sub
}

// Unsubscribe removes a subscriber from the subscriber list
func (e *EventsSubscription) Unsubscribe() {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to unsubscribe invalid subscription: %+v", e)
	}
	delete(e.stream.subscriptions, e)
	e.stream = nil
}

// Post adds an event to the event stream. The type used to encode the
// event is arbitrary; it's up to the EventStream users to establish
// conventions.
func (e *EventStream) Post(event Event) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lg.Debug("posted event", slog.Any("event", event))

	// Ignore the event if no one's paying attention.
	if len(e.subscriptions) > 0 {
		e.events = append(e.events, event)
	}
}

// Get returns all of the events from the stream since the last time Get
// was called for the subscription. Note that events posted before a
// subscription was created are never reported to it.
func (e *EventsSubscription) Get() []Event {
	e.stream.mu.Lock()
	defer e.stream.mu.Unlock()

	if _, ok := e.stream.subscriptions[e]; !ok {
		e.stream.lg.Errorf("Attempted to get with unregistered subscription: %+v", e)
		return nil
	}

	// Clone the returned slice: compact() below memmoves the backing
	// array, which would otherwise scramble events under the caller.
	events := slices.Clone(e.stream.events[e.offset:])
	e.offset = len(e.stream.events)

	if time.Since(e.stream.lastCompact) > 1*time.Second {
		e.stream.compact()
		e.stream.lastCompact = time.Now()
	}

	return events
}

// compact reclaims storage for events that all subscribers have seen; it
// is called periodically so that EventStream memory usage doesn't grow
// without bound.
func (e *EventStream) compact() {
	minOffset := len(e.events)
	for sub := range e.subscriptions {
		if sub.offset < minOffset {
			minOffset = sub.offset
		}
	}

	if len(e.events) > 1000 {
		e.lg.Warnf("EventStream length %d", len(e.events))
	}

	if minOffset > cap(e.events)/2 {
		n := len(e.events) - minOffset

		copy(e.events, e.events[minOffset:])
		e.events = e.events[:n]

		for sub := range e.subscriptions {
			sub.offset -= minOffset
		}
	}
}

// implements slog.LogValuer
func (e *EventStream) LogValue() slog.Value {
	e.mu.Lock()
	defer e.mu.Unlock()

	items := []slog.Attr{slog.Int("len", len(e.events)), slog.Int("cap", cap(e.events))}
	if len(e.events) > 0 {
		items = append(items, slog.Any("last_element", e.events[len(e.events)-1]))
	}
	for sub := range e.subscriptions {
		items = append(items, slog.Any(fmt.Sprintf("subscriber_%p", sub), sub))
	}
	return slog.GroupValue(items...)
}

///////////////////////////////////////////////////////////////////////////

type EventType int

const (
	StatusMessageEvent = iota
	ChatMessageEvent
	ClientJoinedEvent
	ClientLeftEvent
	ClientReadyEvent
	RaceStartedEvent
	LapCompletedEvent
	RaceFinishedEvent
	RaceResetEvent
	NumEventTypes
)

func (t EventType) String() string {
	return []string{"StatusMessage", "ChatMessage", "ClientJoined", "ClientLeft",
		"ClientReady", "RaceStarted", "LapCompleted", "RaceFinished", "RaceReset"}[t]
}

type Event struct {
	Type        EventType
	Client      ClientID
	Message     string
	Ready       bool           // ClientReadyEvent
	Spawn       math.Transform // RaceStartedEvent: where Client's ship starts
	Lap         int            // LapCompletedEvent
	ElapsedTime float32        // LapCompletedEvent, RaceFinishedEvent
}

func (e *Event) String() string {
	switch e.Type {
	case LapCompletedEvent, RaceFinishedEvent:
		return fmt.Sprintf("%s: client %d lap %d time %s",
			e.Type, e.Client, e.Lap, DecomposeLapTime(e.ElapsedTime))
	default:
		return fmt.Sprintf("%s: client %d message %q", e.Type, e.Client, e.Message)
	}
}

func (e Event) LogValue() slog.Value {
	attrs := []slog.Attr{slog.String("type", e.Type.String()),
		slog.Uint64("client", uint64(e.Client))}
	if e.Message != "" {
		attrs = append(attrs, slog.String("message", e.Message))
	}
	if e.Type == LapCompletedEvent || e.Type == RaceFinishedEvent {
		attrs = append(attrs, slog.Int("lap", e.Lap),
			slog.Float64("elapsed", float64(e.ElapsedTime)))
	}
	return slog.GroupValue(attrs...)
}
