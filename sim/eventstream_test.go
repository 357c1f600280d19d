// sim/eventstream_test.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"math/rand"
	"testing"
	"time"
)

func TestEventStream(t *testing.T) {
	es := NewEventStream(nil)

	es.Post(Event{})
	sub := es.Subscribe()
	if len(sub.Get()) != 0 {
		t.Errorf("Returned non-empty slice")
	}

	es.Post(Event{Type: 1})
	es.Post(Event{Type: 2})
	s := sub.Get()
	if len(s) != 2 {
		t.Errorf("didn't return 2 item slice")
	}

	if s[0].Type != 1 {
		t.Errorf("Expected type 1, got %v", s[0])
	}
	if s[1].Type != 2 {
		t.Errorf("Expected type 2, got %v", s[1])
	}

	if len(sub.Get()) != 0 {
		t.Errorf("Returned non-empty slice")
	}
}

// Events handed out by Get must survive the stream compacting
// underneath them; a lagging subscriber's slice would otherwise get
// memmoved over while the caller (e.g. the RPC layer) still holds it.
func TestEventStreamGetSurvivesCompaction(t *testing.T) {
	es := NewEventStream(nil)

	ahead, behind := es.Subscribe(), es.Subscribe()

	for i := 0; i < 10; i++ {
		es.Post(Event{Type: LapCompletedEvent, Lap: i})
	}
	if n := len(ahead.Get()); n != 10 {
		t.Fatalf("got %d events, expected 10", n)
	}
	es.Post(Event{Type: LapCompletedEvent, Lap: 10})
	es.Post(Event{Type: LapCompletedEvent, Lap: 11})

	// Force the compaction cadence so the lagging subscriber's own Get
	// compacts the stream right after collecting its events.
	es.lastCompact = time.Time{}
	got := behind.Get()
	if len(got) != 12 {
		t.Fatalf("got %d events, expected 12", len(got))
	}
	for i, ev := range got {
		if ev.Lap != i {
			t.Errorf("event %d corrupted: got Lap %d, expected %d", i, ev.Lap, i)
		}
	}
}

func TestEventStreamCompact(t *testing.T) {
	es := NewEventStream(nil)

	// multiple consumers, at different offsets
	subs := [4]*EventsSubscription{es.Subscribe(), es.Subscribe(), es.Subscribe(), es.Subscribe()}
	// consume probability
	p := [4]float32{1, 0.75, 0.05, 0.5}
	// next value we expect to get from the stream
	var idx [4]int

	i, iter := 0, 0
	for i < 65536 {
		// Add a bunch of consecutive numbers to the stream
		n := rand.Intn(255)
		for j := 0; j < n; j++ {
			es.Post(Event{Type: EventType((i + j) % NumEventTypes)})
		}
		i += n

		if iter == 1 {
			subs[1].Unsubscribe()
		}

		for c, prob := range p {
			if rand.Float32() > prob || (iter > 0 && c == 1) /* unsubscribed */ {
				continue
			}
			s := subs[c].Get()
			for _, sv := range s {
				if idx[c] != int(sv.Type) {
					t.Errorf("expected %d, got %d for consumer %d", idx[c], int(sv.Type), c)
				}
				idx[c] = (idx[c] + 1) % NumEventTypes
			}
		}

		es.compact()
		iter++
	}

	if cap(es.events) > i/2 {
		t.Errorf("Expected compaction to keep the event buffer small: cap %d for %d events",
			cap(es.events), i)
	}
}
