// sim/countdown.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "math"

// Seconds between the start signal and control being handed to the
// racers.
const CountdownSeconds = 3

// Countdown is the pre-race timer. Restart may be called from a network
// callback that has no clock in hand, so the actual rebase is deferred
// to the next Update, which runs on the tick loop and does.
type Countdown struct {
	startTime    float32
	needsRestart bool
}

// Restart schedules the countdown to rebase at the next Update.
func (c *Countdown) Restart() {
	c.needsRestart = true
}

// Update folds a pending restart into the timer. Call once per tick.
func (c *Countdown) Update(ft FrameTime) {
	if c.needsRestart {
		c.startTime = ft.Time
		c.needsRestart = false
	}
}

// Elapsed returns the seconds since the countdown last restarted,
// including the countdown itself, so it doubles as the race clock.
func (c *Countdown) Elapsed(ft FrameTime) float32 {
	return ft.Time - c.startTime
}

// MatchStarted reports whether the countdown has run out and the ships
// are free to move.
func (c *Countdown) MatchStarted(ft FrameTime) bool {
	return c.Elapsed(ft) >= CountdownSeconds
}

// Stage returns the whole seconds remaining, clamped at zero, for the
// 3-2-1-go display.
func (c *Countdown) Stage(ft FrameTime) int {
	rem := CountdownSeconds - c.Elapsed(ft)
	if rem <= 0 {
		return 0
	}
	return int(math.Ceil(float64(rem)))
}
