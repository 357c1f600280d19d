// sim/countdown_test.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import "testing"

func TestCountdown(t *testing.T) {
	var c Countdown

	// With no restart ever requested the match is considered started.
	ft := FrameTime{Delta: 1.0 / 60, Time: 100}
	c.Update(ft)
	if !c.MatchStarted(ft) {
		t.Errorf("match not started with no countdown pending")
	}

	c.Restart()

	// The restart doesn't take effect until the next Update.
	if c.MatchStarted(ft) != true {
		t.Errorf("restart rebased the clock before Update")
	}

	c.Update(ft)
	if c.MatchStarted(ft) {
		t.Errorf("match started immediately after restart")
	}
	if got := c.Stage(ft); got != 3 {
		t.Errorf("got stage %d, expected 3", got)
	}

	ft.Time = 101.5
	c.Update(ft)
	if c.MatchStarted(ft) {
		t.Errorf("match started %v seconds into the countdown", c.Elapsed(ft))
	}
	if got := c.Stage(ft); got != 2 {
		t.Errorf("got stage %d, expected 2", got)
	}

	ft.Time = 103
	c.Update(ft)
	if !c.MatchStarted(ft) {
		t.Errorf("match not started after the countdown ran out")
	}
	if got := c.Stage(ft); got != 0 {
		t.Errorf("got stage %d, expected 0", got)
	}
	if got := c.Elapsed(ft); got != 3 {
		t.Errorf("got elapsed %v, expected 3", got)
	}
}

func TestCountdownRestartDuringCountdown(t *testing.T) {
	var c Countdown

	ft := FrameTime{Time: 10}
	c.Restart()
	c.Update(ft)

	// A second restart mid-countdown rebases again.
	ft.Time = 12
	c.Restart()
	c.Update(ft)

	ft.Time = 13
	c.Update(ft)
	if c.MatchStarted(ft) {
		t.Errorf("match started %v seconds after the second restart", ft.Time-12)
	}
	ft.Time = 15
	if !c.MatchStarted(ft) {
		t.Errorf("match not started after the rebased countdown ran out")
	}
}
