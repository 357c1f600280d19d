// cmd/slipstream/main.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// slipstream is a terminal client for slipstream races: it connects to
// a server, flies the ship from the keyboard, and draws the race state
// as text.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/slipstream-vr/slipstream/client"
	"github.com/slipstream-vr/slipstream/log"
	"github.com/slipstream-vr/slipstream/math"
	"github.com/slipstream-vr/slipstream/server"
	"github.com/slipstream-vr/slipstream/sim"
)

var (
	logLevel = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir   = flag.String("logdir", "", "log file directory")
	serverAddress = flag.String("server",
		net.JoinHostPort(server.SlipstreamServerAddress, strconv.Itoa(server.SlipstreamServerPort)),
		"address of the race server")
	racerName = flag.String("name", "", "name shown to other racers")
)

// Terminals report key presses but not releases, so control axes can't
// track held keys directly. Instead each press (and autorepeat) slams
// the axis to full and it decays back to zero when the key goes quiet.
type decayAxis struct {
	value   float32
	lastHit time.Time
}

const axisHoldTime = 250 * time.Millisecond

func (a *decayAxis) Hit(sign float32) {
	a.value = sign
	a.lastHit = time.Now()
}

func (a *decayAxis) Update() float32 {
	if time.Since(a.lastHit) > axisHoldTime {
		a.value = 0
	}
	return a.value
}

type eventLog struct {
	lines []string
}

func (el *eventLog) Add(s string) {
	el.lines = append(el.lines, s)
	if len(el.lines) > 8 {
		el.lines = el.lines[len(el.lines)-8:]
	}
}

func main() {
	flag.Parse()

	lg := log.New(false, *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	c, err := client.ConnectToServer(*serverAddress, *racerName, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", *serverAddress, err)
		os.Exit(1)
	}
	defer c.Disconnect()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to create screen: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "unable to initialize screen: %v\n", err)
		os.Exit(1)
	}
	defer screen.Fini()

	events := make(chan tcell.Event, 16)
	quit := make(chan struct{})
	go screen.ChannelEvents(events, quit)

	runEventLoop(c, screen, events, quit, lg)
}

func runEventLoop(c *client.RaceClient, screen tcell.Screen,
	events chan tcell.Event, quit chan struct{}, lg *log.Logger) {
	var throttle, roll decayAxis
	var elog eventLog
	sub := c.Subscribe()

	var disconnected error

	start := time.Now()
	last := start
	ticker := time.NewTicker(time.Second / 60)
	defer ticker.Stop()

	for {
		select {
		case ev := <-events:
			switch ev := ev.(type) {
			case *tcell.EventKey:
				switch {
				case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC ||
					ev.Rune() == 'q':
					close(quit)
					return
				case ev.Key() == tcell.KeyUp || ev.Rune() == 'w':
					throttle.Hit(1)
				case ev.Key() == tcell.KeyDown || ev.Rune() == 's':
					throttle.Hit(-1)
				case ev.Key() == tcell.KeyLeft || ev.Rune() == 'a':
					roll.Hit(-1)
				case ev.Key() == tcell.KeyRight || ev.Rune() == 'd':
					roll.Hit(1)
				case ev.Rune() == 'r':
					c.ToggleReady()
				case ev.Rune() == 'v':
					c.CycleWatch()
				}
			case *tcell.EventResize:
				screen.Sync()
			}

		case now := <-ticker.C:
			ft := sim.FrameTime{
				Delta: float32(now.Sub(last).Seconds()),
				Time:  float32(now.Sub(start).Seconds()),
			}
			last = now

			input := sim.InputAbstraction{
				Throttle: throttle.Update(),
				Roll:     roll.Update(),
			}
			c.Update(ft, input, func(err error) { disconnected = err })

			for _, ev := range sub.Get() {
				switch ev.Type {
				case sim.ChatMessageEvent, sim.StatusMessageEvent:
					elog.Add(ev.Message)
				case sim.RaceFinishedEvent:
					elog.Add(fmt.Sprintf("ship %d finished in %s", ev.Client,
						sim.DecomposeLapTime(ev.ElapsedTime)))
				}
			}

			draw(screen, c, ft, &elog)

			if disconnected != nil {
				lg.Errorf("disconnected: %v", disconnected)
				close(quit)
				return
			}
		}
	}
}

func draw(screen tcell.Screen, c *client.RaceClient, ft sim.FrameTime, elog *eventLog) {
	screen.Clear()

	row := 0
	put := func(s string) {
		for col, r := range s {
			screen.SetContent(col, row, r, nil, tcell.StyleDefault)
		}
		row++
	}

	put("slipstream    [w/s] throttle  [a/d] roll  [r] ready  [v] watch  [q] quit")
	put("")
	put("mode: " + c.Mode().String())

	if stage := c.CountdownStage(ft); stage > 0 {
		put(fmt.Sprintf("starting in %d...", stage))
	}

	pos := c.Ship.Transform.Pos
	vel := c.Ship.Kinematics.Vel
	if spec, ok := c.Mode().(client.Spectator); ok && spec.Watching != nil {
		if ship, ok := c.State.Ships[*spec.Watching]; ok {
			pos = ship.Transform.Pos
			vel = ship.Kinematics.Vel
		}
	}
	put(fmt.Sprintf("pos: %6.1f %6.1f %6.1f   speed: %5.1f", pos[0], pos[1], pos[2],
		math.Length3f(vel)))

	if w := c.State.Winner; w != nil {
		put(fmt.Sprintf("winner: ship %d in %s", w.Client, sim.DecomposeLapTime(w.FinishTime)))
	}
	put(fmt.Sprintf("ships connected: %d", len(c.State.Ships)))

	put("")
	for _, line := range elog.lines {
		put(line)
	}

	screen.Show()
}
