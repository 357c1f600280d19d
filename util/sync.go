// util/sync.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"log/slog"
	gomath "math"
	"runtime"
	"sync"
	"time"

	"github.com/slipstream-vr/slipstream/log"

	"github.com/shirou/gopsutil/v3/cpu"
)

///////////////////////////////////////////////////////////////////////////
// LoggingMutex

var heldMutexesMutex sync.Mutex
var heldMutexes map[*LoggingMutex]interface{} = make(map[*LoggingMutex]interface{})

type LoggingMutex struct {
	sync.Mutex
	acq      time.Time
	acqStack []log.StackFrame
}

func (l *LoggingMutex) Lock(lg *log.Logger) {
	tryTime := time.Now()
	lg.Debug("attempting to acquire mutex", slog.Any("mutex", l))

	if !l.Mutex.TryLock() {
		// Lock with timeout.
		locked := make(chan struct{}, 1)

		go func() {
			l.Mutex.Lock()
			locked <- struct{}{}
		}()

		select {
		case <-locked:

		case <-time.After(10 * time.Second):
			lg.Error("unable to acquire mutex after 10 seconds", slog.Any("mutex", l),
				slog.Any("held_mutexes", heldMutexes))

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			usage, _ := cpu.Percent(time.Second, false)

			lg.Errorf("CPU: %d%% alloc: %dMB total alloc: %dMB sys mem: %dMB goroutines: %d",
				int(gomath.Round(usage[0])), m.Alloc/(1024*1024), m.TotalAlloc/(1024*1024), m.Sys/(1024*1024),
				runtime.NumGoroutine())
		}
	}

	heldMutexesMutex.Lock()
	heldMutexes[l] = nil
	heldMutexesMutex.Unlock()

	l.acq = time.Now()
	l.acqStack = log.Callstack(l.acqStack)
	w := l.acq.Sub(tryTime)
	lg.Debug("acquired mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	if w > time.Second {
		lg.Warn("long wait to acquire mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	}
}

func (l *LoggingMutex) Unlock(lg *log.Logger) {
	heldMutexesMutex.Lock()
	// Though it may seem like we could unlock this sooner, holding it
	// until this function returns ensures that if we end up doing logging
	// in the code below, other mutexes aren't unlocked while we're trying
	// to log the held ones.
	defer heldMutexesMutex.Unlock()

	if _, ok := heldMutexes[l]; !ok {
		lg.Error("mutex not held", slog.Any("held_mutexes", heldMutexes))
	}
	delete(heldMutexes, l)

	if d := time.Since(l.acq); d > time.Second {
		lg.Warn("mutex held for over 1 second", slog.Any("mutex", l), slog.Duration("held", d),
			slog.Any("held_mutexes", heldMutexes))
	}

	l.acq = time.Time{}
	l.acqStack = nil
	l.Mutex.Unlock()

	lg.Debug("released mutex", slog.Any("mutex", l))
}

func (l *LoggingMutex) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Time("acq", l.acq),
		slog.Duration("held", time.Since(l.acq)),
		slog.Any("acq_stack", l.acqStack))
}

///////////////////////////////////////////////////////////////////////////
// Resource monitors

// MonitorCPUUsage spawns a goroutine that periodically samples total CPU
// usage and logs a warning whenever it exceeds the given percentage.
func MonitorCPUUsage(limit int, lg *log.Logger) {
	go func() {
		for {
			usage, err := cpu.Percent(5*time.Second, false)
			if err != nil {
				lg.Errorf("cpu.Percent: %v", err)
				return
			}
			if int(usage[0]) > limit {
				lg.Warn("high CPU usage", slog.Int("percent", int(usage[0])),
					slog.Int("limit", limit))
			}
		}
	}()
}

// MonitorMemoryUsage spawns a goroutine that watches the process's heap
// use, logging whenever it exceeds triggerMB and then again each time it
// grows by another deltaMB.
func MonitorMemoryUsage(triggerMB, deltaMB int, lg *log.Logger) {
	go func() {
		trigger := uint64(triggerMB) * 1024 * 1024
		for {
			var m runtime.MemStats
			runtime.ReadMemStats(&m)

			if m.HeapAlloc > trigger {
				lg.Warn("memory usage", slog.Int64("heap_mb", int64(m.HeapAlloc/(1024*1024))),
					slog.Int("goroutines", runtime.NumGoroutine()))
				trigger = m.HeapAlloc + uint64(deltaMB)*1024*1024
			}

			time.Sleep(15 * time.Second)
		}
	}()
}
