// cmd/slipstream-server/main.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// slipstream-server hosts a single race that slipstream clients connect
// to over the network.
package main

import (
	"flag"

	"github.com/slipstream-vr/slipstream/log"
	"github.com/slipstream-vr/slipstream/server"
)

var (
	logLevel  = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir    = flag.String("logdir", "", "log file directory")
	port      = flag.Int("port", server.SlipstreamServerPort, "port to listen on")
	trackPath = flag.String("track", "", "track path OBJ file (default: built-in loop)")
	maxShips  = flag.Int("maxships", 0, "limit on concurrent clients (0 for no limit)")
)

func main() {
	flag.Parse()

	lg := log.New(true, *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	server.LaunchServer(server.ServerLaunchConfig{
		Port:      *port,
		TrackPath: *trackPath,
		MaxShips:  *maxShips,
	}, lg)
}
