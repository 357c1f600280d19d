// server/server.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"net"
	"net/rpc"
	"os"
	"strconv"

	"github.com/slipstream-vr/slipstream/log"
	"github.com/slipstream-vr/slipstream/sim"
	"github.com/slipstream-vr/slipstream/util"
)

// Version history
// 1: initial release
// 2: per-client event subscriptions in state updates
// 3: ship uploads carry full kinematic state, gob->msgpack
const SlipstreamRPCVersion = 3

const SlipstreamServerAddress = "race.slipstream-vr.org"
const SlipstreamServerPort = 8000 + SlipstreamRPCVersion

type ServerLaunchConfig struct {
	Port      int    // if 0, finds an open one
	TrackPath string // empty for the built-in track
	MaxShips  int    // if 0, no limit
}

func LaunchServer(config ServerLaunchConfig, lg *log.Logger) {
	util.MonitorCPUUsage(95, lg)
	util.MonitorMemoryUsage(128 /* trigger MB */, 64 /* delta MB */, lg)

	_, server, e := makeServer(config, lg)
	if e.HaveErrors() {
		e.PrintErrors(lg)
		os.Exit(1)
	}
	server()
}

func LaunchServerAsync(config ServerLaunchConfig, lg *log.Logger) (int, util.ErrorLogger) {
	rpcPort, server, e := makeServer(config, lg)
	if e.HaveErrors() {
		return 0, e
	}

	go server()

	return rpcPort, e
}

func makeServer(config ServerLaunchConfig, lg *log.Logger) (int, func(), util.ErrorLogger) {
	var listener net.Listener
	var err error
	var errorLogger util.ErrorLogger
	var rpcPort int
	if config.Port == 0 {
		if listener, err = net.Listen("tcp", ":0"); err != nil {
			errorLogger.Error(err)
			return 0, nil, errorLogger
		}
		rpcPort = listener.Addr().(*net.TCPAddr).Port
	} else if listener, err = net.Listen("tcp", ":"+strconv.Itoa(config.Port)); err == nil {
		rpcPort = config.Port
	} else {
		errorLogger.Error(err)
		return 0, nil, errorLogger
	}

	errorLogger.Push("track " + config.TrackPath)
	track, err := sim.NewTrackRegistry(lg).Load(config.TrackPath)
	if err != nil {
		errorLogger.Error(err)
		return 0, nil, errorLogger
	}
	errorLogger.Pop()

	serverFunc := func() {
		server := rpc.NewServer()

		rm := NewRaceManager(track, config.TrackPath, config.MaxShips, lg)
		if err := server.RegisterName("Race", &dispatcher{rm: rm}); err != nil {
			lg.Errorf("unable to register dispatcher: %v", err)
			os.Exit(1)
		}

		lg.Infof("Listening on %+v", listener)

		for {
			conn, err := listener.Accept()
			if err != nil {
				lg.Errorf("Accept error: %v", err)
			} else if cc, err := util.MakeCompressedConn(util.MakeLoggingConn(conn, lg)); err != nil {
				lg.Errorf("MakeCompressedConn: %v", err)
			} else {
				lg.Infof("%s: new connection", conn.RemoteAddr())
				codec := util.MakeMessagepackServerCodec(cc, lg)
				codec = util.MakeLoggingServerCodec(conn.RemoteAddr().String(), codec, lg)
				go server.ServeCodec(codec)
			}
		}
	}

	return rpcPort, serverFunc, errorLogger
}
