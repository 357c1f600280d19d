// client/connect.go
// Copyright(c) 2023-2025 slipstream contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package client

import (
	"fmt"
	"net"
	"net/rpc"
	"time"

	"github.com/slipstream-vr/slipstream/log"
	"github.com/slipstream-vr/slipstream/server"
	"github.com/slipstream-vr/slipstream/sim"
	"github.com/slipstream-vr/slipstream/util"
)

type RPCClient struct {
	*rpc.Client
}

func (c *RPCClient) callWithTimeout(serviceMethod string, args any, reply any) error {
	pc := &pendingCall{
		Call:      c.Go(serviceMethod, args, reply, nil),
		IssueTime: time.Now(),
	}

	select {
	case <-pc.Call.Done:
		return server.TryDecodeError(pc.Call.Error)

	case <-time.After(5 * time.Second):
		return fmt.Errorf("%s: %w", serviceMethod, server.ErrRPCTimeout)
	}
}

// pendingCall tracks an in-flight asynchronous RPC so the tick loop can
// poll for completion instead of blocking on the network.
type pendingCall struct {
	Call      *rpc.Call
	IssueTime time.Time
	OnSuccess func()
}

func makeRPCCall(call *rpc.Call, onSuccess func()) *pendingCall {
	return &pendingCall{
		Call:      call,
		IssueTime: time.Now(),
		OnSuccess: onSuccess,
	}
}

func (p *pendingCall) CheckFinished() bool {
	select {
	case <-p.Call.Done:
		return true
	default:
		return false
	}
}

func (p *pendingCall) TimedOut() bool {
	return time.Since(p.IssueTime) > 5*time.Second
}

// InvokeCallback handles a finished call: errors are posted to the
// event stream as status messages, successes run the call's callback.
func (p *pendingCall) InvokeCallback(es *sim.EventStream, lg *log.Logger) {
	if err := server.TryDecodeError(p.Call.Error); err != nil {
		lg.Errorf("%s: %v", p.Call.ServiceMethod, err)
		es.Post(sim.Event{
			Type:    sim.StatusMessageEvent,
			Message: "Error from server: " + err.Error(),
		})
	} else if p.OnSuccess != nil {
		p.OnSuccess()
	}
}

func getClient(hostname string, lg *log.Logger) (*RPCClient, error) {
	conn, err := net.Dial("tcp", hostname)
	if err != nil {
		return nil, err
	}

	cc, err := util.MakeCompressedConn(conn)
	if err != nil {
		return nil, err
	}

	codec := util.MakeMessagepackClientCodec(cc)
	codec = util.MakeLoggingClientCodec(hostname, codec, lg)
	return &RPCClient{rpc.NewClientWithCodec(codec)}, nil
}

// ConnectToServer dials the server, joins the race, and loads the track
// it names. The returned client is in Spectator mode.
func ConnectToServer(hostname, name string, lg *log.Logger) (*RaceClient, error) {
	rpcClient, err := getClient(hostname, lg)
	if err != nil {
		return nil, err
	}

	var result server.JoinResult
	start := time.Now()
	err = rpcClient.callWithTimeout(server.JoinRPC,
		&server.JoinRequest{Version: server.SlipstreamRPCVersion, Name: name}, &result)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}
	lg.Debugf("%s: joined as client %d in %s", hostname, result.ClientID, time.Since(start))

	track, err := sim.NewTrackRegistry(lg).Load(result.Track)
	if err != nil {
		rpcClient.Close()
		return nil, err
	}

	return NewRaceClient(result.ClientID, name, result.Token, track, rpcClient, lg), nil
}
