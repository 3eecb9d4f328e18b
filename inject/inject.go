// Package inject builds and sends synthetic packets toward either peer:
// log lines and CALL_FUNCTION variant frames toward the client, and
// quit_to_exit/join_request control text frames toward the server.
// Grounded on v2/server.sendError's build-frame-then-write-and-swallow-the-
// error shape, generalized from a single control frame type to the four
// synthetic senders the relay core needs.
package inject

import (
	"go.uber.org/zap"

	"github.com/codecat/go-enet"

	"github.com/trixolol/GrowProxy/internal/transport"
	"github.com/trixolol/GrowProxy/wire"
)

const defaultChannel uint8 = 0

// VariantOptions configures SendVariantToClient's CALL_FUNCTION header
// fields. DefaultVariantOptions returns the spec's defaults
// (netId=-1, targetNetId=0, delay=0, channelId=0); override the fields
// that matter to a given call.
type VariantOptions struct {
	NetID       int32
	TargetNetID int32
	Delay       int32
	ChannelID   uint8
}

// DefaultVariantOptions returns the baseline CALL_FUNCTION header values.
func DefaultVariantOptions() VariantOptions {
	return VariantOptions{NetID: -1, TargetNetID: 0, Delay: 0, ChannelID: defaultChannel}
}

func buildLogFrame(message string) []byte {
	var rec wire.TextRecord
	rec.Set("action", "log")
	rec.Set("msg", message)
	return wire.BuildTextFrame(wire.MsgGameMessage, rec)
}

func buildQuitToExitFrame() []byte {
	var rec wire.TextRecord
	rec.Set("action", "quit_to_exit")
	return wire.BuildTextFrame(wire.MsgGameMessage, rec)
}

func buildJoinRequestFrame(worldName, invitedWorld string) []byte {
	var rec wire.TextRecord
	rec.Set("action", "join_request")
	rec.Set("name", worldName)
	if invitedWorld != "" {
		rec.Set("invited_world", invitedWorld)
	}
	return wire.BuildTextFrame(wire.MsgGameMessage, rec)
}

func buildVariantFrame(functionName string, args []any, opts VariantOptions) []byte {
	return wire.BuildCallFunction(functionName, args, opts.NetID, opts.TargetNetID, opts.Delay, true)
}

// SendLog pushes a log text frame to peer (the client) on channel 0.
func SendLog(peer enet.Peer, message string, log *zap.SugaredLogger) bool {
	return send(peer, defaultChannel, buildLogFrame(message), log)
}

// SendQuitToExit pushes a quit_to_exit text frame to peer (the server) on
// channel 0.
func SendQuitToExit(peer enet.Peer, log *zap.SugaredLogger) bool {
	return send(peer, defaultChannel, buildQuitToExitFrame(), log)
}

// SendJoinRequest pushes a join_request text frame to peer (the server) on
// channel 0. invitedWorld is omitted from the frame when empty.
func SendJoinRequest(peer enet.Peer, worldName, invitedWorld string, log *zap.SugaredLogger) bool {
	return send(peer, defaultChannel, buildJoinRequestFrame(worldName, invitedWorld), log)
}

// SendVariantToClient builds a CALL_FUNCTION frame naming functionName with
// args as its following variant arguments, and pushes it to peer (the
// client) on opts.ChannelID.
func SendVariantToClient(peer enet.Peer, functionName string, args []any, opts VariantOptions, log *zap.SugaredLogger) bool {
	return send(peer, opts.ChannelID, buildVariantFrame(functionName, args, opts), log)
}

// send no-ops (returning false) when peer is absent, and logs but never
// panics or propagates a transport write failure.
func send(peer enet.Peer, channelID uint8, data []byte, log *zap.SugaredLogger) bool {
	if peer == nil {
		return false
	}
	if err := transport.Send(peer, channelID, data); err != nil {
		log.Warnw("inject send failed", "err", err)
		return false
	}
	return true
}
