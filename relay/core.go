// Package relay implements the dual-endpoint state machine: it owns the
// inbound game-client peer, the outbound upstream-server peer, the pending
// handoff endpoint, and the retry budget that connects them. Grounded on
// v2/server.Server and v2/client.Client's connect/session/teardown shape,
// generalized from a single TCP session to inbound+outbound ENet peers
// with a pending-endpoint handoff in between.
package relay

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/codecat/go-enet"
	"go.uber.org/zap"

	"github.com/trixolol/GrowProxy/command"
	"github.com/trixolol/GrowProxy/config"
	"github.com/trixolol/GrowProxy/hooks"
	"github.com/trixolol/GrowProxy/internal/transport"
	"github.com/trixolol/GrowProxy/wire"
	"github.com/trixolol/GrowProxy/world"
)

const (
	channelCount  = 2
	dataChannel   = 0
	retryTag      = "outbound-connect"
	maxRetries    = 12
	retryUnit     = 250 * time.Millisecond
	retryCap      = 3000 * time.Millisecond
)

// hostService is the subset of *transport.Host the event pump needs.
type hostService interface {
	Service(timeout time.Duration) (transport.Event, error)
}

// outboundHost is the subset of *transport.Host the connect/retry logic
// needs; a narrow seam so tests can substitute a fake outbound peer.
type outboundHost interface {
	hostService
	Connect(host string, port uint16, channelCount uint) (enet.Peer, error)
	ResetStalePeers()
}

// scheduler is the subset of *schedule.Scheduler the retry budget needs.
type scheduler interface {
	Schedule(tag string, d time.Duration, cb func())
	CancelAll()
}

// endpoint is a candidate (host, port) to dial outbound to.
type endpoint struct {
	host string
	port uint16
}

func (e endpoint) valid() bool {
	return strings.TrimSpace(strings.Trim(e.host, "\x00")) != "" && e.port >= 1
}

// Core is the single-consumer relay state machine. Every field below this
// comment is owned exclusively by the goroutine running Run; external
// callers communicate through cmdCh.
type Core struct {
	cfg      config.Config
	inbound  hostService
	outbound outboundHost
	hooks    *hooks.Bus
	commands *command.Registry
	world    *world.State
	sched    scheduler
	log      *zap.SugaredLogger

	cmdCh chan func()

	pending      endpoint
	inboundPeer  enet.Peer
	outboundPeer enet.Peer
	attempts     int // failed outbound connect() calls since the last success
}

// New builds a Core. It creates no transport hosts; the caller creates
// them and wires them in with SetHosts.
func New(cfg config.Config, b *hooks.Bus, cmds *command.Registry, w *world.State, sched scheduler, log *zap.SugaredLogger) *Core {
	return &Core{
		cfg:      cfg,
		hooks:    b,
		commands: cmds,
		world:    w,
		sched:    sched,
		log:      log,
		cmdCh:    make(chan func(), 16),
	}
}

// SetHosts wires the inbound/outbound transport hosts; must be called
// before Run.
func (c *Core) SetHosts(inbound, outbound *transport.Host) {
	c.inbound, c.outbound = inbound, outbound
}

// SetPendingEndpoint is the EndpointSink the HTTPS interceptor calls from
// its own goroutine; it hops onto the core's single consumer before
// mutating any state.
func (c *Core) SetPendingEndpoint(host string, port uint16) {
	c.submit(func() {
		c.pending = endpoint{host: host, port: port}
		c.log.Infow("pending endpoint set", "host", host, "port", port)
		if c.inboundPeer != nil && c.outboundPeer == nil {
			c.attemptOutboundConnect()
		}
	})
}

func (c *Core) submit(fn func()) {
	c.cmdCh <- fn
}

// Run services both hosts until ctx is canceled, funneling every event
// and every external command through a single select loop so
// pendingEndpoint, inboundPeer, outboundPeer, and retries are only ever
// touched from this goroutine.
func (c *Core) Run(ctx context.Context) {
	inboundEvents := make(chan transport.Event, 32)
	outboundEvents := make(chan transport.Event, 32)

	go pumpEvents(ctx, c.inbound, inboundEvents)
	go pumpEvents(ctx, c.outbound, outboundEvents)

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return
		case fn := <-c.cmdCh:
			fn()
		case ev := <-inboundEvents:
			c.handleInbound(ev)
		case ev := <-outboundEvents:
			c.handleOutbound(ev)
		}
	}
}

func pumpEvents(ctx context.Context, host hostService, out chan<- transport.Event) {
	for {
		if ctx.Err() != nil {
			return
		}
		ev, err := host.Service(50 * time.Millisecond)
		if err != nil {
			continue
		}
		if ev.Type == transport.EventNone {
			continue
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Core) shutdown() {
	c.sched.CancelAll()
	if c.inboundPeer != nil {
		transport.DisconnectNow(c.inboundPeer)
	}
	if c.outboundPeer != nil {
		transport.DisconnectNow(c.outboundPeer)
	}
}

func (c *Core) handleInbound(ev transport.Event) {
	switch ev.Type {
	case transport.EventConnect:
		c.inboundPeer = ev.Peer
		c.log.Infow("inbound peer connected")
		if c.pending.valid() {
			c.attemptOutboundConnect()
		} else {
			c.log.Infow("inbound connected, waiting for bootstrap or handoff")
		}
	case transport.EventDisconnect:
		c.attempts = 0
		c.inboundPeer = nil
		c.world.Clear()
		if !c.pending.valid() {
			c.pending = endpoint{}
		}
		if c.outboundPeer != nil {
			transport.DisconnectLater(c.outboundPeer)
		}
	case transport.EventReceive:
		c.onServerBound(ev.Data)
	}
}

func (c *Core) handleOutbound(ev transport.Event) {
	switch ev.Type {
	case transport.EventConnect:
		c.outboundPeer = ev.Peer
		c.attempts = 0
		c.log.Infow("outbound peer connected")
	case transport.EventDisconnect:
		c.outboundPeer = nil
		if c.inboundPeer != nil && c.pending.valid() {
			c.attemptOutboundConnect()
		} else if c.inboundPeer != nil {
			transport.DisconnectLater(c.inboundPeer)
		}
	case transport.EventReceive:
		c.onClientBound(ev.Data)
	}
}

func (c *Core) onServerBound(raw []byte) {
	pkt := wire.Classify(raw)
	ctx := c.hooks.PublishPacket(hooks.ServerBound, dataChannel, pkt, raw)

	switch pkt.ID {
	case wire.JoinRequest:
		c.world.Clear()
	case wire.Input:
		if c.dispatchInputCommands(pkt) {
			ctx.Canceled = true
		}
	case wire.Quit:
		ctx.Canceled = true
		if c.inboundPeer != nil {
			transport.DisconnectLater(c.inboundPeer)
		}
		if c.outboundPeer != nil {
			transport.DisconnectNow(c.outboundPeer)
		}
	case wire.Disconnect:
		ctx.Canceled = true
		if c.inboundPeer != nil {
			transport.DisconnectNow(c.inboundPeer)
		}
		if c.outboundPeer != nil {
			transport.DisconnectNow(c.outboundPeer)
		}
	}

	if ctx.Canceled || c.outboundPeer == nil {
		return
	}
	if err := transport.Send(c.outboundPeer, dataChannel, ctx.Raw); err != nil {
		c.log.Warnw("forward to outbound failed", "err", err)
	}
}

func (c *Core) onClientBound(raw []byte) {
	pkt := wire.Classify(raw)
	forward := raw

	switch pkt.ID {
	case wire.OnSendToServer:
		if rewritten, ok := c.rewriteOnSendToServer(pkt); ok {
			forward = rewritten
			pkt = wire.Classify(forward)
		}
	case wire.OnSpawn:
		c.applySpawn(pkt)
	case wire.OnRemove:
		c.applyRemove(pkt)
	}

	ctx := c.hooks.PublishPacket(hooks.ClientBound, dataChannel, pkt, forward)

	if ctx.Canceled || c.inboundPeer == nil {
		return
	}
	if err := transport.Send(c.inboundPeer, dataChannel, ctx.Raw); err != nil {
		c.log.Warnw("forward to inbound failed", "err", err)
	}
}

// dispatchInputCommands tries the "text" key first, then the stray-pipe
// fallback recovery path, returning true (and stopping at the first
// success) if either dispatches a registered command.
func (c *Core) dispatchInputCommands(pkt wire.Packet) bool {
	if text := pkt.Text.Get("text", 0); text != "" {
		if c.commands.Execute(text) {
			return true
		}
	}
	if fallback, ok := wire.RawEmptyKeyValue(pkt.RawBody, wire.DefaultDelimiter); ok {
		if c.commands.Execute(fallback) {
			return true
		}
	}
	return false
}

// rewriteOnSendToServer implements the in-band handoff rewrite: argument 1
// (port) becomes the proxy's listen port, argument 4 (route-text)'s key
// becomes 127.0.0.1 with the rest of the route preserved, and the pending
// endpoint is updated to the address/port the handoff actually named.
func (c *Core) rewriteOnSendToServer(pkt wire.Packet) ([]byte, bool) {
	if len(pkt.Variants) < 7 {
		return nil, false
	}
	portArg := pkt.Variants[1]
	routeArg := pkt.Variants[4]
	if routeArg.Tag != wire.TagString {
		return nil, false
	}

	address, rest, hadPipe := splitRoute(routeArg.Str)

	var rawPort uint32
	switch portArg.Tag {
	case wire.TagUnsigned:
		rawPort = portArg.U32
	case wire.TagSigned:
		rawPort = uint32(portArg.I32)
	default:
		return nil, false
	}

	c.pending = endpoint{host: address, port: uint16(rawPort)}
	c.log.Infow("in-band handoff", "address", address, "port", rawPort)

	entries := append([]wire.Entry(nil), pkt.Variants...)
	entries[1] = wire.EncodeArg(portArg.Index, uint32(c.cfg.Server.Port))
	entries[4] = wire.EncodeArg(routeArg.Index, joinRoute("127.0.0.1", rest, hadPipe))

	newExtra := wire.EncodeVariantList(entries)
	if c.inboundPeer != nil && c.outboundPeer == nil {
		c.attemptOutboundConnect()
	}
	return wire.BuildTankFrame(pkt.Header, newExtra, pkt.TrailingNUL), true
}

// applySpawn updates world state from an OnSpawn call. The single string
// argument following the function name is itself a pipe-delimited text
// record carrying the participant's fields (netID, userID, name, type,
// spawnTag).
func (c *Core) applySpawn(pkt wire.Packet) {
	rec, ok := variantRecord(pkt.Variants)
	if !ok {
		return
	}
	netID := rec.GetInt("netID", 0, -1)
	if netID < 0 {
		return
	}
	if err := c.world.OnSpawn(world.Participant{
		NetID:    int32(netID),
		UserID:   rec.Get("userID", 0),
		Name:     rec.Get("name", 0),
		Type:     rec.Get("type", 0),
		SpawnTag: rec.Get("spawnTag", 0),
	}); err != nil {
		c.log.Debugw("onSpawn rejected", "err", err)
	}
}

// applyRemove updates world state from an OnRemove call, accepting either
// a nested text record (like OnSpawn) or a single numeric argument.
func (c *Core) applyRemove(pkt wire.Packet) {
	if rec, ok := variantRecord(pkt.Variants); ok {
		if netID := rec.GetInt("netID", 0, -1); netID >= 0 {
			c.world.OnRemove(int32(netID))
			return
		}
	}
	if len(pkt.Variants) > 1 {
		switch pkt.Variants[1].Tag {
		case wire.TagUnsigned:
			c.world.OnRemove(int32(pkt.Variants[1].U32))
		case wire.TagSigned:
			c.world.OnRemove(pkt.Variants[1].I32)
		}
	}
}

func variantRecord(entries []wire.Entry) (wire.TextRecord, bool) {
	if len(entries) < 2 || entries[1].Tag != wire.TagString {
		return wire.TextRecord{}, false
	}
	return wire.ParseTextRecord([]byte(entries[1].Str), wire.DefaultDelimiter), true
}

func splitRoute(s string) (key, rest string, hadPipe bool) {
	idx := strings.IndexByte(s, '|')
	if idx < 0 {
		return s, "", false
	}
	return s[:idx], s[idx+1:], true
}

func joinRoute(key, rest string, hadPipe bool) string {
	if !hadPipe {
		return key
	}
	return key + "|" + rest
}

// attemptOutboundConnect implements the connect/retry rules: tearing down
// a stale existing peer first, probing and resetting stale peer slots on
// an immediate connect failure and retrying once, then falling back to a
// capped exponential retry schedule with a hard budget.
func (c *Core) attemptOutboundConnect() {
	if c.outboundPeer != nil {
		transport.DisconnectNow(c.outboundPeer)
		c.outboundPeer = nil
		c.scheduleRetry()
		return
	}

	peer, err := c.outbound.Connect(c.pending.host, c.pending.port, channelCount)
	if err != nil {
		c.outbound.ResetStalePeers()
		peer, err = c.outbound.Connect(c.pending.host, c.pending.port, channelCount)
	}
	if err != nil {
		c.log.Warnw("outbound connect failed", "err", err)
		c.scheduleRetry()
		return
	}
	_ = peer
	c.pending = endpoint{}
}

// scheduleRetry enforces the hard retry budget: maxRetries failed connect
// attempts total. The call that pushes attempts to maxRetries logs the
// budget exhausted and schedules nothing further, so a (maxRetries+1)th
// attempt never runs.
func (c *Core) scheduleRetry() {
	c.attempts++
	if c.attempts >= maxRetries {
		c.log.Warnw("outbound retry budget exhausted", "attempts", c.attempts)
		return
	}
	delay := time.Duration(c.attempts) * retryUnit
	if delay > retryCap {
		delay = retryCap
	}
	c.log.Infow("scheduling outbound retry", "attempt", c.attempts, "delay", delay)
	c.sched.Schedule(retryTag, delay, func() {
		c.submit(c.attemptOutboundConnect)
	})
}

// formatPendingEndpoint is used by diagnostics/tests.
func (c *Core) formatPendingEndpoint() string {
	return c.pending.host + ":" + strconv.Itoa(int(c.pending.port))
}
