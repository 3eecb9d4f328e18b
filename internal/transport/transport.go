// Package transport adapts github.com/codecat/go-enet's Host/Peer/Event
// shape to the handful of primitives the relay core needs: connect,
// send-on-channel, disconnect now/later, and resetting peer slots left
// over by a failed connect. It deliberately does not reimplement
// reliability or session semantics; that stays inside go-enet.
package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/codecat/go-enet"
)

// EventType mirrors the three host events the relay core reacts to.
type EventType int

const (
	EventNone EventType = iota
	EventConnect
	EventDisconnect
	EventReceive
)

// Event is a host event translated out of go-enet's representation.
type Event struct {
	Type      EventType
	Peer      enet.Peer
	ChannelID uint8
	Data      []byte
}

// Host wraps a single enet.Host, additionally tracking every peer it has
// dialed outbound so ResetStalePeers can poke slots the library itself
// doesn't expose for direct iteration.
type Host struct {
	mu      sync.Mutex
	host    enet.Host
	dialed  []enet.Peer
}

// Listen creates a host bound to port, accepting up to maxPeers
// connections on channelCount channels.
func Listen(port uint16, maxPeers, channelCount uint) (*Host, error) {
	addr := enet.NewListenAddress(port)
	h, err := enet.NewHost(addr, maxPeers, channelCount, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: listen on port %d: %w", port, err)
	}
	return &Host{host: h}, nil
}

// ListenWithFallback tries Listen on port first, then each port in
// (port, min(port+200, 65535)] in order, returning the first one that
// binds successfully along with the port it bound.
func ListenWithFallback(port uint16, maxPeers, channelCount uint) (*Host, uint16, error) {
	if h, err := Listen(port, maxPeers, channelCount); err == nil {
		return h, port, nil
	}

	ceiling := uint32(port) + 200
	if ceiling > 65535 {
		ceiling = 65535
	}
	var lastErr error
	for p := uint32(port) + 1; p <= ceiling; p++ {
		h, err := Listen(uint16(p), maxPeers, channelCount)
		if err == nil {
			return h, uint16(p), nil
		}
		lastErr = err
	}
	return nil, 0, fmt.Errorf("transport: no free port in [%d, %d]: %w", port, ceiling, lastErr)
}

// Outbound creates the host for the outbound (client-role) side of the
// relay, bound to localPort, or to no fixed address when localPort is 0.
func Outbound(localPort uint16, maxPeers, channelCount uint) (*Host, error) {
	var addr enet.Address
	if localPort != 0 {
		addr = enet.NewListenAddress(localPort)
	}
	h, err := enet.NewHost(addr, maxPeers, channelCount, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: create outbound host: %w", err)
	}
	return &Host{host: h}, nil
}

// Connect dials host:port on the given channel count, tracking the
// resulting peer so a later failure can be cleaned up by ResetStalePeers.
func (h *Host) Connect(host string, port uint16, channelCount uint) (enet.Peer, error) {
	addr, err := enet.NewAddress(host, port)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %s:%d: %w", host, port, err)
	}
	peer, err := h.host.Connect(addr, channelCount, 0)
	if err != nil {
		return nil, fmt.Errorf("transport: connect %s:%d: %w", host, port, err)
	}
	h.mu.Lock()
	h.dialed = append(h.dialed, peer)
	h.mu.Unlock()
	return peer, nil
}

// ResetStalePeers forcibly resets every previously dialed peer that never
// reached the connected state. This is the Go adapter's stand-in for
// poking a native ENet host's fixed peer array directly: go-enet does not
// expose that array, so the adapter keeps its own bookkeeping of peers it
// dialed and resets whichever of those are not StateConnected.
func (h *Host) ResetStalePeers() {
	h.mu.Lock()
	defer h.mu.Unlock()
	live := h.dialed[:0]
	for _, p := range h.dialed {
		if p.GetState() != enet.StateConnected {
			p.Reset()
			continue
		}
		live = append(live, p)
	}
	h.dialed = live
}

// Service drains at most one host event, waiting up to timeout.
func (h *Host) Service(timeout time.Duration) (Event, error) {
	ev, err := h.host.Service(uint32(timeout / time.Millisecond))
	if err != nil {
		return Event{}, err
	}
	switch ev.GetType() {
	case enet.EventConnect:
		return Event{Type: EventConnect, Peer: ev.GetPeer()}, nil
	case enet.EventDisconnect:
		return Event{Type: EventDisconnect, Peer: ev.GetPeer()}, nil
	case enet.EventReceive:
		pkt := ev.GetPacket()
		data := append([]byte(nil), pkt.GetData()...)
		pkt.Destroy()
		return Event{Type: EventReceive, Peer: ev.GetPeer(), ChannelID: ev.GetChannelID(), Data: data}, nil
	default:
		return Event{Type: EventNone}, nil
	}
}

// Send transmits data reliably on channel to peer.
func Send(peer enet.Peer, channel uint8, data []byte) error {
	pkt := enet.NewPacket(data, enet.PacketFlagReliable)
	return peer.SendPacket(channel, pkt)
}

// DisconnectNow tears peer down immediately, without flushing queued data.
func DisconnectNow(peer enet.Peer) {
	peer.DisconnectNow(0)
}

// DisconnectLater tears peer down once queued data has been flushed.
func DisconnectLater(peer enet.Peer) {
	peer.Disconnect(0)
}

// Destroy releases the host's native resources.
func (h *Host) Destroy() {
	h.host.Destroy()
}
