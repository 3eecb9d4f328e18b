// Package hooks implements the scriptable event bus that lets registered
// handlers inspect, mutate, or cancel a packet in flight before the relay
// core forwards it. Handlers are registered as compiled-in Go functions at
// startup; there is no dynamic script loading.
package hooks

import (
	"sync"

	"github.com/trixolol/GrowProxy/wire"
)

// Direction identifies which side of the relay a packet is travelling
// toward.
type Direction int

const (
	ServerBound Direction = iota
	ClientBound
)

// Event names for the two packet directions subscribers can observe.
const (
	EventServerBoundPacket = "serverBoundPacket"
	EventClientBoundPacket = "clientBoundPacket"
)

// Context is the mutable event payload passed by exclusive reference
// through every subscriber, in registration order. A subscriber may
// rewrite Raw or set Canceled; the bus never re-parses a mutated Raw, so
// keeping it syntactically valid is the mutator's responsibility.
type Context struct {
	Direction Direction
	ChannelID uint8
	Parsed    wire.Packet
	Raw       []byte
	Canceled  bool
}

// Handler observes or mutates an in-flight packet.
type Handler func(ctx *Context)

// Bus dispatches named events to their subscribers synchronously and in
// registration order.
type Bus struct {
	mu       sync.Mutex
	handlers map[string][]Handler
}

// New returns an empty Bus.
func New() *Bus {
	return &Bus{handlers: make(map[string][]Handler)}
}

// On registers h for event, appended after any existing subscribers.
func (b *Bus) On(event string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], h)
}

// Publish runs every subscriber of event against ctx in registration
// order. Subscribers run synchronously on the caller's goroutine.
func (b *Bus) Publish(event string, ctx *Context) {
	b.mu.Lock()
	subs := append([]Handler(nil), b.handlers[event]...)
	b.mu.Unlock()
	for _, h := range subs {
		h(ctx)
	}
}

// eventFor returns the event name for a packet direction.
func eventFor(dir Direction) string {
	if dir == ClientBound {
		return EventClientBoundPacket
	}
	return EventServerBoundPacket
}

// PublishPacket is a convenience wrapper that builds a Context from a
// classified packet and direction, publishes it, and returns the (possibly
// mutated) context for the relay core to act on.
func (b *Bus) PublishPacket(dir Direction, channelID uint8, parsed wire.Packet, raw []byte) *Context {
	ctx := &Context{Direction: dir, ChannelID: channelID, Parsed: parsed, Raw: raw}
	b.Publish(eventFor(dir), ctx)
	return ctx
}
