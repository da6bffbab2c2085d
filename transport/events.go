package transport

import "net/netip"

// Event is anything the socket surfaces to the simulation. The set is closed;
// consumers type switch over the four variants.
type Event interface{ transportEvent() }

// PacketEvent is a delivered payload from a peer.
type PacketEvent struct {
	Addr    netip.AddrPort
	Stream  uint8
	Payload []byte
}

// ConnectEvent fires the first time a datagram arrives from a peer.
type ConnectEvent struct {
	Addr netip.AddrPort
}

// TimeoutEvent fires when a peer has been receive-silent past the idle
// timeout. A DisconnectEvent for the same peer follows immediately.
type TimeoutEvent struct {
	Addr netip.AddrPort
}

// DisconnectEvent fires when a peer is gone, either by explicit disconnect
// or after a timeout.
type DisconnectEvent struct {
	Addr netip.AddrPort
}

func (PacketEvent) transportEvent()     {}
func (ConnectEvent) transportEvent()    {}
func (TimeoutEvent) transportEvent()    {}
func (DisconnectEvent) transportEvent() {}
