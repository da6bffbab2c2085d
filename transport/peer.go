package transport

import (
	"net/netip"
	"time"

	"airlock/shared/sequence"
)

// ackWindow is how many reliable packets before the newest one ackBits can
// cover. Anything older that resurfaces is treated as a duplicate.
const ackWindow = 32

// orderedHoldLimit caps buffered ahead-of-order packets per stream so a
// hostile peer cannot grow memory without bound.
const orderedHoldLimit = 256

type pendingPacket struct {
	data    []byte
	sentAt  time.Time
	retries int
}

// peer is the per-remote reliability state. It is only ever touched by the
// socket goroutines under the socket mutex.
type peer struct {
	addr     netip.AddrPort
	lastRecv time.Time
	lastSend time.Time

	// everReceived gates the ConnectEvent: a peer created by our own
	// outbound traffic has not connected until it answers.
	everReceived bool

	// Outgoing counters.
	nextRel       uint16
	nextOrdered   map[uint8]uint16
	nextSequenced map[uint8]uint16

	// In-flight reliable packets awaiting acks, keyed by relSeq.
	pending map[uint16]*pendingPacket

	// Ack state for the remote's reliable packets. remoteRel is the newest
	// relSeq seen; remoteBits covers the ackWindow packets before it.
	remoteSeen bool
	remoteRel  uint16
	remoteBits uint32
	ackDirty   bool

	// Per-stream inbound delivery state.
	expectedOrdered map[uint8]uint16
	heldOrdered     map[uint8]map[uint16][]byte
	latestSequenced map[uint8]uint16
	seenSequenced   map[uint8]bool
}

func newPeer(addr netip.AddrPort, now time.Time) *peer {
	return &peer{
		addr:            addr,
		lastRecv:        now,
		lastSend:        now,
		nextOrdered:     make(map[uint8]uint16),
		nextSequenced:   make(map[uint8]uint16),
		pending:         make(map[uint16]*pendingPacket),
		expectedOrdered: make(map[uint8]uint16),
		heldOrdered:     make(map[uint8]map[uint16][]byte),
		latestSequenced: make(map[uint8]uint16),
		seenSequenced:   make(map[uint8]bool),
	}
}

// outgoingHeader stamps counters and piggybacked acks onto one packet.
func (p *peer) outgoingHeader(kind packetKind, class DeliveryClass, stream uint8) header {
	h := header{kind: kind, class: class, stream: stream}
	if p.remoteSeen {
		h.flags |= flagHasAck
		h.ack = p.remoteRel
		h.ackBits = p.remoteBits
	}
	if kind == kindData {
		if class.reliable() {
			h.relSeq = p.nextRel
			p.nextRel++
		}
		switch {
		case class == ReliableOrdered:
			h.seq = p.nextOrdered[stream]
			p.nextOrdered[stream]++
		case class.sequenced():
			h.seq = p.nextSequenced[stream]
			p.nextSequenced[stream]++
		}
	}
	return h
}

// markReceived records one inbound reliable relSeq and reports whether it is
// new. Duplicates from retransmits come back false.
func (p *peer) markReceived(rel uint16) bool {
	p.ackDirty = true
	if !p.remoteSeen {
		p.remoteSeen = true
		p.remoteRel = rel
		p.remoteBits = 0
		return true
	}
	if sequence.GreaterThan(rel, p.remoteRel) {
		shift := rel - p.remoteRel
		p.remoteBits <<= shift
		if shift <= ackWindow {
			p.remoteBits |= 1 << (shift - 1)
		}
		p.remoteRel = rel
		return true
	}
	if rel == p.remoteRel {
		return false
	}
	back := p.remoteRel - rel
	if back > ackWindow {
		return false
	}
	bit := uint32(1) << (back - 1)
	if p.remoteBits&bit != 0 {
		return false
	}
	p.remoteBits |= bit
	return true
}

// applyAck retires in-flight packets covered by a piggybacked ack.
func (p *peer) applyAck(ack uint16, bits uint32) {
	delete(p.pending, ack)
	for i := uint16(1); i <= ackWindow; i++ {
		if bits&(1<<(i-1)) != 0 {
			delete(p.pending, ack-i)
		}
	}
}

// deliverOrdered runs the per-stream ordering buffer. It returns every
// payload that became deliverable, in order; late duplicates return nothing.
func (p *peer) deliverOrdered(stream uint8, seq uint16, payload []byte) [][]byte {
	expected := p.expectedOrdered[stream]
	if seq == expected {
		out := [][]byte{payload}
		expected++
		held := p.heldOrdered[stream]
		for held != nil {
			next, ok := held[expected]
			if !ok {
				break
			}
			delete(held, expected)
			out = append(out, next)
			expected++
		}
		p.expectedOrdered[stream] = expected
		return out
	}
	if sequence.GreaterThan(seq, expected) {
		held := p.heldOrdered[stream]
		if held == nil {
			held = make(map[uint16][]byte)
			p.heldOrdered[stream] = held
		}
		if len(held) < orderedHoldLimit {
			held[seq] = payload
		}
	}
	return nil
}

// deliverSequenced reports whether a sequenced packet is newer than the last
// one delivered on its stream.
func (p *peer) deliverSequenced(stream uint8, seq uint16) bool {
	if !p.seenSequenced[stream] {
		p.seenSequenced[stream] = true
		p.latestSequenced[stream] = seq
		return true
	}
	if sequence.GreaterThan(seq, p.latestSequenced[stream]) {
		p.latestSequenced[stream] = seq
		return true
	}
	return false
}
