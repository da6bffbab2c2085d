// Package transport bridges the simulation and a UDP socket. A background
// read pump turns datagrams into events on an inbound channel; a write pump
// drains the outbound queue and runs retransmits, heartbeats and idle expiry.
// The simulation thread only ever touches the two channels, so it shares no
// state with the socket goroutines.
package transport

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

var be = binary.BigEndian

// protoID opens every datagram. Anything else on the port is not ours and is
// dropped before any further parsing.
const protoID uint32 = 0x41524c4b

// MaxPayload is the largest payload Send accepts, chosen to keep datagrams
// under common path MTUs.
const MaxPayload = 1200

// DeliveryClass selects the delivery guarantees for one packet.
type DeliveryClass uint8

const (
	// ReliableOrdered packets all arrive, in send order per stream.
	ReliableOrdered DeliveryClass = iota
	// ReliableSequenced packets all arrive, but only the newest per stream
	// is delivered; late predecessors are dropped.
	ReliableSequenced
	// ReliableUnordered packets all arrive, in whatever order.
	ReliableUnordered
	// Unreliable packets may be lost, duplicated or reordered.
	Unreliable
	// UnreliableSequenced packets may be lost, and only ones newer than the
	// last delivered on their stream are handed up.
	UnreliableSequenced
)

func (c DeliveryClass) valid() bool    { return c <= UnreliableSequenced }
func (c DeliveryClass) reliable() bool { return c <= ReliableUnordered }
func (c DeliveryClass) sequenced() bool {
	return c == ReliableSequenced || c == UnreliableSequenced
}

// Packet is one outbound payload with its addressing and delivery choice.
type Packet struct {
	Addr    netip.AddrPort
	Class   DeliveryClass
	Stream  uint8
	Payload []byte
}

type packetKind uint8

const (
	kindData packetKind = iota
	kindHeartbeat
	kindDisconnect
)

const flagHasAck = 1 << 0

// Datagram layout, big endian:
//
//	protoID u32 | kind u8 | class u8 | flags u8 | stream u8 |
//	relSeq u16 | seq u16 | ack u16 | ackBits u32 | payload...
//
// relSeq numbers reliable packets for acking and dedup. seq is the per-stream
// counter for ordered or sequenced delivery. ack and ackBits acknowledge the
// newest reliable packet seen from the other side plus the 32 before it, and
// only mean anything when flagHasAck is set.
const headerSize = 18

type header struct {
	kind    packetKind
	class   DeliveryClass
	flags   uint8
	stream  uint8
	relSeq  uint16
	seq     uint16
	ack     uint16
	ackBits uint32
}

func (h header) marshal(buf []byte) []byte {
	var b [headerSize]byte
	be.PutUint32(b[0:4], protoID)
	b[4] = byte(h.kind)
	b[5] = byte(h.class)
	b[6] = h.flags
	b[7] = h.stream
	be.PutUint16(b[8:10], h.relSeq)
	be.PutUint16(b[10:12], h.seq)
	be.PutUint16(b[12:14], h.ack)
	be.PutUint32(b[14:18], h.ackBits)
	return append(buf, b[:]...)
}

func parseDatagram(data []byte) (header, []byte, error) {
	if len(data) < headerSize {
		return header{}, nil, fmt.Errorf("short datagram: %d bytes", len(data))
	}
	if got := be.Uint32(data[0:4]); got != protoID {
		return header{}, nil, fmt.Errorf("foreign protocol id %#x", got)
	}
	h := header{
		kind:    packetKind(data[4]),
		class:   DeliveryClass(data[5]),
		flags:   data[6],
		stream:  data[7],
		relSeq:  be.Uint16(data[8:10]),
		seq:     be.Uint16(data[10:12]),
		ack:     be.Uint16(data[12:14]),
		ackBits: be.Uint32(data[14:18]),
	}
	if h.kind > kindDisconnect {
		return header{}, nil, fmt.Errorf("unknown packet kind %d", h.kind)
	}
	if !h.class.valid() {
		return header{}, nil, fmt.Errorf("unknown delivery class %d", h.class)
	}
	return h, data[headerSize:], nil
}
