package core

import (
	"net/netip"

	"github.com/yohamta/donburi"
	"go.uber.org/zap"

	"airlock/shared/messages"
	"airlock/transport"
)

// Destination selects the recipients of one outgoing message. The set is
// closed; Send resolves each variant against the current roster.
type Destination interface{ destination() }

// Single targets one address.
type Single struct {
	Addr netip.AddrPort
}

// BroadcastToAll targets every connected player.
type BroadcastToAll struct{}

// BroadcastToAllExcept targets every connected player but one, compared by
// address equality.
type BroadcastToAllExcept struct {
	Addr netip.AddrPort
}

// BroadcastToSet targets an explicit address list.
type BroadcastToSet struct {
	Addrs []netip.AddrPort
}

func (Single) destination()               {}
func (BroadcastToAll) destination()       {}
func (BroadcastToAllExcept) destination() {}
func (BroadcastToSet) destination()       {}

// Dispatcher serializes a message once and fans the same payload out to every
// resolved recipient. It holds no state of its own beyond the world it reads
// the roster from.
type Dispatcher struct {
	conn  Conn
	world donburi.World
	log   *zap.SugaredLogger
}

func NewDispatcher(conn Conn, world donburi.World, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{conn: conn, world: world, log: log}
}

// Send encodes msg and queues one packet per recipient. Encode failures are
// logged and dropped; a bad message must never take the tick down.
func (d *Dispatcher) Send(msg messages.ServerMessage, class transport.DeliveryClass, stream uint8, dest Destination) {
	payload, err := messages.EncodeServer(msg)
	if err != nil {
		d.log.Errorf("[dispatch] encode %T: %v", msg, err)
		return
	}
	for _, addr := range d.resolve(dest) {
		d.conn.Send(transport.Packet{Addr: addr, Class: class, Stream: stream, Payload: payload})
	}
}

func (d *Dispatcher) resolve(dest Destination) []netip.AddrPort {
	switch t := dest.(type) {
	case Single:
		return []netip.AddrPort{t.Addr}
	case BroadcastToAll:
		return d.roster(nil)
	case BroadcastToAllExcept:
		return d.roster(&t.Addr)
	case BroadcastToSet:
		return t.Addrs
	default:
		return nil
	}
}

func (d *Dispatcher) roster(skip *netip.AddrPort) []netip.AddrPort {
	var addrs []netip.AddrPort
	NetworkAddr.Each(d.world, func(entry *donburi.Entry) {
		addr := NetworkAddr.Get(entry).Addr
		if skip != nil && addr == *skip {
			return
		}
		addrs = append(addrs, addr)
	})
	return addrs
}
