package transport

import (
	"errors"
	"fmt"
	"net"
	"net/netip"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Socket owns one UDP socket and all per-peer reliability state. Listen binds
// it, Start spawns the pumps, Close tears both down. Send and Events are the
// only surface the simulation uses and neither ever blocks.
type Socket struct {
	conn *net.UDPConn
	cfg  Config
	log  *zap.SugaredLogger

	events   chan Event
	outbound chan Packet

	mu    sync.Mutex
	peers map[netip.AddrPort]*peer

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Listen binds a UDP socket on addr ("host:port", port 0 for ephemeral).
func Listen(addr string, cfg Config, log *zap.SugaredLogger) (*Socket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("bind %q: %w", addr, err)
	}
	cfg = cfg.withDefaults()
	return &Socket{
		conn:     conn,
		cfg:      cfg,
		log:      log,
		events:   make(chan Event, cfg.EventBuffer),
		outbound: make(chan Packet, cfg.OutboundBuffer),
		peers:    make(map[netip.AddrPort]*peer),
		done:     make(chan struct{}),
	}, nil
}

// ResolveAddr resolves "host:port" into the canonical form used for peer
// identity, suitable for Send and for aiming a client at a server.
func ResolveAddr(addr string) (netip.AddrPort, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return netip.AddrPort{}, fmt.Errorf("resolve %q: %w", addr, err)
	}
	return canon(udpAddr.AddrPort()), nil
}

// Start spawns the read and write pumps.
func (s *Socket) Start() {
	s.wg.Add(2)
	go s.readPump()
	go s.writePump()
}

// Close stops the pumps and releases the socket. Safe to call twice.
func (s *Socket) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
	})
	s.wg.Wait()
	return nil
}

// LocalAddr is the bound address, useful after binding port 0.
func (s *Socket) LocalAddr() netip.AddrPort {
	return canon(s.conn.LocalAddr().(*net.UDPAddr).AddrPort())
}

// Events is the inbound queue. Drain it without blocking once per tick.
func (s *Socket) Events() <-chan Event {
	return s.events
}

// Send queues one packet. It never blocks: an oversized payload or a full
// outbound queue drops the packet with a log line, because a stalled
// simulation is worse than a lost packet.
func (s *Socket) Send(p Packet) {
	if len(p.Payload) > MaxPayload {
		s.log.Warnf("[net] dropping %d byte payload to %s, max %d", len(p.Payload), p.Addr, MaxPayload)
		return
	}
	p.Addr = canon(p.Addr)
	select {
	case s.outbound <- p:
	case <-s.done:
	default:
		s.log.Warnf("[net] outbound queue full, dropping packet to %s", p.Addr)
	}
}

// Disconnect tells addr we are leaving and forgets its state. Best effort:
// the control packet is unreliable and the peer's idle timeout is the
// backstop.
func (s *Socket) Disconnect(addr netip.AddrPort) {
	addr = canon(addr)
	s.mu.Lock()
	pr, ok := s.peers[addr]
	var datagram []byte
	if ok {
		datagram = pr.outgoingHeader(kindDisconnect, Unreliable, 0).marshal(nil)
		delete(s.peers, addr)
	}
	s.mu.Unlock()
	if datagram != nil {
		if _, err := s.conn.WriteToUDPAddrPort(datagram, addr); err != nil {
			s.log.Debugf("[net] disconnect to %s: %v", addr, err)
		}
	}
}

// canon strips IPv4-in-IPv6 mapping so one remote never shows up as two
// peers depending on which stack the datagram crossed.
func canon(addr netip.AddrPort) netip.AddrPort {
	return netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())
}

func (s *Socket) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
		s.log.Warnf("[net] event queue full, dropping %T", ev)
	}
}

func (s *Socket) peerLocked(addr netip.AddrPort, now time.Time) *peer {
	pr, ok := s.peers[addr]
	if !ok {
		pr = newPeer(addr, now)
		s.peers[addr] = pr
	}
	return pr
}

func (s *Socket) readPump() {
	defer s.wg.Done()
	buf := make([]byte, 65535)
	for {
		select {
		case <-s.done:
			return
		default:
		}
		s.conn.SetReadDeadline(time.Now().Add(s.cfg.PollInterval))
		n, addr, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			s.log.Debugf("[net] read: %v", err)
			continue
		}
		s.handleDatagram(canon(addr), buf[:n])
	}
}

func (s *Socket) handleDatagram(addr netip.AddrPort, data []byte) {
	hdr, payload, err := parseDatagram(data)
	if err != nil {
		s.log.Debugf("[net] dropping datagram from %s: %v", addr, err)
		return
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if hdr.kind == kindDisconnect {
		if _, ok := s.peers[addr]; ok {
			delete(s.peers, addr)
			s.emit(DisconnectEvent{Addr: addr})
		}
		return
	}

	pr := s.peerLocked(addr, now)
	pr.lastRecv = now
	if !pr.everReceived {
		pr.everReceived = true
		s.emit(ConnectEvent{Addr: addr})
	}
	if hdr.flags&flagHasAck != 0 {
		pr.applyAck(hdr.ack, hdr.ackBits)
	}
	if hdr.kind != kindData {
		return
	}

	if hdr.class.reliable() && !pr.markReceived(hdr.relSeq) {
		return
	}

	switch hdr.class {
	case ReliableOrdered:
		for _, pl := range pr.deliverOrdered(hdr.stream, hdr.seq, clone(payload)) {
			s.emit(PacketEvent{Addr: addr, Stream: hdr.stream, Payload: pl})
		}
	case ReliableSequenced, UnreliableSequenced:
		if pr.deliverSequenced(hdr.stream, hdr.seq) {
			s.emit(PacketEvent{Addr: addr, Stream: hdr.stream, Payload: clone(payload)})
		}
	default:
		s.emit(PacketEvent{Addr: addr, Stream: hdr.stream, Payload: clone(payload)})
	}
}

// clone copies a payload out of the shared read buffer before it escapes.
func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (s *Socket) writePump() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case p := <-s.outbound:
			s.transmit(p)
		case <-ticker.C:
			s.maintain()
		}
	}
}

func (s *Socket) transmit(p Packet) {
	now := time.Now()
	s.mu.Lock()
	pr := s.peerLocked(p.Addr, now)
	hdr := pr.outgoingHeader(kindData, p.Class, p.Stream)
	datagram := hdr.marshal(make([]byte, 0, headerSize+len(p.Payload)))
	datagram = append(datagram, p.Payload...)
	if p.Class.reliable() {
		pr.pending[hdr.relSeq] = &pendingPacket{data: datagram, sentAt: now}
	}
	pr.lastSend = now
	pr.ackDirty = false
	s.mu.Unlock()

	if _, err := s.conn.WriteToUDPAddrPort(datagram, p.Addr); err != nil {
		s.log.Warnf("[net] send to %s: %v", p.Addr, err)
	}
}

// maintain runs once per poll interval: retransmits, ack flushes, keepalives
// and idle expiry.
func (s *Socket) maintain() {
	now := time.Now()

	s.mu.Lock()
	var gone []netip.AddrPort
	for addr, pr := range s.peers {
		if now.Sub(pr.lastRecv) > s.cfg.IdleTimeout {
			gone = append(gone, addr)
			continue
		}
		if !s.retransmit(pr, now) {
			gone = append(gone, addr)
			continue
		}
		if pr.ackDirty || now.Sub(pr.lastSend) >= s.cfg.HeartbeatInterval {
			datagram := pr.outgoingHeader(kindHeartbeat, Unreliable, 0).marshal(nil)
			pr.lastSend = now
			pr.ackDirty = false
			if _, err := s.conn.WriteToUDPAddrPort(datagram, addr); err != nil {
				s.log.Debugf("[net] heartbeat to %s: %v", addr, err)
			}
		}
	}
	for _, addr := range gone {
		delete(s.peers, addr)
		s.emit(TimeoutEvent{Addr: addr})
		s.emit(DisconnectEvent{Addr: addr})
	}
	s.mu.Unlock()
}

// retransmit resends overdue reliable packets. It reports false once any
// packet exhausts the retry budget: a peer that cannot be delivered to has an
// unfillable hole in its ordered streams and is only safe to drop.
func (s *Socket) retransmit(pr *peer, now time.Time) bool {
	for rel, pp := range pr.pending {
		if now.Sub(pp.sentAt) < s.cfg.RetransmitTimeout {
			continue
		}
		if pp.retries >= s.cfg.MaxRetries {
			s.log.Warnf("[net] dropping %s: reliable packet %d unacked after %d retries", pr.addr, rel, pp.retries)
			return false
		}
		pp.retries++
		pp.sentAt = now
		if _, err := s.conn.WriteToUDPAddrPort(pp.data, pr.addr); err != nil {
			s.log.Debugf("[net] retransmit to %s: %v", pr.addr, err)
		}
	}
	return true
}
