package core

import (
	"net/netip"
	"sync/atomic"

	"github.com/yohamta/donburi"
	"go.uber.org/zap"

	"airlock/shared/gamemath"
	"airlock/shared/messages"
	"airlock/shared/netcomponents"
	"airlock/transport"
)

// Conn is the slice of the transport the server consumes. *transport.Socket
// satisfies it; tests substitute a recording fake.
type Conn interface {
	Events() <-chan transport.Event
	Send(p transport.Packet)
}

// Config carries the tunables for one server instance.
type Config struct {
	TickRate   int
	MaxPlayers int
	MoveStep   float64
}

func (c Config) withDefaults() Config {
	if c.TickRate <= 0 {
		c.TickRate = 20
	}
	if c.MaxPlayers <= 0 {
		c.MaxPlayers = 16
	}
	if c.MoveStep <= 0 {
		c.MoveStep = gamemath.DefaultMoveStep
	}
	return c
}

// Server owns the authoritative lobby state. All game state is touched only
// from the tick goroutine; the transport hands events over through a channel,
// so nothing here needs a lock. The one exception is the player counter,
// which the master registration goroutine reads atomically.
type Server struct {
	cfg      Config
	log      *zap.SugaredLogger
	world    donburi.World
	conn     Conn
	dispatch *Dispatcher
	loop     *GameLoop

	// Player lookups. Ids are assigned monotonically and never reused, so a
	// stale id can never point at a newer player's entity.
	addrToPlayer   map[netip.AddrPort]uint16
	playerToEntity map[uint16]donburi.Entity
	nextID         uint16

	playerCount atomic.Int32
}

// NewServer wires a server around an already listening transport.
func NewServer(conn Conn, cfg Config, log *zap.SugaredLogger) *Server {
	cfg = cfg.withDefaults()
	world := donburi.NewWorld()
	s := &Server{
		cfg:            cfg,
		log:            log,
		world:          world,
		conn:           conn,
		addrToPlayer:   make(map[netip.AddrPort]uint16),
		playerToEntity: make(map[uint16]donburi.Entity),
	}
	s.dispatch = NewDispatcher(conn, world, log)
	s.loop = NewGameLoop(s, cfg.TickRate)
	return s
}

// Start runs the simulation loop until Stop.
func (s *Server) Start() {
	go s.loop.Run()
}

// Stop halts the simulation loop.
func (s *Server) Stop() {
	s.loop.Stop()
}

// PlayerCount is safe to call from any goroutine.
func (s *Server) PlayerCount() int {
	return int(s.playerCount.Load())
}

// World exposes the ECS world to tests and diagnostics.
func (s *Server) World() donburi.World {
	return s.world
}

// Tick runs one simulation step: network in, inputs applied, state out.
func (s *Server) Tick() {
	s.drainEvents()
	s.applyInputs()
	s.broadcastState()
}

func (s *Server) drainEvents() {
	for {
		select {
		case ev := <-s.conn.Events():
			s.handleEvent(ev)
		default:
			return
		}
	}
}

func (s *Server) handleEvent(ev transport.Event) {
	switch e := ev.(type) {
	case transport.ConnectEvent:
		s.log.Debugf("[lobby] peer %s reachable", e.Addr)
	case transport.TimeoutEvent:
		s.log.Infof("[lobby] peer %s timed out", e.Addr)
	case transport.DisconnectEvent:
		s.removePlayer(e.Addr)
	case transport.PacketEvent:
		s.handlePacket(e)
	}
}

func (s *Server) handlePacket(e transport.PacketEvent) {
	msg, err := messages.DecodeClient(e.Payload)
	if err != nil {
		s.log.Warnf("[lobby] bad message from %s: %v", e.Addr, err)
		return
	}
	switch m := msg.(type) {
	case messages.Connect:
		s.handleConnect(e.Addr, m)
	case messages.PlayerInput:
		s.queueInput(e.Addr, m)
	}
}

// handleConnect runs the join state machine. Rejections are silent on the
// wire: the would-be client times out, which keeps the server from turning
// into a reflector for spoofed sources.
func (s *Server) handleConnect(addr netip.AddrPort, m messages.Connect) {
	if _, known := s.addrToPlayer[addr]; known {
		// Retransmitted connect. The player keeps their id.
		return
	}
	if m.Version != messages.GameVersion {
		s.log.Warnf("[lobby] rejecting %s: game version %d, want %d", addr, m.Version, messages.GameVersion)
		return
	}
	if len(s.addrToPlayer) >= s.cfg.MaxPlayers {
		s.log.Warnf("[lobby] rejecting %q from %s: lobby full (%d/%d)", m.Name, addr, len(s.addrToPlayer), s.cfg.MaxPlayers)
		return
	}

	id := s.nextID
	s.nextID++

	entity := s.world.Create(
		netcomponents.Position,
		netcomponents.PlayerID,
		netcomponents.PlayerName,
		NetworkAddr,
		InputQueue,
		LastInput,
		PositionHistory,
	)
	entry := s.world.Entry(entity)
	netcomponents.PlayerID.SetValue(entry, netcomponents.PlayerIDData{ID: id})
	netcomponents.PlayerName.SetValue(entry, netcomponents.PlayerNameData{Name: m.Name})
	NetworkAddr.SetValue(entry, NetworkAddrData{Addr: addr})

	s.addrToPlayer[addr] = id
	s.playerToEntity[id] = entity
	s.playerCount.Store(int32(len(s.addrToPlayer)))

	s.dispatch.Send(messages.ConnectAck{ID: id}, transport.ReliableOrdered, messages.StreamGameState, Single{Addr: addr})
	s.dispatch.Send(s.rosterFor(id), transport.ReliableOrdered, messages.StreamGameState, Single{Addr: addr})
	s.dispatch.Send(messages.NewPlayer{Name: m.Name, ID: id}, transport.ReliableOrdered, messages.StreamGameState, BroadcastToAllExcept{Addr: addr})

	s.log.Infof("[lobby] %q joined as id %d from %s (%d/%d)", m.Name, id, addr, len(s.addrToPlayer), s.cfg.MaxPlayers)
}

// rosterFor lists everyone already in the lobby, skipping the new player
// themselves; they learn their own identity from the ConnectAck.
func (s *Server) rosterFor(exclude uint16) messages.FullGameState {
	var state messages.FullGameState
	netcomponents.PlayerID.Each(s.world, func(entry *donburi.Entry) {
		id := netcomponents.PlayerID.Get(entry).ID
		if id == exclude {
			return
		}
		state.Players = append(state.Players, messages.NewPlayer{
			Name: netcomponents.PlayerName.Get(entry).Name,
			ID:   id,
		})
	})
	return state
}

func (s *Server) queueInput(addr netip.AddrPort, m messages.PlayerInput) {
	id, ok := s.addrToPlayer[addr]
	if !ok {
		// Input from someone not in the lobby, most likely racing their own
		// connect. Dropping is safe: inputs are continuous traffic.
		return
	}
	entry := s.entryFor(id)
	if entry == nil {
		return
	}
	q := InputQueue.Get(entry)
	q.Pending = append(q.Pending, m)
}

func (s *Server) removePlayer(addr netip.AddrPort) {
	id, ok := s.addrToPlayer[addr]
	if !ok {
		return
	}
	delete(s.addrToPlayer, addr)
	if entity, ok := s.playerToEntity[id]; ok {
		delete(s.playerToEntity, id)
		if s.world.Valid(entity) {
			s.world.Remove(entity)
		}
	}
	s.playerCount.Store(int32(len(s.addrToPlayer)))
	s.log.Infof("[lobby] player %d left (%s)", id, addr)
}

func (s *Server) entryFor(id uint16) *donburi.Entry {
	entity, ok := s.playerToEntity[id]
	if !ok || !s.world.Valid(entity) {
		return nil
	}
	return s.world.Entry(entity)
}
