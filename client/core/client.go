// Package core implements the predicting game client: it mirrors the server's
// lobby into a local world, applies the player's own inputs immediately, and
// reconciles against every authoritative broadcast.
package core

import (
	"net/netip"

	"github.com/yohamta/donburi"
	"go.uber.org/zap"

	"airlock/shared/gamemath"
	"airlock/shared/messages"
	"airlock/shared/netcomponents"
	"airlock/transport"
)

// Conn is the slice of the transport the client consumes.
type Conn interface {
	Events() <-chan transport.Event
	Send(p transport.Packet)
	Disconnect(addr netip.AddrPort)
}

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
)

// Input is one tick's worth of movement buttons.
type Input struct {
	Up, Down, Left, Right bool
}

// PlayerJoined tells the presentation layer someone appeared, the local
// player included.
type PlayerJoined struct {
	ID   uint16
	Name string
}

// InputApplied fires for every locally predicted input with the predicted
// position, so presentation can react to movement without polling.
type InputApplied struct {
	Counter uint16
	X, Y    float64
}

// Config carries the client tunables. MoveStep must match the server's or
// every replayed prediction lands somewhere the server disagrees with.
type Config struct {
	Name     string
	MoveStep float64
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "Player"
	}
	if c.MoveStep <= 0 {
		c.MoveStep = gamemath.DefaultMoveStep
	}
	return c
}

// Client owns the mirrored world. Like the server, all state is touched only
// from the goroutine calling Tick.
type Client struct {
	cfg    Config
	log    *zap.SugaredLogger
	world  donburi.World
	conn   Conn
	server netip.AddrPort

	state    ClientState
	localID  uint16
	hasLocal bool
	counter  uint16
	unacked  []messages.PlayerInput

	joinedCh  chan PlayerJoined
	appliedCh chan InputApplied
}

// NewClient wires a client around an already listening transport aimed at
// server.
func NewClient(conn Conn, server netip.AddrPort, cfg Config, log *zap.SugaredLogger) *Client {
	return &Client{
		cfg:       cfg.withDefaults(),
		log:       log,
		world:     donburi.NewWorld(),
		conn:      conn,
		server:    server,
		joinedCh:  make(chan PlayerJoined, 16),
		appliedCh: make(chan InputApplied, 64),
	}
}

// Connect sends the join request. The client sits in StateConnecting until a
// ConnectAck arrives; if none ever does, it sits there indefinitely and the
// presentation keeps showing "not connected".
func (c *Client) Connect() {
	payload, err := messages.EncodeClient(messages.Connect{Version: messages.GameVersion, Name: c.cfg.Name})
	if err != nil {
		c.log.Errorf("[client] encode connect: %v", err)
		return
	}
	c.conn.Send(transport.Packet{
		Addr:    c.server,
		Class:   transport.ReliableOrdered,
		Stream:  messages.StreamGameState,
		Payload: payload,
	})
	if c.state == StateDisconnected {
		c.state = StateConnecting
	}
	c.log.Infof("[client] connecting to %s as %q", c.server, c.cfg.Name)
}

// Disconnect leaves the server and clears the mirrored world.
func (c *Client) Disconnect() {
	if c.state == StateDisconnected {
		return
	}
	c.conn.Disconnect(c.server)
	c.log.Infof("[client] left %s", c.server)
	c.reset()
}

// Tick runs one client step: drain the network, then capture, send and
// predict this tick's input.
func (c *Client) Tick(in Input) {
	c.drainEvents()
	if c.state == StateDisconnected {
		return
	}
	c.sendInput(in)
}

func (c *Client) State() ClientState { return c.state }

// LocalID returns the server-assigned id once connected.
func (c *Client) LocalID() (uint16, bool) {
	return c.localID, c.hasLocal
}

// World exposes the mirrored ECS world for presentation queries.
func (c *Client) World() donburi.World { return c.world }

// PlayerSnapshot is a presentation-friendly copy of one player's state.
type PlayerSnapshot struct {
	ID    uint16
	Name  string
	X, Y  float64
	Local bool
}

// Players snapshots everyone currently known, in no particular order.
func (c *Client) Players() []PlayerSnapshot {
	var out []PlayerSnapshot
	netcomponents.PlayerID.Each(c.world, func(entry *donburi.Entry) {
		pos := netcomponents.Position.Get(entry)
		out = append(out, PlayerSnapshot{
			ID:    netcomponents.PlayerID.Get(entry).ID,
			Name:  netcomponents.PlayerName.Get(entry).Name,
			X:     pos.X,
			Y:     pos.Y,
			Local: entry.HasComponent(LocalPlayer),
		})
	})
	return out
}

// DrainJoined returns the joins since the last call.
func (c *Client) DrainJoined() []PlayerJoined { return drainChan(c.joinedCh) }

// DrainApplied returns the predicted inputs since the last call.
func (c *Client) DrainApplied() []InputApplied { return drainChan(c.appliedCh) }

func drainChan[T any](ch chan T) []T {
	var out []T
	for {
		select {
		case v := <-ch:
			out = append(out, v)
		default:
			return out
		}
	}
}

func (c *Client) drainEvents() {
	for {
		select {
		case ev := <-c.conn.Events():
			c.handleEvent(ev)
		default:
			return
		}
	}
}

func (c *Client) handleEvent(ev transport.Event) {
	switch e := ev.(type) {
	case transport.ConnectEvent:
		c.log.Debugf("[client] transport up to %s", e.Addr)
	case transport.TimeoutEvent:
		c.log.Warnf("[client] server %s stopped responding", e.Addr)
	case transport.DisconnectEvent:
		if e.Addr == c.server && c.state != StateDisconnected {
			c.log.Warnf("[client] lost connection to %s", c.server)
			c.reset()
		}
	case transport.PacketEvent:
		c.handleMessage(e)
	}
}

func (c *Client) handleMessage(e transport.PacketEvent) {
	if e.Addr != c.server {
		return
	}
	msg, err := messages.DecodeServer(e.Payload)
	if err != nil {
		c.log.Warnf("[client] bad message from server: %v", err)
		return
	}
	switch m := msg.(type) {
	case messages.ConnectAck:
		c.handleConnectAck(m)
	case messages.NewPlayer:
		c.spawnRemote(m.ID, m.Name)
	case messages.FullGameState:
		for _, p := range m.Players {
			c.spawnRemote(p.ID, p.Name)
		}
	case messages.LobbyTick:
		c.reconcile(m)
	}
}

func (c *Client) handleConnectAck(m messages.ConnectAck) {
	if c.state == StateConnected {
		// Duplicate ack from a retransmit race.
		return
	}
	c.state = StateConnected
	c.localID = m.ID
	c.hasLocal = true

	entity := c.world.Create(
		netcomponents.Position,
		netcomponents.PlayerID,
		netcomponents.PlayerName,
		Trail,
		LocalPlayer,
	)
	entry := c.world.Entry(entity)
	netcomponents.PlayerID.SetValue(entry, netcomponents.PlayerIDData{ID: m.ID})
	netcomponents.PlayerName.SetValue(entry, netcomponents.PlayerNameData{Name: c.cfg.Name})

	c.emitJoined(PlayerJoined{ID: m.ID, Name: c.cfg.Name})
	c.log.Infof("[client] joined as id %d", m.ID)
}

func (c *Client) spawnRemote(id uint16, name string) {
	if c.entryByID(id) != nil {
		// Already known; FullGameState and NewPlayer can overlap.
		return
	}
	entity := c.world.Create(
		netcomponents.Position,
		netcomponents.PlayerID,
		netcomponents.PlayerName,
		Trail,
	)
	entry := c.world.Entry(entity)
	netcomponents.PlayerID.SetValue(entry, netcomponents.PlayerIDData{ID: id})
	netcomponents.PlayerName.SetValue(entry, netcomponents.PlayerNameData{Name: name})

	c.emitJoined(PlayerJoined{ID: id, Name: name})
	c.log.Infof("[client] player %q joined as id %d", name, id)
}

func (c *Client) entryByID(id uint16) *donburi.Entry {
	var found *donburi.Entry
	netcomponents.PlayerID.Each(c.world, func(entry *donburi.Entry) {
		if netcomponents.PlayerID.Get(entry).ID == id {
			found = entry
		}
	})
	return found
}

func (c *Client) localEntry() *donburi.Entry {
	entry, ok := LocalPlayer.First(c.world)
	if !ok {
		return nil
	}
	return entry
}

func (c *Client) reset() {
	c.state = StateDisconnected
	c.hasLocal = false
	c.counter = 0
	c.unacked = c.unacked[:0]

	var entities []donburi.Entity
	netcomponents.PlayerID.Each(c.world, func(entry *donburi.Entry) {
		entities = append(entities, entry.Entity())
	})
	for _, e := range entities {
		c.world.Remove(e)
	}
}

func (c *Client) emitJoined(ev PlayerJoined) {
	select {
	case c.joinedCh <- ev:
	default:
	}
}

func (c *Client) emitApplied(ev InputApplied) {
	select {
	case c.appliedCh <- ev:
	default:
	}
}
