package core

import (
	"math"
	"net/netip"
	"testing"

	"go.uber.org/zap"

	"airlock/shared/gamemath"
	"airlock/shared/messages"
	"airlock/shared/netcomponents"
	"airlock/transport"
)

var serverAddr = netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), 7600)

// fakeConn stands in for the transport: tests feed server traffic in and
// record what the client sends.
type fakeConn struct {
	events       chan transport.Event
	sent         []transport.Packet
	disconnected []netip.AddrPort
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan transport.Event, 64)}
}

func (f *fakeConn) Events() <-chan transport.Event { return f.events }
func (f *fakeConn) Send(p transport.Packet)        { f.sent = append(f.sent, p) }
func (f *fakeConn) Disconnect(addr netip.AddrPort) { f.disconnected = append(f.disconnected, addr) }

func (f *fakeConn) take() []transport.Packet {
	out := f.sent
	f.sent = nil
	return out
}

func (f *fakeConn) deliver(t *testing.T, from netip.AddrPort, msg messages.ServerMessage) {
	t.Helper()
	payload, err := messages.EncodeServer(msg)
	if err != nil {
		t.Fatalf("encode %T: %v", msg, err)
	}
	f.events <- transport.PacketEvent{Addr: from, Stream: messages.StreamGameState, Payload: payload}
}

func newTestClient(t *testing.T) (*Client, *fakeConn) {
	t.Helper()
	conn := newFakeConn()
	return NewClient(conn, serverAddr, Config{Name: "Brian"}, zap.NewNop().Sugar()), conn
}

// ackConnect walks the client through the join handshake.
func ackConnect(t *testing.T, c *Client, conn *fakeConn, id uint16) {
	t.Helper()
	c.Connect()
	conn.take()
	conn.deliver(t, serverAddr, messages.ConnectAck{ID: id})
	c.drainEvents()
	if c.State() != StateConnected {
		t.Fatalf("client did not reach connected state")
	}
}

func localPos(t *testing.T, c *Client) (float64, float64) {
	t.Helper()
	entry := c.localEntry()
	if entry == nil {
		t.Fatalf("no local player entity")
	}
	pos := netcomponents.Position.Get(entry)
	return pos.X, pos.Y
}

func TestConnectSendsJoinRequest(t *testing.T) {
	c, conn := newTestClient(t)
	c.Connect()

	if c.State() != StateConnecting {
		t.Fatalf("expected connecting state, got %d", c.State())
	}
	pkts := conn.take()
	if len(pkts) != 1 {
		t.Fatalf("expected one join packet, got %d", len(pkts))
	}
	p := pkts[0]
	if p.Addr != serverAddr || p.Class != transport.ReliableOrdered || p.Stream != messages.StreamGameState {
		t.Fatalf("join went out wrong: addr %s class %d stream %d", p.Addr, p.Class, p.Stream)
	}
	msg, err := messages.DecodeClient(p.Payload)
	if err != nil {
		t.Fatalf("decode join: %v", err)
	}
	req, ok := msg.(messages.Connect)
	if !ok || req.Version != messages.GameVersion || req.Name != "Brian" {
		t.Fatalf("unexpected join request %#v", msg)
	}
}

func TestConnectAckSpawnsLocalPlayer(t *testing.T) {
	c, conn := newTestClient(t)
	ackConnect(t, c, conn, 3)

	id, ok := c.LocalID()
	if !ok || id != 3 {
		t.Fatalf("expected local id 3, got %d (known %v)", id, ok)
	}
	players := c.Players()
	if len(players) != 1 || !players[0].Local || players[0].ID != 3 {
		t.Fatalf("expected one local player with id 3, got %#v", players)
	}
	joined := c.DrainJoined()
	if len(joined) != 1 || joined[0].ID != 3 || joined[0].Name != "Brian" {
		t.Fatalf("expected a join notification for ourselves, got %#v", joined)
	}
}

func TestDuplicateConnectAckIgnored(t *testing.T) {
	c, conn := newTestClient(t)
	ackConnect(t, c, conn, 2)

	conn.deliver(t, serverAddr, messages.ConnectAck{ID: 9})
	c.drainEvents()

	if id, _ := c.LocalID(); id != 2 {
		t.Fatalf("duplicate ack replaced the local id with %d", id)
	}
	if got := c.Players(); len(got) != 1 {
		t.Fatalf("duplicate ack spawned a second entity, have %d", len(got))
	}
}

func TestMessagesFromStrangerIgnored(t *testing.T) {
	c, conn := newTestClient(t)
	c.Connect()

	stranger := netip.AddrPortFrom(netip.MustParseAddr("127.0.0.1"), 9999)
	conn.deliver(t, stranger, messages.ConnectAck{ID: 4})
	c.drainEvents()

	if c.State() != StateConnecting {
		t.Fatalf("accepted an ack from a stranger")
	}
}

func TestTickPredictsLocally(t *testing.T) {
	c, conn := newTestClient(t)
	ackConnect(t, c, conn, 0)

	c.Tick(Input{Right: true})

	pkts := conn.take()
	if len(pkts) != 1 {
		t.Fatalf("expected one input packet, got %d", len(pkts))
	}
	p := pkts[0]
	if p.Class != transport.UnreliableSequenced || p.Stream != messages.StreamInput {
		t.Fatalf("input went out as class %d on stream %d", p.Class, p.Stream)
	}
	msg, err := messages.DecodeClient(p.Payload)
	if err != nil {
		t.Fatalf("decode input: %v", err)
	}
	in, ok := msg.(messages.PlayerInput)
	if !ok || in.Counter != 1 || in.X != math.MaxInt16 || in.Y != 0 {
		t.Fatalf("unexpected input on the wire: %#v", msg)
	}

	if x, y := localPos(t, c); x != gamemath.DefaultMoveStep || y != 0 {
		t.Fatalf("expected predicted position (%v, 0), got (%v, %v)", gamemath.DefaultMoveStep, x, y)
	}
	applied := c.DrainApplied()
	if len(applied) != 1 || applied[0].Counter != 1 || applied[0].X != gamemath.DefaultMoveStep {
		t.Fatalf("expected one applied notification, got %#v", applied)
	}
}

func TestInputSentBeforeAckWithoutPrediction(t *testing.T) {
	c, conn := newTestClient(t)
	c.Connect()
	conn.take()

	c.Tick(Input{Right: true})

	sawInput := false
	for _, p := range conn.take() {
		msg, err := messages.DecodeClient(p.Payload)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if _, ok := msg.(messages.PlayerInput); ok {
			sawInput = true
		}
	}
	if !sawInput {
		t.Fatalf("input not sent while the handshake is in flight")
	}
	if got := c.DrainApplied(); len(got) != 0 {
		t.Fatalf("predicted without a local entity: %#v", got)
	}
}

func TestReconcileTrimsAckedInputs(t *testing.T) {
	cases := []struct {
		name string
		ack  uint16
		keep int
	}{
		{"ack before the queue", 65535, 30},
		{"ack zero", 0, 30},
		{"ack mid queue", 10, 20},
		{"ack past the queue", 40, 0},
		{"ack far past the queue", 200, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := newTestClient(t)
			for i := uint16(1); i <= 30; i++ {
				c.unacked = append(c.unacked, messages.PlayerInput{Counter: i})
			}
			c.reconcile(messages.LobbyTick{LastInput: tc.ack})
			if len(c.unacked) != tc.keep {
				t.Fatalf("ack %d kept %d inputs, want %d", tc.ack, len(c.unacked), tc.keep)
			}
			if tc.keep > 0 {
				if first := c.unacked[0].Counter; first != 31-uint16(tc.keep) {
					t.Fatalf("ack %d left the queue starting at %d", tc.ack, first)
				}
			}
		})
	}
}

func TestReconcileTrimsAcrossWrap(t *testing.T) {
	c, _ := newTestClient(t)
	c.unacked = []messages.PlayerInput{
		{Counter: 65534}, {Counter: 65535}, {Counter: 0}, {Counter: 1},
	}
	c.reconcile(messages.LobbyTick{LastInput: 65535})

	if len(c.unacked) != 2 || c.unacked[0].Counter != 0 {
		t.Fatalf("wrap trim kept %d inputs starting at %d", len(c.unacked), c.unacked[0].Counter)
	}
}

func TestReconcileSnapsAndReplays(t *testing.T) {
	c, conn := newTestClient(t)
	ackConnect(t, c, conn, 0)

	for i := 0; i < 3; i++ {
		c.Tick(Input{Right: true})
	}
	if x, _ := localPos(t, c); x != 3*gamemath.DefaultMoveStep {
		t.Fatalf("expected predicted x %v, got %v", 3*gamemath.DefaultMoveStep, x)
	}

	// The server has applied input 1 only; its authoritative position lags the
	// prediction by two steps. Replaying the surviving inputs must land back
	// exactly on the predicted spot.
	conn.deliver(t, serverAddr, messages.LobbyTick{
		LastInput: 1,
		Players:   []messages.LobbyPlayer{{ID: 0, X: gamemath.DefaultMoveStep}},
	})
	c.Tick(Input{})

	x, y := localPos(t, c)
	if x != 3*gamemath.DefaultMoveStep || y != 0 {
		t.Fatalf("reconciliation landed at (%v, %v), want (%v, 0)", x, y, 3*gamemath.DefaultMoveStep)
	}
	if len(c.unacked) != 3 {
		t.Fatalf("expected inputs 2, 3 and the idle tick pending, got %d", len(c.unacked))
	}
}

func TestReconcileCorrectsMisprediction(t *testing.T) {
	c, conn := newTestClient(t)
	ackConnect(t, c, conn, 0)

	c.Tick(Input{Right: true})
	c.Tick(Input{Right: true})

	// The server applied both inputs but disagrees about where they led.
	conn.deliver(t, serverAddr, messages.LobbyTick{
		LastInput: 2,
		Players:   []messages.LobbyPlayer{{ID: 0, X: 0, Y: 0}},
	})
	c.Tick(Input{})

	if x, y := localPos(t, c); x != 0 || y != 0 {
		t.Fatalf("expected a snap to the authoritative (0, 0), got (%v, %v)", x, y)
	}
}

func TestRemotePlayersFollowServer(t *testing.T) {
	c, conn := newTestClient(t)
	ackConnect(t, c, conn, 0)

	conn.deliver(t, serverAddr, messages.NewPlayer{Name: "Ada", ID: 5})
	conn.deliver(t, serverAddr, messages.LobbyTick{
		Players: []messages.LobbyPlayer{
			{ID: 5, X: 7, Y: 9, History: []messages.Vec2{{X: 6, Y: 8}}},
			{ID: 77, X: 1, Y: 1},
		},
	})
	c.drainEvents()

	players := c.Players()
	if len(players) != 2 {
		t.Fatalf("expected ourselves plus Ada, got %#v", players)
	}
	var ada *PlayerSnapshot
	for i := range players {
		if players[i].ID == 5 {
			ada = &players[i]
		}
	}
	if ada == nil || ada.Local || ada.X != 7 || ada.Y != 9 {
		t.Fatalf("expected Ada at (7, 9), got %#v", ada)
	}

	trail := Trail.Get(c.entryByID(5)).Samples
	if len(trail) != 1 || trail[0] != (messages.Vec2{X: 6, Y: 8}) {
		t.Fatalf("expected Ada's trail mirrored, got %#v", trail)
	}
}

func TestServerDisconnectResetsClient(t *testing.T) {
	c, conn := newTestClient(t)
	ackConnect(t, c, conn, 0)
	c.Tick(Input{Right: true})
	conn.take()

	conn.events <- transport.DisconnectEvent{Addr: serverAddr}
	c.Tick(Input{Right: true})

	if c.State() != StateDisconnected {
		t.Fatalf("expected disconnected state, got %d", c.State())
	}
	if _, ok := c.LocalID(); ok {
		t.Fatalf("local id survived the reset")
	}
	if got := c.Players(); len(got) != 0 {
		t.Fatalf("world survived the reset: %#v", got)
	}
	if c.counter != 0 || len(c.unacked) != 0 {
		t.Fatalf("prediction state survived the reset")
	}
	if pkts := conn.take(); len(pkts) != 0 {
		t.Fatalf("client kept sending after the reset: %d packets", len(pkts))
	}
}

func TestDisconnectTellsTransport(t *testing.T) {
	c, conn := newTestClient(t)
	ackConnect(t, c, conn, 0)

	c.Disconnect()

	if len(conn.disconnected) != 1 || conn.disconnected[0] != serverAddr {
		t.Fatalf("transport was not told to drop the server: %v", conn.disconnected)
	}
	if c.State() != StateDisconnected {
		t.Fatalf("client still thinks it is connected")
	}
}
