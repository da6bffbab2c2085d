package core

import (
	"airlock/shared/gamemath"
	"airlock/shared/messages"
	"airlock/shared/netcomponents"
	"airlock/shared/sequence"
	"airlock/transport"
)

// sendInput numbers this tick's axes, queues them for reconciliation, fires
// them at the server and applies them locally. The send happens regardless of
// connection progress: inputs are unreliable traffic and the server ignores
// senders it does not know, so the worst case is a few wasted datagrams while
// the connect handshake finishes.
func (c *Client) sendInput(in Input) {
	x, y := gamemath.AxesFromButtons(in.Up, in.Down, in.Left, in.Right)
	c.counter++
	input := messages.PlayerInput{Counter: c.counter, X: x, Y: y}
	c.unacked = append(c.unacked, input)

	payload, err := messages.EncodeClient(input)
	if err != nil {
		c.log.Errorf("[client] encode input: %v", err)
		return
	}
	c.conn.Send(transport.Packet{
		Addr:    c.server,
		Class:   transport.UnreliableSequenced,
		Stream:  messages.StreamInput,
		Payload: payload,
	})
	c.predict(input)
}

// predict applies one input to the local entity with the same integration
// step the server uses. Before the ConnectAck there is no local entity and
// nothing to predict.
func (c *Client) predict(input messages.PlayerInput) {
	entry := c.localEntry()
	if entry == nil {
		return
	}
	pos := netcomponents.Position.Get(entry)
	pos.X, pos.Y = gamemath.Step(pos.X, pos.Y, input.X, input.Y, c.cfg.MoveStep)
	c.emitApplied(InputApplied{Counter: input.Counter, X: pos.X, Y: pos.Y})
}

// reconcile folds an authoritative broadcast into the mirrored world.
// Predictions the server has caught up with are retired; the local player is
// snapped to the authoritative position and every surviving prediction is
// replayed on top, which converges exactly because the integration step is
// deterministic. Remote players are simply overwritten.
func (c *Client) reconcile(tick messages.LobbyTick) {
	drop := 0
	for drop < len(c.unacked) && !sequence.GreaterThan(c.unacked[drop].Counter, tick.LastInput) {
		drop++
	}
	if drop > 0 {
		c.unacked = append(c.unacked[:0], c.unacked[drop:]...)
	}

	for _, p := range tick.Players {
		entry := c.entryByID(p.ID)
		if entry == nil {
			// The roster can precede the NewPlayer that introduces this id.
			continue
		}
		pos := netcomponents.Position.Get(entry)
		pos.X, pos.Y = p.X, p.Y
		Trail.Get(entry).Samples = p.History

		if c.hasLocal && p.ID == c.localID {
			for _, in := range c.unacked {
				pos.X, pos.Y = gamemath.Step(pos.X, pos.Y, in.X, in.Y, c.cfg.MoveStep)
			}
		}
	}
}
