package core

import (
	"github.com/yohamta/donburi"

	"airlock/shared/gamemath"
	"airlock/shared/messages"
	"airlock/shared/netcomponents"
	"airlock/shared/sequence"
	"airlock/transport"
)

// applyInputs pops at most one queued input per player and integrates it.
// One per tick keeps a backlogged client from teleporting: a burst of late
// inputs plays out over the following ticks instead.
func (s *Server) applyInputs() {
	InputQueue.Each(s.world, func(entry *donburi.Entry) {
		q := InputQueue.Get(entry)
		if len(q.Pending) == 0 {
			return
		}
		input := q.Pending[0]
		q.Pending = append(q.Pending[:0], q.Pending[1:]...)

		last := LastInput.Get(entry)
		if !sequence.GreaterThan(input.Counter, last.Counter) {
			// Stale or replayed counter. The world must not change, or the
			// client's reconciliation would diverge from ours.
			return
		}

		pos := netcomponents.Position.Get(entry)
		hist := PositionHistory.Get(entry)
		hist.Samples = append(hist.Samples, messages.Vec2{X: pos.X, Y: pos.Y})
		pos.X, pos.Y = gamemath.Step(pos.X, pos.Y, input.X, input.Y, s.cfg.MoveStep)
		last.Counter = input.Counter
	})
}

// broadcastState sends one personalized LobbyTick per player: the shared
// roster plus that player's own applied-input counter. Histories are cleared
// afterwards so each broadcast carries only the movement since the last one.
func (s *Server) broadcastState() {
	roster := s.lobbyPlayers()
	if len(roster) == 0 {
		return
	}
	NetworkAddr.Each(s.world, func(entry *donburi.Entry) {
		tick := messages.LobbyTick{
			LastInput: LastInput.Get(entry).Counter,
			Players:   roster,
		}
		s.dispatch.Send(tick, transport.UnreliableSequenced, messages.StreamGameState, Single{Addr: NetworkAddr.Get(entry).Addr})
	})
	s.clearHistories()
}

func (s *Server) lobbyPlayers() []messages.LobbyPlayer {
	var roster []messages.LobbyPlayer
	netcomponents.PlayerID.Each(s.world, func(entry *donburi.Entry) {
		pos := netcomponents.Position.Get(entry)
		roster = append(roster, messages.LobbyPlayer{
			ID:      netcomponents.PlayerID.Get(entry).ID,
			X:       pos.X,
			Y:       pos.Y,
			History: PositionHistory.Get(entry).Samples,
		})
	})
	return roster
}

func (s *Server) clearHistories() {
	PositionHistory.Each(s.world, func(entry *donburi.Entry) {
		PositionHistory.Get(entry).Samples = nil
	})
}
