package core

import (
	"net/netip"

	"github.com/yohamta/donburi"

	"airlock/shared/messages"
)

// Server-only components. The shared replicated ones (Position, PlayerID,
// PlayerName) live in shared/netcomponents.

// NetworkAddrData is the remote address a player's packets come from. A
// player is their address: two sockets are the same player only if their
// addresses compare equal.
type NetworkAddrData struct {
	Addr netip.AddrPort
}

// InputQueueData holds inputs that arrived but have not been applied yet, in
// arrival order. At most one entry is consumed per tick.
type InputQueueData struct {
	Pending []messages.PlayerInput
}

// LastInputData is the newest input counter applied for this player. It is
// echoed back in every LobbyTick so the client can retire predictions.
type LastInputData struct {
	Counter uint16
}

// PositionHistoryData accumulates the pre-step position of every input
// applied since the last broadcast, oldest first. Cleared after each
// LobbyTick goes out.
type PositionHistoryData struct {
	Samples []messages.Vec2
}

var (
	NetworkAddr     = donburi.NewComponentType[NetworkAddrData]()
	InputQueue      = donburi.NewComponentType[InputQueueData]()
	LastInput       = donburi.NewComponentType[LastInputData]()
	PositionHistory = donburi.NewComponentType[PositionHistoryData]()
)
