package messages

// Vec2 is a wire position sample.
type Vec2 struct {
	X float64
	Y float64
}

// LobbyPlayer is one player's slice of a LobbyTick: the authoritative
// position plus every intermediate position the server moved through since
// the previous broadcast, oldest first.
type LobbyPlayer struct {
	ID      uint16
	X       float64
	Y       float64
	History []Vec2
}

// LobbyTick is the per-tick state broadcast. LastInput is personalized per
// recipient: the newest input counter the server has applied for that player,
// which lets the client retire acknowledged predictions.
type LobbyTick struct {
	LastInput uint16
	Players   []LobbyPlayer
}
