package messages

// Connect is sent by a client to request joining the lobby.
type Connect struct {
	Version uint32
	Name    string
}

// ConnectAck is sent by the server when a connect request is accepted and
// carries the joining player's assigned id.
type ConnectAck struct {
	ID uint16
}

// NewPlayer announces one player to clients, both as a broadcast when someone
// joins and as the roster entries inside FullGameState.
type NewPlayer struct {
	Name string
	ID   uint16
}

// FullGameState is sent to a newly accepted client and lists every player
// already in the lobby, not including the recipient.
type FullGameState struct {
	Players []NewPlayer
}
