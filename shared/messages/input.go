package messages

// PlayerInput is sent from client to server once per tick with the player's
// movement axes. Counter is a wrapping per-client sequence used for
// prediction reconciliation; axes saturate to the int16 extremes and the
// receiver normalizes them back to [-1, 1].
type PlayerInput struct {
	Counter uint16
	X       int16
	Y       int16
}
