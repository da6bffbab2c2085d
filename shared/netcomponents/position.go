// Package netcomponents declares the donburi components shared between the
// server world and the client world. Server-only bookkeeping components live
// with the server core; everything here is plain replicated state.
package netcomponents

import "github.com/yohamta/donburi"

// PositionData is a player's position in world units.
type PositionData struct {
	X, Y float64
}

var Position = donburi.NewComponentType[PositionData]()
