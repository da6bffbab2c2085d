package netcomponents

import "github.com/yohamta/donburi"

// PlayerIDData carries the server-assigned player id. Ids are handed out
// monotonically and never reused within a server run.
type PlayerIDData struct {
	ID uint16
}

// PlayerNameData is the display name the player connected with.
type PlayerNameData struct {
	Name string
}

var (
	PlayerID   = donburi.NewComponentType[PlayerIDData]()
	PlayerName = donburi.NewComponentType[PlayerNameData]()
)
