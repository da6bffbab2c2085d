package core

import (
	"github.com/yohamta/donburi"

	"airlock/shared/messages"
)

// LocalPlayer marks the one entity this client predicts. Remote players have
// no tag and just follow the server's snapshots.
var LocalPlayer = donburi.NewTag().SetName("LocalPlayer")

// TrailData mirrors the newest position history from the server, oldest
// first. Presentation can use it for trails or sub-tick interpolation; the
// sync core itself never reads it back.
type TrailData struct {
	Samples []messages.Vec2
}

var Trail = donburi.NewComponentType[TrailData]()
