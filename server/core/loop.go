package core

import "time"

// GameLoop drives the server at a fixed tick rate. Every piece of game state
// is touched from this goroutine and nowhere else.
type GameLoop struct {
	server   *Server
	tickRate int
	stopChan chan struct{}
}

func NewGameLoop(server *Server, tickRate int) *GameLoop {
	return &GameLoop{
		server:   server,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
	}
}

func (g *GameLoop) Run() {
	ticker := time.NewTicker(time.Second / time.Duration(g.tickRate))
	defer ticker.Stop()

	g.server.log.Infof("[loop] simulation running at %d ticks/second", g.tickRate)

	for {
		select {
		case <-g.stopChan:
			g.server.log.Infof("[loop] simulation stopped")
			return
		case <-ticker.C:
			g.server.Tick()
		}
	}
}

func (g *GameLoop) Stop() {
	close(g.stopChan)
}
