// The dedicated authoritative lobby server. It owns the world, applies every
// player's inputs at a fixed tick rate and broadcasts the results; clients
// only ever predict on top of what this binary decides.
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airlock/server/core"
	"airlock/shared/gamemath"
	"airlock/shared/logging"
	"airlock/transport"
)

func main() {
	addr := flag.String("addr", ":7600", "UDP listen address")
	tickRate := flag.Int("tickrate", 20, "simulation ticks per second")
	maxPlayers := flag.Int("maxplayers", 16, "lobby capacity")
	moveStep := flag.Float64("movestep", gamemath.DefaultMoveStep, "movement per tick at full deflection")
	name := flag.String("name", "Airlock Server", "server display name")
	masterURL := flag.String("master", "", "master server base URL (empty = unlisted)")
	public := flag.String("public", "", "address to advertise to the master (defaults to -addr)")
	region := flag.String("region", "", "region label for the master listing")
	logPath := flag.String("log", "", "log file path (empty for stderr)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := logging.New(*logPath, *debug)
	defer log.Sync()

	if *tickRate <= 0 {
		log.Warnf("[server] invalid tick rate %d, using 20", *tickRate)
		*tickRate = 20
	}
	tickInterval := time.Second / time.Duration(*tickRate)
	cfg := transport.DefaultConfig()
	cfg.PollInterval = tickInterval / 2
	socket, err := transport.Listen(*addr, cfg, log)
	if err != nil {
		log.Fatalf("[server] listen: %v", err)
	}
	socket.Start()
	defer socket.Close()

	server := core.NewServer(socket, core.Config{
		TickRate:   *tickRate,
		MaxPlayers: *maxPlayers,
		MoveStep:   *moveStep,
	}, log)
	server.Start()
	defer server.Stop()

	if *masterURL != "" {
		advertise := *public
		if advertise == "" {
			advertise = *addr
		}
		reg := core.NewRegistration(*masterURL, *name, advertise, *region, *maxPlayers, server, log)
		reg.Start()
		defer reg.Stop()
	}

	log.Infof("[server] %q listening on %s (tick rate %d/s, capacity %d)", *name, socket.LocalAddr(), *tickRate, *maxPlayers)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Infof("[server] shutting down")
}
