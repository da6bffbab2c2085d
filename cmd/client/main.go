// A headless demo client. It joins a lobby, wanders around on scripted input
// and logs what the server tells it about the world. Useful for soak testing
// a server and as the reference for wiring a real presentation layer.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"airlock/client/core"
	"airlock/shared/logging"
	"airlock/transport"
)

func main() {
	server := flag.String("server", "", "server address host:port (overrides -master)")
	master := flag.String("master", "", "master server base URL to pick a server from")
	name := flag.String("name", "Wanderer", "player name")
	tickRate := flag.Int("tickrate", 20, "client ticks per second")
	duration := flag.Duration("duration", 0, "how long to stay connected (0 = until interrupted)")
	logPath := flag.String("log", "", "log file path (empty for stderr)")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log := logging.New(*logPath, *debug)
	defer log.Sync()

	if *tickRate <= 0 {
		log.Warnf("[client] invalid tick rate %d, using 20", *tickRate)
		*tickRate = 20
	}

	target := *server
	if target == "" && *master != "" {
		picked, err := pickServer(*master)
		if err != nil {
			log.Fatalf("[client] master lookup: %v", err)
		}
		log.Infof("[client] master offered %s", picked)
		target = picked
	}
	if target == "" {
		log.Fatalf("[client] need -server or -master")
	}

	remote, err := transport.ResolveAddr(target)
	if err != nil {
		log.Fatalf("[client] %v", err)
	}

	tickInterval := time.Second / time.Duration(*tickRate)
	cfg := transport.DefaultConfig()
	cfg.PollInterval = tickInterval / 2
	socket, err := transport.Listen(":0", cfg, log)
	if err != nil {
		log.Fatalf("[client] listen: %v", err)
	}
	socket.Start()
	defer socket.Close()

	client := core.NewClient(socket, remote, core.Config{Name: *name}, log)
	client.Connect()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var deadline <-chan time.Time
	if *duration > 0 {
		deadline = time.After(*duration)
	}

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	retry := time.NewTicker(2 * time.Second)
	defer retry.Stop()
	status := time.NewTicker(5 * time.Second)
	defer status.Stop()

	wander := newWanderer(*tickRate)
	for {
		select {
		case <-sigChan:
			client.Disconnect()
			return
		case <-deadline:
			log.Infof("[client] demo over")
			client.Disconnect()
			return
		case <-retry.C:
			if client.State() != core.StateConnected {
				client.Connect()
			}
		case <-status.C:
			for _, p := range client.Players() {
				suffix := ""
				if p.Local {
					suffix = " (you)"
				}
				log.Infof("[client] %q at (%.1f, %.1f)%s", p.Name, p.X, p.Y, suffix)
			}
		case <-ticker.C:
			client.Tick(wander.next())
			for _, j := range client.DrainJoined() {
				log.Infof("[client] %q is here (id %d)", j.Name, j.ID)
			}
			for _, a := range client.DrainApplied() {
				log.Debugf("[client] predicted input %d to (%.1f, %.1f)", a.Counter, a.X, a.Y)
			}
		}
	}
}

type serverListing struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
}

// pickServer asks the master for the list and takes the first lobby with a
// free slot.
func pickServer(masterURL string) (string, error) {
	httpClient := &http.Client{Timeout: 5 * time.Second}
	resp, err := httpClient.Get(masterURL + "/servers")
	if err != nil {
		return "", fmt.Errorf("get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var servers []serverListing
	if err := json.NewDecoder(resp.Body).Decode(&servers); err != nil {
		return "", fmt.Errorf("decode: %w", err)
	}
	for _, s := range servers {
		if s.Players < s.MaxPlayers {
			return s.Address, nil
		}
	}
	return "", errors.New("no server with a free slot")
}

// wanderer scripts the demo movement: hold a random heading for a second,
// then pick a new one.
type wanderer struct {
	rng       *rand.Rand
	holdTicks int
	remaining int
	current   core.Input
}

func newWanderer(tickRate int) *wanderer {
	return &wanderer{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		holdTicks: tickRate,
	}
}

func (w *wanderer) next() core.Input {
	if w.remaining <= 0 {
		w.remaining = w.holdTicks
		dx := w.rng.Intn(3) - 1
		dy := w.rng.Intn(3) - 1
		w.current = core.Input{
			Left:  dx < 0,
			Right: dx > 0,
			Down:  dy < 0,
			Up:    dy > 0,
		}
	}
	w.remaining--
	return w.current
}
