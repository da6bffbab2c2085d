package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"airlock/shared/messages"
)

// heartbeatEvery is how often a listed server checks in. The master's default
// TTL is three beats, so two may be lost before the listing ages out.
const heartbeatEvery = 30 * time.Second

var errUnlisted = errors.New("master does not know this server")

// Registration keeps a server listed with the master. Everything runs on one
// background goroutine: the initial registration, the heartbeats, and
// re-registration when the master forgets us. Failures are logged and retried
// on the next beat; a master being down must never take the game down.
type Registration struct {
	log    *zap.SugaredLogger
	server *Server
	client *http.Client

	masterURL string
	listing   regRequest

	// id is assigned by the master, empty until registered. Touched only by
	// the run goroutine.
	id     string
	stopCh chan struct{}
}

type regRequest struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
}

type regResponse struct {
	ID string `json:"id"`
}

type heartbeatRequest struct {
	ID      string `json:"id"`
	Players int    `json:"players"`
}

// NewRegistration points a server at a master. address is the UDP host:port
// clients should dial, not the master's.
func NewRegistration(masterURL, name, address, region string, maxPlayers int, server *Server, log *zap.SugaredLogger) *Registration {
	return &Registration{
		log:       log,
		server:    server,
		client:    &http.Client{Timeout: 5 * time.Second},
		masterURL: masterURL,
		listing: regRequest{
			Name:       name,
			Address:    address,
			MaxPlayers: maxPlayers,
			Version:    strconv.FormatUint(uint64(messages.GameVersion), 10),
			Region:     region,
		},
		stopCh: make(chan struct{}),
	}
}

// Start spawns the background loop and returns immediately; a slow or down
// master delays nothing.
func (r *Registration) Start() {
	go r.run()
}

func (r *Registration) Stop() {
	close(r.stopCh)
}

func (r *Registration) run() {
	r.beat()
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.beat()
		}
	}
}

// beat advances the listing one step: register while the master does not know
// us, heartbeat while it does, and re-register right away when it answers
// that it forgot us.
func (r *Registration) beat() {
	if r.id == "" {
		if err := r.register(); err != nil {
			r.log.Warnf("[registration] register failed: %v", err)
		}
		return
	}
	err := r.heartbeat()
	if errors.Is(err, errUnlisted) {
		r.log.Infof("[registration] master lost our listing, re-registering")
		r.id = ""
		if err := r.register(); err != nil {
			r.log.Warnf("[registration] register failed: %v", err)
		}
		return
	}
	if err != nil {
		r.log.Warnf("[registration] heartbeat failed: %v", err)
	}
}

func (r *Registration) register() error {
	req := r.listing
	req.Players = r.server.PlayerCount()
	resp, err := r.post("/servers/register", req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	var result regResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	r.id = result.ID
	r.log.Infof("[registration] listed with master (id=%s)", r.id)
	return nil
}

func (r *Registration) heartbeat() error {
	resp, err := r.post("/servers/heartbeat", heartbeatRequest{ID: r.id, Players: r.server.PlayerCount()})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
		return errUnlisted
	default:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
}

func (r *Registration) post(path string, payload any) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	resp, err := r.client.Post(r.masterURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", path, err)
	}
	return resp, nil
}
