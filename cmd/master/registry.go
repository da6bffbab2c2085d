package main

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ServerInfo describes one game server as clients see it.
type ServerInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
}

type record struct {
	ServerInfo
	lastSeen time.Time
}

// Registry is the in-memory server list. Entries expire after ttl without a
// heartbeat.
type Registry struct {
	mu      sync.RWMutex
	servers map[string]*record
	ttl     time.Duration
	log     *zap.SugaredLogger
	stopCh  chan struct{}
}

func NewRegistry(ttl time.Duration, log *zap.SugaredLogger) *Registry {
	r := &Registry{
		servers: make(map[string]*record),
		ttl:     ttl,
		log:     log,
		stopCh:  make(chan struct{}),
	}
	go r.expireLoop()
	return r
}

func (r *Registry) Stop() {
	close(r.stopCh)
}

// Register stores info under a fresh random id and returns the id.
func (r *Registry) Register(info ServerInfo) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	id := fmt.Sprintf("%x", b)
	info.ID = id

	r.mu.Lock()
	r.servers[id] = &record{ServerInfo: info, lastSeen: time.Now()}
	r.mu.Unlock()

	return id
}

// Heartbeat refreshes a registration and its player count. Unknown ids come
// back false so the server knows to re-register.
func (r *Registry) Heartbeat(id string, players int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.servers[id]
	if !ok {
		return false
	}
	rec.lastSeen = time.Now()
	rec.Players = players
	return true
}

// List returns every live server.
func (r *Registry) List() []ServerInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ServerInfo, 0, len(r.servers))
	for _, rec := range r.servers {
		out = append(out, rec.ServerInfo)
	}
	return out
}

func (r *Registry) expireLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.expire(time.Now())
		}
	}
}

func (r *Registry) expire(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, rec := range r.servers {
		if now.Sub(rec.lastSeen) >= r.ttl {
			r.log.Infof("[master] expired %q (id=%s, silent for %s)", rec.Name, id, now.Sub(rec.lastSeen).Round(time.Second))
			delete(r.servers, id)
		}
	}
}
