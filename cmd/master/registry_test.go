package main

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func testRegistry(ttl time.Duration) *Registry {
	r := NewRegistry(ttl, zap.NewNop().Sugar())
	return r
}

func TestRegisterAndHeartbeat(t *testing.T) {
	r := testRegistry(time.Minute)
	defer r.Stop()

	id := r.Register(ServerInfo{Name: "alpha", Address: "10.0.0.1:7777", MaxPlayers: 16})
	if id == "" {
		t.Fatalf("expected a non-empty id")
	}
	if !r.Heartbeat(id, 3) {
		t.Fatalf("heartbeat for a live id should succeed")
	}
	list := r.List()
	if len(list) != 1 {
		t.Fatalf("expected 1 server, got %d", len(list))
	}
	if list[0].Players != 3 {
		t.Fatalf("heartbeat should update player count, got %d", list[0].Players)
	}
	if r.Heartbeat("no-such-id", 0) {
		t.Fatalf("heartbeat for an unknown id should fail")
	}
}

func TestExpireDropsSilentServers(t *testing.T) {
	r := testRegistry(50 * time.Millisecond)
	defer r.Stop()

	id := r.Register(ServerInfo{Name: "beta", Address: "10.0.0.2:7777"})
	r.expire(time.Now())
	if len(r.List()) != 1 {
		t.Fatalf("fresh server should survive expiry")
	}
	r.expire(time.Now().Add(time.Second))
	if len(r.List()) != 0 {
		t.Fatalf("silent server should expire")
	}
	if r.Heartbeat(id, 1) {
		t.Fatalf("expired id should be unknown")
	}
}
