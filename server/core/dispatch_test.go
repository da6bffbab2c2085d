package core

import (
	"bytes"
	"net/netip"
	"testing"

	"airlock/shared/messages"
	"airlock/transport"
)

func TestDispatchBroadcastToAll(t *testing.T) {
	s, conn := newTestServer(t, Config{})
	addrs := []netip.AddrPort{peerAddr(4000), peerAddr(4001), peerAddr(4002)}
	join(t, s, conn, addrs[0], "Ada")
	join(t, s, conn, addrs[1], "Brian")
	join(t, s, conn, addrs[2], "Caz")
	conn.take()

	s.dispatch.Send(messages.NewPlayer{Name: "Dot", ID: 9}, transport.ReliableOrdered, messages.StreamGameState, BroadcastToAll{})

	pkts := conn.take()
	if len(pkts) != len(addrs) {
		t.Fatalf("expected %d recipients, got %d", len(addrs), len(pkts))
	}
	seen := make(map[netip.AddrPort]bool)
	for _, p := range pkts {
		seen[p.Addr] = true
	}
	for _, a := range addrs {
		if !seen[a] {
			t.Fatalf("player %s missed the broadcast", a)
		}
	}
}

func TestDispatchBroadcastToAllExcept(t *testing.T) {
	s, conn := newTestServer(t, Config{})
	addrs := []netip.AddrPort{peerAddr(4000), peerAddr(4001), peerAddr(4002)}
	join(t, s, conn, addrs[0], "Ada")
	join(t, s, conn, addrs[1], "Brian")
	join(t, s, conn, addrs[2], "Caz")
	conn.take()

	s.dispatch.Send(messages.NewPlayer{Name: "Dot", ID: 9}, transport.ReliableOrdered, messages.StreamGameState, BroadcastToAllExcept{Addr: addrs[1]})

	pkts := conn.take()
	if len(pkts) != 2 {
		t.Fatalf("expected 2 recipients, got %d", len(pkts))
	}
	for _, p := range pkts {
		if p.Addr == addrs[1] {
			t.Fatalf("excluded address still got the broadcast")
		}
	}
	if !bytes.Equal(pkts[0].Payload, pkts[1].Payload) {
		t.Fatalf("fan out re-encoded the message per recipient")
	}
}

func TestDispatchBroadcastToSet(t *testing.T) {
	s, conn := newTestServer(t, Config{})
	set := []netip.AddrPort{peerAddr(5000), peerAddr(5001)}

	s.dispatch.Send(messages.ConnectAck{ID: 1}, transport.ReliableOrdered, messages.StreamGameState, BroadcastToSet{Addrs: set})

	pkts := conn.take()
	if len(pkts) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(pkts))
	}
	if pkts[0].Addr != set[0] || pkts[1].Addr != set[1] {
		t.Fatalf("set broadcast went to %s and %s", pkts[0].Addr, pkts[1].Addr)
	}
}
