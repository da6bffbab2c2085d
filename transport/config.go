package transport

import "time"

// Config tunes one Socket. Zero values fall back to the defaults, which suit
// a 20 ticks-per-second simulation (the poll interval is half a tick, so
// inbound traffic surfaces within half a tick of arriving).
type Config struct {
	// PollInterval bounds the read deadline and paces the maintenance pass
	// (retransmits, heartbeats, idle expiry, ack flushes).
	PollInterval time.Duration

	// HeartbeatInterval is the longest send silence allowed before a
	// keepalive goes out to a peer.
	HeartbeatInterval time.Duration

	// IdleTimeout is the receive silence after which a peer is declared gone.
	IdleTimeout time.Duration

	// RetransmitTimeout is how long an unacknowledged reliable packet waits
	// before being sent again.
	RetransmitTimeout time.Duration

	// MaxRetries caps retransmissions of one reliable packet. A peer that
	// never acks within the budget is declared unresponsive and dropped.
	MaxRetries int

	// EventBuffer and OutboundBuffer size the two queues between the socket
	// goroutines and the simulation. Enqueues never block; overflow drops.
	EventBuffer    int
	OutboundBuffer int
}

func DefaultConfig() Config {
	return Config{
		PollInterval:      25 * time.Millisecond,
		HeartbeatInterval: 4 * time.Second,
		IdleTimeout:       5 * time.Second,
		RetransmitTimeout: 200 * time.Millisecond,
		MaxRetries:        8,
		EventBuffer:       1024,
		OutboundBuffer:    1024,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.PollInterval <= 0 {
		c.PollInterval = def.PollInterval
	}
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = def.HeartbeatInterval
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = def.IdleTimeout
	}
	if c.RetransmitTimeout <= 0 {
		c.RetransmitTimeout = def.RetransmitTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.EventBuffer <= 0 {
		c.EventBuffer = def.EventBuffer
	}
	if c.OutboundBuffer <= 0 {
		c.OutboundBuffer = def.OutboundBuffer
	}
	return c
}
