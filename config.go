package lair

import (
	"errors"
	"time"

	"github.com/shazow/rateio"
)

// Config of a relay Server.
type Config struct {
	// Bind is the TCP address Start listens on.
	Bind string
	// MaxNameLength bounds nicknames, in characters.
	MaxNameLength int
	// MaxFrameLength bounds one line of client input, in bytes.
	MaxFrameLength int
	// WriteTimeout bounds a single write to a client. A client that cannot
	// keep up is disconnected.
	WriteTimeout time.Duration
	// EchoToSender delivers broadcasts back to their sender too.
	EchoToSender bool
	// QueueSize is the number of frames buffered for each client.
	QueueSize int
	// DrainTimeout bounds how long queued frames are flushed on shutdown.
	DrainTimeout time.Duration
	// MaxSessions limits concurrent connections, zero means unlimited.
	MaxSessions int
	// DefaultRoom is joined right after the handshake when set.
	DefaultRoom string
	// Motd is sent to every client after the handshake when set.
	Motd string
	// RateLimit creates the per-session message limiter, nil disables it.
	RateLimit func() rateio.Limiter
	// InputLimit creates the per-connection byte limiter, nil disables it.
	InputLimit func() rateio.Limiter
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Bind:           "0.0.0.0:8888",
		MaxNameLength:  8,
		MaxFrameLength: 4096,
		WriteTimeout:   10 * time.Second,
		QueueSize:      20,
		DrainTimeout:   2 * time.Second,
		RateLimit: func() rateio.Limiter {
			return rateio.NewSimpleLimiter(3, time.Second*3)
		},
	}
}

func (c *Config) validate() error {
	if c.MaxNameLength < 0 || c.MaxFrameLength < 0 || c.QueueSize < 0 || c.MaxSessions < 0 {
		return errors.New("config: limits must not be negative")
	}
	if c.WriteTimeout < 0 || c.DrainTimeout < 0 {
		return errors.New("config: timeouts must not be negative")
	}

	defaults := DefaultConfig()
	if c.Bind == "" {
		c.Bind = defaults.Bind
	}
	if c.MaxFrameLength == 0 {
		c.MaxFrameLength = defaults.MaxFrameLength
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaults.QueueSize
	}
	if c.DrainTimeout == 0 {
		c.DrainTimeout = defaults.DrainTimeout
	}
	return nil
}
