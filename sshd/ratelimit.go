package sshd

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/shazow/rateio"
)

// ErrInputRate is returned by an input limiter once a connection has sent
// more than its allowance.
var ErrInputRate = errors.New("input rate exceeded")

type limitedConn struct {
	net.Conn
	io.Reader // Our rate-limited io.Reader for net.Conn
}

func (r *limitedConn) Read(p []byte) (n int, err error) {
	return r.Reader.Read(p)
}

// ReadLimitConn returns a net.Conn whose io.Reader interface is rate-limited by limiter.
func ReadLimitConn(conn net.Conn, limiter rateio.Limiter) net.Conn {
	return &limitedConn{
		Conn:   conn,
		Reader: rateio.NewReader(conn, limiter),
	}
}

type inputLimiter struct {
	mu        sync.Mutex
	amount    int
	frequency time.Duration
	remaining int
	reset     time.Time
}

// Count implements rateio.Limiter.
func (l *inputLimiter) Count(n int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.After(l.reset) {
		l.remaining = l.amount
		l.reset = now.Add(l.frequency)
	}
	l.remaining -= n
	if l.remaining < 0 {
		return ErrInputRate
	}
	return nil
}

// NewInputLimiter returns a rateio.Limiter with sensible defaults for
// differentiating between humans typing and bots spamming.
func NewInputLimiter() rateio.Limiter {
	return &inputLimiter{
		amount:    2 << 14, // ~32kb per minute
		frequency: time.Minute,
	}
}
