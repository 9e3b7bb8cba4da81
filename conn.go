package lair

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"
	"unicode/utf8"
)

// The error returned once a connection is closed.
var ErrClosed = errors.New("connection closed")

// The error returned for a line that is too long or not valid UTF-8.
var ErrMalformedFrame = errors.New("malformed frame")

// The error returned when reading from the transport fails.
var ErrReadFailed = errors.New("read failed")

// The error returned when writing to the transport fails or falls behind.
var ErrWriteFailed = errors.New("write failed")

type writeDeadliner interface {
	SetWriteDeadline(time.Time) error
}

// Connection frames newline terminated text over a transport. Reads happen on
// the caller's goroutine, writes are queued and performed by a dedicated
// writer goroutine so a slow client never blocks its senders.
type Connection struct {
	rwc          io.ReadWriteCloser
	reader       *bufio.Reader
	maxFrame     int
	writeTimeout time.Duration
	discarding   bool

	mu      sync.RWMutex
	closed  bool
	outbox  chan []byte
	flushed chan struct{}
	err     error

	closeOnce sync.Once
	closeErr  error
}

// NewConnection starts serving frames over rwc. Lines longer than maxFrame
// bytes are rejected, up to queue frames are buffered for writing and each
// write may take at most writeTimeout (zero for no bound).
func NewConnection(rwc io.ReadWriteCloser, maxFrame int, queue int, writeTimeout time.Duration) *Connection {
	c := &Connection{
		rwc:          rwc,
		reader:       bufio.NewReaderSize(rwc, maxFrame+2),
		maxFrame:     maxFrame,
		writeTimeout: writeTimeout,
		outbox:       make(chan []byte, queue),
		flushed:      make(chan struct{}),
	}
	go c.writeLoop()
	return c
}

// RemoteAddr of the client, or nil if the transport has no address.
func (c *Connection) RemoteAddr() net.Addr {
	if conn, ok := c.rwc.(net.Conn); ok {
		return conn.RemoteAddr()
	}
	return nil
}

// Transport returns the underlying transport.
func (c *Connection) Transport() io.ReadWriteCloser {
	return c.rwc
}

// Err returns the write error that closed the connection, if any.
func (c *Connection) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

// Receive blocks until the next line arrives and returns it without its line
// terminator. It must only be called from one goroutine.
func (c *Connection) Receive() (string, error) {
	for c.discarding {
		_, err := c.reader.ReadSlice('\n')
		if err == bufio.ErrBufferFull {
			continue
		}
		if err != nil {
			return "", c.readErr(err)
		}
		c.discarding = false
	}

	line, err := c.reader.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		c.discarding = true
		return "", fmt.Errorf("%w: line longer than %d bytes", ErrMalformedFrame, c.maxFrame)
	}
	if err != nil {
		return "", c.readErr(err)
	}

	line = bytes.TrimSuffix(bytes.TrimSuffix(line, []byte("\n")), []byte("\r"))
	if len(line) > c.maxFrame {
		return "", fmt.Errorf("%w: line longer than %d bytes", ErrMalformedFrame, c.maxFrame)
	}
	if !utf8.Valid(line) {
		return "", fmt.Errorf("%w: invalid utf-8", ErrMalformedFrame)
	}
	return string(line), nil
}

func (c *Connection) readErr(err error) error {
	if c.isClosed() || errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return ErrClosed
	}
	return fmt.Errorf("%w: %v", ErrReadFailed, err)
}

func (c *Connection) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// Send queues one frame for writing. When the queue is full the client is not
// keeping up: the connection is closed and ErrWriteFailed returned.
func (c *Connection) Send(frame []byte) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return ErrClosed
	}
	select {
	case c.outbox <- frame:
		c.mu.RUnlock()
		return nil
	default:
	}
	c.mu.RUnlock()

	err := fmt.Errorf("%w: outbound queue full", ErrWriteFailed)
	c.fail(err)
	return err
}

func (c *Connection) writeLoop() {
	defer close(c.flushed)
	for frame := range c.outbox {
		if c.Err() != nil {
			// Drop what is left once the transport failed.
			continue
		}
		if err := c.write(frame); err != nil {
			c.fail(err)
		}
	}
}

func (c *Connection) write(frame []byte) error {
	if c.writeTimeout > 0 {
		deadline := false
		if d, ok := c.rwc.(writeDeadliner); ok {
			deadline = d.SetWriteDeadline(time.Now().Add(c.writeTimeout)) == nil
		}
		if !deadline {
			timer := time.AfterFunc(c.writeTimeout, func() {
				c.closeTransport()
			})
			defer timer.Stop()
		}
	}
	if _, err := c.rwc.Write(frame); err != nil {
		return fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return nil
}

// fail records the first write error and closes the connection.
func (c *Connection) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
	c.Close()
}

// Close releases the transport immediately, dropping queued frames, and
// unblocks a pending Receive. It is safe to call more than once.
func (c *Connection) Close() error {
	c.stop()
	return c.closeTransport()
}

// Drain stops accepting frames, waits up to timeout for queued frames to be
// written and then closes the transport.
func (c *Connection) Drain(timeout time.Duration) error {
	c.stop()
	select {
	case <-c.flushed:
	case <-time.After(timeout):
	}
	return c.closeTransport()
}

func (c *Connection) stop() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.outbox)
	}
	c.mu.Unlock()
}

func (c *Connection) closeTransport() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.rwc.Close()
	})
	return c.closeErr
}
