package sshd

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/shazow/rateio"
	"golang.org/x/crypto/ssh"
)

// ErrListenerClosed is returned by Accept once the listener is closed.
var ErrListenerClosed = errors.New("ssh listener closed")

// SSHListener accepts TCP connections, performs the SSH handshake and yields
// each client's session channel as a net.Conn.
type SSHListener struct {
	net.Listener
	config    *ssh.ServerConfig
	RateLimit func() rateio.Limiter

	conns     chan net.Conn
	done      chan struct{}
	failed    chan struct{}
	err       error
	startOnce sync.Once
	closeOnce sync.Once
}

// Make an SSH listener socket
func ListenSSH(laddr string, config *ssh.ServerConfig) (*SSHListener, error) {
	socket, err := net.Listen("tcp", laddr)
	if err != nil {
		return nil, err
	}
	l := SSHListener{
		Listener: socket,
		config:   config,
		conns:    make(chan net.Conn),
		done:     make(chan struct{}),
		failed:   make(chan struct{}),
	}
	return &l, nil
}

func (l *SSHListener) handleConn(conn net.Conn) (*Conn, error) {
	if l.RateLimit != nil {
		conn = ReadLimitConn(conn, l.RateLimit())
	}

	// Upgrade TCP connection to SSH connection
	sshConn, channels, requests, err := ssh.NewServerConn(conn, l.config)
	if err != nil {
		return nil, err
	}

	go ssh.DiscardRequests(requests)
	c, err := NewSession(sshConn, channels)
	if err != nil {
		sshConn.Close()
		return nil, err
	}
	go KeepAlive(c, 2*time.Second, l.done)
	return c, nil
}

func (l *SSHListener) serve() {
	for {
		conn, err := l.Listener.Accept()
		if err != nil {
			l.err = err
			close(l.failed)
			return
		}

		// Handshake in a goroutine to resume accepting sockets early
		go func() {
			c, err := l.handleConn(conn)
			if err != nil {
				logger.Printf("[%s] Failed to handshake: %v", conn.RemoteAddr(), err)
				conn.Close()
				return
			}
			select {
			case l.conns <- c:
			case <-l.done:
				c.Close()
			}
		}()
	}
}

// Accept waits for the next client that completed the SSH handshake and
// opened a session channel.
func (l *SSHListener) Accept() (net.Conn, error) {
	l.startOnce.Do(func() { go l.serve() })

	select {
	case <-l.done:
		return nil, ErrListenerClosed
	default:
	}

	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
	case <-l.failed:
		select {
		case <-l.done:
		default:
			return nil, l.err
		}
	}
	return nil, ErrListenerClosed
}

// Close stops accepting connections. Established sessions stay open.
func (l *SSHListener) Close() error {
	err := ErrListenerClosed
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.Listener.Close()
	})
	return err
}

// KeepAlive sends keepalive requests on the connection every interval until
// it fails or stop is closed.
func KeepAlive(c *Conn, interval time.Duration, stop <-chan struct{}) {
	tick := time.NewTicker(interval)
	defer tick.Stop()
	for {
		select {
		case <-tick.C:
			// there's no useful response from these, so we can just abort if there's an error
			if _, err := c.Channel.SendRequest("keepalive@lair", true, nil); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}
