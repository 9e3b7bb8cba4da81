package sshd

import (
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/crypto/ssh"
)

var errNoDeadline = errors.New("ssh channels do not support deadlines")

// Conn is the session channel of an SSH connection, usable as a net.Conn.
type Conn struct {
	ssh.Channel
	sshConn *ssh.ServerConn
}

// NewSession accepts the first session channel of conn and rejects the rest.
func NewSession(conn *ssh.ServerConn, channels <-chan ssh.NewChannel) (*Conn, error) {
	for ch := range channels {
		if t := ch.ChannelType(); t != "session" {
			ch.Reject(ssh.UnknownChannelType, fmt.Sprintf("unknown channel type: %s", t))
			continue
		}

		channel, requests, err := ch.Accept()
		if err != nil {
			return nil, err
		}
		go listen(requests)
		go func() {
			for ch := range channels {
				ch.Reject(ssh.Prohibited, "only one session allowed")
			}
		}()
		go func() {
			conn.Wait()
			channel.Close()
		}()
		return &Conn{Channel: channel, sshConn: conn}, nil
	}
	return nil, errors.New("connection closed before a session was opened")
}

// listen accepts the requests a line based client needs and refuses the rest.
func listen(requests <-chan *ssh.Request) {
	hasShell := false
	for req := range requests {
		ok := false
		switch req.Type {
		case "shell":
			if !hasShell {
				ok = true
				hasShell = true
			}
		case "pty-req", "window-change", "env":
			ok = true
		}
		if req.WantReply {
			req.Reply(ok, nil)
		}
	}
}

// User is the name the client authenticated with.
func (c *Conn) User() string {
	return c.sshConn.User()
}

// Fingerprint of the client's public key, if it offered one.
func (c *Conn) Fingerprint() string {
	if c.sshConn.Permissions == nil {
		return ""
	}
	return c.sshConn.Permissions.Extensions["fingerprint"]
}

func (c *Conn) LocalAddr() net.Addr {
	return c.sshConn.LocalAddr()
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.sshConn.RemoteAddr()
}

func (c *Conn) SetDeadline(t time.Time) error {
	return errNoDeadline
}

func (c *Conn) SetReadDeadline(t time.Time) error {
	return errNoDeadline
}

func (c *Conn) SetWriteDeadline(t time.Time) error {
	return errNoDeadline
}

// Close the channel and the ssh connection underneath it.
func (c *Conn) Close() error {
	c.Channel.Close()
	return c.sshConn.Close()
}
