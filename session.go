package lair

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shazow/rateio"

	"github.com/lairchat/lair/chat/message"
)

// Status of a session.
type Status int32

const (
	Connecting Status = iota
	Active
	Disconnecting
	Closed
)

func (s Status) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Active:
		return "active"
	case Disconnecting:
		return "disconnecting"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("status(%d)", int32(s))
}

var errQuit = errors.New("quit")

// The error returned when a message is rejected by the rate limiter.
var ErrRateLimited = errors.New("rate limiting is in effect")

// Session is one connected client: its identity, state and connection.
type Session struct {
	id      string
	server  *Server
	conn    *Connection
	joined  time.Time
	limiter rateio.Limiter
	seq     uint64

	mu     sync.RWMutex
	name   string
	status Status
	focus  string
}

func newSession(server *Server, conn *Connection) *Session {
	s := &Session{
		id:     uuid.NewString(),
		server: server,
		conn:   conn,
		joined: time.Now(),
	}
	if server.cfg.RateLimit != nil {
		s.limiter = server.cfg.RateLimit()
	}
	return s
}

// ID is an opaque token, unique for the lifetime of the server.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) Name() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name
}

// SetName is called by the registry once a nickname is reserved.
func (s *Session) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

func (s *Session) Joined() time.Time {
	return s.joined
}

func (s *Session) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *Session) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// Addr is the client's remote address.
func (s *Session) Addr() string {
	if addr := s.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}

// Rooms the session has joined.
func (s *Session) Rooms() []string {
	return s.server.registry.RoomsOf(s.id)
}

// Send renders m and queues it on the connection.
func (s *Session) Send(m message.Message) error {
	return s.conn.Send([]byte(m.Render() + message.Newline))
}

// Close drops the connection, the session then disconnects.
func (s *Session) Close() error {
	return s.conn.Close()
}

func (s *Session) author() message.Author {
	return message.Author{ID: s.id, Name: s.Name()}
}

func (s *Session) nextSeq() uint64 {
	return atomic.AddUint64(&s.seq, 1)
}

// Focus is the room plain text goes to: the latest joined room.
func (s *Session) Focus() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.focus
}

func (s *Session) setFocus(room string) {
	s.mu.Lock()
	s.focus = room
	s.mu.Unlock()
}

// unfocus moves focus away from a room that was left.
func (s *Session) unfocus(room string) {
	rooms := s.Rooms()
	s.mu.Lock()
	if s.focus == room {
		s.focus = ""
		if len(rooms) > 0 {
			s.focus = rooms[len(rooms)-1]
		}
	}
	s.mu.Unlock()
}

// reply sends a message to this session only. Active sessions go through the
// router so deliveries are observed like any other.
func (s *Session) reply(m message.Message) {
	if s.Status() == Active {
		s.server.router.Dispatch(m)
		return
	}
	s.Send(m)
}

func (s *Session) notify(body string) {
	s.reply(message.NewSystemMsg(body, s.id))
}

func (s *Session) fail(err error) {
	s.reply(message.NewErrorMsg(err, s.id))
}

// run drives the session from handshake to disconnect.
func (s *Session) run() {
	err := s.handshake()
	if err == nil {
		err = s.serve()
	}
	s.disconnect(err)
}

// handshake negotiates a nickname. Transports that already carry a user name
// propose it first.
func (s *Session) handshake() error {
	if u, ok := s.conn.Transport().(interface{ User() string }); ok && u.User() != "" {
		err := s.server.register(s, u.User())
		if err == nil {
			return nil
		}
		s.fail(err)
	}

	s.notify("You have entered the lair! Enter your name.")
	for {
		line, err := s.conn.Receive()
		if errors.Is(err, ErrMalformedFrame) {
			s.fail(err)
			continue
		}
		if err != nil {
			return err
		}

		name := strings.TrimSpace(line)
		if name == "" {
			continue
		}
		if strings.HasPrefix(name, "/") {
			cmd, err := message.ParseInput(name)
			switch cmd := cmd.(type) {
			case message.Nick:
				name = cmd.Name
			case message.Quit:
				return errQuit
			default:
				if err == nil {
					err = errors.New("choose a name first")
				}
				s.fail(err)
				continue
			}
		}

		if err := s.server.register(s, name); err != nil {
			s.fail(err)
			continue
		}
		return nil
	}
}

// serve reads commands until the client quits or the connection drops.
func (s *Session) serve() error {
	s.notify(fmt.Sprintf("Welcome to the lair, %s! Type /help for commands.", s.Name()))
	if motd := s.server.cfg.Motd; motd != "" {
		s.reply(message.NewSystemMsg(motd, s.id))
	}
	if room := s.server.cfg.DefaultRoom; room != "" {
		if err := s.handle(message.Join{Room: room}); err != nil {
			s.fail(err)
		}
	}

	for {
		line, err := s.conn.Receive()
		if errors.Is(err, ErrMalformedFrame) {
			s.fail(err)
			continue
		}
		if err != nil {
			return err
		}
		if strings.TrimSpace(line) == "" {
			// Silently ignore empty lines.
			continue
		}
		if s.limiter != nil {
			if err := s.limiter.Count(1); err != nil {
				s.fail(ErrRateLimited)
				continue
			}
		}

		cmd, err := message.ParseInput(line)
		if err != nil {
			s.fail(err)
			continue
		}
		if err := s.handle(cmd); err == errQuit {
			return nil
		} else if err != nil {
			s.fail(err)
		}
	}
}

// disconnect removes the session from every room, tells the rooms, and
// releases the connection.
func (s *Session) disconnect(reason error) {
	s.setStatus(Disconnecting)
	if reason == errQuit {
		reason = nil
	}
	if err := s.conn.Err(); err != nil {
		reason = err
	}

	name := s.Name()
	rooms := s.server.unregister(s, reason)
	if s.server.State() == Listening {
		for _, room := range rooms {
			s.server.router.Dispatch(message.NewRoomMsg(room, fmt.Sprintf("%s left.", name)))
		}
	}
	s.conn.Drain(s.server.cfg.DrainTimeout)
	s.setStatus(Closed)
}
