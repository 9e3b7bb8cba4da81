package lair

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/lairchat/lair/chat"
	"github.com/lairchat/lair/chat/message"
	"github.com/lairchat/lair/sshd"
)

// State of a Server.
type State int32

const (
	Starting State = iota
	Listening
	ShuttingDown
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Listening:
		return "listening"
	case ShuttingDown:
		return "shutting down"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// The error returned by Serve and Stop once the server is shutting down.
var ErrServerClosed = errors.New("server closed")

// The error sent to clients that connect while the server is full.
var ErrServerFull = errors.New("the lair is full, try again later")

// Server accepts connections and relays messages between their sessions.
type Server struct {
	cfg      Config
	registry *chat.Registry
	router   *chat.Router
	started  time.Time

	mu        sync.Mutex
	state     State
	listeners []net.Listener
	sessions  map[string]*Session
	observers []chat.Observer

	wg sync.WaitGroup
}

// NewServer creates a server from cfg. Zero values in cfg take defaults.
func NewServer(cfg Config) (*Server, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	registry := chat.NewRegistry(cfg.MaxNameLength)
	router := chat.NewRouter(registry)
	router.SetEcho(cfg.EchoToSender)

	s := &Server{
		cfg:      cfg,
		registry: registry,
		router:   router,
		started:  time.Now(),
		sessions: map[string]*Session{},
	}
	router.SetObserver(s.emit)
	return s, nil
}

// Subscribe registers fn for every event. It is called synchronously and
// must not block.
func (s *Server) Subscribe(fn chat.Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

func (s *Server) emit(e chat.Event) {
	s.mu.Lock()
	observers := s.observers
	s.mu.Unlock()
	for _, fn := range observers {
		fn(e)
	}
}

// State returns the server's current state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the address of the first listener, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) == 0 {
		return nil
	}
	return s.listeners[0].Addr()
}

// Start listens on cfg.Bind and serves it in the background. Failing to bind
// is returned and not retried.
func (s *Server) Start() error {
	l, err := net.Listen("tcp", s.cfg.Bind)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Bind, err)
	}
	if err := s.track(l); err != nil {
		l.Close()
		return err
	}
	logger.Infof("Listening for connections on %s", l.Addr())
	go s.Serve(l)
	return nil
}

func (s *Server) track(l net.Listener) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state >= ShuttingDown {
		return ErrServerClosed
	}
	for _, known := range s.listeners {
		if known == l {
			return nil
		}
	}
	s.listeners = append(s.listeners, l)
	s.state = Listening
	return nil
}

// Serve accepts connections on l until the server stops. Each connection
// gets its own goroutine.
func (s *Server) Serve(l net.Listener) error {
	if err := s.track(l); err != nil {
		l.Close()
		return err
	}

	var delay time.Duration
	for {
		conn, err := l.Accept()
		if err != nil {
			if s.State() >= ShuttingDown {
				return ErrServerClosed
			}
			if errors.Is(err, net.ErrClosed) || errors.Is(err, sshd.ErrListenerClosed) {
				return err
			}
			if delay == 0 {
				delay = 5 * time.Millisecond
			} else {
				delay *= 2
			}
			if delay > time.Second {
				delay = time.Second
			}
			logger.Warningf("Failed to accept connection: %s; retrying in %v", err, delay)
			time.Sleep(delay)
			continue
		}
		delay = 0
		s.handle(conn)
	}
}

func (s *Server) handle(conn net.Conn) {
	// SSH listeners limit their own input.
	if _, ok := conn.(*sshd.Conn); !ok && s.cfg.InputLimit != nil {
		conn = sshd.ReadLimitConn(conn, s.cfg.InputLimit())
	}
	c := NewConnection(conn, s.cfg.MaxFrameLength, s.cfg.QueueSize, s.cfg.WriteTimeout)
	session := newSession(s, c)

	s.mu.Lock()
	if s.state != Listening {
		s.mu.Unlock()
		c.Close()
		return
	}
	if s.cfg.MaxSessions > 0 && len(s.sessions) >= s.cfg.MaxSessions {
		s.mu.Unlock()
		logger.Warningf("[%s] Rejected: server full", session.Addr())
		session.Send(message.NewErrorMsg(ErrServerFull, session.id))
		go c.Drain(s.cfg.DrainTimeout)
		return
	}
	s.sessions[session.id] = session
	s.wg.Add(1)
	s.mu.Unlock()

	logger.Debugf("[%s] Connected: %s", session.Addr(), session.id)
	go func() {
		defer s.wg.Done()
		session.run()

		s.mu.Lock()
		delete(s.sessions, session.id)
		s.mu.Unlock()
	}()
}

// register makes a session active under name. It holds the server lock so
// a session is either active before Stop starts or never becomes active.
func (s *Server) register(session *Session, name string) error {
	s.mu.Lock()
	if s.state != Listening {
		s.mu.Unlock()
		return ErrServerClosed
	}
	if err := s.registry.Register(session, name); err != nil {
		s.mu.Unlock()
		return err
	}
	session.setStatus(Active)
	s.mu.Unlock()

	logger.Debugf("[%s] Joined: %s", session.Addr(), name)
	s.emit(chat.Event{
		Kind:      chat.SessionJoined,
		Time:      time.Now(),
		SessionID: session.id,
		Name:      name,
		Addr:      session.Addr(),
	})
	return nil
}

// unregister removes a session from the registry and returns the rooms it
// was in.
func (s *Server) unregister(session *Session, reason error) []string {
	if _, ok := s.registry.Get(session.id); !ok {
		return nil
	}
	rooms := s.registry.Unregister(session.id)

	logger.Debugf("[%s] Leaving: %s", session.Addr(), session.Name())
	s.emit(chat.Event{
		Kind:      chat.SessionLeft,
		Time:      time.Now(),
		SessionID: session.id,
		Name:      session.Name(),
		Addr:      session.Addr(),
		Err:       reason,
	})
	return rooms
}

// Stop closes every listener, tells every session the lair is closing,
// flushes their queues and waits for them to finish.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state >= ShuttingDown {
		s.mu.Unlock()
		return ErrServerClosed
	}
	s.state = ShuttingDown
	closers := make(sshd.MultiCloser, 0, len(s.listeners))
	for _, l := range s.listeners {
		closers = append(closers, io.Closer(l))
	}
	sessions := make([]*Session, 0, len(s.sessions))
	for _, session := range s.sessions {
		sessions = append(sessions, session)
	}
	s.mu.Unlock()

	err := closers.Close()

	notice := "The lair is closed."
	s.router.Dispatch(message.NewAnnounceMsg(notice))
	var drained sync.WaitGroup
	for _, session := range sessions {
		if session.Status() == Connecting {
			session.Send(message.NewAnnounceMsg(notice))
		}
		drained.Add(1)
		go func(session *Session) {
			defer drained.Done()
			session.conn.Drain(s.cfg.DrainTimeout)
		}(session)
	}
	drained.Wait()
	s.wg.Wait()

	s.mu.Lock()
	s.state = Stopped
	s.mu.Unlock()
	logger.Info("Stopped.")
	return err
}
