package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/lairchat/lair/chat/message"
)

var errMockClosed = errors.New("mock closed")

// Used for testing
type mockMember struct {
	mu       sync.Mutex
	id       string
	name     string
	joined   time.Time
	received []message.Message
	closed   bool
	broken   bool
}

func newMockMember(id string) *mockMember {
	return &mockMember{id: id, joined: time.Now()}
}

func (m *mockMember) ID() string        { return m.id }
func (m *mockMember) Joined() time.Time { return m.joined }

func (m *mockMember) Name() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name
}

func (m *mockMember) SetName(name string) {
	m.mu.Lock()
	m.name = name
	m.mu.Unlock()
}

func (m *mockMember) Send(msg message.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.broken || m.closed {
		return errMockClosed
	}
	m.received = append(m.received, msg)
	return nil
}

func (m *mockMember) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockMember) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

// Rendered returns every frame received so far and resets the buffer.
func (m *mockMember) Rendered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := []string{}
	for _, msg := range m.received {
		r = append(r, msg.Render())
	}
	m.received = nil
	return r
}

func (m *mockMember) Messages() []message.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]message.Message{}, m.received...)
}
