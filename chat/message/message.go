package message

import (
	"fmt"
	"strings"
	"time"
)

// Newline terminates every frame sent to a client.
const Newline = "\n"

// Kind of a message, decides how the router resolves its recipients.
type Kind int

const (
	KindBroadcast Kind = iota
	KindDirect
	KindSystem
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindBroadcast:
		return "broadcast"
	case KindDirect:
		return "direct"
	case KindSystem:
		return "system"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Scope of a system notice.
type Scope int

const (
	ScopeGlobal Scope = iota
	ScopeRoom
	ScopePersonal
)

// Message is an immutable value handed to the router.
type Message interface {
	Kind() Kind
	// From is the sending session id, empty for server generated messages.
	From() string
	// Target is a room name, a session id, or empty for global notices.
	Target() string
	Body() string
	Seq() uint64
	Timestamp() time.Time
	// Render returns the frame sent to a recipient, without Newline.
	Render() string
	String() string
}

// Author is the sender of a message, captured when the message is built so
// later renames do not change it.
type Author struct {
	ID   string
	Name string
}

// Msg is a base type for other message types.
type Msg struct {
	body      string
	timestamp time.Time
}

func NewMsg(body string) *Msg {
	return &Msg{
		body:      body,
		timestamp: time.Now(),
	}
}

func (m Msg) Body() string {
	return m.body
}

func (m Msg) From() string {
	return ""
}

func (m Msg) Seq() uint64 {
	return 0
}

func (m Msg) Timestamp() time.Time {
	return m.timestamp
}

func (m Msg) String() string {
	return m.body
}

// BroadcastMsg is a message from a session to every other member of a room.
type BroadcastMsg struct {
	Msg
	from Author
	room string
	seq  uint64
}

func NewBroadcastMsg(room string, body string, from Author, seq uint64) *BroadcastMsg {
	return &BroadcastMsg{
		Msg:  *NewMsg(body),
		from: from,
		room: room,
		seq:  seq,
	}
}

func (m *BroadcastMsg) Kind() Kind     { return KindBroadcast }
func (m *BroadcastMsg) From() string   { return m.from.ID }
func (m *BroadcastMsg) Author() Author { return m.from }
func (m *BroadcastMsg) Target() string { return m.room }
func (m *BroadcastMsg) Room() string   { return m.room }
func (m *BroadcastMsg) Seq() uint64    { return m.seq }

func (m *BroadcastMsg) Render() string {
	return fmt.Sprintf("[%s] %s: %s", m.room, m.from.Name, m.body)
}

func (m *BroadcastMsg) String() string {
	return fmt.Sprintf("%s: %s", m.from.Name, m.body)
}

// DirectMsg is a message to exactly one session.
type DirectMsg struct {
	Msg
	from Author
	to   string
	seq  uint64
}

// NewDirectMsg creates a message for the session identified by to, which
// may be a session id or a nickname.
func NewDirectMsg(to string, body string, from Author, seq uint64) *DirectMsg {
	return &DirectMsg{
		Msg:  *NewMsg(body),
		from: from,
		to:   to,
		seq:  seq,
	}
}

func (m *DirectMsg) Kind() Kind     { return KindDirect }
func (m *DirectMsg) From() string   { return m.from.ID }
func (m *DirectMsg) Author() Author { return m.from }
func (m *DirectMsg) Target() string { return m.to }
func (m *DirectMsg) Seq() uint64    { return m.seq }

func (m *DirectMsg) Render() string {
	return fmt.Sprintf("[PM from %s] %s", m.from.Name, m.body)
}

func (m *DirectMsg) String() string {
	return fmt.Sprintf("%s -> %s: %s", m.from.Name, m.to, m.body)
}

// SystemMsg is a server notice addressed to a room, to one session or to
// everyone.
type SystemMsg struct {
	Msg
	scope  Scope
	target string
}

// NewAnnounceMsg creates a notice for every active session.
func NewAnnounceMsg(body string) *SystemMsg {
	return &SystemMsg{Msg: *NewMsg(body), scope: ScopeGlobal}
}

// NewRoomMsg creates a notice for the members of room.
func NewRoomMsg(room string, body string) *SystemMsg {
	return &SystemMsg{Msg: *NewMsg(body), scope: ScopeRoom, target: room}
}

// NewSystemMsg creates a notice for the session with the given id.
func NewSystemMsg(body string, to string) *SystemMsg {
	return &SystemMsg{Msg: *NewMsg(body), scope: ScopePersonal, target: to}
}

func (m *SystemMsg) Kind() Kind     { return KindSystem }
func (m *SystemMsg) Scope() Scope   { return m.scope }
func (m *SystemMsg) Target() string { return m.target }

func (m *SystemMsg) Render() string {
	switch m.scope {
	case ScopeRoom:
		return prefixLines(fmt.Sprintf("[%s] * ", m.target), m.body)
	case ScopePersonal:
		return prefixLines("-> ", m.body)
	}
	return prefixLines(" * ", m.body)
}

// ErrorMsg reports a failed operation back to the session that caused it.
type ErrorMsg struct {
	Msg
	err error
	to  string
}

func NewErrorMsg(err error, to string) *ErrorMsg {
	return &ErrorMsg{
		Msg: *NewMsg(err.Error()),
		err: err,
		to:  to,
	}
}

func (m *ErrorMsg) Kind() Kind     { return KindError }
func (m *ErrorMsg) Target() string { return m.to }
func (m *ErrorMsg) Err() error     { return m.err }

func (m *ErrorMsg) Render() string {
	return "-> Err: " + m.body
}

// prefixLines keeps multi-line bodies inside the line framing.
func prefixLines(prefix string, body string) string {
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, Newline)
}
