package lair

import (
	"fmt"
	"strings"

	humanize "github.com/dustin/go-humanize"

	"github.com/lairchat/lair/chat"
	"github.com/lairchat/lair/chat/message"
	"github.com/lairchat/lair/internal/sanitize"
)

var helpText = chat.NewCommandsHelp(message.Usages).String()

// handle runs one command for an active session. Errors are meant for the
// client; errors the router already reported are not returned.
func (s *Session) handle(cmd message.Command) error {
	registry, router := s.server.registry, s.server.router

	switch cmd := cmd.(type) {
	case message.Join:
		room := chat.RoomName(cmd.Room)
		joined, members, err := registry.Join(room, s.id)
		if err != nil {
			return err
		}
		s.setFocus(room)
		if joined {
			body := fmt.Sprintf("%s joined. (Connected: %d)", s.Name(), members)
			router.Dispatch(message.NewRoomMsg(room, body))
		}
	case message.Leave:
		room := chat.RoomName(cmd.Room)
		left, err := registry.Leave(room, s.id)
		if err != nil {
			return err
		}
		if left {
			s.unfocus(room)
			router.Dispatch(message.NewRoomMsg(room, fmt.Sprintf("%s left.", s.Name())))
			s.notify(fmt.Sprintf("You left %s.", room))
		}
	case message.Nick:
		old, rooms, err := registry.Rename(s.id, cmd.Name)
		if err != nil {
			return err
		}
		if old == cmd.Name {
			return nil
		}
		body := fmt.Sprintf("%s is now known as %s.", old, cmd.Name)
		for _, room := range rooms {
			router.Dispatch(message.NewRoomMsg(room, body))
		}
		if len(rooms) == 0 {
			s.notify(body)
		}
	case message.Say:
		room := chat.RoomName(cmd.Room)
		if room == "" {
			room = s.Focus()
		}
		if room == "" {
			return fmt.Errorf("%w: join a room first", chat.ErrNotInRoom)
		}
		body := sanitize.Data(cmd.Body)
		if body == "" {
			return nil
		}
		router.Dispatch(message.NewBroadcastMsg(room, body, s.author(), s.nextSeq()))
	case message.Direct:
		body := sanitize.Data(cmd.Body)
		if body == "" {
			return nil
		}
		router.Dispatch(message.NewDirectMsg(cmd.To, body, s.author(), s.nextSeq()))
	case message.Who:
		s.notify(s.server.who(cmd.Room))
	case message.Whois:
		m, ok := registry.Lookup(cmd.Name)
		if !ok {
			return fmt.Errorf("%w: %s", chat.ErrRecipientNotFound, cmd.Name)
		}
		s.notify(s.server.whois(m))
	case message.Rooms:
		s.notify(s.server.rooms())
	case message.Help:
		s.notify("Available commands:\n" + helpText)
	case message.Quit:
		return errQuit
	default:
		return fmt.Errorf("%w: %T", message.ErrInvalidCommand, cmd)
	}
	return nil
}

// who lists sessions, in one room or everywhere.
func (srv *Server) who(room string) string {
	var members []chat.Member
	if room == "" {
		members = srv.registry.Members()
	} else {
		room = chat.RoomName(room)
		members = srv.registry.MembersOf(room)
	}
	if len(members) == 0 {
		return fmt.Sprintf("No one is in %s.", room)
	}

	lines := []string{}
	for _, m := range members {
		line := fmt.Sprintf("%s (joined %s)", m.Name(), humanize.Time(m.Joined()))
		if s, ok := m.(*Session); ok {
			line = fmt.Sprintf("%s at %s", line, s.Addr())
		}
		lines = append(lines, line)
	}
	if room == "" {
		return fmt.Sprintf("%d connected:\n%s", len(members), strings.Join(lines, "\n"))
	}
	return fmt.Sprintf("%d in %s:\n%s", len(members), room, strings.Join(lines, "\n"))
}

func (srv *Server) whois(m chat.Member) string {
	out := strings.Builder{}
	out.WriteString("name: " + m.Name() + "\n")
	out.WriteString(" > id: " + m.ID() + "\n")
	if s, ok := m.(*Session); ok {
		out.WriteString(" > addr: " + s.Addr() + "\n")
		if f, ok := s.conn.Transport().(interface{ Fingerprint() string }); ok && f.Fingerprint() != "" {
			out.WriteString(" > fingerprint: " + f.Fingerprint() + "\n")
		}
	}
	rooms := srv.registry.RoomsOf(m.ID())
	if len(rooms) > 0 {
		out.WriteString(" > rooms: " + strings.Join(rooms, ", ") + "\n")
	}
	out.WriteString(" > joined: " + humanize.Time(m.Joined()))
	return out.String()
}

func (srv *Server) rooms() string {
	info := srv.registry.Rooms()
	lines := []string{}
	for _, r := range info {
		lines = append(lines, fmt.Sprintf("%s (%d)", r.Name, r.Members))
	}
	if len(lines) == 0 {
		lines = append(lines, "No rooms.")
	}
	lines = append(lines, fmt.Sprintf("%d connected, up since %s.", srv.registry.Len(), humanize.Time(srv.started)))
	return strings.Join(lines, "\n")
}
