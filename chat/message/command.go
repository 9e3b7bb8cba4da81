package message

import (
	"errors"
	"fmt"
	"strings"
)

// The error returned when an unknown command is issued.
var ErrInvalidCommand = errors.New("invalid command")

// The error returned when a command is given without a required argument.
var ErrMissingArg = errors.New("missing argument")

// Command is a parsed client request. The set of commands is closed: every
// implementation lives in this file.
type Command interface {
	command()
}

// Join a room, creating it when needed.
type Join struct{ Room string }

// Leave a room.
type Leave struct{ Room string }

// Nick changes the session's nickname.
type Nick struct{ Name string }

// Say broadcasts Body to Room. An empty Room means the session's current room.
type Say struct {
	Room string
	Body string
}

// Direct sends Body to a single session, To is a session id or nickname.
type Direct struct {
	To   string
	Body string
}

// Who lists sessions in Room, or every session when Room is empty.
type Who struct{ Room string }

// Whois describes one session, Name is a nickname or session id.
type Whois struct{ Name string }

// Rooms lists every room with its member count.
type Rooms struct{}

// Help lists the available commands.
type Help struct{}

// Quit ends the session.
type Quit struct{}

func (Join) command()   {}
func (Leave) command()  {}
func (Nick) command()   {}
func (Say) command()    {}
func (Direct) command() {}
func (Who) command()    {}
func (Whois) command()  {}
func (Rooms) command()  {}
func (Help) command()   {}
func (Quit) command()   {}

// Usage describes a command for help output.
type Usage struct {
	Prefix     string
	PrefixHelp string
	Help       string
}

// Usages of every command, in help order.
var Usages = []Usage{
	{"/join", "ROOM", "Join a room, creating it if needed."},
	{"/leave", "ROOM", "Leave a room."},
	{"/say", "ROOM TEXT", "Send a message to a room."},
	{"/msg", "NAME TEXT", "Send a private message to a user."},
	{"/nick", "NAME", "Rename yourself."},
	{"/who", "[ROOM]", "List connected users."},
	{"/whois", "NAME", "Information about a user."},
	{"/rooms", "", "List rooms."},
	{"/help", "", "Show this help text."},
	{"/quit", "", "Leave the lair."},
}

// ParseInput turns one line of client input into a Command. Lines without a
// leading slash are messages for the current room.
func ParseInput(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		return Say{Body: line}, nil
	}

	prefix, args := cut(line)
	switch strings.ToLower(prefix) {
	case "/join":
		room, _ := cut(args)
		if room == "" {
			return nil, missing(prefix, "ROOM")
		}
		return Join{Room: room}, nil
	case "/leave", "/part":
		room, _ := cut(args)
		if room == "" {
			return nil, missing(prefix, "ROOM")
		}
		return Leave{Room: room}, nil
	case "/nick":
		name, _ := cut(args)
		if name == "" {
			return nil, missing(prefix, "NAME")
		}
		return Nick{Name: name}, nil
	case "/say":
		room, body := cut(args)
		if room == "" || body == "" {
			return nil, missing(prefix, "ROOM TEXT")
		}
		return Say{Room: room, Body: body}, nil
	case "/msg":
		to, body := cut(args)
		if to == "" || body == "" {
			return nil, missing(prefix, "NAME TEXT")
		}
		return Direct{To: to, Body: body}, nil
	case "/who", "/names":
		room, _ := cut(args)
		return Who{Room: room}, nil
	case "/whois":
		name, _ := cut(args)
		if name == "" {
			return nil, missing(prefix, "NAME")
		}
		return Whois{Name: name}, nil
	case "/rooms", "/list":
		return Rooms{}, nil
	case "/help":
		return Help{}, nil
	case "/quit", "/exit":
		return Quit{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidCommand, prefix)
}

func missing(prefix, args string) error {
	return fmt.Errorf("%w: %s %s", ErrMissingArg, prefix, args)
}

// cut splits off the first whitespace separated field.
func cut(s string) (head string, rest string) {
	s = strings.TrimLeft(s, " \t")
	i := strings.IndexAny(s, " \t")
	if i < 0 {
		return s, ""
	}
	return s[:i], strings.TrimLeft(s[i+1:], " \t")
}
