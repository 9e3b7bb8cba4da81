package chat

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/lairchat/lair/internal/sanitize"
	"github.com/lairchat/lair/set"
)

// The error returned when a nickname is held by another session.
var ErrNicknameTaken = errors.New("nickname taken")

// The error returned when a direct message names a session that is gone.
var ErrRecipientNotFound = errors.New("recipient not found")

// The error returned when leaving a room that does not exist.
var ErrRoomNotFound = errors.New("room not found")

// The error returned for empty, oversized or badly formed names.
var ErrInvalidName = errors.New("invalid name")

// The error returned when posting to a room the sender has not joined.
var ErrNotInRoom = errors.New("not in room")

// The error returned when an operation names a session that is not registered.
var ErrUnknownSession = errors.New("unknown session")

// The error reported to a sender whose direct message could not be written.
var ErrDeliveryFailed = errors.New("delivery failed")

const maxRoomLength = 32

// RoomName returns the canonical form of a room name.
func RoomName(name string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(name), "#"))
}

// Room is a named group of members. It only exists while it has members.
type Room struct {
	name    string
	members *set.Set
}

func newRoom(name string) *Room {
	return &Room{
		name:    name,
		members: set.New(),
	}
}

// RoomInfo is a snapshot of a room.
type RoomInfo struct {
	Name    string
	Members int
}

type entry struct {
	member Member
	rooms  map[string]struct{}
}

// Registry owns every active session and every room. All mutations are
// serialized by one lock so membership snapshots are never torn.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	names    *set.Set
	rooms    map[string]*Room

	maxNameLength int
}

// NewRegistry creates an empty registry. Nicknames longer than maxNameLength
// runes are rejected; zero means no limit.
func NewRegistry(maxNameLength int) *Registry {
	return &Registry{
		sessions:      map[string]*entry{},
		names:         set.New(),
		rooms:         map[string]*Room{},
		maxNameLength: maxNameLength,
	}
}

// ValidateName checks a proposed nickname without registering it.
func (r *Registry) ValidateName(name string) error {
	if name == "" || sanitize.Name(name) != name {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if r.maxNameLength > 0 && utf8.RuneCountInString(name) > r.maxNameLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidName, r.maxNameLength)
	}
	return nil
}

func validRoom(name string) error {
	if name == "" || sanitize.Name(name) != name || len(name) > maxRoomLength {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Register adds an active member under name.
func (r *Registry) Register(m Member, name string) error {
	if err := r.ValidateName(name); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[m.ID()]; ok {
		return fmt.Errorf("session %s already registered", m.ID())
	}
	if err := r.names.AddNew(set.Itemize(name, m)); err != nil {
		if err == set.ErrCollision {
			return fmt.Errorf("%w: %s", ErrNicknameTaken, name)
		}
		return err
	}
	m.SetName(name)
	r.sessions[m.ID()] = &entry{
		member: m,
		rooms:  map[string]struct{}{},
	}
	return nil
}

// Unregister removes a member from every room and frees its nickname. It
// returns the rooms the member was in.
func (r *Registry) Unregister(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	r.names.Remove(e.member.Name())

	rooms := sortedKeys(e.rooms)
	for _, name := range rooms {
		r.removeMember(name, id)
	}
	return rooms
}

// Rename changes a member's nickname atomically. It returns the old name and
// the rooms that should hear about it.
func (r *Registry) Rename(id string, name string) (string, []string, error) {
	if err := r.ValidateName(name); err != nil {
		return "", nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return "", nil, ErrUnknownSession
	}
	old := e.member.Name()
	if err := r.names.Replace(old, set.Itemize(name, e.member)); err != nil {
		if err == set.ErrCollision {
			return old, nil, fmt.Errorf("%w: %s", ErrNicknameTaken, name)
		}
		return old, nil, err
	}
	e.member.SetName(name)
	return old, sortedKeys(e.rooms), nil
}

// getOrCreate returns the named room, creating it on first reference.
// Callers must hold the write lock.
func (r *Registry) getOrCreate(name string) *Room {
	room, ok := r.rooms[name]
	if !ok {
		room = newRoom(name)
		r.rooms[name] = room
		logger.Printf("Room created: %s", name)
	}
	return room
}

// removeMember drops id from a room and deletes the room once it is empty.
// Callers must hold the write lock.
func (r *Registry) removeMember(name string, id string) {
	room, ok := r.rooms[name]
	if !ok {
		return
	}
	room.members.Remove(id)
	if room.members.Len() == 0 {
		delete(r.rooms, name)
		logger.Printf("Room deleted: %s", name)
	}
}

// Join adds the member to a room. Joining a room twice is a no-op; joined
// reports whether membership changed and members is the room's size right
// after the join.
func (r *Registry) Join(room string, id string) (joined bool, members int, err error) {
	room = RoomName(room)
	if err := validRoom(room); err != nil {
		return false, 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[id]
	if !ok {
		return false, 0, ErrUnknownSession
	}
	if _, ok := e.rooms[room]; ok {
		return false, r.rooms[room].members.Len(), nil
	}
	rm := r.getOrCreate(room)
	if err := rm.members.AddNew(set.Itemize(id, e.member)); err != nil {
		if rm.members.Len() == 0 {
			delete(r.rooms, room)
		}
		return false, 0, err
	}
	e.rooms[room] = struct{}{}
	return true, rm.members.Len(), nil
}

// Leave removes the member from a room, deleting the room when it empties.
// Leaving a room the member is not in is a no-op, leaving a room that does
// not exist fails with ErrRoomNotFound.
func (r *Registry) Leave(room string, id string) (bool, error) {
	room = RoomName(room)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.rooms[room]; !ok {
		return false, fmt.Errorf("%w: %s", ErrRoomNotFound, room)
	}
	e, ok := r.sessions[id]
	if !ok {
		return false, ErrUnknownSession
	}
	if _, ok := e.rooms[room]; !ok {
		return false, nil
	}
	delete(e.rooms, room)
	r.removeMember(room, id)
	return true, nil
}

// MembersOf returns a snapshot of a room's members, ordered by id. It is nil
// when the room does not exist.
func (r *Registry) MembersOf(room string) []Member {
	room = RoomName(room)

	r.mu.RLock()
	defer r.mu.RUnlock()

	rm, ok := r.rooms[room]
	if !ok {
		return nil
	}
	items := rm.members.Items()
	members := make([]Member, 0, len(items))
	for _, item := range items {
		members = append(members, item.Value().(Member))
	}
	return members
}

// MemberIDs returns a snapshot of the session ids in a room.
func (r *Registry) MemberIDs(room string) []string {
	members := r.MembersOf(room)
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID())
	}
	return ids
}

// Get returns the active member with the given session id.
func (r *Registry) Get(id string) (Member, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil, false
	}
	return e.member, true
}

// Lookup resolves a session id, falling back to a nickname.
func (r *Registry) Lookup(target string) (Member, bool) {
	if m, ok := r.Get(target); ok {
		return m, true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, err := r.names.Get(target)
	if err != nil {
		return nil, false
	}
	return item.Value().(Member), true
}

// Members returns every active member ordered by nickname.
func (r *Registry) Members() []Member {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := r.names.Items()
	members := make([]Member, 0, len(items))
	for _, item := range items {
		members = append(members, item.Value().(Member))
	}
	return members
}

// RoomsOf returns the rooms a member has joined, sorted.
func (r *Registry) RoomsOf(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[id]
	if !ok {
		return nil
	}
	return sortedKeys(e.rooms)
}

// InRoom reports whether the member has joined room.
func (r *Registry) InRoom(room string, id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sessions[id]
	if !ok {
		return false
	}
	_, ok = e.rooms[RoomName(room)]
	return ok
}

// Rooms returns a snapshot of every room, sorted by name.
func (r *Registry) Rooms() []RoomInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info := make([]RoomInfo, 0, len(r.rooms))
	for name, room := range r.rooms {
		info = append(info, RoomInfo{Name: name, Members: room.members.Len()})
	}
	sort.Slice(info, func(i, j int) bool { return info[i].Name < info[j].Name })
	return info
}

// Len returns the number of active members.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func sortedKeys(m map[string]struct{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
