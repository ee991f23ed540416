package registry

import (
	"errors"
	"log/slog"
	"sort"
	"sync"
)

var (
	// ErrDuplicateConnection is returned by Register when the id is taken.
	ErrDuplicateConnection = errors.New("registry: connection already registered")

	// ErrUnknownConnection is returned by Join for an unregistered id.
	ErrUnknownConnection = errors.New("registry: unknown connection")
)

// Conn is the transport endpoint held for each registered connection.
//
// Send must not block: it either queues msg for asynchronous delivery or
// returns an error immediately.
type Conn interface {
	ID() string
	Send(msg []byte) error
}

type entry struct {
	conn  Conn
	rooms map[string]struct{}
}

// Registry tracks live connections and their room memberships.
// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*entry
	rooms map[string]map[string]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	return &Registry{
		conns: make(map[string]*entry),
		rooms: make(map[string]map[string]struct{}),
	}
}

// Register adds c with an empty room set.
func (r *Registry) Register(c Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := c.ID()
	if _, exists := r.conns[id]; exists {
		return ErrDuplicateConnection
	}
	r.conns[id] = &entry{conn: c, rooms: make(map[string]struct{})}
	slog.Debug("registry: connection registered", "conn_id", id, "connections", len(r.conns))
	return nil
}

// Deregister removes the connection and returns the rooms it was in,
// sorted. Unknown ids return nil, so repeated calls are harmless.
func (r *Registry) Deregister(id string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[id]
	if !ok {
		return nil
	}
	delete(r.conns, id)

	rooms := make([]string, 0, len(e.rooms))
	for room := range e.rooms {
		r.removeMemberLocked(room, id)
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)

	slog.Debug("registry: connection deregistered", "conn_id", id, "rooms", len(rooms))
	return rooms
}

// Join adds id to roomID. It reports whether membership changed; joining
// a room already joined is not an error.
func (r *Registry) Join(id, roomID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[id]
	if !ok {
		return false, ErrUnknownConnection
	}
	if _, member := e.rooms[roomID]; member {
		return false, nil
	}

	members, exists := r.rooms[roomID]
	if !exists {
		members = make(map[string]struct{})
		r.rooms[roomID] = members
	}
	members[id] = struct{}{}
	e.rooms[roomID] = struct{}{}
	return true, nil
}

// Leave removes id from roomID and reports whether membership changed.
// Leaving a room not joined, or leaving as an unknown connection, is a no-op.
func (r *Registry) Leave(id, roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[id]
	if !ok {
		return false
	}
	if _, member := e.rooms[roomID]; !member {
		return false
	}
	delete(e.rooms, roomID)
	r.removeMemberLocked(roomID, id)
	return true
}

// removeMemberLocked drops id from the room's member set and discards the
// room once empty. r.mu must be held for writing.
func (r *Registry) removeMemberLocked(roomID, id string) {
	members, ok := r.rooms[roomID]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(r.rooms, roomID)
	}
}

// MembersOf returns a sorted snapshot of the connection ids in roomID.
func (r *Registry) MembersOf(roomID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]string, 0, len(members))
	for id := range members {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Members returns a snapshot of the transport endpoints in roomID.
func (r *Registry) Members(roomID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members := r.rooms[roomID]
	out := make([]Conn, 0, len(members))
	for id := range members {
		out = append(out, r.conns[id].conn)
	}
	return out
}

// IsMember reports whether id is currently joined to roomID.
func (r *Registry) IsMember(id, roomID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.rooms[roomID][id]
	return ok
}

// Lookup returns the endpoint registered under id.
func (r *Registry) Lookup(id string) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return e.conn, true
}

// RoomsOf returns the sorted rooms id has joined.
func (r *Registry) RoomsOf(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[id]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.rooms))
	for room := range e.rooms {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// Stats returns the number of non-empty rooms and registered connections.
func (r *Registry) Stats() (rooms, connections int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms), len(r.conns)
}
