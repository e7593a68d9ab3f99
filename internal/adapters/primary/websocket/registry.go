package websocket

import (
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/lorrc/community-hub/internal/core/domain"
)

type registryEntry struct {
	conn      Connection
	principal domain.Principal
	rooms     map[string]struct{}
}

// Registry tracks live connections, the single connection bound to each
// principal, and the connections subscribed to each community room.
// All three tables are guarded by one lock; callers never receive
// references to the internal maps.
type Registry struct {
	mu         sync.RWMutex
	conns      map[uuid.UUID]*registryEntry
	principals map[uuid.UUID]uuid.UUID
	rooms      map[string]map[uuid.UUID]struct{}
}

// RegistryStats is a point-in-time view of the registry size.
type RegistryStats struct {
	Connections int `json:"connections"`
	Principals  int `json:"principals"`
	Rooms       int `json:"rooms"`
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		conns:      make(map[uuid.UUID]*registryEntry),
		principals: make(map[uuid.UUID]uuid.UUID),
		rooms:      make(map[string]map[uuid.UUID]struct{}),
	}
}

// Register adds conn and binds it to principal, replacing any earlier binding.
// The connection it replaced is returned so the caller can close it; it stays
// registered (and in its rooms) until the caller unregisters it.
func (r *Registry) Register(conn Connection, principal domain.Principal) (superseded Connection) {
	id := conn.ID()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.conns[id]; ok {
		if bound, ok := r.principals[existing.principal.UserID]; ok && bound == id {
			delete(r.principals, existing.principal.UserID)
		}
		existing.conn = conn
		existing.principal = principal
	} else {
		r.conns[id] = &registryEntry{
			conn:      conn,
			principal: principal,
			rooms:     make(map[string]struct{}),
		}
	}

	if previousID, ok := r.principals[principal.UserID]; ok && previousID != id {
		if previous, ok := r.conns[previousID]; ok {
			superseded = previous.conn
		}
	}
	r.principals[principal.UserID] = id

	return superseded
}

// Unregister removes the connection from every room it joined and drops the
// principal binding if it still points here. It reports whether anything was
// removed, so a second call for the same id is a harmless no-op.
func (r *Registry) Unregister(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[id]
	if !ok {
		return false
	}

	for communityID := range entry.rooms {
		r.removeFromRoomLocked(communityID, id)
	}
	delete(r.conns, id)

	if bound, ok := r.principals[entry.principal.UserID]; ok && bound == id {
		delete(r.principals, entry.principal.UserID)
	}

	return true
}

// Join subscribes the connection to a community room.
// It reports false when the connection was already a member.
func (r *Registry) Join(id uuid.UUID, communityID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[id]
	if !ok {
		return false, ErrUnknownConnection
	}
	if _, member := entry.rooms[communityID]; member {
		return false, nil
	}

	entry.rooms[communityID] = struct{}{}
	room, ok := r.rooms[communityID]
	if !ok {
		room = make(map[uuid.UUID]struct{})
		r.rooms[communityID] = room
	}
	room[id] = struct{}{}

	return true, nil
}

// Leave unsubscribes the connection from a community room.
// It reports false when the connection was not a member.
func (r *Registry) Leave(id uuid.UUID, communityID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.conns[id]
	if !ok {
		return false, ErrUnknownConnection
	}
	if _, member := entry.rooms[communityID]; !member {
		return false, nil
	}

	delete(entry.rooms, communityID)
	r.removeFromRoomLocked(communityID, id)

	return true, nil
}

// removeFromRoomLocked prunes the room once it is empty; an absent key and
// an empty set mean the same thing to resolution.
func (r *Registry) removeFromRoomLocked(communityID string, id uuid.UUID) {
	room, ok := r.rooms[communityID]
	if !ok {
		return
	}
	delete(room, id)
	if len(room) == 0 {
		delete(r.rooms, communityID)
	}
}

// ResolveByPrincipal returns the connection currently bound to userID.
func (r *Registry) ResolveByPrincipal(userID uuid.UUID) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.principals[userID]
	if !ok {
		return nil, false
	}
	entry, ok := r.conns[id]
	if !ok {
		return nil, false
	}
	return entry.conn, true
}

// ResolveByRoom returns a snapshot of the connections subscribed to communityID.
func (r *Registry) ResolveByRoom(communityID string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	room := r.rooms[communityID]
	conns := make([]Connection, 0, len(room))
	for id := range room {
		if entry, ok := r.conns[id]; ok {
			conns = append(conns, entry.conn)
		}
	}
	return conns
}

// Lookup returns the registered connection and its principal.
func (r *Registry) Lookup(id uuid.UUID) (Connection, domain.Principal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[id]
	if !ok {
		return nil, domain.Principal{}, false
	}
	return entry.conn, entry.principal, true
}

// RoomsOf returns the sorted community ids the connection is subscribed to.
func (r *Registry) RoomsOf(id uuid.UUID) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.conns[id]
	if !ok {
		return nil
	}
	rooms := make([]string, 0, len(entry.rooms))
	for communityID := range entry.rooms {
		rooms = append(rooms, communityID)
	}
	sort.Strings(rooms)
	return rooms
}

// Connections returns a snapshot of every registered connection.
func (r *Registry) Connections() []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conns := make([]Connection, 0, len(r.conns))
	for _, entry := range r.conns {
		conns = append(conns, entry.conn)
	}
	return conns
}

// Stats returns the current table sizes.
func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RegistryStats{
		Connections: len(r.conns),
		Principals:  len(r.principals),
		Rooms:       len(r.rooms),
	}
}
