package relay

import "sync"

// Departure describes the room a session vacated during a switch or leave,
// with the room's occupancy after the departure.
type Departure struct {
	Room      string
	Occupancy int
}

// Registry is the authoritative mapping of sessions to rooms. A room exists
// only while it has members; its occupancy is the size of its member set.
// All operations are atomic with respect to each other.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]string              // session id -> room code
	rooms    map[string]map[string]struct{} // room code -> member session ids
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]string),
		rooms:    make(map[string]map[string]struct{}),
	}
}

// Join maps the session to roomCode and returns the room's new occupancy.
// If the session was in a different room it is moved atomically; the vacated
// room is reported so the caller can announce its new count. Joining the
// current room is a no-op that returns the current occupancy.
func (r *Registry) Join(sessionID, roomCode string) (int, *Departure) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.sessions[sessionID]
	if ok && current == roomCode {
		return len(r.rooms[roomCode]), nil
	}

	var left *Departure
	if ok {
		left = &Departure{Room: current, Occupancy: r.removeLocked(sessionID, current)}
	}

	r.sessions[sessionID] = roomCode
	members := r.rooms[roomCode]
	if members == nil {
		members = make(map[string]struct{})
		r.rooms[roomCode] = members
	}
	members[sessionID] = struct{}{}

	return len(members), left
}

// Leave removes the session's room mapping. It returns the vacated room and
// its new occupancy, or ok=false if the session had no room.
func (r *Registry) Leave(sessionID string) (Departure, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	room, ok := r.sessions[sessionID]
	if !ok {
		return Departure{}, false
	}
	delete(r.sessions, sessionID)
	return Departure{Room: room, Occupancy: r.removeLocked(sessionID, room)}, true
}

// removeLocked drops the session from a room's member set, deleting the room
// when it empties. Returns the room's remaining occupancy.
func (r *Registry) removeLocked(sessionID, room string) int {
	members := r.rooms[room]
	delete(members, sessionID)
	if len(members) == 0 {
		delete(r.rooms, room)
		return 0
	}
	return len(members)
}

// Occupancy returns the number of sessions in a room, 0 for unknown rooms.
func (r *Registry) Occupancy(roomCode string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.rooms[roomCode])
}

// Room returns the session's current room, if any.
func (r *Registry) Room(sessionID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	room, ok := r.sessions[sessionID]
	return room, ok
}

// Members returns a point-in-time snapshot of a room's session ids. The hub
// iterates this snapshot so it never holds the registry lock during writes.
func (r *Registry) Members(roomCode string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	set := r.rooms[roomCode]
	if len(set) == 0 {
		return nil
	}
	members := make([]string, 0, len(set))
	for id := range set {
		members = append(members, id)
	}
	return members
}
