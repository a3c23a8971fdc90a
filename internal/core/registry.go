package core

// ConnRegistry is the authoritative mapping from user ID to the set of
// live connection IDs. A user may hold several connections at once (one
// per tab or device). The registry is owned by the Hub goroutine and is
// never mutated elsewhere; readers inside the Hub treat it as read-only.
type ConnRegistry struct {
	byUser map[int64]map[string]struct{}
	byConn map[string]int64
}

// NewConnRegistry constructs an empty registry.
func NewConnRegistry() *ConnRegistry {
	return &ConnRegistry{
		byUser: make(map[int64]map[string]struct{}),
		byConn: make(map[string]int64),
	}
}

// Register adds connID to the user's set. Registering an already known
// connID is a no-op. Returns true when this is the user's first live
// connection, i.e. the user just came online.
func (r *ConnRegistry) Register(userID int64, connID string) bool {
	if _, known := r.byConn[connID]; known {
		return false
	}

	conns, ok := r.byUser[userID]
	if !ok {
		conns = make(map[string]struct{})
		r.byUser[userID] = conns
	}
	conns[connID] = struct{}{}
	r.byConn[connID] = userID

	return len(conns) == 1
}

// Unregister removes connID from whichever user owns it. Unknown conn
// IDs are a no-op (duplicate disconnect events are expected). Returns
// the owning user and whether this was the user's last connection.
func (r *ConnRegistry) Unregister(connID string) (userID int64, last bool, ok bool) {
	userID, ok = r.byConn[connID]
	if !ok {
		return 0, false, false
	}

	delete(r.byConn, connID)
	conns := r.byUser[userID]
	delete(conns, connID)
	if len(conns) == 0 {
		delete(r.byUser, userID)
		return userID, true, true
	}
	return userID, false, true
}

// IsOnline reports whether the user holds at least one live connection.
func (r *ConnRegistry) IsOnline(userID int64) bool {
	return len(r.byUser[userID]) > 0
}

// OnlineUserIDs returns a snapshot of all users with at least one
// connection.
func (r *ConnRegistry) OnlineUserIDs() []int64 {
	ids := make([]int64, 0, len(r.byUser))
	for id := range r.byUser {
		ids = append(ids, id)
	}
	return ids
}

// ConnCount returns the number of live connections for a user.
func (r *ConnRegistry) ConnCount(userID int64) int {
	return len(r.byUser[userID])
}
