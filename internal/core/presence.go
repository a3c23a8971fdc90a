package core

import "time"

// PresenceStatus is the derived availability of a user.
type PresenceStatus string

const (
	StatusOnline  PresenceStatus = "online"
	StatusOffline PresenceStatus = "offline"
	StatusUnknown PresenceStatus = "unknown"
)

// PresenceState is the cached presence of one user. LastSeen is the
// time of the most recent transition.
type PresenceState struct {
	UserID   int64
	Status   PresenceStatus
	LastSeen time.Time
}

// PresenceTracker translates registry transitions into presence state
// and answers point queries. It never trusts event ordering: every
// transition re-derives the status from current registry membership, so
// a stale "offline" can never overwrite a genuine "online" when tabs
// connect and disconnect in quick succession.
type PresenceTracker struct {
	registry *ConnRegistry
	states   map[int64]PresenceState
}

// NewPresenceTracker constructs a tracker over the given registry.
func NewPresenceTracker(registry *ConnRegistry) *PresenceTracker {
	return &PresenceTracker{
		registry: registry,
		states:   make(map[int64]PresenceState),
	}
}

// OnTransition records a transition for userID and returns the state to
// broadcast. The registry's current membership is the source of truth.
func (t *PresenceTracker) OnTransition(userID int64, at time.Time) PresenceState {
	status := StatusOffline
	if t.registry.IsOnline(userID) {
		status = StatusOnline
	}
	state := PresenceState{UserID: userID, Status: status, LastSeen: at}
	t.states[userID] = state
	return state
}

// Status returns the cached presence for a user, defaulting to unknown
// for users never seen by this process.
func (t *PresenceTracker) Status(userID int64) PresenceState {
	if state, ok := t.states[userID]; ok {
		return state
	}
	return PresenceState{UserID: userID, Status: StatusUnknown}
}

// SnapshotOnlineUsers returns the IDs of all currently online users,
// for initial sync of a newly connected client.
func (t *PresenceTracker) SnapshotOnlineUsers() []int64 {
	return t.registry.OnlineUserIDs()
}
