package core

import "time"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventMessage notifies participants about a new chat message.
	EventMessage EventKind = iota
	// EventMessageRead notifies participants that a message was read.
	EventMessageRead
	// EventUserStatusChange is broadcast when a user's presence flips.
	EventUserStatusChange
	// EventUserStatus answers a point presence query.
	EventUserStatus
	// EventOnlineUsers delivers the online-users snapshot.
	EventOnlineUsers
	// EventError notifies the requesting client about a domain error.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind EventKind

	Message  Message
	Presence PresenceState
	Online   []int64
	At       time.Time

	// For EventMessageRead.
	ReaderID int64

	Error *CoreError
}
