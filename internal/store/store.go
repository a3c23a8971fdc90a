package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Role identifies the kind of account.
type Role string

const (
	RolePractitioner Role = "practitioner"
	RoleClient       Role = "client"
)

// User represents an account in the system.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Conversation is a durable two-party message thread between a
// practitioner and a client. The pair is unique: one conversation per
// practitioner/client combination.
type Conversation struct {
	ID             int64
	PractitionerID int64
	ClientID       int64
	CreatedAt      time.Time
	LastMessageAt  *time.Time
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID int64) bool {
	return c.PractitionerID == userID || c.ClientID == userID
}

// Peer returns the other participant for userID. Callers must check
// HasParticipant first; Peer returns 0 for a non-participant.
func (c *Conversation) Peer(userID int64) int64 {
	switch userID {
	case c.PractitionerID:
		return c.ClientID
	case c.ClientID:
		return c.PractitionerID
	}
	return 0
}

// Message represents a persisted chat message. ReadAt is nil until the
// recipient marks it read.
type Message struct {
	ID             int64
	ConversationID int64
	AuthorID       int64
	Body           string
	CreatedAt      time.Time
	ReadAt         *time.Time
}

// ConversationSummary is a conversation plus per-user derived fields.
type ConversationSummary struct {
	Conversation
	PeerID      int64
	UnreadCount int64
}

// UserStore manages accounts.
type UserStore interface {
	CreateUser(ctx context.Context, username, passwordHash string, role Role) (*User, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
}

// ConversationStore manages two-party threads.
type ConversationStore interface {
	// CreateConversation creates the thread for a practitioner/client pair,
	// or returns the existing one for the same pair.
	CreateConversation(ctx context.Context, practitionerID, clientID int64) (*Conversation, error)
	GetConversation(ctx context.Context, id int64) (*Conversation, error)
	ListConversations(ctx context.Context, userID int64) ([]ConversationSummary, error)
	// TouchConversation advances last_message_at.
	TouchConversation(ctx context.Context, id int64, at time.Time) error
}

// MessageStore manages the append-only message log.
type MessageStore interface {
	CreateMessage(ctx context.Context, conversationID, authorID int64, body string, at time.Time) (*Message, error)
	GetMessage(ctx context.Context, id int64) (*Message, error)
	// ListMessages returns up to limit messages of a conversation in
	// ascending id order. A non-zero beforeID restricts to older messages.
	ListMessages(ctx context.Context, conversationID, beforeID int64, limit int) ([]Message, error)
	// MarkMessageRead sets read_at if not already set.
	MarkMessageRead(ctx context.Context, id int64, at time.Time) error
}

// Store is the full persistence surface.
type Store interface {
	UserStore
	ConversationStore
	MessageStore
	Close() error
}
