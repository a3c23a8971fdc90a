package core

import "time"

// Message is the domain model for a chat message.
type Message struct {
	ID             int64
	ConversationID int64
	AuthorID       int64
	Body           string
	CreatedAt      time.Time
	ReadAt         *time.Time
}
