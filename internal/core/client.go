package core

// Client is one realtime connection as seen by the core layer. A user
// with several open tabs is represented by several Clients sharing the
// same UserID.
type Client struct {
	// ConnID uniquely identifies this connection.
	ConnID   string
	UserID   int64
	Username string
	Commands chan *Command
	Events   chan *Event
}

// NewClient constructs a client with initialized channels. eventBuffer
// bounds the outbound queue; events past it are dropped for this
// connection. Zero picks a small default.
func NewClient(connID string, userID int64, username string, eventBuffer int) *Client {
	if eventBuffer <= 0 {
		eventBuffer = 16
	}
	return &Client{
		ConnID:   connID,
		UserID:   userID,
		Username: username,
		Commands: make(chan *Command, 8),
		Events:   make(chan *Event, eventBuffer),
	}
}
