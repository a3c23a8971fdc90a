package core

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandSendMessage delivers a chat message to a conversation.
	CommandSendMessage CommandKind = iota
	// CommandMarkRead sets the read receipt on a message.
	CommandMarkRead
	// CommandGetUserStatus asks for one user's presence.
	CommandGetUserStatus
	// CommandGetOnlineUsers asks for the online-users snapshot.
	CommandGetOnlineUsers
)

// Command represents an action requested by a client.
type Command struct {
	Kind           CommandKind
	ConversationID int64
	MessageID      int64
	UserID         int64
	Body           string
}
