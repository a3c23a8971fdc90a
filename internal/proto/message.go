package proto

import "encoding/json"

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

const (
	ProtocolVersion = 1

	InboundTypeHello          = "hello"
	InboundTypeMsg            = "msg"
	InboundTypeMarkRead       = "mark_read"
	InboundTypeGetUserStatus  = "get_user_status"
	InboundTypeGetOnlineUsers = "get_online_users"

	OutboundTypeEvent = "event"
	OutboundTypeError = "error"

	EventNameMessage          = "message"
	EventNameMessageRead      = "message_read"
	EventNameUserStatusChange = "user_status_change"
	EventNameUserStatus       = "user_status"
	EventNameOnlineUsers      = "online_users"
)

// HelloData is sent by the client as the first frame to authenticate
// the connection. The server derives the user identity from the token;
// it never trusts a client-supplied user ID.
type HelloData struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

// MsgData is a chat message from the client.
type MsgData struct {
	ConversationID int64  `json:"conversation_id"`
	Text           string `json:"text"`
}

// MarkReadData requests a read receipt on a message.
type MarkReadData struct {
	MessageID int64 `json:"message_id"`
}

// GetUserStatusData is a point presence query.
type GetUserStatusData struct {
	UserID int64 `json:"user_id"`
}

// Outbound is the envelope for messages sent to the client.
type Outbound struct {
	Type  string `json:"type"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
	Error *Error `json:"error,omitempty"`
}

// EventMessage carries a delivered chat message.
type EventMessage struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	AuthorID       int64  `json:"author_id"`
	Text           string `json:"text"`
	TS             int64  `json:"ts"`
	ReadAt         *int64 `json:"read_at,omitempty"`
}

// EventMessageRead notifies that a message got its read receipt.
type EventMessageRead struct {
	MessageID      int64 `json:"message_id"`
	ConversationID int64 `json:"conversation_id"`
	ReaderID       int64 `json:"reader_id"`
	TS             int64 `json:"ts"`
}

// EventUserStatus reports one user's presence. Used both for broadcast
// transitions (user_status_change) and point query replies (user_status).
type EventUserStatus struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
	TS     int64  `json:"ts"`
}

// EventOnlineUsers is the online-users snapshot.
type EventOnlineUsers struct {
	UserIDs []int64 `json:"user_ids"`
	TS      int64   `json:"ts"`
}

// Error describes a protocol-level error response.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
