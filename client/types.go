package client

import (
	"encoding/json"
	"time"
)

const protocolVersion = 1

const (
	inboundHello          = "hello"
	inboundMsg            = "msg"
	inboundMarkRead       = "mark_read"
	inboundGetUserStatus  = "get_user_status"
	inboundGetOnlineUsers = "get_online_users"

	outboundEvent = "event"
	outboundError = "error"

	eventMessage          = "message"
	eventMessageRead      = "message_read"
	eventUserStatusChange = "user_status_change"
	eventUserStatus       = "user_status"
	eventOnlineUsers      = "online_users"
)

// inbound is the envelope for frames sent to the server.
type inbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// outbound is the envelope for frames received from the server.
type outbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
	Error *wireError      `json:"error,omitempty"`
}

type helloPayload struct {
	Token    string `json:"token"`
	Protocol int    `json:"protocol,omitempty"`
}

type msgPayload struct {
	ConversationID int64  `json:"conversation_id"`
	Text           string `json:"text"`
}

type markReadPayload struct {
	MessageID int64 `json:"message_id"`
}

type userStatusPayload struct {
	UserID int64 `json:"user_id"`
}

// wireError is the protocol-level error body.
type wireError struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}

// MessageEvent is a delivered chat message.
type MessageEvent struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	AuthorID       int64  `json:"author_id"`
	Text           string `json:"text"`
	TS             int64  `json:"ts"`
	ReadAt         *int64 `json:"read_at,omitempty"`
}

// ReadEvent notifies that a message got its read receipt.
type ReadEvent struct {
	MessageID      int64 `json:"message_id"`
	ConversationID int64 `json:"conversation_id"`
	ReaderID       int64 `json:"reader_id"`
	TS             int64 `json:"ts"`
}

// PresenceEvent reports one user's presence.
type PresenceEvent struct {
	UserID int64  `json:"user_id"`
	Status string `json:"status"`
	TS     int64  `json:"ts"`
}

// OnlineUsersEvent is the online-users snapshot.
type OnlineUsersEvent struct {
	UserIDs []int64 `json:"user_ids"`
	TS      int64   `json:"ts"`
}

// UserStatus is the locally cached presence of one user. The cache is
// never authoritative; it can always be reconciled by requesting a
// fresh snapshot.
type UserStatus struct {
	UserID   int64
	Status   string
	LastSeen time.Time
}

// Presence status values as reported by the server.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
	StatusUnknown = "unknown"
)
