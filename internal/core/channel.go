package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/innerview/realtime-server/internal/store"
)

// ChannelStore is the slice of persistence the message channel needs.
// The narrow interface keeps the core testable without a real database.
type ChannelStore interface {
	GetConversation(ctx context.Context, id int64) (*store.Conversation, error)
	CreateMessage(ctx context.Context, conversationID, authorID int64, body string, at time.Time) (*store.Message, error)
	TouchConversation(ctx context.Context, id int64, at time.Time) error
	GetMessage(ctx context.Context, id int64) (*store.Message, error)
	MarkMessageRead(ctx context.Context, id int64, at time.Time) error
}

// Channel validates, persists and prepares fan-out for conversation
// messages. Delivery to live connections is the Hub's job; the channel
// guarantees that every message handed to the Hub for broadcast has
// already been durably stored.
type Channel struct {
	store ChannelStore
	log   *zerolog.Logger
}

// NewChannel constructs a message channel over the given store.
func NewChannel(st ChannelStore, logger *zerolog.Logger) *Channel {
	return &Channel{store: st, log: logger}
}

// Send validates and persists a message. On success it returns the
// stored message and the ID of the other participant. Failures are
// returned as coded errors scoped to the sender; nothing is broadcast
// when persistence fails.
func (ch *Channel) Send(ctx context.Context, conversationID, authorID int64, body string) (Message, int64, *CoreError) {
	if strings.TrimSpace(body) == "" {
		return Message{}, 0, coreError(ErrCodeValidation, "message body is empty")
	}

	conv, err := ch.store.GetConversation(ctx, conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Message{}, 0, coreError(ErrCodeConversationNotFound, "conversation not found")
		}
		ch.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("load conversation")
		return Message{}, 0, coreError(ErrCodePersistence, "failed to load conversation")
	}

	if !conv.HasParticipant(authorID) {
		return Message{}, 0, coreError(ErrCodeAuthorization, "author is not a conversation participant")
	}

	now := time.Now()
	stored, err := ch.store.CreateMessage(ctx, conversationID, authorID, body, now)
	if err != nil {
		ch.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("persist message")
		return Message{}, 0, coreError(ErrCodePersistence, "failed to persist message")
	}

	if err := ch.store.TouchConversation(ctx, conversationID, stored.CreatedAt); err != nil {
		// The message is durable; a failed bump only skews ordering of
		// the conversation list.
		ch.log.Warn().Err(err).Int64("conversation_id", conversationID).Msg("touch conversation")
	}

	return fromStoreMessage(stored), conv.Peer(authorID), nil
}

// MarkRead sets the read receipt on a message. Only the non-author
// participant may mark a message read. The operation is idempotent: a
// second call reports already=true and changes nothing.
func (ch *Channel) MarkRead(ctx context.Context, messageID, readerID int64) (msg Message, peerID int64, already bool, cerr *CoreError) {
	stored, err := ch.store.GetMessage(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Message{}, 0, false, coreError(ErrCodeMessageNotFound, "message not found")
		}
		ch.log.Error().Err(err).Int64("message_id", messageID).Msg("load message")
		return Message{}, 0, false, coreError(ErrCodePersistence, "failed to load message")
	}

	conv, err := ch.store.GetConversation(ctx, stored.ConversationID)
	if err != nil {
		ch.log.Error().Err(err).Int64("conversation_id", stored.ConversationID).Msg("load conversation")
		return Message{}, 0, false, coreError(ErrCodePersistence, "failed to load conversation")
	}

	if !conv.HasParticipant(readerID) || readerID == stored.AuthorID {
		return Message{}, 0, false, coreError(ErrCodeAuthorization, "only the recipient may mark a message read")
	}

	if stored.ReadAt != nil {
		return fromStoreMessage(stored), conv.Peer(readerID), true, nil
	}

	now := time.Now()
	if err := ch.store.MarkMessageRead(ctx, messageID, now); err != nil {
		ch.log.Error().Err(err).Int64("message_id", messageID).Msg("mark message read")
		return Message{}, 0, false, coreError(ErrCodePersistence, "failed to mark message read")
	}

	stored.ReadAt = &now
	return fromStoreMessage(stored), conv.Peer(readerID), false, nil
}

func fromStoreMessage(m *store.Message) Message {
	return Message{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		AuthorID:       m.AuthorID,
		Body:           m.Body,
		CreatedAt:      m.CreatedAt,
		ReadAt:         m.ReadAt,
	}
}
