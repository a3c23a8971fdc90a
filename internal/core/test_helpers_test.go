package core

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/innerview/realtime-server/internal/store"
)

func mustEvent(t *testing.T, ch <-chan *Event, kind EventKind) *Event {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev == nil {
				continue
			}
			if ev.Kind == kind {
				return ev
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
	t.Fatalf("expected event kind %v not received", kind)
	return nil
}

// expectNoStatusChange drains ch for a short while and fails if a
// presence transition for userID shows up.
func expectNoStatusChange(t *testing.T, ch <-chan *Event, userID int64) {
	t.Helper()

	deadline := time.Now().Add(300 * time.Millisecond)
	for time.Now().Before(deadline) {
		select {
		case ev := <-ch:
			if ev != nil && ev.Kind == EventUserStatusChange && ev.Presence.UserID == userID {
				t.Fatalf("unexpected status change for user %d: %+v", userID, ev.Presence)
			}
		default:
			time.Sleep(10 * time.Millisecond)
		}
	}
}

// fakeStore is an in-memory ChannelStore for hub and channel tests.
type fakeStore struct {
	convs      map[int64]*store.Conversation
	msgs       map[int64]*store.Message
	nextMsgID  int64
	failCreate bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		convs: make(map[int64]*store.Conversation),
		msgs:  make(map[int64]*store.Message),
	}
}

func (f *fakeStore) addConversation(id, practitionerID, clientID int64) *store.Conversation {
	conv := &store.Conversation{
		ID:             id,
		PractitionerID: practitionerID,
		ClientID:       clientID,
		CreatedAt:      time.Now(),
	}
	f.convs[id] = conv
	return conv
}

func (f *fakeStore) GetConversation(_ context.Context, id int64) (*store.Conversation, error) {
	conv, ok := f.convs[id]
	if !ok {
		return nil, fmt.Errorf("conversation %d: %w", id, store.ErrNotFound)
	}
	return conv, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, conversationID, authorID int64, body string, at time.Time) (*store.Message, error) {
	if f.failCreate {
		return nil, fmt.Errorf("disk full")
	}
	f.nextMsgID++
	msg := &store.Message{
		ID:             f.nextMsgID,
		ConversationID: conversationID,
		AuthorID:       authorID,
		Body:           body,
		CreatedAt:      at,
	}
	f.msgs[msg.ID] = msg
	return msg, nil
}

func (f *fakeStore) TouchConversation(_ context.Context, id int64, at time.Time) error {
	conv, ok := f.convs[id]
	if !ok {
		return fmt.Errorf("conversation %d: %w", id, store.ErrNotFound)
	}
	conv.LastMessageAt = &at
	return nil
}

func (f *fakeStore) GetMessage(_ context.Context, id int64) (*store.Message, error) {
	msg, ok := f.msgs[id]
	if !ok {
		return nil, fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	return msg, nil
}

func (f *fakeStore) MarkMessageRead(_ context.Context, id int64, at time.Time) error {
	msg, ok := f.msgs[id]
	if !ok {
		return fmt.Errorf("message %d: %w", id, store.ErrNotFound)
	}
	if msg.ReadAt == nil {
		msg.ReadAt = &at
	}
	return nil
}
