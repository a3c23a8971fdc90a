package client

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestDispatcherMessage(t *testing.T) {
	var got MessageEvent
	var errCalled bool
	var d dispatcher
	d.onMessage = func(ev MessageEvent) { got = ev }
	d.onError = func(err error) { errCalled = true; _ = err }

	raw, _ := json.Marshal(MessageEvent{ID: 7, ConversationID: 3, AuthorID: 1, Text: "hi"})
	d.dispatch(outbound{Type: outboundEvent, Event: eventMessage, Data: raw})

	if got.ID != 7 || got.ConversationID != 3 || got.AuthorID != 1 || got.Text != "hi" {
		t.Fatalf("unexpected event: %+v", got)
	}
	if errCalled {
		t.Fatalf("unexpected error callback")
	}
}

func TestDispatcherRoutesBothPresenceEvents(t *testing.T) {
	var got []PresenceEvent
	var d dispatcher
	d.onPresence = func(ev PresenceEvent) { got = append(got, ev) }

	raw, _ := json.Marshal(PresenceEvent{UserID: 1, Status: StatusOnline})
	d.dispatch(outbound{Type: outboundEvent, Event: eventUserStatusChange, Data: raw})
	d.dispatch(outbound{Type: outboundEvent, Event: eventUserStatus, Data: raw})

	if len(got) != 2 {
		t.Fatalf("expected 2 presence events, got %d", len(got))
	}
}

func TestDispatcherError(t *testing.T) {
	var errGot error
	var d dispatcher
	d.onError = func(err error) { errGot = err }

	d.dispatch(outbound{Type: outboundError, Error: &wireError{Code: "unauthorized", Msg: "no token"}})
	if errGot == nil {
		t.Fatalf("expected error callback")
	}
	var serverErr *ServerError
	if !errors.As(errGot, &serverErr) || serverErr.Code != "unauthorized" {
		t.Fatalf("unexpected error: %v", errGot)
	}
}

func TestDispatcherBadPayloadFiresError(t *testing.T) {
	var errGot error
	var d dispatcher
	d.onMessage = func(MessageEvent) { t.Fatal("message callback must not fire") }
	d.onError = func(err error) { errGot = err }

	d.dispatch(outbound{Type: outboundEvent, Event: eventMessage, Data: json.RawMessage(`"not an object"`)})
	if errGot == nil {
		t.Fatalf("expected error callback for bad payload")
	}
}

func TestClientSendNotConnected(t *testing.T) {
	cfg := DefaultConfig()
	c := NewClient(cfg)
	if err := c.SendMessage(testCtx(), 1, "hi"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
	if err := c.MarkRead(testCtx(), 1); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("expected ErrNotConnected, got %v", err)
	}
}

func TestClientConnectValidatesConfig(t *testing.T) {
	c := NewClient(Config{})
	if err := c.Connect(testCtx()); !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestClientCloseIsTerminal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "ws://localhost:0/ws"
	cfg.Token = "token"
	c := NewClient(cfg)

	if err := c.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if c.State() != StateClosed {
		t.Fatalf("expected closed state, got %s", c.State())
	}
	if err := c.Connect(testCtx()); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
	if err := c.SendMessage(testCtx(), 1, "hi"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestPresenceCacheDefaultsToUnknown(t *testing.T) {
	c := NewClient(DefaultConfig())

	status := c.GetUserStatus(42)
	if status.Status != StatusUnknown || status.UserID != 42 {
		t.Fatalf("unexpected default status: %+v", status)
	}
	if c.IsUserOnline(42) {
		t.Fatal("unknown user must not be reported online")
	}
}

func TestPresenceCacheUpdatesFromEvents(t *testing.T) {
	c := NewClient(DefaultConfig())

	c.handlePresence(PresenceEvent{UserID: 1, Status: StatusOnline, TS: 100})
	if !c.IsUserOnline(1) {
		t.Fatal("user must be online after transition event")
	}

	c.handlePresence(PresenceEvent{UserID: 1, Status: StatusOffline, TS: 200})
	if c.IsUserOnline(1) {
		t.Fatal("user must be offline after transition event")
	}
	if got := c.GetUserStatus(1); got.LastSeen.Unix() != 200 {
		t.Fatalf("unexpected last seen: %v", got.LastSeen)
	}
}

func TestPresenceCacheReconcilesWithSnapshot(t *testing.T) {
	c := NewClient(DefaultConfig())

	c.handlePresence(PresenceEvent{UserID: 1, Status: StatusOnline, TS: 100})
	c.handlePresence(PresenceEvent{UserID: 2, Status: StatusOnline, TS: 100})
	c.handlePresence(PresenceEvent{UserID: 3, Status: StatusOffline, TS: 100})

	// User 2 dropped while we were not looking; user 4 is new.
	c.handleOnlineUsers(OnlineUsersEvent{UserIDs: []int64{1, 4}, TS: 200})

	if !c.IsUserOnline(1) || !c.IsUserOnline(4) {
		t.Fatal("snapshot users must be online")
	}
	if c.IsUserOnline(2) {
		t.Fatal("user absent from snapshot must be marked offline")
	}
	if got := c.GetUserStatus(3); got.Status != StatusOffline {
		t.Fatalf("offline user must stay offline, got %s", got.Status)
	}
}

func TestPresenceCallbackFiresAfterCacheUpdate(t *testing.T) {
	c := NewClient(DefaultConfig())

	var observed bool
	c.OnPresence(func(ev PresenceEvent) {
		// By the time the callback runs the cache already answers.
		observed = c.IsUserOnline(ev.UserID)
	})

	c.handlePresence(PresenceEvent{UserID: 9, Status: StatusOnline, TS: 100})
	if !observed {
		t.Fatal("cache must be updated before the callback fires")
	}
}

func TestConnectionStateString(t *testing.T) {
	states := map[ConnectionState]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateReconnecting: "reconnecting",
		StateClosed:       "closed",
	}
	for state, want := range states {
		if state.String() != want {
			t.Fatalf("state %d: want %q, got %q", state, want, state.String())
		}
	}
}

// testCtx returns a cancellable context for unit tests.
func testCtx() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	return ctx
}
