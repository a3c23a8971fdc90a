package core

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/innerview/realtime-server/internal/observability"
)

// Hub is the single-threaded event loop that owns the connection
// registry, the presence tracker and the live client set. All registry
// mutation happens on the Run goroutine; transports talk to the Hub
// through channels only. Presence transitions are therefore atomic with
// registry mutation: there is no window where a query observes the old
// status after the registry changed.
type Hub struct {
	log      *zerolog.Logger
	registry *ConnRegistry
	tracker  *PresenceTracker
	channel  *Channel

	clients map[*Client]struct{}
	byUser  map[int64]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	inbox      chan clientCommand
	done       chan struct{}
}

type clientCommand struct {
	client *Client
	cmd    *Command
}

// NewHub creates a hub over the given store. A nil logger disables
// logging; the store may be nil only in tests that never send.
func NewHub(st ChannelStore, logger *zerolog.Logger) *Hub {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	registry := NewConnRegistry()
	return &Hub{
		log:        logger,
		registry:   registry,
		tracker:    NewPresenceTracker(registry),
		channel:    NewChannel(st, logger),
		clients:    make(map[*Client]struct{}),
		byUser:     make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbox:      make(chan clientCommand, 64),
		done:       make(chan struct{}),
	}
}

// RegisterClient announces a new connection to the hub and starts
// pumping its commands into the hub inbox.
func (h *Hub) RegisterClient(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		return
	}
	go h.pump(c)
}

// UnregisterClient removes a connection. Safe to call more than once.
func (h *Hub) UnregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// pump forwards one client's commands into the shared inbox. It exits
// when the client's command channel is closed or the hub stops.
func (h *Hub) pump(c *Client) {
	for cmd := range c.Commands {
		select {
		case h.inbox <- clientCommand{client: c, cmd: cmd}:
		case <-h.done:
			return
		}
	}
}

// Run processes hub events until the context is cancelled. It must be
// called exactly once.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case c := <-h.register:
			h.handleRegister(c)
		case c := <-h.unregister:
			h.handleUnregister(c)
		case in := <-h.inbox:
			h.handleCommand(ctx, in.client, in.cmd)
		case <-ctx.Done():
			return
		}
	}
}

func (h *Hub) handleRegister(c *Client) {
	if _, exists := h.clients[c]; exists {
		return
	}
	h.clients[c] = struct{}{}
	peers, ok := h.byUser[c.UserID]
	if !ok {
		peers = make(map[*Client]struct{})
		h.byUser[c.UserID] = peers
	}
	peers[c] = struct{}{}

	first := h.registry.Register(c.UserID, c.ConnID)
	h.log.Debug().
		Str("conn_id", c.ConnID).
		Int64("user_id", c.UserID).
		Bool("first", first).
		Msg("connection registered")

	if first {
		state := h.tracker.OnTransition(c.UserID, time.Now())
		observability.IncPresenceTransition(string(state.Status))
		h.broadcastPresence(state)
	}
	observability.SetOnlineUsers(len(h.registry.OnlineUserIDs()))

	// Initial sync so a fresh connection knows who is online without
	// waiting for its own snapshot request.
	h.deliver(c, &Event{
		Kind:   EventOnlineUsers,
		Online: h.tracker.SnapshotOnlineUsers(),
		At:     time.Now(),
	})
}

func (h *Hub) handleUnregister(c *Client) {
	if _, exists := h.clients[c]; !exists {
		return
	}
	delete(h.clients, c)
	if peers, ok := h.byUser[c.UserID]; ok {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.byUser, c.UserID)
		}
	}

	userID, last, ok := h.registry.Unregister(c.ConnID)
	h.log.Debug().
		Str("conn_id", c.ConnID).
		Int64("user_id", c.UserID).
		Bool("last", last).
		Msg("connection unregistered")

	if ok && last {
		state := h.tracker.OnTransition(userID, time.Now())
		observability.IncPresenceTransition(string(state.Status))
		h.broadcastPresence(state)
	}
	observability.SetOnlineUsers(len(h.registry.OnlineUserIDs()))
}

func (h *Hub) handleCommand(ctx context.Context, c *Client, cmd *Command) {
	switch cmd.Kind {
	case CommandSendMessage:
		h.handleSend(ctx, c, cmd)
	case CommandMarkRead:
		h.handleMarkRead(ctx, c, cmd)
	case CommandGetUserStatus:
		h.deliver(c, &Event{
			Kind:     EventUserStatus,
			Presence: h.tracker.Status(cmd.UserID),
			At:       time.Now(),
		})
	case CommandGetOnlineUsers:
		h.deliver(c, &Event{
			Kind:   EventOnlineUsers,
			Online: h.tracker.SnapshotOnlineUsers(),
			At:     time.Now(),
		})
	default:
		h.deliver(c, &Event{
			Kind:  EventError,
			Error: coreError(ErrCodeBadRequest, "unknown command"),
		})
	}
}

func (h *Hub) handleSend(ctx context.Context, c *Client, cmd *Command) {
	msg, peerID, cerr := h.channel.Send(ctx, cmd.ConversationID, c.UserID, cmd.Body)
	if cerr != nil {
		h.deliver(c, &Event{Kind: EventError, Error: cerr})
		return
	}

	observability.IncMessageSent()
	ev := &Event{Kind: EventMessage, Message: msg, At: msg.CreatedAt}

	// Recipient's live connections first, then the author's own
	// connections. The author's tabs (including the sending one, which
	// treats it as the delivery confirmation) all see the same echo.
	h.deliverToUser(peerID, ev)
	h.deliverToUser(c.UserID, ev)
	observability.IncWSEvent("message")
}

func (h *Hub) handleMarkRead(ctx context.Context, c *Client, cmd *Command) {
	msg, peerID, already, cerr := h.channel.MarkRead(ctx, cmd.MessageID, c.UserID)
	if cerr != nil {
		h.deliver(c, &Event{Kind: EventError, Error: cerr})
		return
	}
	if already {
		return
	}

	ev := &Event{
		Kind:     EventMessageRead,
		Message:  msg,
		ReaderID: c.UserID,
		At:       time.Now(),
	}
	h.deliverToUser(peerID, ev)
	h.deliverToUser(c.UserID, ev)
	observability.IncWSEvent("message_read")
}

func (h *Hub) broadcastPresence(state PresenceState) {
	ev := &Event{Kind: EventUserStatusChange, Presence: state, At: state.LastSeen}
	for c := range h.clients {
		h.deliver(c, ev)
	}
	observability.IncWSEvent("user_status_change")
}

func (h *Hub) deliverToUser(userID int64, ev *Event) {
	for c := range h.byUser[userID] {
		h.deliver(c, ev)
	}
}

func (h *Hub) deliver(c *Client, ev *Event) {
	select {
	case c.Events <- ev:
	default:
		// Drop if slow consumer. The client can resynchronize through
		// snapshot requests and history fetches.
		observability.IncEventDropped()
		h.log.Warn().
			Str("conn_id", c.ConnID).
			Int64("user_id", c.UserID).
			Msg("event dropped for slow consumer")
	}
}
