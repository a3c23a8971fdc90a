package client

import (
	"context"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"
)

// Client is the consumer-side presence hook: one realtime connection
// with automatic reconnect, a local presence cache and event callbacks.
// The cache is updated from inbound presence events and resynchronized
// with a fresh online-users snapshot on every transition to connected,
// since deltas missed while disconnected are otherwise lost.
type Client struct {
	cfg Config
	log zerolog.Logger

	dispatcher dispatcher
	writeCh    chan inbound

	mu      sync.Mutex
	state   ConnectionState
	conn    *websocket.Conn
	cancel  context.CancelFunc
	session int // guards against double disconnect handling per session

	presenceMu sync.RWMutex
	presence   map[int64]UserStatus

	cbMu          sync.RWMutex
	onMessage     func(MessageEvent)
	onMessageRead func(ReadEvent)
	onPresence    func(PresenceEvent)
	onOnlineUsers func(OnlineUsersEvent)
	onState       func(StateEvent)
	onError       func(error)
}

// NewClient constructs a client with the provided config. Use
// DefaultConfig() as a starting point and set URL and Token.
func NewClient(cfg Config) *Client {
	c := &Client{
		cfg:      cfg,
		log:      zerolog.Nop(),
		writeCh:  make(chan inbound, 16),
		state:    StateDisconnected,
		presence: make(map[int64]UserStatus),
	}
	c.dispatcher.onMessage = func(ev MessageEvent) { c.fireMessage(ev) }
	c.dispatcher.onMessageRead = func(ev ReadEvent) { c.fireMessageRead(ev) }
	c.dispatcher.onPresence = c.handlePresence
	c.dispatcher.onOnlineUsers = c.handleOnlineUsers
	c.dispatcher.onError = func(err error) { c.fireError(err) }
	return c
}

// SetLogger overrides the logger (optional).
func (c *Client) SetLogger(l *zerolog.Logger) {
	if l != nil {
		c.log = *l
	}
}

// OnMessage registers a callback for message events.
func (c *Client) OnMessage(fn func(MessageEvent)) { c.setCallback(func() { c.onMessage = fn }) }

// OnMessageRead registers a callback for read receipts.
func (c *Client) OnMessageRead(fn func(ReadEvent)) { c.setCallback(func() { c.onMessageRead = fn }) }

// OnPresence registers a callback for presence updates. The local
// cache is updated before the callback fires.
func (c *Client) OnPresence(fn func(PresenceEvent)) { c.setCallback(func() { c.onPresence = fn }) }

// OnOnlineUsers registers a callback for online-users snapshots.
func (c *Client) OnOnlineUsers(fn func(OnlineUsersEvent)) {
	c.setCallback(func() { c.onOnlineUsers = fn })
}

// OnStateChange registers a callback for connection state changes.
func (c *Client) OnStateChange(fn func(StateEvent)) { c.setCallback(func() { c.onState = fn }) }

// OnError registers a callback for errors.
func (c *Client) OnError(fn func(error)) { c.setCallback(func() { c.onError = fn }) }

func (c *Client) setCallback(set func()) {
	c.cbMu.Lock()
	defer c.cbMu.Unlock()
	set()
}

// Connect dials the server, performs the hello handshake, and starts
// internal loops. With Reconnect enabled, later drops are handled
// automatically; Connect only reports the initial attempt.
func (c *Client) Connect(ctx context.Context) error {
	if c.cfg.URL == "" || c.cfg.Token == "" {
		return ErrInvalidConfig
	}

	c.mu.Lock()
	switch c.state {
	case StateClosed:
		c.mu.Unlock()
		return ErrClosed
	case StateConnected, StateConnecting, StateReconnecting:
		c.mu.Unlock()
		return ErrAlreadyConnected
	}
	c.setStateLocked(StateConnecting, nil)
	c.mu.Unlock()

	if err := c.dial(ctx); err != nil {
		c.mu.Lock()
		if c.state != StateClosed {
			c.setStateLocked(StateDisconnected, err)
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// Close shuts the client down. It is terminal: a closed client cannot
// be reconnected.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		return nil
	}
	c.setStateLocked(StateClosed, nil)
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client close")
	}
	return nil
}

// State returns the current connection state.
func (c *Client) State() ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SendMessage publishes a message to a conversation.
func (c *Client) SendMessage(ctx context.Context, conversationID int64, text string) error {
	return c.send(ctx, inbound{Type: inboundMsg, Data: msgPayload{ConversationID: conversationID, Text: text}})
}

// MarkRead requests a read receipt on a message.
func (c *Client) MarkRead(ctx context.Context, messageID int64) error {
	return c.send(ctx, inbound{Type: inboundMarkRead, Data: markReadPayload{MessageID: messageID}})
}

// RequestUserStatus issues a point presence query. The answer arrives
// as a presence event and lands in the cache.
func (c *Client) RequestUserStatus(ctx context.Context, userID int64) error {
	return c.send(ctx, inbound{Type: inboundGetUserStatus, Data: userStatusPayload{UserID: userID}})
}

// RequestOnlineUsers asks for the full online-users snapshot.
func (c *Client) RequestOnlineUsers(ctx context.Context) error {
	return c.send(ctx, inbound{Type: inboundGetOnlineUsers})
}

// GetUserStatus returns the cached presence for a user, defaulting to
// unknown for users never seen.
func (c *Client) GetUserStatus(userID int64) UserStatus {
	c.presenceMu.RLock()
	defer c.presenceMu.RUnlock()
	if status, ok := c.presence[userID]; ok {
		return status
	}
	return UserStatus{UserID: userID, Status: StatusUnknown}
}

// IsUserOnline reports whether the cache currently shows the user online.
func (c *Client) IsUserOnline(userID int64) bool {
	return c.GetUserStatus(userID).Status == StatusOnline
}

func (c *Client) send(ctx context.Context, in inbound) error {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == StateClosed {
		return ErrClosed
	}
	if state != StateConnected {
		return ErrNotConnected
	}

	select {
	case c.writeCh <- in:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dial establishes one connection session: websocket dial, hello
// handshake, loops, and the post-connect presence resync.
func (c *Client) dial(ctx context.Context) error {
	dialCtx := ctx
	if c.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
		defer cancel()
	}

	conn, _, err := websocket.Dial(dialCtx, c.cfg.URL, nil)
	if err != nil {
		return err
	}

	hello := inbound{
		Type: inboundHello,
		Data: helloPayload{Token: c.cfg.Token, Protocol: protocolVersion},
	}
	if err := wsjson.Write(dialCtx, conn, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake error")
		return err
	}

	runCtx, cancel := context.WithCancel(context.Background())

	c.mu.Lock()
	if c.state == StateClosed {
		c.mu.Unlock()
		cancel()
		_ = conn.Close(websocket.StatusNormalClosure, "client close")
		return ErrClosed
	}
	c.conn = conn
	c.cancel = cancel
	c.session++
	session := c.session
	c.setStateLocked(StateConnected, nil)
	c.mu.Unlock()

	go c.readLoop(runCtx, conn, session)
	go c.writeLoop(runCtx, conn, session)

	// Resynchronize presence: deltas missed while disconnected are
	// gone, so always start a session from a fresh snapshot.
	select {
	case c.writeCh <- inbound{Type: inboundGetOnlineUsers}:
	default:
	}

	return nil
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, session int) {
	for {
		var out outbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			c.handleDisconnect(session, err)
			return
		}
		c.dispatcher.dispatch(out)
	}
}

func (c *Client) writeLoop(ctx context.Context, conn *websocket.Conn, session int) {
	for {
		select {
		case in := <-c.writeCh:
			if err := c.writeFrame(ctx, conn, in); err != nil {
				c.handleDisconnect(session, err)
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) writeFrame(ctx context.Context, conn *websocket.Conn, in inbound) error {
	if c.cfg.WriteTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.WriteTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, conn, in)
}

// handleDisconnect tears down the current session and, when enabled,
// starts the reconnect loop. Only the first caller for a session wins.
func (c *Client) handleDisconnect(session int, err error) {
	c.mu.Lock()
	if c.state == StateClosed || session != c.session {
		c.mu.Unlock()
		return
	}
	conn := c.conn
	cancel := c.cancel
	c.conn = nil
	c.cancel = nil
	c.session++

	if !c.cfg.Reconnect {
		c.setStateLocked(StateDisconnected, err)
		c.mu.Unlock()
	} else {
		c.setStateLocked(StateReconnecting, err)
		c.mu.Unlock()
		go c.reconnectLoop()
	}

	if cancel != nil {
		cancel()
	}
	if conn != nil {
		_ = conn.Close(websocket.StatusInternalError, "connection lost")
	}
	c.fireError(err)
}

func (c *Client) reconnectLoop() {
	delay := c.cfg.ReconnectMinDelay
	if delay <= 0 {
		delay = time.Second
	}
	maxDelay := c.cfg.ReconnectMaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}

	for {
		time.Sleep(delay)

		c.mu.Lock()
		if c.state != StateReconnecting {
			c.mu.Unlock()
			return
		}
		c.mu.Unlock()

		err := c.dial(context.Background())
		if err == nil {
			return
		}
		c.log.Warn().Err(err).Dur("next_delay", delay).Msg("reconnect attempt failed")

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// setStateLocked records the new state and fires the callback. Caller
// must hold c.mu.
func (c *Client) setStateLocked(next ConnectionState, err error) {
	if c.state == next {
		return
	}
	ev := StateEvent{OldState: c.state, NewState: next, Error: err}
	c.state = next

	c.cbMu.RLock()
	fn := c.onState
	c.cbMu.RUnlock()
	if fn != nil {
		go fn(ev)
	}
}

func (c *Client) handlePresence(ev PresenceEvent) {
	c.presenceMu.Lock()
	c.presence[ev.UserID] = UserStatus{
		UserID:   ev.UserID,
		Status:   ev.Status,
		LastSeen: time.Unix(ev.TS, 0),
	}
	c.presenceMu.Unlock()

	c.cbMu.RLock()
	fn := c.onPresence
	c.cbMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) handleOnlineUsers(ev OnlineUsersEvent) {
	at := time.Unix(ev.TS, 0)
	listed := make(map[int64]struct{}, len(ev.UserIDs))
	for _, id := range ev.UserIDs {
		listed[id] = struct{}{}
	}

	c.presenceMu.Lock()
	for _, id := range ev.UserIDs {
		c.presence[id] = UserStatus{UserID: id, Status: StatusOnline, LastSeen: at}
	}
	// Anyone cached as online but absent from the snapshot went
	// offline while we were not looking.
	for id, status := range c.presence {
		if _, ok := listed[id]; !ok && status.Status == StatusOnline {
			c.presence[id] = UserStatus{UserID: id, Status: StatusOffline, LastSeen: at}
		}
	}
	c.presenceMu.Unlock()

	c.cbMu.RLock()
	fn := c.onOnlineUsers
	c.cbMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) fireMessage(ev MessageEvent) {
	c.cbMu.RLock()
	fn := c.onMessage
	c.cbMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) fireMessageRead(ev ReadEvent) {
	c.cbMu.RLock()
	fn := c.onMessageRead
	c.cbMu.RUnlock()
	if fn != nil {
		fn(ev)
	}
}

func (c *Client) fireError(err error) {
	if err == nil {
		return
	}
	c.cbMu.RLock()
	fn := c.onError
	c.cbMu.RUnlock()
	if fn != nil {
		fn(err)
	}
}
