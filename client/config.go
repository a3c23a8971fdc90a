package client

import "time"

// Config controls the realtime client.
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL string
	// Token is the JWT presented in the hello handshake.
	Token string

	// HandshakeTimeout bounds dialing plus hello. Zero disables it.
	HandshakeTimeout time.Duration
	// WriteTimeout bounds a single outbound frame. Zero disables it.
	WriteTimeout time.Duration

	// Reconnect enables automatic reconnection with exponential backoff.
	Reconnect bool
	// ReconnectMinDelay is the first backoff delay.
	ReconnectMinDelay time.Duration
	// ReconnectMaxDelay caps the backoff.
	ReconnectMaxDelay time.Duration
}

// DefaultConfig returns a config with sensible defaults. URL and Token
// must still be set by the caller.
func DefaultConfig() Config {
	return Config{
		HandshakeTimeout:  10 * time.Second,
		WriteTimeout:      10 * time.Second,
		Reconnect:         true,
		ReconnectMinDelay: time.Second,
		ReconnectMaxDelay: 30 * time.Second,
	}
}
