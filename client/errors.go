package client

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when an operation requires a live connection.
	ErrNotConnected = errors.New("not connected")
	// ErrAlreadyConnected is returned when Connect is called twice.
	ErrAlreadyConnected = errors.New("already connected")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("client closed")
	// ErrInvalidConfig is returned for an unusable configuration.
	ErrInvalidConfig = errors.New("invalid config")
)

// ServerError is an error reported by the server over the protocol.
type ServerError struct {
	Code string
	Msg  string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

func fromWireError(we *wireError) *ServerError {
	return &ServerError{Code: we.Code, Msg: we.Msg}
}
