package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeValidation           = "validation_error"
	ErrCodeAuthorization        = "authorization_error"
	ErrCodePersistence          = "persistence_error"
	ErrCodeTransport            = "transport_error"
	ErrCodeUnauthorized         = "unauthorized"
	ErrCodeBadRequest           = "bad_request"
	ErrCodeConversationNotFound = "conversation_not_found"
	ErrCodeMessageNotFound      = "message_not_found"
)

var (
	ErrEmptyMessage     = errors.New("empty message body")
	ErrNotParticipant   = errors.New("author is not a conversation participant")
	ErrConversationGone = errors.New("conversation not found")
)

// CoreError wraps a code and human-readable message. Errors are scoped
// to the requesting connection; one client's failure never affects
// another's registry entry or message flow.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
