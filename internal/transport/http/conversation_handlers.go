package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/innerview/realtime-server/internal/config"
	"github.com/innerview/realtime-server/internal/store"
)

// ConversationHandlers provides HTTP handlers for conversation
// management and message history. History is the REST side of the
// realtime channel: clients that were offline catch up here.
type ConversationHandlers struct {
	store store.Store
	cfg   *config.Config
	log   *zerolog.Logger
}

// NewConversationHandlers creates a new conversation handlers instance.
func NewConversationHandlers(st store.Store, cfg *config.Config, logger *zerolog.Logger) *ConversationHandlers {
	return &ConversationHandlers{
		store: st,
		cfg:   cfg,
		log:   logger,
	}
}

// CreateConversationRequest represents the create conversation request body.
type CreateConversationRequest struct {
	PeerID int64 `json:"peer_id" binding:"required"`
}

// ConversationResponse represents a conversation in API responses.
type ConversationResponse struct {
	ID             int64  `json:"id"`
	PractitionerID int64  `json:"practitioner_id"`
	ClientID       int64  `json:"client_id"`
	PeerID         int64  `json:"peer_id,omitempty"`
	UnreadCount    int64  `json:"unread_count"`
	CreatedAt      string `json:"created_at"`
	LastMessageAt  string `json:"last_message_at,omitempty"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID             int64  `json:"id"`
	ConversationID int64  `json:"conversation_id"`
	AuthorID       int64  `json:"author_id"`
	Body           string `json:"body"`
	CreatedAt      string `json:"created_at"`
	ReadAt         string `json:"read_at,omitempty"`
}

// CreateConversation pairs the authenticated user with a peer. The
// practitioner side of the pair is taken from the caller's role.
// POST /api/conversations
func (h *ConversationHandlers) CreateConversation(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create conversation request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.PeerID == userID {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "cannot start a conversation with yourself"})
		return
	}

	peer, err := h.store.GetUserByID(c.Request.Context(), req.PeerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "peer not found"})
			return
		}
		h.log.Error().Err(err).Int64("peer_id", req.PeerID).Msg("failed to load peer")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	role, _ := c.Get(ContextKeyRole)
	practitionerID, clientID := userID, req.PeerID
	if role != string(store.RolePractitioner) {
		if peer.Role != store.RolePractitioner {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "conversation requires a practitioner and a client"})
			return
		}
		practitionerID, clientID = req.PeerID, userID
	} else if peer.Role != store.RoleClient {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "conversation requires a practitioner and a client"})
		return
	}

	conv, err := h.store.CreateConversation(c.Request.Context(), practitionerID, clientID)
	if err != nil {
		h.log.Error().Err(err).
			Int64("practitioner_id", practitionerID).
			Int64("client_id", clientID).
			Msg("failed to create conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Int64("conversation_id", conv.ID).Msg("conversation created")
	c.JSON(http.StatusCreated, conversationResponse(conv, userID, 0))
}

// ListConversations returns the caller's conversations with unread counts.
// GET /api/conversations
func (h *ConversationHandlers) ListConversations(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	sums, err := h.store.ListConversations(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", userID).Msg("failed to list conversations")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ConversationResponse, 0, len(sums))
	for _, sum := range sums {
		response = append(response, conversationResponse(&sum.Conversation, userID, sum.UnreadCount))
	}
	c.JSON(http.StatusOK, response)
}

// ListMessages returns a page of conversation history in ascending id
// order. Query params: before (message id, optional), limit (optional).
// GET /api/conversations/:id/messages
func (h *ConversationHandlers) ListMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid conversation id"})
		return
	}

	conv, err := h.store.GetConversation(c.Request.Context(), conversationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "conversation not found"})
			return
		}
		h.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to load conversation")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !conv.HasParticipant(userID) {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a conversation participant"})
		return
	}

	beforeID, _ := strconv.ParseInt(c.Query("before"), 10, 64)
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 || limit > h.cfg.HistoryPageSize {
		limit = h.cfg.HistoryPageSize
	}

	msgs, err := h.store.ListMessages(c.Request.Context(), conversationID, beforeID, limit)
	if err != nil {
		h.log.Error().Err(err).Int64("conversation_id", conversationID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(msgs))
	for i := range msgs {
		response = append(response, messageResponse(&msgs[i]))
	}
	c.JSON(http.StatusOK, response)
}

func conversationResponse(conv *store.Conversation, viewerID, unread int64) ConversationResponse {
	resp := ConversationResponse{
		ID:             conv.ID,
		PractitionerID: conv.PractitionerID,
		ClientID:       conv.ClientID,
		PeerID:         conv.Peer(viewerID),
		UnreadCount:    unread,
		CreatedAt:      conv.CreatedAt.Format(time.RFC3339),
	}
	if conv.LastMessageAt != nil {
		resp.LastMessageAt = conv.LastMessageAt.Format(time.RFC3339)
	}
	return resp
}

func messageResponse(msg *store.Message) MessageResponse {
	resp := MessageResponse{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		AuthorID:       msg.AuthorID,
		Body:           msg.Body,
		CreatedAt:      msg.CreatedAt.Format(time.RFC3339),
	}
	if msg.ReadAt != nil {
		resp.ReadAt = msg.ReadAt.Format(time.RFC3339)
	}
	return resp
}
