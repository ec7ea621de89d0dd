package ginserver

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	chatservice "talenthub/internal/app/services/chat"
	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
	"talenthub/internal/infra/ws"
)

// ChatHTTP exposes chat endpoints.
type ChatHTTP interface {
	StartConversation(c *gin.Context)
	ListMyConversations(c *gin.Context)
	GetConversation(c *gin.Context)
	OnlineUsers(c *gin.Context)
	SendMessage(c *gin.Context)
	ListMessages(c *gin.Context)
	MarkRead(c *gin.Context)
	EditMessage(c *gin.Context)
	DeleteMessage(c *gin.Context)
	Typing(c *gin.Context)
}

// ChatHandler bridges HTTP with the chat service and the real-time gateway.
type ChatHandler struct {
	Service *chatservice.Service
	Gateway *ws.Gateway
	Logger  *slog.Logger
}

// StartConversation finds or creates a direct conversation with the target
// user. Group conversations are declared in the model but rejected here.
func (h ChatHandler) StartConversation(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req struct {
		UserID  string `json:"user_id"`
		IsGroup bool   `json:"is_group"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if req.IsGroup {
		c.JSON(http.StatusBadRequest, gin.H{"error": "group conversations are not supported"})
		return
	}
	conversation, err := h.Service.StartDirect(c.Request.Context(), p.Actor(), domainuser.ID(strings.TrimSpace(req.UserID)))
	if err != nil {
		h.respondChatError(c, err, "start conversation", "user_id", p.ID, "target_id", req.UserID)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// ListMyConversations returns conversations for the current user (admins may
// pass user_id to inspect another account).
func (h ChatHandler) ListMyConversations(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	params := chatservice.ListConversationsParams{
		Limit:  parsePositiveIntStrict(c.Query("limit"), domainchat.DefaultPageLimit),
		Cursor: c.Query("cursor"),
		Search: c.Query("search"),
	}
	if userFilter := strings.TrimSpace(c.Query("user_id")); userFilter != "" {
		params.ForUser = domainuser.ID(userFilter)
	}
	collection, err := h.Service.ListConversations(c.Request.Context(), p.Actor(), params)
	if err != nil {
		h.respondChatError(c, err, "list conversations", "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, collection)
}

// GetConversation returns one conversation if the user may see it.
func (h ChatHandler) GetConversation(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conversationID := strings.TrimSpace(c.Param("id"))
	conversation, err := h.Service.GetConversation(c.Request.Context(), p.Actor(), conversationID)
	if err != nil {
		h.respondChatError(c, err, "load conversation", "conversation_id", conversationID, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, conversation)
}

// OnlineUsers lists user ids with a live connection in the conversation.
func (h ChatHandler) OnlineUsers(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conversationID := strings.TrimSpace(c.Param("id"))
	if err := h.Service.AuthorizeParticipant(c.Request.Context(), p.Actor(), conversationID); err != nil {
		h.respondChatError(c, err, "online query", "conversation_id", conversationID, "user_id", p.ID)
		return
	}
	if h.Gateway == nil {
		c.JSON(http.StatusOK, gin.H{"online": []string{}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"online": h.Gateway.OnlineUsers(conversationID)})
}

// SendMessage appends a message and fans it out to live connections.
func (h ChatHandler) SendMessage(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req struct {
		ConversationID string `json:"conversation_id"`
		Text           string `json:"text"`
		ReplyTo        string `json:"reply_to"`
		Attachments    []struct {
			URL      string `json:"url"`
			Type     string `json:"type"`
			Name     string `json:"name"`
			Size     int64  `json:"size"`
			MimeType string `json:"mime_type"`
		} `json:"attachments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	attachments := make([]domainchat.Attachment, 0, len(req.Attachments))
	for _, a := range req.Attachments {
		attachments = append(attachments, domainchat.Attachment{
			URL:      a.URL,
			Type:     a.Type,
			Name:     a.Name,
			Size:     a.Size,
			MimeType: a.MimeType,
		})
	}
	message, err := h.Service.AppendMessage(c.Request.Context(), p.Actor(), chatservice.AppendMessageParams{
		ConversationID: req.ConversationID,
		Text:           req.Text,
		Attachments:    attachments,
		ReplyTo:        req.ReplyTo,
	})
	if err != nil {
		h.respondChatError(c, err, "send message", "conversation_id", req.ConversationID, "user_id", p.ID)
		return
	}
	if h.Gateway != nil {
		h.Gateway.FanOutMessage(c.Request.Context(), message, p.Actor().ID)
	}
	c.JSON(http.StatusCreated, message)
}

// ListMessages pages a conversation's messages, oldest-first within the page.
func (h ChatHandler) ListMessages(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conversationID := strings.TrimSpace(c.Param("id"))
	collection, err := h.Service.ListMessages(c.Request.Context(), p.Actor(), chatservice.ListMessagesParams{
		ConversationID: conversationID,
		Limit:          parsePositiveIntStrict(c.Query("limit"), domainchat.DefaultPageLimit),
		Cursor:         c.Query("cursor"),
	})
	if err != nil {
		h.respondChatError(c, err, "list messages", "conversation_id", conversationID, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, collection)
}

// MarkRead marks the conversation read for the current user.
func (h ChatHandler) MarkRead(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	conversationID := strings.TrimSpace(c.Param("id"))
	var req struct {
		UpToMessageID string `json:"up_to_message_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	conversation, err := h.Service.MarkRead(c.Request.Context(), p.Actor(), chatservice.MarkReadParams{
		ConversationID: conversationID,
		UpToMessageID:  req.UpToMessageID,
	})
	if err != nil {
		h.respondChatError(c, err, "mark read", "conversation_id", conversationID, "user_id", p.ID)
		return
	}
	if h.Gateway != nil {
		h.Gateway.BroadcastRead(p.Actor(), conversationID, req.UpToMessageID)
	}
	c.JSON(http.StatusOK, conversation)
}

// EditMessage replaces a message's text.
func (h ChatHandler) EditMessage(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	messageID := strings.TrimSpace(c.Param("id"))
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	message, err := h.Service.EditMessage(c.Request.Context(), p.Actor(), messageID, req.Text)
	if err != nil {
		h.respondChatError(c, err, "edit message", "message_id", messageID, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, message)
}

// DeleteMessage tombstones a message.
func (h ChatHandler) DeleteMessage(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	messageID := strings.TrimSpace(c.Param("id"))
	message, err := h.Service.DeleteMessage(c.Request.Context(), p.Actor(), messageID)
	if err != nil {
		h.respondChatError(c, err, "delete message", "message_id", messageID, "user_id", p.ID)
		return
	}
	c.JSON(http.StatusOK, message)
}

// Typing relays a typing indicator through the gateway. Nothing is persisted.
func (h ChatHandler) Typing(c *gin.Context) {
	p, ok := requireRole(c, "")
	if !ok {
		return
	}
	var req struct {
		ConversationID string `json:"conversation_id"`
		Started        bool   `json:"started"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if h.Gateway == nil {
		c.Status(http.StatusNoContent)
		return
	}
	if err := h.Gateway.BroadcastTyping(c.Request.Context(), p.Actor(), req.ConversationID, req.Started, nil); err != nil {
		h.respondChatError(c, err, "typing", "conversation_id", req.ConversationID, "user_id", p.ID)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h ChatHandler) respondChatError(c *gin.Context, err error, action string, attrs ...any) {
	if h.Logger != nil {
		h.Logger.Error("chat call failed", append([]any{"action", action, "error", err}, attrs...)...)
	}
	switch domainchat.KindOf(err) {
	case domainchat.KindInvalidRequest:
		c.JSON(http.StatusBadRequest, gin.H{"error": chatErrorMessage(err)})
	case domainchat.KindPermissionDenied, domainchat.KindAccessDenied:
		c.JSON(http.StatusForbidden, gin.H{"error": chatErrorMessage(err)})
	case domainchat.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case domainchat.KindConflict:
		c.JSON(http.StatusConflict, gin.H{"error": chatErrorMessage(err)})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func chatErrorMessage(err error) string {
	var chatErr *domainchat.Error
	if errors.As(err, &chatErr) {
		return chatErr.Message
	}
	return "request failed"
}

func parsePositiveIntStrict(raw string, def int) int {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || value <= 0 {
		return def
	}
	return value
}

var _ ChatHTTP = (*ChatHandler)(nil)
