package ws

import (
	"encoding/json"

	"talenthub/internal/app/dto"
)

// Client-to-server event names.
const (
	EventConversationJoin  = "conversation:join"
	EventConversationLeave = "conversation:leave"
	EventMessageSend       = "message:send"
	EventTypingStart       = "typing:start"
	EventTypingStop        = "typing:stop"
	EventMarkRead          = "messages:mark_read"
)

// Server-to-client event names.
const (
	EventMessageNew         = "message:new"
	EventConversationUpdate = "conversation:update"
	EventMessageRead        = "message:read"
	EventUserOnline         = "user:online"
	EventUserOffline        = "user:offline"
	EventError              = "error"
)

// Event is the wire envelope in both directions.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// InboundEvent defers payload decoding until the event name is known.
type InboundEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type conversationPayload struct {
	ConversationID string `json:"conversation_id"`
}

type sendMessagePayload struct {
	ConversationID string           `json:"conversation_id"`
	Text           string           `json:"text"`
	ReplyTo        string           `json:"reply_to,omitempty"`
	Attachments    []dto.Attachment `json:"attachments,omitempty"`
}

type markReadPayload struct {
	ConversationID string `json:"conversation_id"`
	UpToMessageID  string `json:"up_to_message_id,omitempty"`
}

type presencePayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type typingPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

type readReceiptPayload struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	UpToMessageID  string `json:"up_to_message_id,omitempty"`
}

type conversationUpdatePayload struct {
	ConversationID string              `json:"conversation_id"`
	LastMessage    *dto.MessageSummary `json:"last_message,omitempty"`
	UnreadCount    int                 `json:"unread_count"`
}

type errorPayload struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}
