package chat

import (
	"context"
	"encoding/json"
	"time"
)

// Event types published after a write commits. Delivery is best effort: a
// failed publish is logged and the operation still succeeds.
const (
	EventConversationCreated = "chat.conversation.created"
	EventMessageCreated      = "chat.message.created"
)

// EventPublisher pushes committed chat events to the broker. Implementations
// must be safe for concurrent use.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, payload []byte) error
}

type conversationCreatedEvent struct {
	ConversationID string    `json:"conversation_id"`
	Participants   []string  `json:"participants"`
	CreatedAt      time.Time `json:"created_at"`
}

type messageCreatedEvent struct {
	MessageID      string    `json:"message_id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (s *Service) publish(ctx context.Context, eventType, key string, payload any) {
	if s.Events == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logWarn("event encode failed", "event", eventType, "error", err)
		return
	}
	if err := s.Events.Publish(ctx, eventType, key, data); err != nil {
		s.logWarn("event publish failed", "event", eventType, "key", key, "error", err)
	}
}
