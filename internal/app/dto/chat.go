package dto

import "time"

// ParticipantProfile is the directory data shown next to a conversation.
type ParticipantProfile struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
	Role        string `json:"role"`
}

// MessageSummary is the last-message preview on a conversation row.
type MessageSummary struct {
	ID        string    `json:"id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation describes chat metadata decorated for one caller.
type Conversation struct {
	ID           string               `json:"id"`
	IsGroup      bool                 `json:"is_group"`
	Name         string               `json:"name,omitempty"`
	Participants []ParticipantProfile `json:"participants"`
	UnreadCount  int                  `json:"unread_count"`
	LastMessage  *MessageSummary      `json:"last_message,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// Pagination reports the cursor state of a page.
type Pagination struct {
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// ConversationList is a paginated collection.
type ConversationList struct {
	Items      []Conversation `json:"items"`
	Pagination Pagination     `json:"pagination"`
}

// Attachment mirrors stored attachment metadata.
type Attachment struct {
	URL      string `json:"url"`
	Type     string `json:"type"`
	Name     string `json:"name,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// ChatMessage contains a single message payload.
type ChatMessage struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversation_id"`
	SenderID       string              `json:"sender_id"`
	Sender         *ParticipantProfile `json:"sender,omitempty"`
	Text           string              `json:"text"`
	Attachments    []Attachment        `json:"attachments,omitempty"`
	ReadBy         []string            `json:"read_by"`
	Status         string              `json:"status"`
	Edited         bool                `json:"edited"`
	EditedAt       *time.Time          `json:"edited_at,omitempty"`
	ReplyTo        *ChatMessage        `json:"reply_to,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// ChatMessageList is a paginated message list, chronological within the page.
type ChatMessageList struct {
	Items      []ChatMessage `json:"items"`
	Pagination Pagination    `json:"pagination"`
}
