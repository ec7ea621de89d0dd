package chat

import (
	"strings"
	"time"

	"talenthub/internal/domain/user"
)

// DeletedTombstone replaces the text of a removed message. There is exactly
// one removal path, so exactly one tombstone string.
const DeletedTombstone = "This message was deleted"

type MessageStatus string

const (
	StatusActive  MessageStatus = "active"
	StatusEdited  MessageStatus = "edited"
	StatusDeleted MessageStatus = "deleted"
)

// Attachment is file metadata carried on a message. Storage of the bytes is
// someone else's problem.
type Attachment struct {
	URL      string
	Type     string
	Name     string
	Size     int64
	MimeType string
}

// Message is a single chat entry. CreatedAt is set once and never changes;
// ordering and cursors rely on (CreatedAt, ID).
type Message struct {
	ID             string
	ConversationID string
	SenderID       user.ID
	Text           string
	Attachments    []Attachment
	ReadBy         []user.ID
	Status         MessageStatus
	EditedAt       *time.Time
	ReplyTo        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type NewMessageParams struct {
	ID             string
	ConversationID string
	SenderID       user.ID
	Text           string
	Attachments    []Attachment
	ReplyTo        string
	Now            time.Time
}

// NewMessage validates and builds a message. Text is sanitized here so no
// other path can persist unsanitized content.
func NewMessage(params NewMessageParams) (*Message, error) {
	if strings.TrimSpace(params.ID) == "" {
		return nil, InvalidRequest("message id is required")
	}
	if strings.TrimSpace(params.ConversationID) == "" {
		return nil, InvalidRequest("conversation id is required")
	}
	if params.SenderID == "" {
		return nil, InvalidRequest("sender is required")
	}
	text := SanitizeText(params.Text)
	if text == "" && len(params.Attachments) == 0 {
		return nil, InvalidRequest("message text is required")
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	return &Message{
		ID:             params.ID,
		ConversationID: params.ConversationID,
		SenderID:       params.SenderID,
		Text:           text,
		Attachments:    append([]Attachment(nil), params.Attachments...),
		ReadBy:         []user.ID{params.SenderID},
		Status:         StatusActive,
		ReplyTo:        strings.TrimSpace(params.ReplyTo),
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Edit replaces the text. Deleted messages are terminal and cannot be edited.
func (m *Message) Edit(text string, now time.Time) error {
	if m.Status == StatusDeleted {
		return InvalidRequest("message has been deleted")
	}
	text = SanitizeText(text)
	if text == "" {
		return InvalidRequest("message text is required")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	m.Text = text
	m.Status = StatusEdited
	m.EditedAt = &now
	m.UpdatedAt = now
	return nil
}

// Delete tombstones the message. Idempotent: deleting twice is a no-op.
func (m *Message) Delete(now time.Time) {
	if m.Status == StatusDeleted {
		return
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	m.Text = DeletedTombstone
	m.Attachments = nil
	m.Status = StatusDeleted
	m.EditedAt = &now
	m.UpdatedAt = now
}

// MarkReadBy adds id to the read set. The set only ever grows.
func (m *Message) MarkReadBy(id user.ID) bool {
	for _, existing := range m.ReadBy {
		if existing == id {
			return false
		}
	}
	m.ReadBy = append(m.ReadBy, id)
	return true
}

// WasReadBy reports membership in the read set.
func (m *Message) WasReadBy(id user.ID) bool {
	for _, existing := range m.ReadBy {
		if existing == id {
			return true
		}
	}
	return false
}

// Edited reports whether the message left its created state.
func (m *Message) Edited() bool {
	return m.Status == StatusEdited || m.Status == StatusDeleted
}

// Clone deep-copies the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	out := *m
	out.Attachments = append([]Attachment(nil), m.Attachments...)
	out.ReadBy = append([]user.ID(nil), m.ReadBy...)
	if m.EditedAt != nil {
		at := *m.EditedAt
		out.EditedAt = &at
	}
	return &out
}
