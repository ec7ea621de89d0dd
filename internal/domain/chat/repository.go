package chat

import (
	"context"
	"time"

	"talenthub/internal/domain/user"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 50
)

// ListQuery narrows and pages a listing. Limit is clamped to [1, MaxPageLimit]
// by NormalizedLimit; Cursor nil means first page.
type ListQuery struct {
	Limit  int
	Cursor *Cursor
	// Search matches conversation names case-insensitively. ParticipantIDs,
	// resolved from a directory search upstream, widens the match to
	// conversations involving any of those users.
	Search         string
	ParticipantIDs []user.ID
}

func (q ListQuery) NormalizedLimit() int {
	if q.Limit <= 0 {
		return DefaultPageLimit
	}
	if q.Limit > MaxPageLimit {
		return MaxPageLimit
	}
	return q.Limit
}

// ConversationRepository persists conversation metadata. Create must enforce
// pair-key uniqueness so concurrent duplicate creations collapse to one row.
type ConversationRepository interface {
	ByID(ctx context.Context, id string) (*Conversation, error)
	ByPairKey(ctx context.Context, key string) (*Conversation, error)
	// Create inserts the conversation, failing with a conflict error when
	// another conversation already holds the same pair key.
	Create(ctx context.Context, conv *Conversation) error
	// ListForUser returns up to limit+1 conversations where userID is a
	// participant, newest UpdatedAt first, id descending on ties, strictly
	// older than the cursor.
	ListForUser(ctx context.Context, userID user.ID, q ListQuery) ([]*Conversation, error)
	// RecordMessage applies Conversation.RecordMessage storage-side: last
	// message pointer, unread increments and sender reset in one write.
	RecordMessage(ctx context.Context, conversationID string, msg *Message) error
	// ClearUnread zeroes the unread counter for userID.
	ClearUnread(ctx context.Context, conversationID string, userID user.ID) error
}

// MessageRepository persists individual messages.
type MessageRepository interface {
	ByID(ctx context.Context, id string) (*Message, error)
	Create(ctx context.Context, msg *Message) error
	Update(ctx context.Context, msg *Message) error
	// List returns up to limit+1 messages newest-first using (CreatedAt, ID)
	// cursor semantics.
	List(ctx context.Context, conversationID string, q ListQuery) ([]*Message, error)
	// MarkRead adds userID to the read set of every message in the
	// conversation created at or before upTo (all messages when upTo is
	// zero), returning how many messages changed.
	MarkRead(ctx context.Context, conversationID string, userID user.ID, upTo time.Time) (int, error)
}
