package chat

import (
	"sort"
	"strings"
	"time"

	"talenthub/internal/domain/user"
)

// Participant records one member of a conversation.
type Participant struct {
	UserID   user.ID
	Role     user.Role
	JoinedAt time.Time
}

// MessageSummary is the denormalized last-message pointer carried on a
// conversation for listing screens.
type MessageSummary struct {
	ID        string
	SenderID  user.ID
	Text      string
	CreatedAt time.Time
}

// Conversation is the chat thread aggregate. Group conversations are declared
// in the model but rejected at every boundary; only two-party direct
// conversations are created.
type Conversation struct {
	ID           string
	IsGroup      bool
	Name         string
	PairKey      string
	Participants []Participant
	Unread       map[user.ID]int
	LastMessage  *MessageSummary
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PairKeyFor derives the uniqueness key for a direct conversation: the two
// user ids sorted and joined, so {A,B} and {B,A} collide.
func PairKeyFor(a, b user.ID) string {
	ids := []string{string(a), string(b)}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// NewDirectConversation builds a two-party conversation with unread counters
// initialized to zero for both sides.
func NewDirectConversation(id string, a Participant, b Participant, now time.Time) (*Conversation, error) {
	if strings.TrimSpace(id) == "" {
		return nil, InvalidRequest("conversation id is required")
	}
	if a.UserID == "" || b.UserID == "" {
		return nil, InvalidRequest("both participants are required")
	}
	if a.UserID == b.UserID {
		return nil, InvalidRequest("cannot start a conversation with yourself")
	}
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	if a.JoinedAt.IsZero() {
		a.JoinedAt = now
	}
	if b.JoinedAt.IsZero() {
		b.JoinedAt = now
	}
	return &Conversation{
		ID:           id,
		PairKey:      PairKeyFor(a.UserID, b.UserID),
		Participants: []Participant{a, b},
		Unread:       map[user.ID]int{a.UserID: 0, b.UserID: 0},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// HasParticipant reports whether id is a current member.
func (c *Conversation) HasParticipant(id user.ID) bool {
	for _, p := range c.Participants {
		if p.UserID == id {
			return true
		}
	}
	return false
}

// OtherParticipants returns every member except id.
func (c *Conversation) OtherParticipants(id user.ID) []Participant {
	others := make([]Participant, 0, len(c.Participants))
	for _, p := range c.Participants {
		if p.UserID != id {
			others = append(others, p)
		}
	}
	return others
}

// UnreadFor returns the unread counter for id, zero for unknown members.
func (c *Conversation) UnreadFor(id user.ID) int {
	if c.Unread == nil {
		return 0
	}
	return c.Unread[id]
}

// RecordMessage moves the last-message pointer and advances unread counters:
// every participant except the sender gains one, the sender drops to zero.
func (c *Conversation) RecordMessage(m *Message) {
	if c.Unread == nil {
		c.Unread = make(map[user.ID]int, len(c.Participants))
	}
	for _, p := range c.Participants {
		if p.UserID == m.SenderID {
			c.Unread[p.UserID] = 0
			continue
		}
		c.Unread[p.UserID]++
	}
	c.LastMessage = &MessageSummary{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Text:      snippet(m.Text, 500),
		CreatedAt: m.CreatedAt,
	}
	c.UpdatedAt = m.CreatedAt
}

// ClearUnread zeroes the counter for id.
func (c *Conversation) ClearUnread(id user.ID) {
	if c.Unread == nil {
		c.Unread = make(map[user.ID]int, len(c.Participants))
	}
	if c.HasParticipant(id) {
		c.Unread[id] = 0
	}
}

// Clone deep-copies the aggregate so store snapshots stay isolated.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Participants = append([]Participant(nil), c.Participants...)
	out.Unread = make(map[user.ID]int, len(c.Unread))
	for k, v := range c.Unread {
		out.Unread[k] = v
	}
	if c.LastMessage != nil {
		last := *c.LastMessage
		out.LastMessage = &last
	}
	return &out
}

func snippet(text string, max int) string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max])
}
