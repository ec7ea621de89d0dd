package memory

import (
	"context"
	"sort"
	"time"

	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
)

type messageRepository struct {
	unit *Unit
}

func (r *messageRepository) ByID(ctx context.Context, id string) (*domainchat.Message, error) {
	msg, ok := r.unit.store.messages[id]
	if !ok {
		return nil, domainchat.NotFound("message not found")
	}
	return msg.Clone(), nil
}

func (r *messageRepository) Create(ctx context.Context, msg *domainchat.Message) error {
	store := r.unit.store
	if _, exists := store.messages[msg.ID]; exists {
		return domainchat.Conflict("message id already in use")
	}
	store.messages[msg.ID] = msg.Clone()
	store.byConversation[msg.ConversationID] = append(store.byConversation[msg.ConversationID], msg.ID)
	r.unit.record(func() {
		delete(store.messages, msg.ID)
		ids := store.byConversation[msg.ConversationID]
		for i, id := range ids {
			if id == msg.ID {
				store.byConversation[msg.ConversationID] = append(ids[:i], ids[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *messageRepository) Update(ctx context.Context, msg *domainchat.Message) error {
	store := r.unit.store
	prior, ok := store.messages[msg.ID]
	if !ok {
		return domainchat.NotFound("message not found")
	}
	store.messages[msg.ID] = msg.Clone()
	r.unit.record(func() {
		store.messages[msg.ID] = prior
	})
	return nil
}

func (r *messageRepository) List(ctx context.Context, conversationID string, q domainchat.ListQuery) ([]*domainchat.Message, error) {
	store := r.unit.store
	matches := make([]*domainchat.Message, 0)
	for _, id := range store.byConversation[conversationID] {
		msg := store.messages[id]
		if msg == nil {
			continue
		}
		if !q.Cursor.Before(msg.CreatedAt, msg.ID) {
			continue
		}
		matches = append(matches, msg)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].CreatedAt.Equal(matches[j].CreatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})

	limit := q.NormalizedLimit() + 1
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]*domainchat.Message, 0, len(matches))
	for _, msg := range matches {
		out = append(out, msg.Clone())
	}
	return out, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID string, userID domainuser.ID, upTo time.Time) (int, error) {
	store := r.unit.store
	changed := 0
	for _, id := range store.byConversation[conversationID] {
		msg := store.messages[id]
		if msg == nil {
			continue
		}
		if !upTo.IsZero() && msg.CreatedAt.After(upTo) {
			continue
		}
		if msg.WasReadBy(userID) {
			continue
		}
		prior := msg.Clone()
		msg.MarkReadBy(userID)
		messageID := id
		r.unit.record(func() {
			store.messages[messageID] = prior
		})
		changed++
	}
	return changed, nil
}

var _ domainchat.MessageRepository = (*messageRepository)(nil)
