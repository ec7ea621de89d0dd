package memory

import (
	"context"
	"sort"
	"strings"

	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
)

type conversationRepository struct {
	unit *Unit
}

func (r *conversationRepository) ByID(ctx context.Context, id string) (*domainchat.Conversation, error) {
	conv, ok := r.unit.store.conversations[id]
	if !ok {
		return nil, domainchat.NotFound("conversation not found")
	}
	return conv.Clone(), nil
}

func (r *conversationRepository) ByPairKey(ctx context.Context, key string) (*domainchat.Conversation, error) {
	id, ok := r.unit.store.pairIndex[key]
	if !ok {
		return nil, domainchat.NotFound("conversation not found")
	}
	return r.ByID(ctx, id)
}

func (r *conversationRepository) Create(ctx context.Context, conv *domainchat.Conversation) error {
	store := r.unit.store
	if conv.PairKey != "" {
		if _, exists := store.pairIndex[conv.PairKey]; exists {
			return domainchat.Conflict("conversation already exists for this pair")
		}
	}
	if _, exists := store.conversations[conv.ID]; exists {
		return domainchat.Conflict("conversation id already in use")
	}

	stored := conv.Clone()
	store.conversations[conv.ID] = stored
	if conv.PairKey != "" {
		store.pairIndex[conv.PairKey] = conv.ID
	}
	r.unit.record(func() {
		delete(store.conversations, conv.ID)
		if conv.PairKey != "" {
			delete(store.pairIndex, conv.PairKey)
		}
	})
	return nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID domainuser.ID, q domainchat.ListQuery) ([]*domainchat.Conversation, error) {
	store := r.unit.store
	matches := make([]*domainchat.Conversation, 0)
	for _, conv := range store.conversations {
		if !conv.HasParticipant(userID) {
			continue
		}
		if !matchesSearch(conv, q) {
			continue
		}
		if !q.Cursor.Before(conv.UpdatedAt, conv.ID) {
			continue
		}
		matches = append(matches, conv)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].UpdatedAt.Equal(matches[j].UpdatedAt) {
			return matches[i].ID > matches[j].ID
		}
		return matches[i].UpdatedAt.After(matches[j].UpdatedAt)
	})

	limit := q.NormalizedLimit() + 1
	if len(matches) > limit {
		matches = matches[:limit]
	}
	out := make([]*domainchat.Conversation, 0, len(matches))
	for _, conv := range matches {
		out = append(out, conv.Clone())
	}
	return out, nil
}

func (r *conversationRepository) RecordMessage(ctx context.Context, conversationID string, msg *domainchat.Message) error {
	store := r.unit.store
	if err := store.takeConversationFault(); err != nil {
		return err
	}
	conv, ok := store.conversations[conversationID]
	if !ok {
		return domainchat.NotFound("conversation not found")
	}
	prior := conv.Clone()
	conv.RecordMessage(msg)
	r.unit.record(func() {
		store.conversations[conversationID] = prior
	})
	return nil
}

func (r *conversationRepository) ClearUnread(ctx context.Context, conversationID string, userID domainuser.ID) error {
	store := r.unit.store
	if err := store.takeConversationFault(); err != nil {
		return err
	}
	conv, ok := store.conversations[conversationID]
	if !ok {
		return domainchat.NotFound("conversation not found")
	}
	prior := conv.Clone()
	conv.ClearUnread(userID)
	r.unit.record(func() {
		store.conversations[conversationID] = prior
	})
	return nil
}

func matchesSearch(conv *domainchat.Conversation, q domainchat.ListQuery) bool {
	if q.Search == "" {
		return true
	}
	if strings.Contains(strings.ToLower(conv.Name), strings.ToLower(q.Search)) {
		return true
	}
	for _, id := range q.ParticipantIDs {
		if conv.HasParticipant(id) {
			return true
		}
	}
	return false
}

var _ domainchat.ConversationRepository = (*conversationRepository)(nil)
