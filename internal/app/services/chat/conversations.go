package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"talenthub/internal/app/dto"
	"talenthub/internal/app/uow"
	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
)

// StartDirect finds or creates the direct conversation between the actor and
// targetID. Idempotent: at most one conversation ever exists per unordered
// pair, enforced by the store's pair-key uniqueness. A losing racer observes
// the conflict and returns the winner's conversation.
func (s *Service) StartDirect(ctx context.Context, actor Actor, targetID domainuser.ID) (*dto.Conversation, error) {
	targetID = domainuser.ID(strings.TrimSpace(string(targetID)))
	if targetID == "" {
		return nil, domainchat.InvalidRequest("target user is required")
	}
	if targetID == actor.ID {
		return nil, domainchat.InvalidRequest("cannot start a conversation with yourself")
	}

	target, err := s.Users.FindUser(ctx, targetID)
	if err != nil || target == nil {
		if err != nil && !errors.Is(err, domainuser.ErrNotFound) {
			return nil, domainchat.Internal("user directory lookup failed", err)
		}
		return nil, domainchat.NotFound("target user does not exist")
	}
	if err := domainchat.AssertCanInitiate(actor.Role, target.Role); err != nil {
		return nil, err
	}

	pairKey := domainchat.PairKeyFor(actor.ID, targetID)
	if conv, err := s.lookupByPairKey(ctx, pairKey); err != nil {
		return nil, err
	} else if conv != nil {
		result := s.conversationDTO(ctx, conv, actor.ID)
		return &result, nil
	}

	conv, err := s.createDirect(ctx, actor, target)
	if err == nil {
		result := s.conversationDTO(ctx, conv, actor.ID)
		return &result, nil
	}
	if !domainchat.IsKind(err, domainchat.KindConflict) {
		return nil, err
	}

	// Lost the creation race; the other caller's conversation must exist now.
	conv, err = s.lookupByPairKey(ctx, pairKey)
	if err != nil {
		return nil, err
	}
	if conv == nil {
		return nil, domainchat.Internal("conversation vanished after creation conflict", nil)
	}
	result := s.conversationDTO(ctx, conv, actor.ID)
	return &result, nil
}

func (s *Service) lookupByPairKey(ctx context.Context, pairKey string) (*domainchat.Conversation, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, domainchat.Internal("begin unit of work", err)
	}
	ctx = unit.InjectContext(ctx)
	defer unit.Rollback(ctx)

	conv, err := unit.Conversations().ByPairKey(ctx, pairKey)
	if err != nil {
		if domainchat.IsKind(err, domainchat.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return conv, nil
}

func (s *Service) createDirect(ctx context.Context, actor Actor, target *domainuser.Profile) (*domainchat.Conversation, error) {
	now := time.Now().UTC()
	conv, err := domainchat.NewDirectConversation(
		uuid.NewString(),
		domainchat.Participant{UserID: actor.ID, Role: domainuser.NormalizeRole(actor.Role), JoinedAt: now},
		domainchat.Participant{UserID: target.ID, Role: domainuser.NormalizeRole(target.Role), JoinedAt: now},
		now,
	)
	if err != nil {
		return nil, err
	}

	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, domainchat.Internal("begin unit of work", err)
	}
	txCtx := unit.InjectContext(ctx)
	if err := unit.Conversations().Create(txCtx, conv); err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if err := unit.Commit(txCtx); err != nil {
		unit.Rollback(txCtx)
		return nil, domainchat.Internal("commit conversation", err)
	}

	s.publish(ctx, EventConversationCreated, conv.ID, conversationCreatedEvent{
		ConversationID: conv.ID,
		Participants:   participantIDs(conv),
		CreatedAt:      conv.CreatedAt,
	})
	return conv, nil
}

// ListConversationsParams pages the caller's conversations. Admins may list
// another user's via ForUser.
type ListConversationsParams struct {
	ForUser domainuser.ID
	Limit   int
	Cursor  string
	Search  string
}

// ListConversations returns conversations where the subject is a participant,
// newest activity first, decorated with the subject's unread counter and the
// other participants' profiles.
func (s *Service) ListConversations(ctx context.Context, actor Actor, params ListConversationsParams) (*dto.ConversationList, error) {
	subject := actor.ID
	if params.ForUser != "" && params.ForUser != actor.ID {
		if !actor.IsAdmin() {
			return nil, domainchat.AccessDenied("cannot list another user's conversations")
		}
		subject = params.ForUser
	}

	cursor, err := domainchat.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := domainchat.ListQuery{
		Limit:  params.Limit,
		Cursor: cursor,
		Search: strings.TrimSpace(params.Search),
	}
	if query.Search != "" {
		profiles, err := s.Users.Search(ctx, query.Search)
		if err != nil {
			return nil, domainchat.Internal("user directory search failed", err)
		}
		for _, p := range profiles {
			query.ParticipantIDs = append(query.ParticipantIDs, p.ID)
		}
	}

	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, domainchat.Internal("begin unit of work", err)
	}
	txCtx := unit.InjectContext(ctx)
	defer unit.Rollback(txCtx)

	conversations, err := unit.Conversations().ListForUser(txCtx, subject, query)
	if err != nil {
		return nil, err
	}

	limit := query.NormalizedLimit()
	hasMore := len(conversations) > limit
	if hasMore {
		conversations = conversations[:limit]
	}

	items := make([]dto.Conversation, 0, len(conversations))
	for _, conv := range conversations {
		items = append(items, s.conversationDTO(ctx, conv, subject))
	}
	page := dto.Pagination{HasMore: hasMore}
	if hasMore && len(conversations) > 0 {
		last := conversations[len(conversations)-1]
		page.NextCursor = domainchat.Cursor{Kind: domainchat.CursorTimestamp, At: last.UpdatedAt, ID: last.ID}.Encode()
	}
	return &dto.ConversationList{Items: items, Pagination: page}, nil
}

// GetConversation returns the conversation when the actor may see it:
// participants and admins only.
func (s *Service) GetConversation(ctx context.Context, actor Actor, conversationID string) (*dto.Conversation, error) {
	conv, err := s.conversationWithAccess(ctx, actor, conversationID)
	if err != nil {
		return nil, err
	}
	result := s.conversationDTO(ctx, conv, actor.ID)
	return &result, nil
}

// AuthorizeParticipant verifies the actor may act inside the conversation.
// The gateway calls this before any room operation.
func (s *Service) AuthorizeParticipant(ctx context.Context, actor Actor, conversationID string) error {
	_, err := s.conversationWithAccess(ctx, actor, conversationID)
	return err
}

// Snapshot returns the raw conversation without an access check. Trusted
// infrastructure only: the gateway's fan-out needs every participant's
// unread counter, not one viewer's decoration.
func (s *Service) Snapshot(ctx context.Context, conversationID string) (*domainchat.Conversation, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, domainchat.Internal("begin unit of work", err)
	}
	txCtx := unit.InjectContext(ctx)
	defer unit.Rollback(txCtx)
	return unit.Conversations().ByID(txCtx, conversationID)
}

func (s *Service) conversationWithAccess(ctx context.Context, actor Actor, conversationID string) (*domainchat.Conversation, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, domainchat.InvalidRequest("conversation id is required")
	}
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, domainchat.Internal("begin unit of work", err)
	}
	txCtx := unit.InjectContext(ctx)
	defer unit.Rollback(txCtx)

	conv, err := unit.Conversations().ByID(txCtx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(actor.ID) && !actor.IsAdmin() {
		return nil, domainchat.AccessDenied("not a conversation participant")
	}
	return conv, nil
}

func participantIDs(conv *domainchat.Conversation) []string {
	ids := make([]string, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		ids = append(ids, string(p.UserID))
	}
	return ids
}
