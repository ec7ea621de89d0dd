package chat

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"talenthub/internal/app/dto"
	"talenthub/internal/app/uow"
	domainchat "talenthub/internal/domain/chat"
)

// AppendMessageParams describes one message append.
type AppendMessageParams struct {
	ConversationID string
	Text           string
	Attachments    []domainchat.Attachment
	ReplyTo        string
}

// AppendMessage persists a message and the conversation bookkeeping that goes
// with it — last-message pointer, unread increments, sender reset — in one
// atomic unit. Either all of it commits or none of it does.
func (s *Service) AppendMessage(ctx context.Context, actor Actor, params AppendMessageParams) (*dto.ChatMessage, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, domainchat.Internal("begin unit of work", err)
	}
	txCtx := unit.InjectContext(ctx)

	conv, err := unit.Conversations().ByID(txCtx, strings.TrimSpace(params.ConversationID))
	if err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if !conv.HasParticipant(actor.ID) {
		unit.Rollback(txCtx)
		return nil, domainchat.AccessDenied("not a conversation participant")
	}

	var reply *domainchat.Message
	if strings.TrimSpace(params.ReplyTo) != "" {
		reply, err = unit.Messages().ByID(txCtx, strings.TrimSpace(params.ReplyTo))
		if err != nil || reply.ConversationID != conv.ID {
			unit.Rollback(txCtx)
			return nil, domainchat.InvalidRequest("reply target is not part of this conversation")
		}
	}

	msg, err := domainchat.NewMessage(domainchat.NewMessageParams{
		ID:             uuid.NewString(),
		ConversationID: conv.ID,
		SenderID:       actor.ID,
		Text:           params.Text,
		Attachments:    params.Attachments,
		ReplyTo:        strings.TrimSpace(params.ReplyTo),
	})
	if err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}

	if err := unit.Messages().Create(txCtx, msg); err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if err := unit.Conversations().RecordMessage(txCtx, conv.ID, msg); err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if err := unit.Commit(txCtx); err != nil {
		unit.Rollback(txCtx)
		return nil, domainchat.Internal("commit message append", err)
	}

	s.publish(ctx, EventMessageCreated, conv.ID, messageCreatedEvent{
		MessageID:      msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       string(msg.SenderID),
		CreatedAt:      msg.CreatedAt,
	})

	result := s.messageDTO(ctx, msg, reply)
	return &result, nil
}

// ListMessagesParams pages one conversation's messages.
type ListMessagesParams struct {
	ConversationID string
	Limit          int
	Cursor         string
}

// ListMessages pages newest-first over (CreatedAt, ID), then reverses the
// page so callers render oldest-first. The reversal is presentation only; the
// cursor contract stays descending.
func (s *Service) ListMessages(ctx context.Context, actor Actor, params ListMessagesParams) (*dto.ChatMessageList, error) {
	conv, err := s.conversationWithAccess(ctx, actor, params.ConversationID)
	if err != nil {
		return nil, err
	}
	cursor, err := domainchat.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	query := domainchat.ListQuery{Limit: params.Limit, Cursor: cursor}

	unit, err := s.UoW.Begin(ctx, uow.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, domainchat.Internal("begin unit of work", err)
	}
	txCtx := unit.InjectContext(ctx)
	defer unit.Rollback(txCtx)

	messages, err := unit.Messages().List(txCtx, conv.ID, query)
	if err != nil {
		return nil, err
	}

	limit := query.NormalizedLimit()
	hasMore := len(messages) > limit
	if hasMore {
		messages = messages[:limit]
	}
	page := dto.Pagination{HasMore: hasMore}
	if hasMore && len(messages) > 0 {
		last := messages[len(messages)-1]
		page.NextCursor = domainchat.Cursor{Kind: domainchat.CursorTimestamp, At: last.CreatedAt, ID: last.ID}.Encode()
	}

	// Oldest-first within the page for display.
	items := make([]dto.ChatMessage, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		reply := s.resolveReply(txCtx, unit, messages[i])
		items = append(items, s.messageDTO(ctx, messages[i], reply))
	}
	return &dto.ChatMessageList{Items: items, Pagination: page}, nil
}

func (s *Service) resolveReply(ctx context.Context, unit uow.UnitOfWork, m *domainchat.Message) *domainchat.Message {
	if m.ReplyTo == "" {
		return nil
	}
	reply, err := unit.Messages().ByID(ctx, m.ReplyTo)
	if err != nil {
		return nil
	}
	return reply
}

// MarkReadParams scopes a read marking. An empty UpToMessageID marks the
// whole conversation.
type MarkReadParams struct {
	ConversationID string
	UpToMessageID  string
}

// MarkRead adds the actor to the read set of every qualifying message and
// zeroes their unread counter, atomically.
func (s *Service) MarkRead(ctx context.Context, actor Actor, params MarkReadParams) (*dto.Conversation, error) {
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, domainchat.Internal("begin unit of work", err)
	}
	txCtx := unit.InjectContext(ctx)

	conv, err := unit.Conversations().ByID(txCtx, strings.TrimSpace(params.ConversationID))
	if err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if !conv.HasParticipant(actor.ID) {
		unit.Rollback(txCtx)
		return nil, domainchat.AccessDenied("not a conversation participant")
	}

	var upTo time.Time
	if strings.TrimSpace(params.UpToMessageID) != "" {
		marker, err := unit.Messages().ByID(txCtx, strings.TrimSpace(params.UpToMessageID))
		if err != nil {
			unit.Rollback(txCtx)
			return nil, err
		}
		if marker.ConversationID != conv.ID {
			unit.Rollback(txCtx)
			return nil, domainchat.InvalidRequest("message is not part of this conversation")
		}
		upTo = marker.CreatedAt
	}

	if _, err := unit.Messages().MarkRead(txCtx, conv.ID, actor.ID, upTo); err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if err := unit.Conversations().ClearUnread(txCtx, conv.ID, actor.ID); err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if err := unit.Commit(txCtx); err != nil {
		unit.Rollback(txCtx)
		return nil, domainchat.Internal("commit mark read", err)
	}

	conv.ClearUnread(actor.ID)
	result := s.conversationDTO(ctx, conv, actor.ID)
	return &result, nil
}

// EditMessage replaces a message's text. Only the original sender may edit,
// and a deleted message stays deleted.
func (s *Service) EditMessage(ctx context.Context, actor Actor, messageID, text string) (*dto.ChatMessage, error) {
	return s.mutateMessage(ctx, actor, messageID, func(m *domainchat.Message) error {
		if m.SenderID != actor.ID {
			return domainchat.AccessDenied("only the sender can edit a message")
		}
		return m.Edit(text, time.Now())
	})
}

// DeleteMessage tombstones a message. The sender or an administrator may
// delete; the tombstone is terminal.
func (s *Service) DeleteMessage(ctx context.Context, actor Actor, messageID string) (*dto.ChatMessage, error) {
	return s.mutateMessage(ctx, actor, messageID, func(m *domainchat.Message) error {
		if m.SenderID != actor.ID && !actor.IsAdmin() {
			return domainchat.AccessDenied("only the sender or an admin can delete a message")
		}
		m.Delete(time.Now())
		return nil
	})
}

func (s *Service) mutateMessage(ctx context.Context, actor Actor, messageID string, mutate func(*domainchat.Message) error) (*dto.ChatMessage, error) {
	messageID = strings.TrimSpace(messageID)
	if messageID == "" {
		return nil, domainchat.InvalidRequest("message id is required")
	}
	unit, err := s.UoW.Begin(ctx, uow.TxOptions{})
	if err != nil {
		return nil, domainchat.Internal("begin unit of work", err)
	}
	txCtx := unit.InjectContext(ctx)

	msg, err := unit.Messages().ByID(txCtx, messageID)
	if err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if err := mutate(msg); err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if err := unit.Messages().Update(txCtx, msg); err != nil {
		unit.Rollback(txCtx)
		return nil, err
	}
	if err := unit.Commit(txCtx); err != nil {
		unit.Rollback(txCtx)
		return nil, domainchat.Internal("commit message update", err)
	}

	result := s.messageDTO(ctx, msg, nil)
	return &result, nil
}
