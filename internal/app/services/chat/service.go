package chat

import (
	"context"
	"log/slog"

	"talenthub/internal/app/dto"
	"talenthub/internal/app/uow"
	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
)

// Actor is the authenticated caller, as resolved by the transport boundary.
type Actor struct {
	ID   domainuser.ID
	Role domainuser.Role
}

func (a Actor) IsAdmin() bool {
	return domainuser.NormalizeRole(a.Role) == domainuser.RoleAdmin
}

// Service orchestrates conversations and messages. All mixed read/write
// operations run inside a unit of work; events and real-time fan-out happen
// strictly after commit.
type Service struct {
	UoW    uow.Factory
	Users  domainuser.Directory
	Events EventPublisher
	Logger *slog.Logger
}

func NewService(factory uow.Factory, users domainuser.Directory, events EventPublisher, logger *slog.Logger) *Service {
	return &Service{UoW: factory, Users: users, Events: events, Logger: logger}
}

// profileOrPlaceholder resolves a participant profile, degrading to a bare id
// when the directory cannot serve it. Listing screens should not fail because
// one profile lookup did.
func (s *Service) profileOrPlaceholder(ctx context.Context, id domainuser.ID, role domainuser.Role) dto.ParticipantProfile {
	profile, err := s.Users.FindUser(ctx, id)
	if err != nil || profile == nil {
		if s.Logger != nil {
			s.Logger.Debug("profile lookup failed", "user_id", id, "error", err)
		}
		return dto.ParticipantProfile{ID: string(id), Role: string(role)}
	}
	return dto.ParticipantProfile{
		ID:          string(profile.ID),
		DisplayName: profile.DisplayName,
		Email:       profile.Email,
		Role:        string(profile.Role),
	}
}

// conversationDTO decorates a conversation for one viewer: their unread
// counter plus resolved participant profiles.
func (s *Service) conversationDTO(ctx context.Context, conv *domainchat.Conversation, viewer domainuser.ID) dto.Conversation {
	participants := make([]dto.ParticipantProfile, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		participants = append(participants, s.profileOrPlaceholder(ctx, p.UserID, p.Role))
	}
	out := dto.Conversation{
		ID:           conv.ID,
		IsGroup:      conv.IsGroup,
		Name:         conv.Name,
		Participants: participants,
		UnreadCount:  conv.UnreadFor(viewer),
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
	if conv.LastMessage != nil {
		out.LastMessage = &dto.MessageSummary{
			ID:        conv.LastMessage.ID,
			SenderID:  string(conv.LastMessage.SenderID),
			Text:      conv.LastMessage.Text,
			CreatedAt: conv.LastMessage.CreatedAt,
		}
	}
	return out
}

func (s *Service) messageDTO(ctx context.Context, m *domainchat.Message, reply *domainchat.Message) dto.ChatMessage {
	sender := s.profileOrPlaceholder(ctx, m.SenderID, "")
	readBy := make([]string, 0, len(m.ReadBy))
	for _, id := range m.ReadBy {
		readBy = append(readBy, string(id))
	}
	attachments := make([]dto.Attachment, 0, len(m.Attachments))
	for _, a := range m.Attachments {
		attachments = append(attachments, dto.Attachment{
			URL:      a.URL,
			Type:     a.Type,
			Name:     a.Name,
			Size:     a.Size,
			MimeType: a.MimeType,
		})
	}
	out := dto.ChatMessage{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       string(m.SenderID),
		Sender:         &sender,
		Text:           m.Text,
		Attachments:    attachments,
		ReadBy:         readBy,
		Status:         string(m.Status),
		Edited:         m.Edited(),
		EditedAt:       m.EditedAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
	if reply != nil {
		nested := s.messageDTO(ctx, reply, nil)
		out.ReplyTo = &nested
	}
	return out
}

func (s *Service) logWarn(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Warn(msg, args...)
	}
}
