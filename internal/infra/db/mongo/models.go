package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
)

const (
	conversationCollection = "conversations"
	messageCollection      = "messages"
)

type participantDoc struct {
	UserID   string    `bson:"user_id"`
	Role     string    `bson:"role"`
	JoinedAt time.Time `bson:"joined_at"`
}

type messageSummaryDoc struct {
	ID        string    `bson:"id"`
	SenderID  string    `bson:"sender_id"`
	Text      string    `bson:"text"`
	CreatedAt time.Time `bson:"created_at"`
}

type conversationDoc struct {
	ID           string             `bson:"_id"`
	IsGroup      bool               `bson:"is_group"`
	Name         string             `bson:"name,omitempty"`
	PairKey      string             `bson:"pair_key,omitempty"`
	Participants []participantDoc   `bson:"participants"`
	Unread       map[string]int     `bson:"unread"`
	LastMessage  *messageSummaryDoc `bson:"last_message,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
	UpdatedAt    time.Time          `bson:"updated_at"`
}

type attachmentDoc struct {
	URL      string `bson:"url"`
	Type     string `bson:"type"`
	Name     string `bson:"name,omitempty"`
	Size     int64  `bson:"size,omitempty"`
	MimeType string `bson:"mime_type,omitempty"`
}

type messageDoc struct {
	ID             string          `bson:"_id"`
	ConversationID string          `bson:"conversation_id"`
	SenderID       string          `bson:"sender_id"`
	Text           string          `bson:"text"`
	Attachments    []attachmentDoc `bson:"attachments,omitempty"`
	ReadBy         []string        `bson:"read_by"`
	Status         string          `bson:"status"`
	EditedAt       *time.Time      `bson:"edited_at,omitempty"`
	ReplyTo        string          `bson:"reply_to,omitempty"`
	CreatedAt      time.Time       `bson:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at"`
}

func toConversationDoc(conv *domainchat.Conversation) conversationDoc {
	participants := make([]participantDoc, 0, len(conv.Participants))
	for _, p := range conv.Participants {
		participants = append(participants, participantDoc{
			UserID:   string(p.UserID),
			Role:     string(p.Role),
			JoinedAt: p.JoinedAt,
		})
	}
	unread := make(map[string]int, len(conv.Unread))
	for id, count := range conv.Unread {
		unread[string(id)] = count
	}
	doc := conversationDoc{
		ID:           conv.ID,
		IsGroup:      conv.IsGroup,
		Name:         conv.Name,
		PairKey:      conv.PairKey,
		Participants: participants,
		Unread:       unread,
		CreatedAt:    conv.CreatedAt,
		UpdatedAt:    conv.UpdatedAt,
	}
	if conv.LastMessage != nil {
		doc.LastMessage = &messageSummaryDoc{
			ID:        conv.LastMessage.ID,
			SenderID:  string(conv.LastMessage.SenderID),
			Text:      conv.LastMessage.Text,
			CreatedAt: conv.LastMessage.CreatedAt,
		}
	}
	return doc
}

func (d conversationDoc) toDomain() *domainchat.Conversation {
	participants := make([]domainchat.Participant, 0, len(d.Participants))
	for _, p := range d.Participants {
		participants = append(participants, domainchat.Participant{
			UserID:   domainuser.ID(p.UserID),
			Role:     domainuser.Role(p.Role),
			JoinedAt: p.JoinedAt,
		})
	}
	unread := make(map[domainuser.ID]int, len(d.Unread))
	for id, count := range d.Unread {
		unread[domainuser.ID(id)] = count
	}
	conv := &domainchat.Conversation{
		ID:           d.ID,
		IsGroup:      d.IsGroup,
		Name:         d.Name,
		PairKey:      d.PairKey,
		Participants: participants,
		Unread:       unread,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
	if d.LastMessage != nil {
		conv.LastMessage = &domainchat.MessageSummary{
			ID:        d.LastMessage.ID,
			SenderID:  domainuser.ID(d.LastMessage.SenderID),
			Text:      d.LastMessage.Text,
			CreatedAt: d.LastMessage.CreatedAt,
		}
	}
	return conv
}

func toMessageDoc(msg *domainchat.Message) messageDoc {
	attachments := make([]attachmentDoc, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		attachments = append(attachments, attachmentDoc{
			URL:      a.URL,
			Type:     a.Type,
			Name:     a.Name,
			Size:     a.Size,
			MimeType: a.MimeType,
		})
	}
	readBy := make([]string, 0, len(msg.ReadBy))
	for _, id := range msg.ReadBy {
		readBy = append(readBy, string(id))
	}
	return messageDoc{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       string(msg.SenderID),
		Text:           msg.Text,
		Attachments:    attachments,
		ReadBy:         readBy,
		Status:         string(msg.Status),
		EditedAt:       msg.EditedAt,
		ReplyTo:        msg.ReplyTo,
		CreatedAt:      msg.CreatedAt,
		UpdatedAt:      msg.UpdatedAt,
	}
}

func (d messageDoc) toDomain() *domainchat.Message {
	attachments := make([]domainchat.Attachment, 0, len(d.Attachments))
	for _, a := range d.Attachments {
		attachments = append(attachments, domainchat.Attachment{
			URL:      a.URL,
			Type:     a.Type,
			Name:     a.Name,
			Size:     a.Size,
			MimeType: a.MimeType,
		})
	}
	readBy := make([]domainuser.ID, 0, len(d.ReadBy))
	for _, id := range d.ReadBy {
		readBy = append(readBy, domainuser.ID(id))
	}
	return &domainchat.Message{
		ID:             d.ID,
		ConversationID: d.ConversationID,
		SenderID:       domainuser.ID(d.SenderID),
		Text:           d.Text,
		Attachments:    attachments,
		ReadBy:         readBy,
		Status:         domainchat.MessageStatus(d.Status),
		EditedAt:       d.EditedAt,
		ReplyTo:        d.ReplyTo,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// EnsureIndexes creates the indexes the repositories rely on: pair-key
// uniqueness for DM deduplication and the (conversation, created_at) listing
// path.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(conversationCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "participants.user_id", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	})
	if err != nil {
		return err
	}
	_, err = db.Collection(messageCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: -1}},
		},
	})
	return err
}
