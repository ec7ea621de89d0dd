package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
)

type conversationRepository struct {
	collection *mongo.Collection
}

func (r *conversationRepository) ByID(ctx context.Context, id string) (*domainchat.Conversation, error) {
	var doc conversationDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.NotFound("conversation not found")
		}
		return nil, domainchat.Internal("load conversation", err)
	}
	return doc.toDomain(), nil
}

func (r *conversationRepository) ByPairKey(ctx context.Context, key string) (*domainchat.Conversation, error) {
	var doc conversationDoc
	err := r.collection.FindOne(ctx, bson.M{"pair_key": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.NotFound("conversation not found")
		}
		return nil, domainchat.Internal("load conversation", err)
	}
	return doc.toDomain(), nil
}

func (r *conversationRepository) Create(ctx context.Context, conv *domainchat.Conversation) error {
	_, err := r.collection.InsertOne(ctx, toConversationDoc(conv))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainchat.Conflict("conversation already exists for this pair")
		}
		return domainchat.Internal("insert conversation", err)
	}
	return nil
}

func (r *conversationRepository) ListForUser(ctx context.Context, userID domainuser.ID, q domainchat.ListQuery) ([]*domainchat.Conversation, error) {
	filter := bson.M{"participants.user_id": string(userID)}
	if q.Cursor != nil {
		filter["$or"] = bson.A{
			bson.M{"updated_at": bson.M{"$lt": primitive.NewDateTimeFromTime(q.Cursor.At)}},
			bson.M{
				"updated_at": primitive.NewDateTimeFromTime(q.Cursor.At),
				"_id":        bson.M{"$lt": q.Cursor.ID},
			},
		}
	}
	if q.Search != "" {
		match := bson.A{
			bson.M{"name": bson.M{"$regex": q.Search, "$options": "i"}},
		}
		if len(q.ParticipantIDs) > 0 {
			ids := make([]string, 0, len(q.ParticipantIDs))
			for _, id := range q.ParticipantIDs {
				ids = append(ids, string(id))
			}
			match = append(match, bson.M{"participants.user_id": bson.M{"$in": ids}})
		}
		filter = bson.M{"$and": bson.A{filter, bson.M{"$or": match}}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(q.NormalizedLimit() + 1))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, domainchat.Internal("list conversations", err)
	}
	defer cursor.Close(ctx)

	out := make([]*domainchat.Conversation, 0)
	for cursor.Next(ctx) {
		var doc conversationDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, domainchat.Internal("decode conversation", err)
		}
		out = append(out, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, domainchat.Internal("list conversations", err)
	}
	return out, nil
}

func (r *conversationRepository) RecordMessage(ctx context.Context, conversationID string, msg *domainchat.Message) error {
	conv, err := r.ByID(ctx, conversationID)
	if err != nil {
		return err
	}
	conv.RecordMessage(msg)
	doc := toConversationDoc(conv)
	update := bson.M{"$set": bson.M{
		"unread":       doc.Unread,
		"last_message": doc.LastMessage,
		"updated_at":   doc.UpdatedAt,
	}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": conversationID}, update)
	if err != nil {
		return domainchat.Internal("update conversation after message", err)
	}
	if result.MatchedCount == 0 {
		return domainchat.NotFound("conversation not found")
	}
	return nil
}

func (r *conversationRepository) ClearUnread(ctx context.Context, conversationID string, userID domainuser.ID) error {
	result, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": conversationID},
		bson.M{"$set": bson.M{"unread." + string(userID): 0}},
	)
	if err != nil {
		return domainchat.Internal("clear unread", err)
	}
	if result.MatchedCount == 0 {
		return domainchat.NotFound("conversation not found")
	}
	return nil
}

var _ domainchat.ConversationRepository = (*conversationRepository)(nil)
