package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainchat "talenthub/internal/domain/chat"
	domainuser "talenthub/internal/domain/user"
)

type messageRepository struct {
	collection *mongo.Collection
}

func (r *messageRepository) ByID(ctx context.Context, id string) (*domainchat.Message, error) {
	var doc messageDoc
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainchat.NotFound("message not found")
		}
		return nil, domainchat.Internal("load message", err)
	}
	return doc.toDomain(), nil
}

func (r *messageRepository) Create(ctx context.Context, msg *domainchat.Message) error {
	_, err := r.collection.InsertOne(ctx, toMessageDoc(msg))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainchat.Conflict("message id already in use")
		}
		return domainchat.Internal("insert message", err)
	}
	return nil
}

func (r *messageRepository) Update(ctx context.Context, msg *domainchat.Message) error {
	doc := toMessageDoc(msg)
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": msg.ID}, doc)
	if err != nil {
		return domainchat.Internal("update message", err)
	}
	if result.MatchedCount == 0 {
		return domainchat.NotFound("message not found")
	}
	return nil
}

func (r *messageRepository) List(ctx context.Context, conversationID string, q domainchat.ListQuery) ([]*domainchat.Message, error) {
	filter := bson.M{"conversation_id": conversationID}
	if q.Cursor != nil {
		filter["$or"] = bson.A{
			bson.M{"created_at": bson.M{"$lt": primitive.NewDateTimeFromTime(q.Cursor.At)}},
			bson.M{
				"created_at": primitive.NewDateTimeFromTime(q.Cursor.At),
				"_id":        bson.M{"$lt": q.Cursor.ID},
			},
		}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(q.NormalizedLimit() + 1))
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, domainchat.Internal("list messages", err)
	}
	defer cursor.Close(ctx)

	out := make([]*domainchat.Message, 0)
	for cursor.Next(ctx) {
		var doc messageDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, domainchat.Internal("decode message", err)
		}
		out = append(out, doc.toDomain())
	}
	if err := cursor.Err(); err != nil {
		return nil, domainchat.Internal("list messages", err)
	}
	return out, nil
}

func (r *messageRepository) MarkRead(ctx context.Context, conversationID string, userID domainuser.ID, upTo time.Time) (int, error) {
	filter := bson.M{
		"conversation_id": conversationID,
		"read_by":         bson.M{"$ne": string(userID)},
	}
	if !upTo.IsZero() {
		filter["created_at"] = bson.M{"$lte": primitive.NewDateTimeFromTime(upTo)}
	}
	result, err := r.collection.UpdateMany(ctx, filter, bson.M{
		"$addToSet": bson.M{"read_by": string(userID)},
	})
	if err != nil {
		return 0, domainchat.Internal("mark messages read", err)
	}
	return int(result.ModifiedCount), nil
}

var _ domainchat.MessageRepository = (*messageRepository)(nil)
