package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
)

type MongoConversationRepository struct {
	coll *mongo.Collection
}

func NewMongoConversationRepository(coll *mongo.Collection) *MongoConversationRepository {
	return &MongoConversationRepository{coll: coll}
}

func (r *MongoConversationRepository) Create(ctx context.Context, c *models.Conversation) error {
	now := time.Now().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	return err
}

func (r *MongoConversationRepository) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	var c models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MongoConversationRepository) FindByDedupKey(ctx context.Context, key string) (*models.Conversation, error) {
	var c models.Conversation
	if err := r.coll.FindOne(ctx, bson.M{"dedup_key": key}).Decode(&c); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *MongoConversationRepository) GetMany(ctx context.Context, ids []string) ([]*models.Conversation, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*models.Conversation
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (r *MongoConversationRepository) ListForParticipant(ctx context.Context, messagingID string) ([]*models.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}})
	cur, err := r.coll.Find(ctx, bson.M{"participants": messagingID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []*models.Conversation
	for cur.Next(ctx) {
		var c models.Conversation
		if err := cur.Decode(&c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, cur.Err()
}

func (r *MongoConversationRepository) AddParticipant(ctx context.Context, id, memberID string, asStaff bool) error {
	add := bson.M{"participants": memberID}
	if asStaff {
		add["staff_ids"] = memberID
	}
	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$addToSet": add,
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoConversationRepository) RemoveParticipant(ctx context.Context, id, memberID string) error {
	res, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$pull": bson.M{"participants": memberID, "staff_ids": memberID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoConversationRepository) SetLastMessage(ctx context.Context, id string, snap models.MessageSnapshot) error {
	_, err := r.coll.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"last_message": snap, "updated_at": time.Now().UTC()},
	})
	return err
}
