package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
)

type MongoInboxRepository struct {
	coll *mongo.Collection
}

func NewMongoInboxRepository(coll *mongo.Collection) *MongoInboxRepository {
	return &MongoInboxRepository{coll: coll}
}

// Upsert pushes the entry into the owner's container in a single
// conditional write. The filter excludes containers that already hold an
// entry for the conversation; when the container exists with the entry,
// the upsert falls through to an insert on the same _id and fails with a
// duplicate key, which is the "already present" signal. Safe to retry.
func (r *MongoInboxRepository) Upsert(ctx context.Context, ownerID string, entry models.InboxEntry) (bool, error) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	filter := bson.M{
		"_id":                     ownerID,
		"entries.conversation_id": bson.M{"$ne": entry.ConversationID},
	}
	update := bson.M{
		"$push": bson.M{"entries": entry},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}

func (r *MongoInboxRepository) Get(ctx context.Context, ownerID string) (*models.Inbox, error) {
	var in models.Inbox
	if err := r.coll.FindOne(ctx, bson.M{"_id": ownerID}).Decode(&in); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &in, nil
}

func (r *MongoInboxRepository) Remove(ctx context.Context, ownerID, conversationID string) error {
	_, err := r.coll.UpdateByID(ctx, ownerID, bson.M{
		"$pull": bson.M{"entries": bson.M{"conversation_id": conversationID}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

func (r *MongoInboxRepository) SetSeen(ctx context.Context, ownerID, conversationID string, seen bool) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": ownerID, "entries.conversation_id": conversationID},
		bson.M{"$set": bson.M{"entries.$.seen": seen, "updated_at": time.Now().UTC()}},
	)
	return err
}

func (r *MongoInboxRepository) SetLastMessage(ctx context.Context, ownerID, conversationID string, snap models.MessageSnapshot) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": ownerID, "entries.conversation_id": conversationID},
		bson.M{"$set": bson.M{
			"entries.$.last_message": snap,
			"entries.$.seen":         false,
			"updated_at":             time.Now().UTC(),
		}},
	)
	return err
}
