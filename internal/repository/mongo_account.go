package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/thangnstse171771/cakestory-messaging/internal/models"
)

type MongoAccountRepository struct {
	coll *mongo.Collection
}

func NewMongoAccountRepository(coll *mongo.Collection) *MongoAccountRepository {
	return &MongoAccountRepository{coll: coll}
}

func (r *MongoAccountRepository) Create(ctx context.Context, a *models.Account) error {
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, a)
	if mongo.IsDuplicateKeyError(err) {
		return ErrConflict
	}
	return err
}

func (r *MongoAccountRepository) GetByID(ctx context.Context, messagingID string) (*models.Account, error) {
	var a models.Account
	if err := r.coll.FindOne(ctx, bson.M{"_id": messagingID}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *MongoAccountRepository) FindByAccountID(ctx context.Context, accountID int64) (*models.Account, error) {
	var a models.Account
	if err := r.coll.FindOne(ctx, bson.M{"account_id": accountID}).Decode(&a); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *MongoAccountRepository) SetActive(ctx context.Context, messagingID string, active bool) error {
	_, err := r.coll.UpdateByID(ctx, messagingID, bson.M{
		"$set": bson.M{"active": active, "updated_at": time.Now().UTC()},
	})
	return err
}

func (r *MongoAccountRepository) AddBlock(ctx context.Context, messagingID, blockedID string) error {
	_, err := r.coll.UpdateByID(ctx, messagingID, bson.M{
		"$addToSet": bson.M{"blocked": blockedID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

func (r *MongoAccountRepository) RemoveBlock(ctx context.Context, messagingID, blockedID string) error {
	_, err := r.coll.UpdateByID(ctx, messagingID, bson.M{
		"$pull": bson.M{"blocked": blockedID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}
