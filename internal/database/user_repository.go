package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/damndeepesh/PingMeMaybe/internal/chat"
)

// MongoUserRepository implements chat.UserStore using MongoDB
type MongoUserRepository struct {
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoDB user repository
func NewMongoUserRepository(db *MongoDB) *MongoUserRepository {
	return &MongoUserRepository{
		collection: db.GetCollection("users"),
	}
}

// UpsertUser creates or refreshes the identity stored for a network address.
// A returning address keeps its document; only the nickname moves with it.
func (r *MongoUserRepository) UpsertUser(ctx context.Context, ipAddress, nickname string) (*chat.UserRecord, error) {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"nickname":   nickname,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"ip_address": ipAddress,
			"created_at": now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var doc UserDocument
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"ip_address": ipAddress}, update, opts).Decode(&doc)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %v", err)
	}

	return &chat.UserRecord{
		ID:        doc.ID.Hex(),
		IPAddress: doc.IPAddress,
		Nickname:  doc.Nickname,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}, nil
}
