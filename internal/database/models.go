package database

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserDocument represents a user document in MongoDB, keyed by network
// address rather than a login identity
type UserDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	IPAddress string             `bson:"ip_address" json:"ipAddress"`
	Nickname  string             `bson:"nickname" json:"nickname"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// MessageDocument represents a message document in MongoDB
type MessageDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RoomID    string             `bson:"room_id" json:"roomId"`
	Sender    string             `bson:"sender" json:"sender"`
	Content   string             `bson:"content" json:"content"`
	Type      string             `bson:"type" json:"type"`
	Timestamp time.Time          `bson:"timestamp" json:"timestamp"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
}
