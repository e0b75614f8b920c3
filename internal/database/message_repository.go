package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/damndeepesh/PingMeMaybe/internal/chat"
)

// MongoMessageRepository implements chat.MessageStore using MongoDB
type MongoMessageRepository struct {
	collection *mongo.Collection
}

// NewMongoMessageRepository creates a new MongoDB message repository
func NewMongoMessageRepository(db *MongoDB) *MongoMessageRepository {
	return &MongoMessageRepository{
		collection: db.GetCollection("messages"),
	}
}

// ListMessages retrieves a room's messages in chronological order
func (r *MongoMessageRepository) ListMessages(ctx context.Context, roomID string) ([]*chat.Message, error) {
	opts := options.Find().SetSort(bson.M{"timestamp": 1})

	cursor, err := r.collection.Find(ctx, bson.M{"room_id": roomID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve messages: %v", err)
	}
	defer cursor.Close(ctx)

	messages := []*chat.Message{}
	for cursor.Next(ctx) {
		var doc MessageDocument
		if err := cursor.Decode(&doc); err != nil {
			continue
		}
		messages = append(messages, docToMessage(&doc))
	}

	return messages, nil
}

// CreateMessage persists a new message and returns it with its assigned ID
func (r *MongoMessageRepository) CreateMessage(ctx context.Context, roomID, sender, content, msgType string) (*chat.Message, error) {
	now := time.Now()
	doc := &MessageDocument{
		RoomID:    roomID,
		Sender:    sender,
		Content:   content,
		Type:      msgType,
		Timestamp: now,
		CreatedAt: now,
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %v", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		doc.ID = oid
	}

	return docToMessage(doc), nil
}

// ListDistinctRooms returns every room identifier that has at least one
// persisted message. Used to seed the room directory at startup.
func (r *MongoMessageRepository) ListDistinctRooms(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "room_id", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %v", err)
	}

	rooms := make([]string, 0, len(values))
	for _, v := range values {
		if roomID, ok := v.(string); ok && roomID != "" {
			rooms = append(rooms, roomID)
		}
	}

	return rooms, nil
}

func docToMessage(doc *MessageDocument) *chat.Message {
	return &chat.Message{
		ID:        doc.ID.Hex(),
		RoomID:    doc.RoomID,
		Sender:    doc.Sender,
		Content:   doc.Content,
		Type:      doc.Type,
		Timestamp: doc.Timestamp,
	}
}
