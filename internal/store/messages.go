package store

import (
	"context"
	"time"

	"kb-assist-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MessageStore persists conversation turns. The log is append-only.
type MessageStore struct {
	messages *mongo.Collection
}

func NewMessageStore(db *mongo.Database) *MessageStore {
	return &MessageStore{messages: db.Collection("messages")}
}

func (s *MessageStore) Append(ctx context.Context, turn models.ConversationTurn) error {
	if turn.ID.IsZero() {
		turn.ID = primitive.NewObjectID()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now()
	}
	_, err := s.messages.InsertOne(ctx, turn)
	return err
}

// Recent returns the user's last n turns of a conversation, oldest
// first. The _id tie-break keeps turns sharing a timestamp in insertion
// order; equal sort keys alone have no defined order server-side.
func (s *MessageStore) Recent(ctx context.Context, tenantID, userID, conversationID string, n int) ([]models.ConversationTurn, error) {
	cursor, err := s.messages.Find(ctx,
		bson.M{
			"tenant_id":       tenantID,
			"user_id":         userID,
			"conversation_id": conversationID,
		},
		options.Find().
			SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
			SetLimit(int64(n)),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var turns []models.ConversationTurn
	if err := cursor.All(ctx, &turns); err != nil {
		return nil, err
	}

	// Reverse the newest-first query result back to log order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// History returns the full conversation for the given user, oldest first.
func (s *MessageStore) History(ctx context.Context, tenantID, userID, conversationID string) (*models.ConversationHistory, error) {
	cursor, err := s.messages.Find(ctx,
		bson.M{
			"tenant_id":       tenantID,
			"user_id":         userID,
			"conversation_id": conversationID,
		},
		options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}}),
	)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	turns := make([]models.ConversationTurn, 0)
	if err := cursor.All(ctx, &turns); err != nil {
		return nil, err
	}

	history := &models.ConversationHistory{
		ConversationID: conversationID,
		Turns:          turns,
	}
	if len(turns) > 0 {
		history.CreatedAt = turns[0].Timestamp
		history.UpdatedAt = turns[len(turns)-1].Timestamp
	}
	return history, nil
}
