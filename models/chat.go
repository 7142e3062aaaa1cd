package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	TurnRoleUser      = "user"
	TurnRoleAssistant = "assistant"
)

// ConversationTurn is one entry in an append-only conversation log.
type ConversationTurn struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ConversationID string             `bson:"conversation_id" json:"conversation_id"`
	TenantID       string             `bson:"tenant_id" json:"tenant_id"`
	UserID         string             `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Role           string             `bson:"role" json:"role"`
	Content        string             `bson:"content" json:"content"`
	Timestamp      time.Time          `bson:"timestamp" json:"timestamp"`
}

type AskRequest struct {
	Message        string `json:"message" binding:"required,min=1,max=2000"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type AskResponse struct {
	Reply          string    `json:"reply"`
	ConversationID string    `json:"conversation_id"`
	Timestamp      time.Time `json:"timestamp"`
}

type ConversationHistory struct {
	ConversationID string             `json:"conversation_id"`
	Turns          []ConversationTurn `json:"turns"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}
