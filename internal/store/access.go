package store

import (
	"context"

	"kb-assist-platform/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// AccessStore is the read-only backing for access filtering: memberships
// and document tag sets. It implements access.Reader.
type AccessStore struct {
	memberships *mongo.Collection
	documents   *mongo.Collection
}

func NewAccessStore(db *mongo.Database) *AccessStore {
	return &AccessStore{
		memberships: db.Collection("memberships"),
		documents:   db.Collection("documents"),
	}
}

func (s *AccessStore) Membership(ctx context.Context, userID, tenantID string) (*models.TenantMembership, error) {
	var membership models.TenantMembership
	err := s.memberships.FindOne(ctx,
		bson.M{"user_id": userID, "tenant_id": tenantID},
	).Decode(&membership)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &membership, nil
}

func (s *AccessStore) Documents(ctx context.Context, tenantID string, documentIDs []string) ([]models.Document, error) {
	objIDs := make([]primitive.ObjectID, 0, len(documentIDs))
	for _, id := range documentIDs {
		objID, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		objIDs = append(objIDs, objID)
	}
	if len(objIDs) == 0 {
		return nil, nil
	}

	cursor, err := s.documents.Find(ctx, bson.M{
		"_id":       bson.M{"$in": objIDs},
		"tenant_id": tenantID,
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []models.Document
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}
