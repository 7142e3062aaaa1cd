package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const RoleAdmin = "admin"

// TenantMembership binds a user to a tenant with a role, an owner flag
// and the set of tag ids granted to the user within that tenant. Tag
// membership is an explicit id array on the owning side, not an implied
// relation.
type TenantMembership struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID   string             `bson:"user_id" json:"user_id"`
	TenantID string             `bson:"tenant_id" json:"tenant_id"`
	Role     string             `bson:"role" json:"role"`
	Owner    bool               `bson:"owner" json:"owner"`
	TagIDs   []string           `bson:"tag_ids,omitempty" json:"tag_ids,omitempty"`
	JoinedAt time.Time          `bson:"joined_at" json:"joined_at"`
}

// Elevated reports whether the membership bypasses tag filtering.
func (m *TenantMembership) Elevated() bool {
	return m != nil && (m.Owner || m.Role == RoleAdmin)
}
