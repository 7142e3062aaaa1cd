package access

import (
	"context"

	"kb-assist-platform/models"
)

// Reader is the read-only view of membership and document records the
// filter needs. It never mutates them.
type Reader interface {
	// Membership returns the user's membership in the tenant, or nil when
	// the user has none.
	Membership(ctx context.Context, userID, tenantID string) (*models.TenantMembership, error)

	// Documents returns the tenant's documents matching the given ids;
	// ids outside the tenant are silently absent from the result.
	Documents(ctx context.Context, tenantID string, documentIDs []string) ([]models.Document, error)
}

// Filter resolves which documents a user may see inside a tenant.
//
// The rule: admins and owners see everything; a document with no tags is
// public within its tenant; otherwise the document's tag set must
// intersect the user's tag set. A user with no membership is treated as
// an untagged regular member and only sees untagged documents.
type Filter struct {
	reader Reader
}

func NewFilter(reader Reader) *Filter {
	return &Filter{reader: reader}
}

func (f *Filter) IsAccessible(ctx context.Context, userID, tenantID, documentID string) (bool, error) {
	membership, err := f.reader.Membership(ctx, userID, tenantID)
	if err != nil {
		return false, err
	}
	if membership.Elevated() {
		return true, nil
	}

	docs, err := f.reader.Documents(ctx, tenantID, []string{documentID})
	if err != nil {
		return false, err
	}
	if len(docs) == 0 {
		return false, nil
	}
	return visible(membership, docs[0]), nil
}

// FilterAccessibleDocuments is the batch form: membership and the user's
// tag set are resolved once, then the per-document rule is applied to
// every candidate. Output preserves input order.
func (f *Filter) FilterAccessibleDocuments(ctx context.Context, userID, tenantID string, documentIDs []string) ([]string, error) {
	if len(documentIDs) == 0 {
		return nil, nil
	}

	membership, err := f.reader.Membership(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if membership.Elevated() {
		return documentIDs, nil
	}

	docs, err := f.reader.Documents(ctx, tenantID, documentIDs)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Document, len(docs))
	for _, doc := range docs {
		byID[doc.ID.Hex()] = doc
	}

	accessible := make([]string, 0, len(documentIDs))
	for _, id := range documentIDs {
		doc, ok := byID[id]
		if !ok {
			continue
		}
		if visible(membership, doc) {
			accessible = append(accessible, id)
		}
	}
	return accessible, nil
}

func visible(membership *models.TenantMembership, doc models.Document) bool {
	if len(doc.TagIDs) == 0 {
		return true
	}
	if membership == nil || len(membership.TagIDs) == 0 {
		return false
	}

	userTags := make(map[string]bool, len(membership.TagIDs))
	for _, id := range membership.TagIDs {
		userTags[id] = true
	}
	for _, id := range doc.TagIDs {
		if userTags[id] {
			return true
		}
	}
	return false
}
