package auth

import (
	"context"

	"github.com/google/uuid"
)

const ownerKey ctxKey = "owner"

func WithOwner(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerKey, ownerID)
}

// OwnerFromContext returns the authenticated owner, if any. Handlers
// behind Authenticate can rely on ok being true.
func OwnerFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(ownerKey).(uuid.UUID)
	return id, ok
}
