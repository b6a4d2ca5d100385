package guard

import (
	"context"

	"github.com/jobdesk/jobdesk/internal/user"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey string

const identityKey contextKey = "identity"

// WithIdentity attaches the resolved identity to the request context so
// downstream handlers can read the caller (ownership checks, audit fields).
func WithIdentity(ctx context.Context, identity *user.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity the guard resolved for this
// request, or false on public routes that carried no token.
func IdentityFromContext(ctx context.Context) (*user.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(*user.Identity)
	return identity, ok
}
