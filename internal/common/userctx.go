package common

import (
	"context"
)

// DefaultUserID scopes data when a request carries no identity (single-tenant mode).
const DefaultUserID = "default"

// UserContext holds the caller identity resolved by the HTTP middleware or CLI.
type UserContext struct {
	UserID string
	// Source records how the identity was established: "bearer", "header" or "cli".
	Source string
}

type contextKey int

const userContextKey contextKey = iota

// WithUserContext stores a UserContext in the request context.
func WithUserContext(ctx context.Context, uc *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, uc)
}

// UserContextFromContext retrieves the UserContext from context, or nil if absent.
func UserContextFromContext(ctx context.Context) *UserContext {
	uc, _ := ctx.Value(userContextKey).(*UserContext)
	return uc
}

// ResolveUserID returns the UserID from context, or DefaultUserID when no user context is present.
// Used by services and storage operations that need an ownership scope.
func ResolveUserID(ctx context.Context) string {
	if uc := UserContextFromContext(ctx); uc != nil && uc.UserID != "" {
		return uc.UserID
	}
	return DefaultUserID
}
