// Package context carries request-scoped values (trace ids, acting user) through the call chain.
package context

import (
	"context"
)

// UserContext identifies the acting user of a request.
// It is populated from a validated bearer token; retailcore does not issue tokens itself.
type UserContext struct {
	UserID string
	Email  string
	Roles  []string
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// WithUserID is a shortcut for contexts where only the id is known (CLI, worker, tests).
func WithUserID(ctx context.Context, userID string) context.Context {
	return WithUser(ctx, &UserContext{UserID: userID})
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}

// HasRole checks if user has specific role.
func HasRole(ctx context.Context, role string) bool {
	u := GetUser(ctx)
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
