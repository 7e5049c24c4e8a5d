package auth

import (
	"context"
)

// userContextKey is the key used to store the authenticated User in the
// request context. An unexported empty struct prevents collisions with
// other packages' context keys.
type userContextKey struct{}

// WithUser stores an authenticated User in the context. A nil user
// returns the original context unchanged.
func WithUser(ctx context.Context, user *User) context.Context {
	if user == nil {
		return ctx
	}
	return context.WithValue(ctx, userContextKey{}, user)
}

// UserFromContext retrieves the authenticated User from the context,
// or nil when the request was not authenticated.
func UserFromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey{}).(*User)
	return user
}
