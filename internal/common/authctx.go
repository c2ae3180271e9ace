package common

import "context"

type userIDKey struct{}

// WithUserID attaches the authenticated user's id to the request context.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// UserID reads back the id WithUserID stored. The second return is false on
// unauthenticated requests.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey{}).(string)
	return id, ok
}
