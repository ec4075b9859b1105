package handlers

import "context"

// contextKey is the type for request context keys set by the auth middleware
type contextKey string

const (
	// UserIDKey holds the authenticated user id
	UserIDKey contextKey = "user_id"
	// UsernameKey holds the authenticated username
	UsernameKey contextKey = "username"
)

// Cookie names for the two session tokens
const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// WithUser returns a copy of ctx carrying the authenticated identity.
func WithUser(ctx context.Context, userID, username string) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, userID)
	return context.WithValue(ctx, UsernameKey, username)
}

// GetUserID extracts user_id from the request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetUsername extracts username from the request context
func GetUsername(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(UsernameKey).(string)
	return username, ok
}
