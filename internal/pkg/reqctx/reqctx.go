// Package reqctx carries the authenticated principal through a request's
// context.Context. It exists as its own package (rather than living in
// middleware or httputil) so both the auth middleware that populates it and
// the handlers that read it can import it without an import cycle.
package reqctx

import "context"

type ctxKey int

const (
	userIDKey ctxKey = iota
	emailKey
	isAdminKey
)

// WithUser returns a context carrying the authenticated user's identity.
func WithUser(ctx context.Context, userID, email string, isAdmin bool) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	ctx = context.WithValue(ctx, emailKey, email)
	ctx = context.WithValue(ctx, isAdminKey, isAdmin)
	return ctx
}

// UserID returns the authenticated user's ID, or "" if unauthenticated.
func UserID(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// Email returns the authenticated user's email, or "" if unauthenticated.
func Email(ctx context.Context) string {
	v, _ := ctx.Value(emailKey).(string)
	return v
}

// IsAdmin reports whether the authenticated user is an administrator.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(isAdminKey).(bool)
	return v
}

// Authenticated reports whether the context carries a validated principal.
func Authenticated(ctx context.Context) bool {
	return UserID(ctx) != ""
}
