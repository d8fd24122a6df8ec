package shared

import (
	"context"
	"strconv"
	"strings"
)

type identityContextKey struct{}

type requestIDContextKey struct{}

// ContextWithIdentity stores the upstream-authenticated caller identity in context.
func ContextWithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityContextKey{}, strings.TrimSpace(identity))
}

// IdentityFromContext extracts the caller identity; empty means anonymous.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityContextKey{}).(string)
	return identity
}

// ContextWithRequestID stores the correlation id in context.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDContextKey{}, id)
}

// RequestIDFromContext extracts the correlation id.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// ParseUserID converts an identity into a numeric user id.
func ParseUserID(identity string) (int64, bool) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(identity, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
