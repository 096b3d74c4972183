package ctxutil

import "context"

type identityKey struct{}

// Identity is the verified caller, taken from the request's bearer token.
type Identity struct {
	Subject string
	Email   string
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

func GetIdentity(ctx context.Context) *Identity {
	if id, ok := ctx.Value(identityKey{}).(*Identity); ok {
		return id
	}
	return nil
}
