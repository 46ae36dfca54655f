package auth

import (
	"context"
	"time"

	"ms-attractions/internal/apperr"
)

var (
	ErrMissingToken = apperr.New(apperr.KindAuth, "missing_token", "missing Authorization header")
	ErrMalformed    = apperr.New(apperr.KindAuth, "malformed_token", "authorization header format must be 'Bearer {token}'")
	ErrInvalidToken = apperr.New(apperr.KindAuth, "invalid_token", "invalid or expired token")
	ErrForbidden    = apperr.New(apperr.KindForbidden, "forbidden", "you are not allowed to perform this action")
)

// Identity is the verified caller of a request.
type Identity struct {
	UserID    string    `json:"userId"`
	Role      string    `json:"role"`
	ExpiresAt time.Time `json:"expiresAt"`
}

func (i Identity) HasRole(role string) bool {
	return role != "" && i.Role == role
}

// Gateway verifies a raw bearer token.
type Gateway interface {
	Authenticate(ctx context.Context, rawToken string) (Identity, error)
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != ""
}

// Require returns the caller or ErrMissingToken.
func Require(ctx context.Context) (Identity, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Identity{}, ErrMissingToken
	}
	return id, nil
}
