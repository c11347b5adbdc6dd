package auth

import (
	"context"
	"errors"
)

// ContextKey is the key type for context values
type ContextKey string

const (
	// UserContextKey is the context key for user information
	UserContextKey ContextKey = "user"
)

const (
	TokenTypeJWT = "jwt"
	TokenTypeDev = "dev"
)

// DevUserID is the subject used when authentication is skipped.
const DevUserID = "dev-user"

var (
	ErrMissingToken  = errors.New("missing bearer token")
	ErrInvalidToken  = errors.New("invalid token")
	ErrInvalidIssuer = errors.New("invalid token issuer")
)

// UserContext identifies the caller of a request.
type UserContext struct {
	UserID    string `json:"user_id"`
	TokenID   string `json:"token_id,omitempty"`
	TokenType string `json:"token_type"`
}

// WithUser returns ctx carrying u.
func WithUser(ctx context.Context, u *UserContext) context.Context {
	return context.WithValue(ctx, UserContextKey, u)
}

// UserFromContext returns the authenticated caller, if any.
func UserFromContext(ctx context.Context) (*UserContext, bool) {
	u, ok := ctx.Value(UserContextKey).(*UserContext)
	return u, ok && u != nil
}
