package middleware

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mindsage/analyzer/internal/auth"
)

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.UserContext, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	verifier TokenVerifier
	skipAuth bool
	logger   *zap.Logger
}

// NewAuthMiddleware creates a new authentication middleware. With skipAuth
// every request runs as auth.DevUserID and may act for any user id it names.
func NewAuthMiddleware(verifier TokenVerifier, skipAuth bool, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		skipAuth: skipAuth,
		logger:   logger,
	}
}

// Middleware returns the HTTP middleware function
func (m *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipAuth {
			userCtx := &auth.UserContext{UserID: auth.DevUserID, TokenType: auth.TokenTypeDev}
			m.logger.Debug("Auth skipped", zap.String("path", r.URL.Path))
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), userCtx)))
			return
		}

		token, err := auth.ExtractBearerToken(r.Header.Get("Authorization"))
		if err != nil {
			m.sendUnauthorized(w, "Bearer token is required")
			return
		}

		userCtx, err := m.verifier.Verify(token)
		if err != nil {
			m.logger.Debug("Token rejected",
				zap.String("path", r.URL.Path),
				zap.Error(err),
			)
			m.sendUnauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), userCtx)))
	})
}

func (m *AuthMiddleware) sendUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="mindsage"`)
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
