package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Config holds token settings.
type Config struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	Issuer    string        `mapstructure:"issuer"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
	SkipAuth  bool          `mapstructure:"skip_auth"`
}

// JWTManager issues and verifies HS256 access tokens.
type JWTManager struct {
	signingKey []byte
	issuer     string
	expiry     time.Duration
	now        func() time.Time
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(signingKey, issuer string, expiry time.Duration) *JWTManager {
	if issuer == "" {
		issuer = "mindsage"
	}
	if expiry <= 0 {
		expiry = 24 * time.Hour
	}
	return &JWTManager{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		expiry:     expiry,
		now:        time.Now,
	}
}

// Issue signs an access token for userID.
func (j *JWTManager) Issue(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("user id is required")
	}
	now := j.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    j.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(j.expiry)),
		NotBefore: jwt.NewNumericDate(now),
		ID:        uuid.New().String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.signingKey)
}

// Verify validates tokenString and returns the caller it identifies.
func (j *JWTManager) Verify(tokenString string) (*UserContext, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.signingKey, nil
	}, jwt.WithTimeFunc(j.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != j.issuer {
		return nil, ErrInvalidIssuer
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, fmt.Errorf("%w: empty subject", ErrInvalidToken)
	}
	return &UserContext{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		TokenType: TokenTypeJWT,
	}, nil
}

// ExtractBearerToken extracts the token from Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	if len(authHeader) < 7 || !strings.EqualFold(authHeader[:7], "Bearer ") {
		return "", fmt.Errorf("invalid authorization header format")
	}
	token := strings.TrimSpace(authHeader[7:])
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}
