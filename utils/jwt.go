package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token TTL profiles.
const (
	SessionTokenTTL = 7 * 24 * time.Hour
	ResetTokenTTL   = 15 * time.Minute
)

// ErrInvalidToken is returned for any token that fails verification: bad
// signature, expired, or malformed payload.
var ErrInvalidToken = errors.New("invalid token")

// Claims carried by every signed token.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 tokens with a single process-wide
// secret injected at construction. Rotating the secret invalidates all
// outstanding tokens.
type TokenService struct {
	secret []byte
}

// NewTokenService creates a TokenService for the given secret.
func NewTokenService(secret string) *TokenService {
	return &TokenService{secret: []byte(secret)}
}

// Issue signs a token carrying the identity and role, valid for ttl.
func (s *TokenService) Issue(userID uint, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// Verify validates a token and returns its claims. All failure modes collapse
// into ErrInvalidToken; "valid but wrong role" is not this layer's concern.
func (s *TokenService) Verify(tokenStr string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
