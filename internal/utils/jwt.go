package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken token failed validation or carries no subject
var ErrInvalidToken = errors.New("invalid token")

// JWTClaims JWT claims. The subject is the user ID.
type JWTClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the authenticated user
func (c *JWTClaims) UserID() string {
	return c.Subject
}

// JWTManager signs and verifies HS256 bearer tokens
type JWTManager struct {
	secretKey []byte
	issuer    string
	expire    time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey, issuer string, expire time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		expire:    expire,
	}
}

// GenerateToken issues a token for userID. Tokens are normally minted by the
// identity provider; this exists for local tooling and tests.
func (m *JWTManager) GenerateToken(userID, role string) (string, error) {
	now := time.Now()
	claims := &JWTClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ValidateToken validates a token
func (m *JWTManager) ValidateToken(tokenString string) (*JWTClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secretKey, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
