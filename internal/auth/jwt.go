package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Opkumar/Book-Review-System/internal/domain"
	"github.com/Opkumar/Book-Review-System/pkg/middleware"
)

const issuer = "book-review"

// Claims are the JWT claims of an access token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager issues and validates HS256 access tokens.
type JWTManager struct {
	secret       []byte
	accessExpiry time.Duration
	now          func() time.Time
}

// NewJWTManager creates a manager signing with secret.
func NewJWTManager(secret string, accessExpiry time.Duration) *JWTManager {
	return &JWTManager{
		secret:       []byte(secret),
		accessExpiry: accessExpiry,
		now:          time.Now,
	}
}

// GenerateAccessToken signs a token for the user and returns it with its
// expiry time.
func (m *JWTManager) GenerateAccessToken(userID, email, role string) (string, time.Time, error) {
	now := m.now().UTC()
	expiresAt := now.Add(m.accessExpiry)
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken parses token and checks its signature, issuer and
// expiry.
func (m *JWTManager) ValidateAccessToken(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid access token claims")
	}
	if claims.UserID == "" {
		return nil, errors.New("access token has no user id")
	}
	if !domain.IsValidRole(claims.Role) {
		return nil, fmt.Errorf("access token has unknown role %q", claims.Role)
	}
	return claims, nil
}

// Validator adapts the manager to the HTTP auth middleware.
func (m *JWTManager) Validator() middleware.TokenValidator {
	return func(token string) (*middleware.Claims, error) {
		c, err := m.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: c.UserID, Email: c.Email, Role: c.Role}, nil
	}
}
