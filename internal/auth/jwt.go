package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/lorrc/community-hub/internal/core/domain"
	apperrors "github.com/lorrc/community-hub/internal/core/errors"
)

// Claims defines the structured data we store in the JWT
type Claims struct {
	UserID uuid.UUID   `json:"user_id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Principal returns the authenticated identity carried by the claims.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{UserID: c.UserID, Role: c.Role}
}

type TokenManager struct {
	secretKey []byte
	ttl       time.Duration
	now       func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{secretKey: []byte(secret), ttl: ttl, now: time.Now}
}

// GenerateToken creates a new JWT access token
func (tm *TokenManager) GenerateToken(userID uuid.UUID, role domain.Role) (string, error) {
	if !role.IsValid() {
		return "", apperrors.ErrInvalidRole
	}

	now := tm.now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tm.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(tm.secretKey)
}

// ValidateToken parses and validates the token string
func (tm *TokenManager) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(tm.now),
	)

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if claims.UserID == uuid.Nil || claims.Subject != claims.UserID.String() {
		return nil, errors.New("token subject does not match user")
	}

	if !claims.Role.IsValid() {
		return nil, apperrors.ErrInvalidRole
	}

	return claims, nil
}

// Verify authenticates a credential presented at connection time.
// Every failure wraps ErrUnauthenticated.
func (tm *TokenManager) Verify(tokenString string) (domain.Principal, error) {
	if tokenString == "" {
		return domain.Principal{}, fmt.Errorf("%w: missing token", apperrors.ErrUnauthenticated)
	}

	claims, err := tm.ValidateToken(tokenString)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("%w: %v", apperrors.ErrUnauthenticated, err)
	}

	return claims.Principal(), nil
}
