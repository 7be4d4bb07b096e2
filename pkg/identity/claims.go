package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the access-token claims issued by the provider.
type Claims struct {
	UserID        string                 `json:"user_id,omitempty"`
	Email         string                 `json:"email,omitempty"`
	EmailVerified *bool                  `json:"email_verified,omitempty"`
	UserMetadata  map[string]interface{} `json:"user_metadata,omitempty"`
	jwt.RegisteredClaims
}

var ErrMissingSubject = errors.New("token carries no user id")

// ParseToken verifies an HS256 access token and returns its claims.
func ParseToken(token, secret string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.AccountID() == "" {
		return nil, ErrMissingSubject
	}
	return claims, nil
}

// AccountID is the user id: the subject, or the legacy user_id claim.
func (c *Claims) AccountID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.UserID
}

func (c *Claims) Verified() bool {
	if c.EmailVerified != nil {
		return *c.EmailVerified
	}
	if v, ok := c.UserMetadata["email_verified"].(bool); ok {
		return v
	}
	return false
}

func (c *Claims) User() User {
	return User{ID: c.AccountID(), Email: c.Email, EmailVerified: c.Verified()}
}

// IssueToken signs claims for user, used by tests and the CLI.
func IssueToken(user User, secret string, ttl time.Duration) (string, error) {
	verified := user.EmailVerified
	now := time.Now()
	claims := Claims{
		Email:         user.Email,
		EmailVerified: &verified,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
