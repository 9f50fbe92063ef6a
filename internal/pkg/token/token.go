package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/oggatonama/oggatonama/internal/pkg/env"
)

const (
	// DefaultTTL is the lifetime of tokens issued at sign-in/sign-up.
	DefaultTTL = 24 * time.Hour
	// ExtendedTTL is the lifetime of the token re-issued after a profile update.
	ExtendedTTL = 7 * 24 * time.Hour
)

var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload carried by a bearer token. The SPA keeps the full
// identity client-side, so the token carries it explicitly instead of the
// server holding session state.
type Claims struct {
	UserID  uint   `json:"uid"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
	jwt.RegisteredClaims
}

func secret() []byte {
	return []byte(env.GetEnv("JWT_SECRET", ""))
}

// Sign issues an HS256 token for the given identity.
func Sign(userID uint, name, email, contact string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:  userID,
		Name:    name,
		Email:   email,
		Contact: contact,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret())
}

// Parse verifies a token string and returns its claims.
func Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return secret(), nil
	})
	if err != nil {
		return nil, err
	}
	if c, ok := token.Claims.(*Claims); ok && token.Valid {
		return c, nil
	}
	return nil, ErrInvalidToken
}
