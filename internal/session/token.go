package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token fails verification
var ErrInvalidToken = errors.New("invalid session token")

// Claims carries an identity inside a signed token
type Claims struct {
	jwt.RegisteredClaims
	Type string `json:"type"`
}

// Tokens signs and verifies identity tokens exchanged with the bill store API
type Tokens struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokens creates Tokens using an HMAC secret
func NewTokens(secret string, validity time.Duration) (*Tokens, error) {
	if secret == "" {
		return nil, fmt.Errorf("token secret is required")
	}
	if validity <= 0 {
		validity = 5 * time.Minute
	}
	return &Tokens{
		secret:   []byte(secret),
		validity: validity,
		now:      time.Now,
	}, nil
}

// Issue returns a signed token for the identity
func (t *Tokens) Issue(id Identity) (string, error) {
	now := t.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.validity)),
		},
		Type: id.Type,
	})

	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token and returns the identity it carries
func (t *Tokens) Parse(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(tok *jwt.Token) (interface{}, error) {
		return t.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return Identity{}, ErrInvalidToken
	}
	return Identity{Type: claims.Type, Email: claims.Subject}, nil
}
