package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/KhrystynaYelyseyeva/auth-service/models"
)

var (
	// ErrInvalidToken is returned when a token is malformed, carries a bad
	// signature, or has expired. Callers treat all three identically.
	ErrInvalidToken = errors.New("invalid token")

	// ErrWeakSecret is returned when the signing secret is missing or below
	// the minimum length.
	ErrWeakSecret = errors.New("signing secret must be at least 32 bytes")
)

// minSecretLength mirrors config.MinSecretLength; the codec enforces it
// independently so it cannot be constructed around a weak key.
const minSecretLength = 32

// Claims are the statements carried inside a signed credential token.
type Claims struct {
	jwt.RegisteredClaims
	Role models.Role `json:"role"`
}

// Codec issues and verifies signed, expiring credential tokens. Tokens are
// self-contained: validity is determined entirely by signature and embedded
// expiry, nothing is stored server-side.
type Codec struct {
	secret []byte
	now    func() time.Time
}

// NewCodec creates a Codec keyed by the process-wide signing secret.
func NewCodec(secret string) (*Codec, error) {
	if len(secret) < minSecretLength {
		return nil, ErrWeakSecret
	}
	return &Codec{
		secret: []byte(secret),
		now:    time.Now,
	}, nil
}

// WithClock overrides the codec's clock. Used by tests to simulate expiry.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue produces a signed HS256 token asserting (subjectID, role) valid for
// the given lifetime.
func (c *Codec) Issue(subjectID string, role models.Role, lifetime time.Duration) (string, error) {
	if subjectID == "" {
		return "", fmt.Errorf("issue token: subject is required")
	}
	if !role.Valid() {
		return "", fmt.Errorf("issue token: unknown role %q", role)
	}

	now := c.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(lifetime)),
			ID:        uuid.NewString(),
		},
		Role: role,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry and returns the embedded claims.
// Expiry is strict: no leeway window is granted.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (interface{}, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || !claims.Role.Valid() {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
