package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/platinummonkey/estatehub/pkg/apperrors"
	"github.com/platinummonkey/estatehub/pkg/rbac"
)

const (
	// DefaultSessionTTL is how long a session token stays valid
	DefaultSessionTTL = 24 * time.Hour
	// DefaultIssuer is the iss claim of issued tokens
	DefaultIssuer = "estatehub"
	// minSecretLength is the shortest HMAC secret we accept (256 bits)
	minSecretLength = 32
)

// Claims are the identity claims carried by a session token
type Claims struct {
	TenantID string `json:"tid"`
	Role     string `json:"role"`
	Active   bool   `json:"act"`
	jwt.RegisteredClaims
}

// SessionCodec issues and verifies signed, expiring session tokens
type SessionCodec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionCodec creates a new HS256 session codec
func NewSessionCodec(secret string, issuer string, ttl time.Duration) (*SessionCodec, error) {
	if len(secret) < minSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", minSecretLength)
	}
	if issuer == "" {
		issuer = DefaultIssuer
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionCodec{
		secret: []byte(secret),
		issuer: issuer,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

// Issue creates a signed token for an actor
func (c *SessionCodec) Issue(actor Actor) (string, time.Time, error) {
	now := c.now()
	expiresAt := now.Add(c.ttl)

	claims := Claims{
		TenantID: actor.TenantID,
		Role:     string(actor.Role),
		Active:   actor.IsActive,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   actor.ID,
			Issuer:    c.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify validates a token and returns the actor it identifies.
// Any failure is reported as an authentication error.
func (c *SessionCodec) Verify(tokenString string) (Actor, error) {
	if tokenString == "" {
		return Actor{}, apperrors.Authentication("missing session token")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Actor{}, apperrors.Authentication("session token expired")
		}
		return Actor{}, apperrors.Authentication("invalid session token")
	}

	if claims.Subject == "" || claims.TenantID == "" {
		return Actor{}, apperrors.Authentication("invalid session token")
	}

	return Actor{
		ID:       claims.Subject,
		TenantID: claims.TenantID,
		Role:     rbac.Role(claims.Role),
		IsActive: claims.Active,
	}, nil
}

// TTL returns the lifetime of issued tokens
func (c *SessionCodec) TTL() time.Duration {
	return c.ttl
}
