package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultTokenTTL is the lifetime of a session token.
	DefaultTokenTTL = 7 * 24 * time.Hour

	defaultIssuer = "forecast"

	// issuedAtLeeway admits tokens stamped at a revocation marker, which can
	// sit up to one second ahead of the clock.
	issuedAtLeeway = time.Second
)

// Claims is the signed payload of a session token.
type Claims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   Role   `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// Identity converts verified claims into a trust context. A missing or
// unrecognised role resolves to RoleViewer.
func (c *Claims) Identity() Identity {
	return Identity{
		UserID: c.UserID,
		Email:  c.Email,
		Name:   c.Name,
		Role:   ParseRole(string(c.Role)),
	}
}

// Codec signs and verifies HS256 session tokens with a process-wide secret.
// It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

// CodecOption configures Codec behavior.
type CodecOption func(*Codec)

// WithTTL overrides the token lifetime.
func WithTTL(ttl time.Duration) CodecOption {
	return func(c *Codec) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithIssuer overrides the token issuer claim.
func WithIssuer(issuer string) CodecOption {
	return func(c *Codec) {
		if issuer = strings.TrimSpace(issuer); issuer != "" {
			c.issuer = issuer
		}
	}
}

// WithClock overrides time source (useful for tests).
func WithClock(fn func() time.Time) CodecOption {
	return func(c *Codec) {
		if fn != nil {
			c.now = fn
		}
	}
}

// NewCodec builds a Codec. An empty secret yields ErrMissingSecret; callers
// treat that as fatal at startup.
func NewCodec(secret string, opts ...CodecOption) (*Codec, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, ErrMissingSecret
	}
	c := &Codec{
		secret: []byte(secret),
		issuer: defaultIssuer,
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TTL reports the lifetime of tokens minted by this codec.
func (c *Codec) TTL() time.Duration { return c.ttl }

// Sign mints a token binding the identity to an expiry.
func (c *Codec) Sign(id Identity) (string, error) {
	return c.SignAt(id, c.now())
}

// SignAt mints a token whose iat is issuedAt rather than the current time.
func (c *Codec) SignAt(id Identity, issuedAt time.Time) (string, error) {
	userID := strings.TrimSpace(id.UserID)
	if userID == "" {
		return "", errors.New("userID is required")
	}
	now := issuedAt.UTC()
	claims := Claims{
		UserID: userID,
		Email:  id.Email,
		Name:   id.Name,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer and expiry. It never returns an
// error: every failure is reported as (nil, false).
func (c *Codec) Verify(token string) (*Claims, bool) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, false
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(c.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(issuedAtLeeway),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, false
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, false
	}
	if strings.TrimSpace(claims.UserID) == "" || claims.Subject != claims.UserID {
		return nil, false
	}
	return claims, true
}
