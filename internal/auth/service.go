package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"forecast.kathykuohome.com/internal/obs"
)

// Service is the only component that mints session tokens. It checks
// credentials against the user store and resolves tokens back to identities.
type Service struct {
	users       UserStore
	codec       *Codec
	revocations Revocations
	domain      string
	now         func() time.Time
	log         *zap.Logger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithRevocations enables not-before markers. Password changes and account
// deletion then invalidate tokens issued earlier. Without it, an issued token
// stays valid until it expires.
func WithRevocations(r Revocations) ServiceOption {
	return func(s *Service) { s.revocations = r }
}

// WithServiceClock overrides time source (useful for tests).
func WithServiceClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithServiceLogger overrides the logger used for degraded-path warnings.
func WithServiceLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) { s.log = l }
}

// NewService wires the auth service. allowedDomain is the only email domain
// accepted at login.
func NewService(users UserStore, codec *Codec, allowedDomain string, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, errors.New("auth: user store is required")
	}
	if codec == nil {
		return nil, ErrMissingSecret
	}
	allowedDomain = strings.ToLower(strings.TrimSpace(allowedDomain))
	if allowedDomain == "" {
		return nil, errors.New("auth: allowed email domain is required")
	}
	s := &Service{users: users, codec: codec, domain: allowedDomain, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AllowedDomain returns the email domain accepted for accounts.
func (s *Service) AllowedDomain() string { return s.domain }

// TokenTTL returns the lifetime of minted tokens.
func (s *Service) TokenTTL() time.Duration { return s.codec.TTL() }

// RevocationEnabled reports whether tokens can be invalidated before expiry.
func (s *Service) RevocationEnabled() bool { return s.revocations != nil }

// Login verifies credentials and returns the account with a fresh token.
// Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password string) (*User, string, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", invalid("Email and password are required")
	}
	if check := ValidateEmail(email, s.domain); !check.Valid {
		return nil, "", invalid(check.Error)
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			burnPasswordCheck(password)
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("lookup user: %w", err)
	}
	if !VerifyPassword(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}
	issuedAt, err := s.issueTime(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	token, err := s.codec.SignAt(user.Identity(), issuedAt)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// issueTime is now, or the user's revocation marker when that lies ahead of
// now, so a token minted in the second of a revocation still outlives it.
func (s *Service) issueTime(ctx context.Context, userID string) (time.Time, error) {
	now := s.now()
	if s.revocations == nil {
		return now, nil
	}
	marker, found, err := s.revocations.RevokedAt(ctx, userID)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
	}
	if found && marker.After(now) {
		return marker, nil
	}
	return now, nil
}

// revocationMarker rounds up to the next whole second. Token iat has second
// resolution, so every token issued up to now falls strictly before it.
func (s *Service) revocationMarker() time.Time {
	return s.now().Truncate(time.Second).Add(time.Second)
}

func (s *Service) logger() *zap.Logger {
	if s.log != nil {
		return s.log
	}
	return obs.Logger()
}

// Authenticate resolves a session token to the caller's identity. Invalid,
// expired or revoked tokens yield ErrSessionExpired. A revocation lookup
// failure yields ErrRevocationUnavailable; callers must deny in both cases.
func (s *Service) Authenticate(ctx context.Context, token string) (Identity, error) {
	claims, ok := s.codec.Verify(token)
	if !ok {
		return Identity{}, ErrSessionExpired
	}
	if s.revocations != nil {
		revokedAt, found, err := s.revocations.RevokedAt(ctx, claims.UserID)
		if err != nil {
			return Identity{}, fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
		}
		if found && (claims.IssuedAt == nil || claims.IssuedAt.Time.Before(revokedAt)) {
			return Identity{}, ErrSessionExpired
		}
	}
	return claims.Identity(), nil
}

// ChangePassword replaces the caller's password after re-checking the current
// one. When revocation is enabled, older tokens are invalidated and a fresh
// token for the caller is returned; otherwise the returned token is empty.
//
// The revocation backend is checked before the hash is written, so an
// unavailable backend leaves the password untouched. If the marker write
// itself fails afterwards, the change stands and is reported as done without
// a fresh token: older sessions then live until they expire.
func (s *Service) ChangePassword(ctx context.Context, caller Identity, current, next string) (string, error) {
	if current == "" || next == "" {
		return "", invalid("Current and new password are required")
	}
	if err := ValidateNewPassword(next); err != nil {
		return "", err
	}
	user, err := s.users.FindByID(ctx, caller.UserID)
	if err != nil {
		return "", err
	}
	if !VerifyPassword(user.PasswordHash, current) {
		return "", ErrInvalidCredentials
	}
	if s.revocations != nil {
		if _, _, err := s.revocations.RevokedAt(ctx, user.ID); err != nil {
			return "", fmt.Errorf("%w: %w", ErrRevocationUnavailable, err)
		}
	}
	hash, err := HashPassword(next)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return "", err
	}
	if s.revocations == nil {
		return "", nil
	}
	marker := s.revocationMarker()
	if err := s.revocations.MarkRevoked(ctx, user.ID, marker); err != nil {
		s.logger().Warn("password changed but older sessions were not revoked",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return "", nil
	}
	return s.codec.SignAt(user.Identity(), marker)
}

// RevokeUser invalidates every token issued to userID so far. It is a no-op
// when revocation is disabled.
func (s *Service) RevokeUser(ctx context.Context, userID string) error {
	if s.revocations == nil {
		return nil
	}
	return s.revocations.MarkRevoked(ctx, userID, s.revocationMarker())
}

// Whoami reports the identity behind token, or false when it cannot be
// trusted for any reason.
func (s *Service) Whoami(ctx context.Context, token string) (Identity, bool) {
	id, err := s.Authenticate(ctx, token)
	return id, err == nil
}
