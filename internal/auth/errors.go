package auth

import "errors"

var (
	ErrNotFound              = errors.New("auth: not found")
	ErrAlreadyExists         = errors.New("auth: already exists")
	ErrInvalidInput          = errors.New("auth: invalid input")
	ErrInvalidCredentials    = errors.New("auth: invalid credentials")
	ErrSessionExpired        = errors.New("auth: session expired")
	ErrMissingSecret         = errors.New("auth: signing secret is not configured")
	ErrRevocationUnavailable = errors.New("auth: revocation store unavailable")
)

// ValidationError carries a message that is safe to show to the caller.
// It matches ErrInvalidInput under errors.Is.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(msg string) error { return &ValidationError{Msg: msg} }
