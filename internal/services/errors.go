package services

import "errors"

var (
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrUserNotFound       = errors.New("user not found")
	ErrCourseNotFound     = errors.New("course not found or cannot be deleted")
	ErrUnknownTier        = errors.New("unknown subscription tier")
	ErrNoSubscription     = errors.New("no active subscription")
	ErrUnknownProvider    = errors.New("unknown sync provider")
	ErrCredentialsMissing = errors.New("credentials not configured")
)

// CredentialsError reports that a provider sync was requested without stored credentials.
type CredentialsError struct {
	Provider string
}

func (e *CredentialsError) Error() string {
	return e.Provider + " credentials not configured"
}

func (e *CredentialsError) Is(target error) bool {
	return target == ErrCredentialsMissing
}
