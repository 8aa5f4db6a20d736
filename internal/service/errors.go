package service

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials  = errors.New("Username or password is incorrect")
	ErrAccountInactive     = errors.New("User account is not active")
	ErrAccountLocked       = errors.New("User account is currently locked out")
	ErrLogoutFailed        = errors.New("Failed to log out of this session using access token provided")
	ErrSessionNotFound     = errors.New("Access token or refresh token is incorrect for session id")
	ErrAccessTokenInvalid  = errors.New("Access token is invalid")
	ErrAccessTokenExpired  = errors.New("Access token has expired")
	ErrRefreshTokenExpired = errors.New("Refresh token has expired - please log in again")
	ErrUsernameTaken       = errors.New("Username already exists")
	ErrTaskNotFound        = errors.New("Task not found")
	ErrPageNotFound        = errors.New("Page not found")
	ErrUpdateFailed        = errors.New("Task not updated - given values may be the same as the stored values")
	ErrEditConflict        = errors.New("Task was modified by another request - please retry")
)

// ValidationError collects every problem found in a request.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func invalid(messages ...string) error {
	return &ValidationError{Messages: messages}
}

// IsAuthError reports whether err should be answered with 401.
func IsAuthError(err error) bool {
	for _, target := range []error{
		ErrInvalidCredentials, ErrAccountInactive, ErrAccountLocked,
		ErrAccessTokenInvalid, ErrAccessTokenExpired, ErrRefreshTokenExpired, ErrSessionNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
