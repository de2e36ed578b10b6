package model

import "errors"

// Error classes. Every reason error below matches exactly one class with errors.Is.
var (
	ErrAuthentication = errors.New("authentication failed")
	ErrSession        = errors.New("session error")
	ErrAuthorization  = errors.New("authorization failed")
	ErrStorage        = errors.New("storage error")
	ErrValidation     = errors.New("validation failed")
)

// ErrNotFound is returned by stores when a key is absent or expired.
var ErrNotFound = errors.New("not found")

var (
	ErrTokenExpired = newClassError(ErrAuthentication, "token expired")
	ErrTokenInvalid = newClassError(ErrAuthentication, "token invalid")
	ErrTokenRevoked = newClassError(ErrAuthentication, "token revoked")
	// ErrUserInactive is returned when the user behind a token is no longer active.
	ErrUserInactive = newClassError(ErrAuthentication, "user inactive")

	ErrSessionNotFound = newClassError(ErrSession, "session not found")
	ErrSessionExpired  = newClassError(ErrSession, "session expired")

	ErrInsufficientRole = newClassError(ErrAuthorization, "insufficient role")

	ErrStorageTimeout     = newClassError(ErrStorage, "storage timeout")
	ErrStorageUnavailable = newClassError(ErrStorage, "storage unavailable")

	ErrMalformedToken    = newClassError(ErrValidation, "malformed token")
	ErrResetTokenInvalid = newClassError(ErrValidation, "password reset token invalid or used")
)

type classError struct {
	class error
	msg   string
}

func newClassError(class error, msg string) error {
	return &classError{class: class, msg: msg}
}

func (e *classError) Error() string {
	return e.msg
}

// Is reports whether target is the class of e.
func (e *classError) Is(target error) bool {
	return target == e.class
}
