package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrForbidden            = errors.New("forbidden")
	ErrDuplicateUser        = errors.New("duplicate user")
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// DuplicateUserError names the field that collided with an existing account.
// It matches ErrDuplicateUser with errors.Is.
type DuplicateUserError struct {
	Field string // "username" or "email"
}

func (e *DuplicateUserError) Error() string {
	return fmt.Sprintf("%s is already taken", e.Field)
}

func (e *DuplicateUserError) Is(target error) bool {
	return target == ErrDuplicateUser
}
