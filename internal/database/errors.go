package database

import "errors"

// Domain errors mapped from store uniqueness and lookup failures. Backends
// translate driver-specific errors into these so callers never match on
// driver codes.
var (
	ErrEmailExists     = errors.New("email already exists")
	ErrAlreadyEnrolled = errors.New("student already registered in this class")
	ErrUserNotFound    = errors.New("user not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrInvalidRole     = errors.New("invalid role: must be student, teacher or admin")
	ErrInvalidStatus   = errors.New("invalid attendance status")
)
