package user

import "errors"

var (
	ErrDuplicateEmail = errors.New("email already exists")

	// ErrStaleRefreshToken means the compare-and-swap rotation matched no row:
	// the presented token was already rotated out or cleared.
	ErrStaleRefreshToken = errors.New("refresh token no longer matches session slot")
)
