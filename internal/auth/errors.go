package auth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSessionExpired covers every refresh failure: bad signature, expiry,
	// and a token that no longer matches the stored session slot. No automatic
	// recovery exists, the caller has to sign in again.
	ErrSessionExpired = errors.New("expired refresh token, sign in again")
)
