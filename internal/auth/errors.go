package auth

import "errors"

// Sentinel errors for auth operations.
var (
	ErrTokenInvalid = errors.New("auth: invalid token")
	ErrHashInvalid  = errors.New("auth: invalid password hash")
)
