package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for unknown email and wrong password alike.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailNotConfirmed  = errors.New("email not confirmed")
	// ErrRevoked is returned when a refresh token is no longer the stored one.
	ErrRevoked       = errors.New("refresh token revoked")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrAccountExists = errors.New("account already exists")
)
