package token

import "errors"

var (
	// ErrInvalidToken covers malformed tokens and signature mismatches.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when the current time is past expires-at.
	ErrExpiredToken = errors.New("token expired")
	// ErrWrongPurpose is returned when a valid token is presented for another purpose.
	ErrWrongPurpose = errors.New("token purpose mismatch")
)
