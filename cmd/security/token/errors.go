package token

import "errors"

// Public, stable errors for callers.
//
// API layers must collapse ErrInvalidToken and ErrExpiredToken into one
// uniform "unauthenticated" response; distinguishing them in user-visible
// output is an oracle.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")

	ErrSecretMissing  = errors.New("token secret missing")
	ErrSecretTooShort = errors.New("token secret too short")
)
