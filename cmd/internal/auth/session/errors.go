package session

import "errors"

var (
	// ErrTokenInvalid is returned when a refresh token fails cryptographic
	// verification or does not match the stored hash.
	ErrTokenInvalid = errors.New("refresh token invalid")

	// ErrTokenNotFound is returned when a verified token has no record.
	ErrTokenNotFound = errors.New("refresh token not recognized")

	// ErrTokenExpired is returned when the record is past its expiry.
	ErrTokenExpired = errors.New("refresh token expired")

	// ErrTokenRevoked is returned when the record was revoked without a
	// successor (logout, revoke-all).
	ErrTokenRevoked = errors.New("refresh token revoked")

	// ErrReuseDetected is returned when a rotated (replaced) refresh token is
	// presented again. By the time the caller sees this, the whole downstream
	// lineage has been revoked.
	ErrReuseDetected = errors.New("refresh token reuse detected")

	// ErrSubjectMismatch is returned when a token's sub claim disagrees with
	// the user the caller binds it to.
	ErrSubjectMismatch = errors.New("refresh token subject mismatch")
)
