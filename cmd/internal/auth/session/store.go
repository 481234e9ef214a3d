package session

import (
	"context"
	"time"
)

// Record mirrors one pazar.refresh_tokens row.
//
// ID equals the jti claim inside the signed refresh token; the signed token
// and the record must never disagree about identity. TokenHash is the
// Argon2id hash of the raw token; the raw token is never stored.
type Record struct {
	ID           string
	UserID       string
	TokenHash    string
	IssuedAt     time.Time
	ExpiresAt    time.Time
	RevokedAt    *time.Time
	ReplacedByID *string
	UserAgent    *string
	IP           *string
}

// Rotated reports whether the record was replaced by a successor.
// A rotated record presented again is the reuse-detection signal.
func (r Record) Rotated() bool {
	return r.RevokedAt != nil && r.ReplacedByID != nil
}

// Meta is client/device context captured at create/rotate time.
type Meta struct {
	UserAgent string
	IP        string
}

// Store abstracts persistence for refresh-token records.
//
// Rotation does not go through this interface; it needs row locking and
// multi-statement atomicity, so the Service drives it directly over a pgx
// transaction.
type Store interface {
	// Insert creates a new active record. The record id is unique; inserting
	// a duplicate id is an error.
	Insert(ctx context.Context, rec Record) error

	// GetByID loads a record by jti. Missing record yields ErrTokenNotFound.
	GetByID(ctx context.Context, id string) (Record, error)

	// Revoke marks the record revoked (idempotent; already-revoked is not an
	// error and keeps its original revocation time).
	Revoke(ctx context.Context, now time.Time, id string) error

	// RevokeAllForUser revokes every non-revoked record of a user.
	RevokeAllForUser(ctx context.Context, now time.Time, userID string) error

	// RevokeLineage revokes fromID and every record reachable downstream via
	// replaced_by_id links.
	RevokeLineage(ctx context.Context, now time.Time, fromID string) error
}
