package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store over PostgreSQL (pazar.refresh_tokens).
type PostgresStore struct {
	pool   *pgxpool.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema (default "pazar").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("session: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore creates a Postgres-backed refresh-token store.
func NewPostgresStore(pool *pgxpool.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: "pazar"}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("session: nil pool")
	}
	return st, nil
}

func (s *PostgresStore) table() string {
	return pgx.Identifier{s.schema, "refresh_tokens"}.Sanitize()
}

// Insert creates a new active record keyed by jti.
func (s *PostgresStore) Insert(ctx context.Context, rec Record) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+s.table()+` (
			id, user_id, token_hash,
			issued_at, expires_at, revoked_at, replaced_by_id,
			user_agent, ip
		) VALUES ($1, $2, $3, $4, $5, NULL, NULL, $6, $7)
	`, rec.ID, rec.UserID, rec.TokenHash, rec.IssuedAt, rec.ExpiresAt, rec.UserAgent, rec.IP)
	return err
}

// GetByID loads a record by jti.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (Record, error) {
	var rec Record

	err := s.pool.QueryRow(ctx, `
		SELECT id, user_id, token_hash,
		       issued_at, expires_at, revoked_at, replaced_by_id,
		       user_agent, ip
		FROM `+s.table()+`
		WHERE id = $1
	`, id).Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TokenHash,
		&rec.IssuedAt,
		&rec.ExpiresAt,
		&rec.RevokedAt,
		&rec.ReplacedByID,
		&rec.UserAgent,
		&rec.IP,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrTokenNotFound
	}
	if err != nil {
		return Record{}, err
	}

	return rec, nil
}

// Revoke marks a single record revoked (idempotent).
func (s *PostgresStore) Revoke(ctx context.Context, now time.Time, id string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE `+s.table()+`
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE id = $1
	`, id, now)
	return err
}

// RevokeAllForUser revokes every non-revoked record for a user (idempotent).
func (s *PostgresStore) RevokeAllForUser(ctx context.Context, now time.Time, userID string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE `+s.table()+`
		SET revoked_at = COALESCE(revoked_at, $2)
		WHERE user_id = $1 AND revoked_at IS NULL
	`, userID, now)
	return err
}

// RevokeLineage revokes fromID and its whole downstream replaced_by_id chain.
func (s *PostgresStore) RevokeLineage(ctx context.Context, now time.Time, fromID string) error {
	return revokeLineage(ctx, s.pool, s.table(), now, fromID)
}
