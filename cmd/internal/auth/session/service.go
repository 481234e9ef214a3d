package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"pazar/cmd/security/password"
	"pazar/cmd/security/token"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// maxRawTokenLen bounds incoming refresh tokens to avoid pathological inputs
// reaching the verifier or the hash.
const maxRawTokenLen = 4096

// RefreshVerifier is the slice of the token issuer this package needs.
type RefreshVerifier interface {
	VerifyRefresh(raw string, now time.Time) (token.Claims, error)
}

// Service implements the refresh-token lifecycle: create, liveness checks,
// rotation with reuse detection, and revocation.
//
// Rotation must run inside a single database transaction: a crash between
// its steps could otherwise leave either two active tokens for one session
// (a replay window) or zero (the user locked out). The pool exists for that
// transaction; everything else goes through the Store.
type Service struct {
	tokens RefreshVerifier
	hash   password.Config
	store  Store
	pool   *pgxpool.Pool
	log    *slog.Logger
	table  string

	// reuseHook is invoked after a lineage-wide revoke triggered by reuse
	// detection (metrics/audit wiring).
	reuseHook func(userID string)
}

// Option configures optional Service dependencies.
type Option func(*Service)

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithTokenHashConfig overrides the at-rest hash preset.
func WithTokenHashConfig(cfg password.Config) Option {
	return func(s *Service) { s.hash = cfg }
}

// WithReuseHook registers a callback fired on reuse detection.
func WithReuseHook(hook func(userID string)) Option {
	return func(s *Service) {
		if hook != nil {
			s.reuseHook = hook
		}
	}
}

// NewService constructs a Service.
func NewService(pool *pgxpool.Pool, store Store, tokens RefreshVerifier, opts ...Option) *Service {
	s := &Service{
		tokens: tokens,
		hash:   password.RefreshHashConfig(),
		store:  store,
		pool:   pool,
		log:    slog.Default(),
		table:  pgx.Identifier{"pazar", "refresh_tokens"}.Sanitize(),
	}
	// Rotation transactions must target the same table as the store.
	if ps, ok := store.(*PostgresStore); ok {
		s.table = ps.table()
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Create verifies rawToken, binds it to userID and inserts its record.
//
// The sub claim must equal userID; a mismatch is a cross-account confusion
// signal and fails with ErrSubjectMismatch. Only the Argon2id hash of the
// raw token is persisted.
func (s *Service) Create(ctx context.Context, now time.Time, userID, rawToken string, meta Meta) (Record, error) {
	claims, err := s.verifyRaw(rawToken, now)
	if err != nil {
		return Record{}, err
	}
	if claims.Subject != userID {
		return Record{}, ErrSubjectMismatch
	}

	rec, err := s.newRecord(claims, userID, rawToken, now, meta)
	if err != nil {
		return Record{}, err
	}

	if err := s.store.Insert(ctx, rec); err != nil {
		return Record{}, fmt.Errorf("session: insert record: %w", err)
	}
	return rec, nil
}

// Exists reports whether rawToken is currently usable: record present,
// unexpired, unrevoked, and the raw token matches the stored hash. Every
// failure mode yields false, never an error, so callers can present one
// uniform "invalid session" response.
//
// Observing a rotated record here is reuse; the downstream lineage is
// revoked as a side effect before reporting false.
func (s *Service) Exists(ctx context.Context, now time.Time, rawToken string) bool {
	claims, err := s.verifyRaw(rawToken, now)
	if err != nil {
		return false
	}

	rec, err := s.store.GetByID(ctx, claims.ID)
	if err != nil {
		return false
	}

	if rec.Rotated() {
		s.escalateReuse(ctx, now, rec)
		return false
	}
	if rec.RevokedAt != nil {
		return false
	}
	if !rec.ExpiresAt.After(now) {
		return false
	}

	ok, err := s.hash.Verify(rec.TokenHash, rawToken)
	return err == nil && ok
}

// Rotate atomically replaces oldRaw's record with newRaw's.
//
// The old row is locked with SELECT ... FOR UPDATE so two rotations racing
// on the same token serialize; the loser observes the row already rotated
// and fails through the reuse branch, which is the correct outcome, not a
// spurious error.
func (s *Service) Rotate(ctx context.Context, now time.Time, oldRaw, newRaw string, meta Meta) (oldID, newID string, err error) {
	oldClaims, err := s.verifyRaw(oldRaw, now)
	if err != nil {
		return "", "", err
	}
	newClaims, err := s.verifyRaw(newRaw, now)
	if err != nil {
		return "", "", err
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite})
	if err != nil {
		return "", "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	oldRec, err := getByIDForUpdateTx(ctx, tx, s.table, oldClaims.ID)
	if err != nil {
		return "", "", err
	}

	// Reuse-detection point: a rotated record presented again means the
	// token was replayed. Rejecting only this call would leave the
	// attacker's (or victim's) rotated-forward successor silently usable,
	// so the whole downstream lineage is revoked instead.
	if oldRec.Rotated() {
		if err := revokeLineageTx(ctx, tx, s.table, now, oldRec.ID); err != nil {
			return "", "", err
		}
		if err := tx.Commit(ctx); err != nil {
			return "", "", err
		}
		s.onReuse(oldRec)
		return "", "", ErrReuseDetected
	}
	if oldRec.RevokedAt != nil {
		return "", "", ErrTokenRevoked
	}
	if !oldRec.ExpiresAt.After(now) {
		return "", "", ErrTokenExpired
	}

	ok, err := s.hash.Verify(oldRec.TokenHash, oldRaw)
	if err != nil || !ok {
		return "", "", ErrTokenInvalid
	}

	if newClaims.Subject != oldRec.UserID {
		return "", "", ErrSubjectMismatch
	}

	newRec, err := s.newRecord(newClaims, oldRec.UserID, newRaw, now, meta)
	if err != nil {
		return "", "", err
	}

	// A retried client request can re-present a jti that already has a
	// record; drop the stale row before inserting so the id stays unique.
	if err := deleteByIDTx(ctx, tx, s.table, newRec.ID); err != nil {
		return "", "", err
	}
	if err := insertTx(ctx, tx, s.table, newRec); err != nil {
		return "", "", err
	}
	if err := markRotatedTx(ctx, tx, s.table, now, oldRec.ID, newRec.ID); err != nil {
		return "", "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", "", err
	}

	return oldRec.ID, newRec.ID, nil
}

// Remove revokes the record for rawToken (logout). Idempotent: revoking an
// already-revoked record is not an error.
func (s *Service) Remove(ctx context.Context, now time.Time, rawToken string) error {
	claims, err := s.verifyRaw(rawToken, now)
	if err != nil {
		return err
	}
	return s.store.Revoke(ctx, now, claims.ID)
}

// RevokeAllForUser bulk-revokes every live record for a user
// ("log out everywhere", password change).
func (s *Service) RevokeAllForUser(ctx context.Context, now time.Time, userID string) error {
	return s.store.RevokeAllForUser(ctx, now, userID)
}

func (s *Service) verifyRaw(raw string, now time.Time) (token.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxRawTokenLen {
		return token.Claims{}, ErrTokenInvalid
	}
	claims, err := s.tokens.VerifyRefresh(raw, now)
	if err != nil {
		return token.Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (s *Service) newRecord(claims token.Claims, userID, rawToken string, now time.Time, meta Meta) (Record, error) {
	hash, err := s.hash.Hash(rawToken)
	if err != nil {
		return Record{}, fmt.Errorf("session: hash token: %w", err)
	}

	issuedAt := now
	if claims.IssuedAt != nil {
		issuedAt = claims.IssuedAt.Time
	}

	return Record{
		ID:        claims.ID,
		UserID:    userID,
		TokenHash: hash,
		IssuedAt:  issuedAt,
		ExpiresAt: claims.ExpiresAt.Time,
		UserAgent: nilIfEmpty(meta.UserAgent),
		IP:        nilIfEmpty(meta.IP),
	}, nil
}

func (s *Service) escalateReuse(ctx context.Context, now time.Time, rec Record) {
	if err := s.store.RevokeLineage(ctx, now, rec.ID); err != nil {
		s.log.Error("session.reuse.lineage_revoke.fail", "record_id", rec.ID, "err", err)
		return
	}
	s.onReuse(rec)
}

func (s *Service) onReuse(rec Record) {
	s.log.Warn("session.reuse_detected",
		"record_id", rec.ID,
		"user_id", rec.UserID,
	)
	if s.reuseHook != nil {
		s.reuseHook(rec.UserID)
	}
}

func nilIfEmpty(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
