package identity

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"pazar/cmd/security/password"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements the user directory over PostgreSQL (pazar.users).
//
// The pgx pool is owned by the caller; this store must NOT close it.
// Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   *pgxpool.Pool
	pw     password.Config
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

var pgIdentRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// WithSchema sets the Postgres schema used by the directory (default "pazar").
// The schema name is validated to be a legal PostgreSQL identifier.
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		schema = strings.TrimSpace(schema)
		if schema == "" || !pgIdentRe.MatchString(schema) {
			return fmt.Errorf("identity: invalid schema identifier")
		}
		s.schema = schema
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore. pw controls password hashing
// for CreateUser; verification happens at the HTTP layer against the
// returned PasswordHash.
func NewPostgresStore(pool *pgxpool.Pool, pw password.Config, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		pw:     pw,
		schema: "pazar",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// CreateUser registers a new user carrying exactly one role.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	email := strings.TrimSpace(in.Email)
	fullName := strings.TrimSpace(in.FullName)
	if email == "" || fullName == "" {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "full name and email are required"}
	}
	if _, ok := ParseRole(string(in.Role)); !ok {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: "unknown role"}
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	pwHash, err := s.pw.Hash(in.Password)
	if err != nil {
		return User{}, OpError{Op: op, Kind: ErrInvalidInput, Msg: err.Error()}
	}

	userID, err := NewULID(now)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:           userID,
		Email:        email,
		FullName:     fullName,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: pwHash,
		Roles:        []Role{in.Role},
		CreatedAt:    now,
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO `+s.ident("users")+` (
			id, email, email_norm, full_name, phone, password_hash, roles, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, u.ID, u.Email, NormalizeEmail(u.Email), u.FullName, u.Phone, u.PasswordHash, RoleStrings(u.Roles), u.CreatedAt)
	if err != nil {
		if field, ok := pgClassifyUniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: field}
		}
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

// GetByID loads a user by ID.
func (s *PostgresStore) GetByID(ctx context.Context, id string) (User, error) {
	const op = "identity.GetByID"
	return s.getBy(ctx, op, `id = $1`, id)
}

// GetByEmail loads a user by email (matched on the normalized form).
func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (User, error) {
	const op = "identity.GetByEmail"
	return s.getBy(ctx, op, `email_norm = $1`, NormalizeEmail(email))
}

func (s *PostgresStore) getBy(ctx context.Context, op, where string, arg any) (User, error) {
	var (
		u     User
		roles []string
	)

	err := s.pool.QueryRow(ctx, `
		SELECT id, email, full_name, phone, password_hash, roles, created_at
		FROM `+s.ident("users")+`
		WHERE `+where,
		arg,
	).Scan(&u.ID, &u.Email, &u.FullName, &u.Phone, &u.PasswordHash, &roles, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, NotFoundError{Op: op, Resource: "user"}
	}
	if err != nil {
		return User{}, fmt.Errorf("%s: %w", op, err)
	}

	u.Roles = RolesFromStrings(roles)
	return u, nil
}

// ident safely quotes a schema-qualified identifier: "schema"."name".
func (s *PostgresStore) ident(name string) string {
	return pgx.Identifier{s.schema, name}.Sanitize()
}

func pgClassifyUniqueViolation(err error) (field string, ok bool) {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return "", false
	}
	if pgErr.Code != "23505" { // unique_violation
		return "", false
	}

	// Prefer stable schema constraint names; fall back to substring matching.
	c := strings.ToLower(strings.TrimSpace(pgErr.ConstraintName))
	switch {
	case c == "uq_users_email_norm", strings.Contains(c, "email"):
		return "email", true
	default:
		return "unique", true
	}
}
