package identity

import (
	"context"
	"time"
)

// User is pazar's canonical security principal.
//
// PasswordHash is the Argon2id encoded hash; the plain password is never
// stored or logged. Roles is the authoritative role set; token claims carry
// a snapshot of it that may be stale until the next rotation or login.
type User struct {
	ID           string
	Email        string
	FullName     string
	Phone        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

// CreateUserInput describes a registration request.
// Password is plain text here; the store hashes it before persisting.
type CreateUserInput struct {
	FullName string
	Email    string
	Phone    string
	Password string
	Role     Role
	Now      time.Time
}

// Store is the user-directory persistence boundary.
//
// The session/token core treats everything behind this interface as an
// external collaborator: it reads id/roles for identity resolution and
// writes exactly once, on registration.
type Store interface {
	// CreateUser registers a new user with a single role.
	// A duplicate email yields a ConflictError with Field "email".
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)

	// GetByID loads a user by ID. Missing user yields NotFoundError.
	GetByID(ctx context.Context, id string) (User, error)

	// GetByEmail loads a user by normalized email. Missing user yields NotFoundError.
	GetByEmail(ctx context.Context, email string) (User, error)
}
