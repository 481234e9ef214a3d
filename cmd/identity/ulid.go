package identity

import (
	"time"

	"pazar/cmd/identity/ids"
)

// NewULID returns a new ULID (26-char string) used as a user ID.
func NewULID(now time.Time) (string, error) {
	return ids.NewULID(now)
}
