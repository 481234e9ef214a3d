package identity

import "strings"

// NormalizeEmail performs case-insensitive canonicalization.
// Uniqueness is enforced on the normalized form so "A@x.com" and "a@x.com"
// are the same account.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
