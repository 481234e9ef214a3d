// Package identity is the principal directory for the pazar marketplace.
//
// It defines the User model, the CLIENT/SELLER/ADMIN role set and its
// authorization rule, and the persistence boundary used by the auth HTTP
// layer. Password hashing lives in pazar/cmd/security/password; this
// package only stores and returns encoded hashes.
package identity
