// Package password implements Argon2id hashing for user secrets.
//
// It serves two distinct call sites with separate parameter presets:
// user passwords (DefaultConfig) and refresh tokens at rest
// (RefreshHashConfig). The encoded hash is self-describing, so
// verification needs no side channel.
package password
