// Package session tracks refresh-token lifecycles for the pazar auth core.
//
// Every issued refresh token has exactly one record, keyed by the token's
// jti. Records are never updated except to be revoked: rotation inserts the
// successor record and revokes the predecessor in one transaction, linking
// them via replaced_by_id. Presenting an already-rotated token is treated
// as theft and revokes the whole downstream lineage.
package session
