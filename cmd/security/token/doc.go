// Package token issues and verifies the signed credentials of the auth core.
//
// Access tokens are short-lived HS256 JWTs carrying {sub, roles, iat, exp};
// refresh tokens additionally carry a jti that keys their server-side
// record. The two classes are signed with distinct secrets so compromising
// one key cannot forge the other class.
package token
