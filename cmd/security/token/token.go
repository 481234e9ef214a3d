package token

import (
	"errors"
	"time"

	"pazar/cmd/identity"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Claims is the signed claim set for both token classes.
//
// For refresh tokens, RegisteredClaims.ID carries the jti that must equal
// the server-side record id. Access tokens have no jti; they are never
// persisted.
type Claims struct {
	jwt.RegisteredClaims
	Roles []identity.Role `json:"roles,omitempty"`
}

// Issuer signs and verifies access and refresh tokens.
type Issuer struct {
	cfg Config
}

// NewIssuer validates cfg and builds an Issuer.
func NewIssuer(cfg Config) (*Issuer, error) {
	for _, s := range [][]byte{cfg.AccessSecret, cfg.RefreshSecret} {
		if len(s) == 0 {
			return nil, ErrSecretMissing
		}
		if len(s) < minSecretBytes {
			return nil, ErrSecretTooShort
		}
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, ErrInvalidToken
	}
	return &Issuer{cfg: cfg}, nil
}

// IssueAccess signs a short-lived access token for subjectID.
func (i *Issuer) IssueAccess(subjectID string, roles []identity.Role, now time.Time) (signed string, exp time.Time, err error) {
	exp = now.Add(i.cfg.AccessTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.cfg.Issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Roles: roles,
	}

	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.AccessSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueRefresh signs a long-lived refresh token with a fresh jti.
// The jti is generated unconditionally, one per issuance.
func (i *Issuer) IssueRefresh(subjectID string, roles []identity.Role, now time.Time) (signed, jti string, exp time.Time, err error) {
	jti = uuid.NewString()
	exp = now.Add(i.cfg.RefreshTTL)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    i.cfg.Issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Roles: roles,
	}

	signed, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.cfg.RefreshSecret)
	if err != nil {
		return "", "", time.Time{}, err
	}
	return signed, jti, exp, nil
}

// VerifyAccess checks signature and expiry of an access token.
func (i *Issuer) VerifyAccess(raw string, now time.Time) (Claims, error) {
	return i.verify(raw, i.cfg.AccessSecret, now, false)
}

// VerifyRefresh checks signature and expiry of a refresh token and requires
// a non-empty jti.
func (i *Issuer) VerifyRefresh(raw string, now time.Time) (Claims, error) {
	return i.verify(raw, i.cfg.RefreshSecret, now, true)
}

func (i *Issuer) verify(raw string, secret []byte, now time.Time, wantJTI bool) (Claims, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(raw, &claims,
		func(t *jwt.Token) (any, error) { return secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpiredToken
		}
		return Claims{}, ErrInvalidToken
	}

	if claims.Subject == "" {
		return Claims{}, ErrInvalidToken
	}
	if wantJTI && claims.ID == "" {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
