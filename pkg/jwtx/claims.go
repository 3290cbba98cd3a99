// Package jwtx signs and verifies the short-lived, single-purpose tokens the
// blog emails to users (password reset links).
package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultResetTokenTTL is how long a password reset link stays valid.
const DefaultResetTokenTTL = 1800 * time.Second

// PurposePasswordReset marks tokens minted for the reset flow.
const PurposePasswordReset = "password_reset"

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrIssuer     = errors.New("jwtx: issuer mismatch")
	ErrPurpose    = errors.New("jwtx: purpose mismatch")
	ErrNoSubject  = errors.New("jwtx: missing subject")
)

// Claims is the payload of a purpose-bound token.
type Claims struct {
	jwt.RegisteredClaims

	// Purpose stops a token minted for one flow being replayed in another.
	Purpose string `json:"purpose"`

	// Stamp binds the token to the account state it was issued against.
	// The reset flow uses a fingerprint of the current password hash, so the
	// token dies as soon as the password changes.
	Stamp string `json:"stamp,omitempty"`
}

// NewClaims builds claims for subject valid for ttl from now.
func NewClaims(subject, purpose, stamp, issuer string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Purpose: purpose,
		Stamp:   stamp,
	}
}

// ValidateExpiry reports ErrExpired once now is past exp. Tokens without
// an exp are treated as expired.
func (c *Claims) ValidateExpiry(now time.Time) error {
	if c.ExpiresAt == nil || !now.Before(c.ExpiresAt.Time) {
		return ErrExpired
	}
	return nil
}
