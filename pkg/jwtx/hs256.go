package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HS256 signs and verifies tokens with a shared secret. It is safe for
// concurrent use.
type HS256 struct {
	key    []byte
	issuer string

	// Now is the clock used for expiry checks; tests replace it.
	Now func() time.Time
}

// NewHS256 returns a signer for secret. The secret must not be empty.
func NewHS256(secret []byte, issuer string) (*HS256, error) {
	if len(secret) == 0 {
		return nil, errors.New("jwtx: empty signing secret")
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &HS256{key: key, issuer: issuer, Now: time.Now}, nil
}

// Issue mints a token for subject.
func (s *HS256) Issue(subject, purpose, stamp string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", ErrNoSubject
	}
	return s.Sign(NewClaims(subject, purpose, stamp, s.issuer, ttl, s.Now().UTC()))
}

// Sign serialises claims into a compact JWS.
func (s *HS256) Sign(c Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := tok.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer, expiry and purpose, and returns the
// claims. Errors are one of the package sentinels.
func (s *HS256) Verify(token, purpose string) (*Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.Now),
		jwt.WithExpirationRequired(),
	)

	claims := &Claims{}
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.key, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrExpired
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return nil, ErrInvalidSig
	default:
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if err := claims.ValidateExpiry(s.Now()); err != nil {
		return nil, err
	}
	if s.issuer != "" && claims.Issuer != s.issuer {
		return nil, ErrIssuer
	}
	if claims.Purpose != purpose {
		return nil, ErrPurpose
	}
	if claims.Subject == "" {
		return nil, ErrNoSubject
	}
	return claims, nil
}
