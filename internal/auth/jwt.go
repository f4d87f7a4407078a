// Copyright (c) 2026, the Queqiao contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for any token that fails verification:
// bad signature, tampering, expiry, or an unexpected signing method.
var ErrInvalidToken = errors.New("invalid token")

// TokenIssuer issues and verifies the signed bearer tokens the API runs
// on. Tokens are self-contained; there is no revocation list, so logout is
// client-side discard only.
type TokenIssuer struct {
	secret []byte
	expiry time.Duration
}

// NewTokenIssuer creates a TokenIssuer signing with the given secret.
// Tokens expire after the given duration.
func NewTokenIssuer(secret []byte, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: secret, expiry: expiry}
}

// Issue produces a signed token bound to the subject (a username) with the
// issuer's default expiry.
func (ti *TokenIssuer) Issue(subject string) (string, error) {
	return ti.IssueWithExpiry(subject, ti.expiry)
}

// IssueWithExpiry produces a signed token with an explicit lifetime.
func (ti *TokenIssuer) IssueWithExpiry(subject string, expiry time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	})

	return token.SignedString(ti.secret)
}

// Verify checks signature and expiry and returns the embedded subject.
// Every failure mode collapses to ErrInvalidToken; callers never learn why
// a presented token was rejected.
func (ti *TokenIssuer) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return ti.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	if claims.Subject == "" {
		return "", ErrInvalidToken
	}

	return claims.Subject, nil
}
