// Copyright (c) 2026 ViewTube. All rights reserved.

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer via the [auth.TokenCodec] interface.
package sec

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/BShivaGanesh/viewtube/pkg/uuidv7"
)

// TokenKind selects which secret/expiry pair signs and verifies a token.
type TokenKind string

const (
	// KindAccess is the short-lived credential presented on every API call.
	KindAccess TokenKind = "access"

	// KindRefresh is the long-lived credential exchanged for a new pair.
	KindRefresh TokenKind = "refresh"
)

// ErrInvalidToken is returned by [TokenCodec.Verify] for every verification
// failure. Expired, malformed, and tampered tokens deliberately collapse into
// one error: callers answer all three with the same 401.
var ErrInvalidToken = errors.New("sec: invalid token")

// Identity is the user identity carried inside every signed token.
type Identity struct {
	UserID   string `json:"uid"`
	Username string `json:"unm"`
	Email    string `json:"eml"`
}

// tokenClaims is the full JWT payload: registered claims plus [Identity].
type tokenClaims struct {
	jwt.RegisteredClaims
	Identity
}

// KindPolicy is the secret/expiry pair configured per [TokenKind].
type KindPolicy struct {
	Secret []byte
	TTL    time.Duration
}

// TokenCodec signs and verifies the two token kinds using HS256.
//
// # Stateless by design
//
// The codec holds no per-user state. Whether a refresh token is still the
// CURRENT one for its user is decided by the session service against the
// credential store, not here.
type TokenCodec struct {
	issuer   string
	policies map[TokenKind]KindPolicy
}

// NewTokenCodec creates a codec with independent access and refresh policies.
func NewTokenCodec(issuer string, access, refresh KindPolicy) *TokenCodec {
	return &TokenCodec{
		issuer: issuer,
		policies: map[TokenKind]KindPolicy{
			KindAccess:  access,
			KindRefresh: refresh,
		},
	}
}

// Issue signs a token of the given kind carrying the identity.
//
// Each token gets a UUIDv7 'jti', so two mints for the same identity within
// the same second still differ on the wire.
func (codec *TokenCodec) Issue(kind TokenKind, identity Identity) (string, error) {
	policy, ok := codec.policies[kind]
	if !ok {
		return "", fmt.Errorf("sec: unknown token kind %q", kind)
	}

	currentTime := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuidv7.New(),
			Subject:   identity.UserID,
			Issuer:    codec.issuer,
			IssuedAt:  jwt.NewNumericDate(currentTime),
			ExpiresAt: jwt.NewNumericDate(currentTime.Add(policy.TTL)),
		},
		Identity: identity,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(policy.Secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign %s token: %w", kind, err)
	}

	return signedToken, nil
}

// Verify checks the signature and validity of a token of the given kind and
// returns the embedded identity.
//
// Any failure — bad signature, expiry, malformed payload, or a token signed
// under the other kind's secret — yields [ErrInvalidToken].
func (codec *TokenCodec) Verify(kind TokenKind, tokenString string) (*Identity, error) {
	policy, ok := codec.policies[kind]
	if !ok {
		return nil, fmt.Errorf("sec: unknown token kind %q", kind)
	}

	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{},
		func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
			}
			return policy.Secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(codec.issuer),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	identity := claims.Identity
	return &identity, nil
}

// AccessTTL reports the configured access-token lifetime.
func (codec *TokenCodec) AccessTTL() time.Duration {
	return codec.policies[KindAccess].TTL
}

// RefreshTTL reports the configured refresh-token lifetime.
func (codec *TokenCodec) RefreshTTL() time.Duration {
	return codec.policies[KindRefresh].TTL
}
