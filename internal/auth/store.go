// Copyright (c) 2026 ViewTube. All rights reserved.

package auth

import (
	"context"
	"errors"
	"time"
)

// ErrRefreshTokenStale is returned by [UserRepository.SwapRefreshToken] when
// the stored refresh token no longer matches the expected previous value.
//
// This is the loser's signal in a concurrent-rotation race: some other
// request already rotated the token, so the presented one must be rejected.
var ErrRefreshTokenStale = errors.New("auth: stored refresh token changed")

// UserRepository defines the data access contract for user accounts.
//
// # Implementations
//
// The canonical implementation for ViewTube is PostgreSQL
// ([PostgresUserRepository]). The store is the sole arbiter of the
// "current" refresh token; all rotation atomicity guarantees live here.
type UserRepository interface {
	// FindByID returns the account with the given ID.
	//
	// Returns [apperr.NotFound] if the account does not exist.
	FindByID(ctx context.Context, id string) (*User, error)

	// FindByEmail returns the account with the given email.
	//
	// Returns [apperr.NotFound] if no user is registered with this email.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// FindByUsername returns the account with the given username.
	//
	// Returns [apperr.NotFound] if the username is available.
	FindByUsername(ctx context.Context, username string) (*User, error)

	// Create persists a brand-new user account to the storage.
	//
	// Returns [apperr.Conflict] if a unique constraint (email/username) fails.
	Create(ctx context.Context, user *User) error

	// SetRefreshToken unconditionally overwrites the stored refresh token.
	// Used on login, where any previous session is replaced outright.
	SetRefreshToken(ctx context.Context, userID, token string) error

	// SwapRefreshToken replaces the stored refresh token only if it still
	// equals previous — a single-row compare-and-swap. Returns
	// [ErrRefreshTokenStale] when the guard fails.
	SwapRefreshToken(ctx context.Context, userID, previous, next string) error

	// ClearRefreshToken removes the stored refresh token. Clearing an
	// already-empty field is not an error (logout is idempotent).
	ClearRefreshToken(ctx context.Context, userID string) error

	// MarkVerified flips the account's email-verified flag.
	MarkVerified(ctx context.Context, userID string) error
}

// VerificationTokenRepository defines the contract for storing volatile
// email-verification tokens.
type VerificationTokenRepository interface {
	// Set stores a verification token associated with a userID for a limited duration.
	Set(ctx context.Context, token string, userID string, ttl time.Duration) error

	// Get retrieves the userID associated with a given verification token.
	Get(ctx context.Context, token string) (string, error)

	// Delete removes a verification token after successful use.
	Delete(ctx context.Context, token string) error
}
