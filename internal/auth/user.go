// Copyright (c) 2026 ViewTube. All rights reserved.

// Package auth implements the core identity and session system for ViewTube.
//
// # Architecture
//
// The package owns the authentication session lifecycle: issuance, storage,
// rotation, and validation of paired access/refresh tokens.
//
//   - Service: Orchestrates business logic (Register, Login, Logout, Refresh).
//   - Repository: Abstracted interfaces for Postgres (users) and Redis
//     (verification tokens).
//   - Security: Bcrypt password hashing and HS256-signed JWTs via [sec].
package auth

import (
	"time"
)

// User represents a registered member of the ViewTube platform.
//
// # Rules
//   - Username is unique and stored lower-cased.
//   - Email is unique and validated.
//   - PasswordHash is generated via Bcrypt exclusively by [Service].
//   - RefreshToken is the single currently-valid refresh token for the
//     account. It is overwritten on every login/refresh and cleared on
//     logout; an empty value means no active session.
type User struct {
	ID            string    `json:"id"`
	Fullname      string    `json:"fullname"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"` // Explicitly omitted from JSON for security.
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	RefreshToken  string    `json:"-"` // Current refresh token. Omitted for security.
	IsVerified    bool      `json:"is_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PublicUser is the client-facing projection of [User].
//
// # Why a separate type?
//
// Struct tags alone would protect the JSON encoding, but a dedicated view
// type guarantees at compile time that the password hash and the current
// refresh token can never reach a response, even through reflection-based
// encoders or future fields.
type PublicUser struct {
	ID            string    `json:"id"`
	Fullname      string    `json:"fullname"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	AvatarURL     string    `json:"avatar_url"`
	CoverImageURL string    `json:"cover_image_url,omitempty"`
	IsVerified    bool      `json:"is_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Public returns the sanitized projection of the user.
func (user *User) Public() *PublicUser {
	return &PublicUser{
		ID:            user.ID,
		Fullname:      user.Fullname,
		Username:      user.Username,
		Email:         user.Email,
		AvatarURL:     user.AvatarURL,
		CoverImageURL: user.CoverImageURL,
		IsVerified:    user.IsVerified,
		CreatedAt:     user.CreatedAt,
		UpdatedAt:     user.UpdatedAt,
	}
}

// TokenPair is the session pair: both tokens are always issued together as
// one value object so a request can never observe a half-issued session.
type TokenPair struct {
	AccessToken      string    `json:"accessToken"`
	RefreshToken     string    `json:"refreshToken"`
	AccessExpiresAt  time.Time `json:"-"`
	RefreshExpiresAt time.Time `json:"-"`
}

// LoginSession represents a successfully established user session.
//
// The embedded pair flattens into the response body, so clients receive
// {user, accessToken, refreshToken} rather than a nested pair object.
type LoginSession struct {
	User *PublicUser `json:"user"`
	*TokenPair
}
