// Copyright (c) 2026 ViewTube. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BShivaGanesh/viewtube/internal/platform/apperr"
	"github.com/BShivaGanesh/viewtube/internal/platform/sec"
	"github.com/BShivaGanesh/viewtube/internal/platform/validate"
	"github.com/BShivaGanesh/viewtube/pkg/uuidv7"
)

// TokenCodec defines the contract for signing and verifying session tokens.
type TokenCodec interface {
	// Issue creates a signed token of the given kind carrying the identity.
	Issue(kind sec.TokenKind, identity sec.Identity) (string, error)

	// Verify checks the token against the kind's secret and returns the
	// embedded identity, or [sec.ErrInvalidToken] on any failure.
	Verify(kind sec.TokenKind, token string) (*sec.Identity, error)

	// AccessTTL reports the configured access-token lifetime.
	AccessTTL() time.Duration

	// RefreshTTL reports the configured refresh-token lifetime.
	RefreshTTL() time.Duration
}

// Service implements the authentication session lifecycle.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, rotation,
// or login logic must be reviewed by the security team.
type Service struct {
	userRepository   UserRepository
	verifyRepository VerificationTokenRepository
	codec            TokenCodec
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	verifyRepo VerificationTokenRepository,
	codec TokenCodec,
) *Service {
	return &Service{
		userRepository:   userRepo,
		verifyRepository: verifyRepo,
		codec:            codec,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
//
// AvatarURL and CoverImageURL are already-resolved media references: the
// HTTP layer uploads the files through the media collaborator before the
// service sees them.
type RegisterInput struct {
	Fullname      string
	Email         string
	Username      string
	Password      string
	AvatarURL     string
	CoverImageURL string
}

// Register validates, hashes, and persists a brand new user account.
//
// # Business Rules
//   - Every text field must be non-empty after trimming.
//   - Emails and usernames must both be unique.
//   - The avatar reference is mandatory; the cover image is optional.
//   - Usernames are stored lower-cased.
//
// Returns the sanitized [*PublicUser]; the password hash and refresh-token
// fields never leave this package.
func (service *Service) Register(ctx context.Context, input RegisterInput) (*PublicUser, error) {
	// ── 1. Field Validation ───────────────────────────────────────────────

	fullname := strings.TrimSpace(input.Fullname)
	email := strings.TrimSpace(input.Email)
	username := strings.ToLower(strings.TrimSpace(input.Username))

	// The password is trimmed for the emptiness check only; it is hashed and
	// later compared exactly as typed, whitespace included.
	v := &validate.Validator{}
	v.Required("fullname", fullname).
		Required("email", email).
		Required("username", username).
		Required("password", input.Password)
	if err := v.Err(); err != nil {
		return nil, err
	}

	if input.AvatarURL == "" {
		return nil, validate.RequiredError("avatar", "Avatar file is required")
	}

	// ── 2. Uniqueness Checks ──────────────────────────────────────────────

	// Verify email uniqueness. Return a client-safe Conflict error. Only a
	// NotFound means the identity is available; anything else is an
	// infrastructure failure and must not fall through to Create.
	_, err := service.userRepository.FindByEmail(ctx, email)
	if err == nil {
		return nil, apperr.Conflict("User with email already exists")
	}
	if !apperr.IsNotFound(err) {
		return nil, apperr.Internal(fmt.Errorf("auth_service_email_check_failed: %w", err))
	}

	// Verify username uniqueness as well; the store's unique constraint is
	// the backstop, this check gives the caller a precise message.
	_, err = service.userRepository.FindByUsername(ctx, username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}
	if !apperr.IsNotFound(err) {
		return nil, apperr.Internal(fmt.Errorf("auth_service_username_check_failed: %w", err))
	}

	// ── 3. Security ───────────────────────────────────────────────────────

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	// ── 4. Persistence ────────────────────────────────────────────────────

	user := &User{
		ID:            uuidv7.New(), // Time-sortable ID to prevent PG index fragmentation.
		Fullname:      fullname,
		Email:         email,
		Username:      username,
		PasswordHash:  hashedPassword,
		AvatarURL:     input.AvatarURL,
		CoverImageURL: input.CoverImageURL,
		IsVerified:    false,
	}

	if err := service.userRepository.Create(ctx, user); err != nil {
		return nil, err
	}

	// Read the record back so the response reflects exactly what was stored.
	created, err := service.userRepository.FindByID(ctx, user.ID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_register_readback_failed: %w", err))
	}

	// Generate and store a verification token in Redis as a best-effort side
	// effect; registration never fails because the mailer pipeline is down.
	token, err := sec.GenerateSecureToken(VerificationTokenLength)
	if err == nil {
		_ = service.verifyRepository.Set(ctx, sec.HashToken(token), created.ID, VerificationTokenTTL)
	}

	return created.Public(), nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt. At least one
// of Email/Username must be provided.
type LoginInput struct {
	Email    string
	Username string
	Password string
}

// Login validates user credentials and establishes a session.
//
// # Flow
//  1. Lookup user by email (preferred) or username.
//  2. Verify password hash using Bcrypt.
//  3. Issue a fresh token pair, replacing any previously stored session.
func (service *Service) Login(ctx context.Context, input LoginInput) (*LoginSession, error) {
	email := strings.TrimSpace(input.Email)
	username := strings.TrimSpace(input.Username)

	if email == "" && username == "" {
		return nil, apperr.ValidationError("Username or email is required")
	}

	// ── 1. Fetch User ─────────────────────────────────────────────────────

	var user *User
	var err error
	if email != "" {
		user, err = service.userRepository.FindByEmail(ctx, email)
	} else {
		user, err = service.userRepository.FindByUsername(ctx, username)
	}
	if err != nil {
		return nil, apperr.NotFound("User")
	}

	// ── 2. Security Verification ──────────────────────────────────────────

	// Bcrypt comparison is constant-time, preventing timing attacks.
	if !sec.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("Invalid user credentials")
	}

	// ── 3. Token Issuance ─────────────────────────────────────────────────

	pair, err := service.issuePair(ctx, user.ID, "")
	if err != nil {
		return nil, err
	}

	return &LoginSession{
		User:      user.Public(),
		TokenPair: pair,
	}, nil
}

// Logout clears the user's stored refresh token so it can never be exchanged
// again. Clearing an already-empty field is not an error: logout is idempotent.
func (service *Service) Logout(ctx context.Context, userID string) error {
	if err := service.userRepository.ClearRefreshToken(ctx, userID); err != nil {
		return fmt.Errorf("auth_service_logout_failed: %w", err)
	}
	return nil
}

// # Session Rotation

// Refresh implements the refresh-token rotation mechanism.
//
// A presented token is honored only if it verifies cryptographically AND
// exactly equals the value currently stored on the user's record. Issuing the
// new pair overwrites that stored value via compare-and-swap, which makes
// every refresh token effectively single-use: replaying a stale token — even
// an unexpired one — fails the match check.
//
// Every failure is [apperr.Unauthorized]; the client must log in again.
func (service *Service) Refresh(ctx context.Context, presentedToken string) (*TokenPair, error) {
	// ── 1. Presence ───────────────────────────────────────────────────────

	if presentedToken == "" {
		return nil, apperr.Unauthorized("Missing refresh token")
	}

	// ── 2. Cryptographic Verification ─────────────────────────────────────

	identity, err := service.codec.Verify(sec.KindRefresh, presentedToken)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid refresh token")
	}

	// ── 3. Stored-Value Match (anti-replay guard) ─────────────────────────

	user, err := service.userRepository.FindByID(ctx, identity.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid refresh token")
	}

	if user.RefreshToken != presentedToken {
		return nil, apperr.Unauthorized("Refresh token is expired or used")
	}

	// ── 4. Rotation ───────────────────────────────────────────────────────

	// issuePair swaps against the presented value; a concurrent refresh that
	// rotated first makes this call the race loser and it fails the same way.
	return service.issuePair(ctx, user.ID, presentedToken)
}

// issuePair mints an access/refresh token pair as one atomic value object and
// persists the new refresh token on the user record.
//
// When previousToken is empty the stored value is overwritten outright
// (login). Otherwise the persist is a compare-and-swap against previousToken
// (refresh rotation) and a stale guard maps to Unauthorized.
//
// Any load or persistence failure is fatal for the calling request — the
// session must never be half-issued.
func (service *Service) issuePair(ctx context.Context, userID, previousToken string) (*TokenPair, error) {
	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_issue_pair_load_failed: %w", err))
	}

	identity := sec.Identity{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	}

	accessToken, err := service.codec.Issue(sec.KindAccess, identity)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_issue_access_failed: %w", err))
	}

	refreshToken, err := service.codec.Issue(sec.KindRefresh, identity)
	if err != nil {
		return nil, apperr.Internal(fmt.Errorf("auth_service_issue_refresh_failed: %w", err))
	}

	if previousToken == "" {
		err = service.userRepository.SetRefreshToken(ctx, user.ID, refreshToken)
	} else {
		err = service.userRepository.SwapRefreshToken(ctx, user.ID, previousToken, refreshToken)
	}
	if err != nil {
		if errors.Is(err, ErrRefreshTokenStale) {
			return nil, apperr.Unauthorized("Refresh token is expired or used")
		}
		return nil, apperr.Internal(fmt.Errorf("auth_service_persist_refresh_failed: %w", err))
	}

	now := time.Now()
	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		AccessExpiresAt:  now.Add(service.codec.AccessTTL()),
		RefreshExpiresAt: now.Add(service.codec.RefreshTTL()),
	}, nil
}

// # Account Queries & Verification

// CurrentUser returns the sanitized view of the authenticated account.
func (service *Service) CurrentUser(ctx context.Context, userID string) (*PublicUser, error) {
	user, err := service.userRepository.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Public(), nil
}

// VerifyEmail confirms a user's email address using a secure token.
func (service *Service) VerifyEmail(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return apperr.ValidationError("Verification token is required")
	}

	// Tokens are stored hashed; hash the presented value before lookup.
	userID, err := service.verifyRepository.Get(ctx, sec.HashToken(token))
	if err != nil {
		return err
	}

	if err := service.userRepository.MarkVerified(ctx, userID); err != nil {
		return fmt.Errorf("auth_service_verify_email_failed: %w", err)
	}

	// Cleanup the used verification token from Redis.
	_ = service.verifyRepository.Delete(ctx, sec.HashToken(token))

	return nil
}
