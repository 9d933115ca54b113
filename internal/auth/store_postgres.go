// Copyright (c) 2026 ViewTube. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BShivaGanesh/viewtube/internal/platform/apperr"
	"github.com/BShivaGanesh/viewtube/internal/platform/constants"
)

// userTable is the fully qualified account table name.
const userTable = constants.SchemaUsers + ".account"

// userColumns is the canonical select list shared by every Find query.
const userColumns = `
	id, fullname, username, email, passwordhash,
	avatarurl, coverimageurl, refreshtoken, isverified, createdat, updatedat`

// PostgresUserRepository implements the [UserRepository] interface using pgx.
//
// # Atomicity
//
// Refresh rotation relies on PostgreSQL's per-row update atomicity: the
// compare-and-swap in [SwapRefreshToken] is a single UPDATE, so two racing
// refresh calls can never both observe the old token as current.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

// Create persists a new user record into the users.account table.
//
// Unique-constraint violations are mapped to client-safe [apperr.Conflict]
// errors naming the colliding identity field.
func (repository *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	const query = `
		INSERT INTO ` + userTable + ` (
			id, fullname, username, email, passwordhash,
			avatarurl, coverimageurl, refreshtoken, isverified, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(ctx, query,
		user.ID,
		user.Fullname,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.AvatarURL,
		user.CoverImageURL,
		user.RefreshToken,
		user.IsVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == pgerrcode.UniqueViolation {
			// Constraint names come from the migration files.
			if strings.Contains(pgError.ConstraintName, "email") {
				return apperr.Conflict("User with email already exists")
			}
			return apperr.Conflict("Username is already taken")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

// FindByID retrieves a user record by their unique ID.
func (repository *PostgresUserRepository) FindByID(ctx context.Context, id string) (*User, error) {
	query := `SELECT` + userColumns + ` FROM ` + userTable + ` WHERE id = $1`
	return repository.findOne(ctx, query, id, "User")
}

// FindByEmail retrieves a user record by their unique email address.
func (repository *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT` + userColumns + ` FROM ` + userTable + ` WHERE email = $1`
	return repository.findOne(ctx, query, email, "User")
}

// FindByUsername retrieves a user record by their unique username.
//
// Usernames are stored lower-cased, so the argument is normalized here too.
func (repository *PostgresUserRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	query := `SELECT` + userColumns + ` FROM ` + userTable + ` WHERE username = $1`
	return repository.findOne(ctx, query, strings.ToLower(username), "User")
}

// findOne runs a single-row user query and maps pgx.ErrNoRows to apperr.NotFound.
func (repository *PostgresUserRepository) findOne(ctx context.Context, query string, argument any, resource string) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(ctx, query, argument).Scan(
		&user.ID,
		&user.Fullname,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.CoverImageURL,
		&user.RefreshToken,
		&user.IsVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(resource)
		}
		return nil, fmt.Errorf("postgres_user_repo_find_failed: %w", err)
	}

	return user, nil
}

// SetRefreshToken unconditionally overwrites the stored refresh token.
func (repository *PostgresUserRepository) SetRefreshToken(ctx context.Context, userID, token string) error {
	const query = `
		UPDATE ` + userTable + `
		SET refreshtoken = $2, updatedat = $3
		WHERE id = $1`

	tag, err := repository.pool.Exec(ctx, query, userID, token, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_set_refresh_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}

// SwapRefreshToken replaces the stored refresh token only when it still
// equals previous. The WHERE guard makes the read-then-write rotation a
// single atomic row update; the losing side of a race affects zero rows.
func (repository *PostgresUserRepository) SwapRefreshToken(ctx context.Context, userID, previous, next string) error {
	const query = `
		UPDATE ` + userTable + `
		SET refreshtoken = $3, updatedat = $4
		WHERE id = $1 AND refreshtoken = $2`

	tag, err := repository.pool.Exec(ctx, query, userID, previous, next, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_swap_refresh_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrRefreshTokenStale
	}

	return nil
}

// ClearRefreshToken removes the stored refresh token. A missing user or an
// already-empty field both succeed: logout is idempotent.
func (repository *PostgresUserRepository) ClearRefreshToken(ctx context.Context, userID string) error {
	const query = `
		UPDATE ` + userTable + `
		SET refreshtoken = '', updatedat = $2
		WHERE id = $1`

	if _, err := repository.pool.Exec(ctx, query, userID, time.Now()); err != nil {
		return fmt.Errorf("postgres_user_repo_clear_refresh_failed: %w", err)
	}

	return nil
}

// MarkVerified flips the account's email-verified flag.
func (repository *PostgresUserRepository) MarkVerified(ctx context.Context, userID string) error {
	const query = `
		UPDATE ` + userTable + `
		SET isverified = TRUE, updatedat = $2
		WHERE id = $1`

	tag, err := repository.pool.Exec(ctx, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_mark_verified_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User")
	}

	return nil
}
