// Copyright (c) 2026 ViewTube. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/BShivaGanesh/viewtube/internal/platform/apperr"
	"github.com/BShivaGanesh/viewtube/internal/platform/constants"
)

// RedisVerificationTokenRepository implements [VerificationTokenRepository]
// using Redis.
//
// Tokens are stored hashed under a namespaced key with a TTL, so expiry is
// enforced by Redis itself and a storage leak never exposes usable tokens.
type RedisVerificationTokenRepository struct {
	client *redis.Client
}

// NewVerificationTokenRepository creates a new Redis-backed VerificationTokenRepository.
func NewVerificationTokenRepository(client *redis.Client) *RedisVerificationTokenRepository {
	return &RedisVerificationTokenRepository{client: client}
}

// Set stores a verification token with its associated userID and TTL.
func (repository *RedisVerificationTokenRepository) Set(ctx context.Context, token string, userID string, ttl time.Duration) error {
	key := constants.RedisPrefixVerifyToken + token

	if err := repository.client.Set(ctx, key, userID, ttl).Err(); err != nil {
		return fmt.Errorf("redis_verify_token_set_failed: %w", err)
	}

	return nil
}

// Get retrieves the userID for a given token.
//
// Returns [apperr.NotFound] if the token is absent or expired.
func (repository *RedisVerificationTokenRepository) Get(ctx context.Context, token string) (string, error) {
	key := constants.RedisPrefixVerifyToken + token

	userID, err := repository.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", apperr.NotFound("Verification token")
		}
		return "", fmt.Errorf("redis_verify_token_get_failed: %w", err)
	}

	return userID, nil
}

// Delete removes the token from Redis.
func (repository *RedisVerificationTokenRepository) Delete(ctx context.Context, token string) error {
	key := constants.RedisPrefixVerifyToken + token

	if err := repository.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis_verify_token_delete_failed: %w", err)
	}

	return nil
}
