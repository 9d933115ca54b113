// Copyright (c) 2026 ViewTube. All rights reserved.

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateSecureToken returns a URL-safe random token of byteLength entropy.
// Used for opaque single-purpose tokens (email verification) that never
// leave the backend except inside a link.
func GenerateSecureToken(byteLength int) (string, error) {
	buffer := make([]byte, byteLength)
	if _, err := rand.Read(buffer); err != nil {
		return "", fmt.Errorf("sec: failed to generate secure token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}

// HashToken returns the SHA-256 digest of a token, URL-safe encoded.
// Opaque tokens are stored hashed so a storage leak does not leak usable tokens.
func HashToken(token string) string {
	digest := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(digest[:])
}
