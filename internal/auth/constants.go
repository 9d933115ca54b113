// Copyright (c) 2026 ViewTube. All rights reserved.

package auth

import "time"

// # Authentication Constraints

const (
	// VerificationTokenTTL is the duration an email verification token remains valid.
	// Long-lived (24 hours) as users might not check email immediately.
	VerificationTokenTTL = 24 * time.Hour

	// VerificationTokenLength is the byte length of the random verification token.
	VerificationTokenLength = 32
)
