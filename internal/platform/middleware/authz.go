// Copyright (c) 2026 ViewTube. All rights reserved.

package middleware

import (
	"net/http"
	"strings"

	"github.com/BShivaGanesh/viewtube/internal/platform/apperr"
	"github.com/BShivaGanesh/viewtube/internal/platform/constants"
	"github.com/BShivaGanesh/viewtube/internal/platform/ctxutil"
	"github.com/BShivaGanesh/viewtube/internal/platform/respond"
	"github.com/BShivaGanesh/viewtube/internal/platform/sec"
)

// TokenVerifier defines the interface needed to verify access tokens in middleware.
//
// # Why an interface?
//
// Defining TokenVerifier here decouples the middleware from the concrete
// [sec.TokenCodec], allowing us to easily inject fakes during unit testing.
type TokenVerifier interface {
	Verify(kind sec.TokenKind, token string) (*sec.Identity, error)
}

// Authenticate extracts and verifies the access token from the request.
//
// # Flow
//  1. Check for 'Authorization: Bearer <token>' header.
//  2. Fall back to the accessToken cookie (browser clients).
//  3. If neither is present, the request proceeds as anonymous.
//  4. If present, verify via [TokenVerifier] and inject [*sec.Identity]
//     into the request context for downstream use.
func Authenticate(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			tokenString := ""

			// ── 1. Bearer Header ──────────────────────────────────────────────
			authHeader := request.Header.Get("Authorization")
			if authHeader != "" {
				parts := strings.Split(authHeader, " ")
				if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
					respond.Error(writer, request, apperr.Unauthorized("Invalid authorization format"))
					return
				}
				tokenString = parts[1]
			}

			// ── 2. Cookie Fallback ────────────────────────────────────────────
			if tokenString == "" {
				if cookie, err := request.Cookie(constants.AccessTokenCookieName); err == nil {
					tokenString = cookie.Value
				}
			}

			// ── 3. Anonymous Access ───────────────────────────────────────────
			if tokenString == "" {
				next.ServeHTTP(writer, request)
				return
			}

			// ── 4. Token Verification ─────────────────────────────────────────
			identity, err := verifier.Verify(sec.KindAccess, tokenString)
			if err != nil {
				respond.Error(writer, request, apperr.Unauthorized("Invalid or expired access token"))
				return
			}

			// ── 5. Context Injection ──────────────────────────────────────────
			ctx := ctxutil.WithAuthUser(request.Context(), identity)
			next.ServeHTTP(writer, request.WithContext(ctx))
		})
	}
}

// RequireAuth blocks requests that are not authenticated.
//
// # Usage
//
// Must be registered in the router AFTER [Authenticate].
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		identity := ctxutil.GetAuthUser(request.Context())
		if identity == nil {
			respond.Error(writer, request, apperr.Unauthorized("Authentication required"))
			return
		}
		next.ServeHTTP(writer, request)
	})
}
