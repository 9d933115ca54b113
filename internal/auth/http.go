// Copyright (c) 2026 ViewTube. All rights reserved.

package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BShivaGanesh/viewtube/internal/media"
	"github.com/BShivaGanesh/viewtube/internal/platform/apperr"
	"github.com/BShivaGanesh/viewtube/internal/platform/constants"
	"github.com/BShivaGanesh/viewtube/internal/platform/ctxutil"
	"github.com/BShivaGanesh/viewtube/internal/platform/respond"
	"github.com/BShivaGanesh/viewtube/internal/platform/validate"
)

// maxMultipartMemory bounds the in-memory portion of a registration upload;
// larger parts spill to temp files.
const maxMultipartMemory = 10 << 20

// Handler exposes the authentication lifecycle over HTTP.
//
// # Routes
//
//	POST /register       — multipart enrollment with avatar upload
//	POST /login          — credential exchange, sets token cookies
//	POST /refresh-token  — rotates the refresh token
//	POST /verify-email   — consumes an email verification token
//	POST /logout         — authenticated; revokes the stored session
//	GET  /current-user   — authenticated; returns the sanitized account
type Handler struct {
	service *Service
	media   media.Storage
}

// NewHandler constructs a [Handler] with necessary dependencies.
func NewHandler(service *Service, mediaStorage media.Storage) *Handler {
	return &Handler{
		service: service,
		media:   mediaStorage,
	}
}

// Routes mounts the authentication endpoints on a fresh chi sub-router.
// requireAuth guards the session-bound endpoints and must run after the
// Authenticate middleware.
func (handler *Handler) Routes(requireAuth func(http.Handler) http.Handler) chi.Router {
	router := chi.NewRouter()

	router.Post("/register", respond.Handle(handler.register))
	router.Post("/login", respond.Handle(handler.login))
	router.Post("/refresh-token", respond.Handle(handler.refreshToken))
	router.Post("/verify-email", respond.Handle(handler.verifyEmail))

	router.Group(func(protected chi.Router) {
		protected.Use(requireAuth)
		protected.Post("/logout", respond.Handle(handler.logout))
		protected.Get("/current-user", respond.Handle(handler.currentUser))
	})

	return router
}

// ── 1. Registration ──────────────────────────────────────────────────────────

// register handles multipart/form-data enrollment. The avatar part is
// mandatory; the coverImage part is optional and silently skipped when absent.
func (handler *Handler) register(writer http.ResponseWriter, request *http.Request) error {
	if err := request.ParseMultipartForm(maxMultipartMemory); err != nil {
		return apperr.ValidationError("Request must be multipart/form-data")
	}

	input := RegisterInput{
		Fullname: request.FormValue("fullname"),
		Email:    request.FormValue("email"),
		Username: request.FormValue("username"),
		Password: request.FormValue("password"),
	}

	avatarURL, err := handler.uploadFormFile(request, "avatar", constants.MediaPrefixAvatar)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return validate.RequiredError("avatar", "Avatar file is required")
		}
		return err
	}
	input.AvatarURL = avatarURL

	// Absence of the optional cover image is not an error; upload failures are.
	coverURL, err := handler.uploadFormFile(request, "coverImage", constants.MediaPrefixCover)
	if err != nil && !errors.Is(err, http.ErrMissingFile) {
		return err
	}
	input.CoverImageURL = coverURL

	user, err := handler.service.Register(request.Context(), input)
	if err != nil {
		return err
	}

	respond.Created(writer, user, "User registered Successfully")
	return nil
}

// uploadFormFile streams the named multipart file to object storage and
// returns its public URL. Returns [http.ErrMissingFile] unchanged when the
// part is absent so callers can distinguish optional parts.
func (handler *Handler) uploadFormFile(request *http.Request, field, prefix string) (string, error) {
	file, header, err := request.FormFile(field)
	if err != nil {
		return "", err
	}
	defer file.Close()

	return handler.media.Put(request.Context(), media.Upload{
		Prefix:      prefix,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
}

// ── 2. Login / Logout ────────────────────────────────────────────────────────

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (handler *Handler) login(writer http.ResponseWriter, request *http.Request) error {
	var body loginRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		return validate.ErrInvalidJSON
	}

	session, err := handler.service.Login(request.Context(), LoginInput{
		Email:    body.Email,
		Username: body.Username,
		Password: body.Password,
	})
	if err != nil {
		return err
	}

	setTokenCookies(writer, session.TokenPair)

	// Tokens are returned in the body as well so non-browser clients can use
	// the Bearer header instead of cookies.
	respond.OK(writer, session, "User logged In Successfully")
	return nil
}

func (handler *Handler) logout(writer http.ResponseWriter, request *http.Request) error {
	identity := ctxutil.GetAuthUser(request.Context())
	if identity == nil {
		return apperr.Unauthorized("Authentication required")
	}

	if err := handler.service.Logout(request.Context(), identity.UserID); err != nil {
		return err
	}

	clearTokenCookies(writer)

	respond.OK(writer, nil, "User logged Out")
	return nil
}

// ── 3. Session Rotation ──────────────────────────────────────────────────────

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// refreshToken exchanges a valid refresh token for a fresh pair. The cookie
// takes precedence; the JSON body is the fallback for non-browser clients.
func (handler *Handler) refreshToken(writer http.ResponseWriter, request *http.Request) error {
	presented := ""
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
		presented = cookie.Value
	}
	if presented == "" && request.Body != nil {
		var body refreshRequest
		// A malformed or empty body just means no fallback token was supplied.
		if err := json.NewDecoder(request.Body).Decode(&body); err == nil {
			presented = body.RefreshToken
		}
	}

	pair, err := handler.service.Refresh(request.Context(), presented)
	if err != nil {
		return err
	}

	setTokenCookies(writer, pair)

	respond.OK(writer, pair, "Access token refreshed")
	return nil
}

// ── 4. Account ───────────────────────────────────────────────────────────────

func (handler *Handler) currentUser(writer http.ResponseWriter, request *http.Request) error {
	identity := ctxutil.GetAuthUser(request.Context())
	if identity == nil {
		return apperr.Unauthorized("Authentication required")
	}

	user, err := handler.service.CurrentUser(request.Context(), identity.UserID)
	if err != nil {
		return err
	}

	respond.OK(writer, user, "Current user fetched successfully")
	return nil
}

type verifyEmailRequest struct {
	Token string `json:"token"`
}

func (handler *Handler) verifyEmail(writer http.ResponseWriter, request *http.Request) error {
	var body verifyEmailRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		return validate.ErrInvalidJSON
	}

	if err := handler.service.VerifyEmail(request.Context(), body.Token); err != nil {
		return err
	}

	respond.OK(writer, nil, "Email verified successfully")
	return nil
}

// ── 5. Cookie Plumbing ───────────────────────────────────────────────────────

// setTokenCookies installs both auth cookies. Both are httpOnly and Secure;
// scripts never read them and they only travel over TLS.
func setTokenCookies(writer http.ResponseWriter, pair *TokenPair) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.AccessTokenCookieName,
		Value:    pair.AccessToken,
		Path:     constants.TokenCookiePath,
		Expires:  pair.AccessExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    pair.RefreshToken,
		Path:     constants.TokenCookiePath,
		Expires:  pair.RefreshExpiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteStrictMode,
	})
}

// clearTokenCookies expires both auth cookies immediately.
func clearTokenCookies(writer http.ResponseWriter) {
	for _, name := range []string{constants.AccessTokenCookieName, constants.RefreshTokenCookieName} {
		http.SetCookie(writer, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     constants.TokenCookiePath,
			Expires:  time.Unix(0, 0),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
		})
	}
}
