// Copyright (c) 2026 ViewTube. All rights reserved.

package auth_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BShivaGanesh/viewtube/internal/auth"
	"github.com/BShivaGanesh/viewtube/internal/platform/apperr"
	"github.com/BShivaGanesh/viewtube/internal/platform/sec"
)

// ── Fakes ────────────────────────────────────────────────────────────────────

// fakeUserRepository is an in-memory [auth.UserRepository]. The mutex makes it
// safe for the concurrent-refresh test.
type fakeUserRepository struct {
	mu    sync.Mutex
	users map[string]*auth.User
}

func newFakeUserRepository() *fakeUserRepository {
	return &fakeUserRepository{users: make(map[string]*auth.User)}
}

func (repo *fakeUserRepository) FindByID(_ context.Context, id string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) FindByUsername(_ context.Context, username string) (*auth.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, user := range repo.users {
		if user.Username == strings.ToLower(username) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (repo *fakeUserRepository) Create(_ context.Context, user *auth.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	for _, existing := range repo.users {
		if existing.Email == user.Email {
			return apperr.Conflict("User with email already exists")
		}
		if existing.Username == user.Username {
			return apperr.Conflict("Username is already taken")
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	repo.users[user.ID] = &clone
	return nil
}

func (repo *fakeUserRepository) SetRefreshToken(_ context.Context, userID, token string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.RefreshToken = token
	return nil
}

func (repo *fakeUserRepository) SwapRefreshToken(_ context.Context, userID, previous, next string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[userID]
	if !ok || user.RefreshToken != previous {
		return auth.ErrRefreshTokenStale
	}
	user.RefreshToken = next
	return nil
}

func (repo *fakeUserRepository) ClearRefreshToken(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[userID]; ok {
		user.RefreshToken = ""
	}
	return nil
}

func (repo *fakeUserRepository) MarkVerified(_ context.Context, userID string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	user, ok := repo.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.IsVerified = true
	return nil
}

// storedToken looks past the repository API for assertions only.
func (repo *fakeUserRepository) storedToken(userID string) string {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if user, ok := repo.users[userID]; ok {
		return user.RefreshToken
	}
	return ""
}

// fakeVerificationTokenRepository is an in-memory token map.
type fakeVerificationTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeVerificationTokenRepository() *fakeVerificationTokenRepository {
	return &fakeVerificationTokenRepository{tokens: make(map[string]string)}
}

func (repo *fakeVerificationTokenRepository) Set(_ context.Context, token, userID string, _ time.Duration) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	repo.tokens[token] = userID
	return nil
}

func (repo *fakeVerificationTokenRepository) Get(_ context.Context, token string) (string, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	if userID, ok := repo.tokens[token]; ok {
		return userID, nil
	}
	return "", apperr.NotFound("Verification token")
}

func (repo *fakeVerificationTokenRepository) Delete(_ context.Context, token string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()
	delete(repo.tokens, token)
	return nil
}

// ── Fixtures ─────────────────────────────────────────────────────────────────

func newTestService(t *testing.T) (*auth.Service, *fakeUserRepository) {
	t.Helper()
	users := newFakeUserRepository()
	codec := sec.NewTokenCodec("viewtube.test",
		sec.KindPolicy{Secret: []byte("access-secret-for-tests-only"), TTL: 15 * time.Minute},
		sec.KindPolicy{Secret: []byte("refresh-secret-for-tests-only"), TTL: 240 * time.Hour},
	)
	return auth.NewService(users, newFakeVerificationTokenRepository(), codec), users
}

func validRegisterInput() auth.RegisterInput {
	return auth.RegisterInput{
		Fullname:  "Shiva Ganesh",
		Email:     "shiva@viewtube.app",
		Username:  "Shiva",
		Password:  "sup3r-secret",
		AvatarURL: "https://cdn.viewtube.app/media/avatars/a1.png",
	}
}

func registerAndLogin(t *testing.T, service *auth.Service) (*auth.PublicUser, *auth.LoginSession) {
	t.Helper()
	ctx := context.Background()

	user, err := service.Register(ctx, validRegisterInput())
	require.NoError(t, err)

	session, err := service.Login(ctx, auth.LoginInput{
		Email:    "shiva@viewtube.app",
		Password: "sup3r-secret",
	})
	require.NoError(t, err)
	return user, session
}

// ── Registration ─────────────────────────────────────────────────────────────

/*
TestRegister_Success checks the happy path: a persisted, sanitized user with a
lower-cased username.
*/
func TestRegister_Success(t *testing.T) {
	service, _ := newTestService(t)

	user, err := service.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "shiva", user.Username, "usernames are stored lower-cased")
	assert.Equal(t, "shiva@viewtube.app", user.Email)
	assert.False(t, user.IsVerified)
}

/*
TestRegister_MissingFields verifies that any blank required field (after
trimming) fails validation and creates no record.
*/
func TestRegister_MissingFields(t *testing.T) {
	mutations := []struct {
		name   string
		mutate func(*auth.RegisterInput)
	}{
		{"missing_fullname", func(in *auth.RegisterInput) { in.Fullname = "  " }},
		{"missing_email", func(in *auth.RegisterInput) { in.Email = "" }},
		{"missing_username", func(in *auth.RegisterInput) { in.Username = "\t" }},
		{"missing_password", func(in *auth.RegisterInput) { in.Password = "   " }},
		{"missing_avatar", func(in *auth.RegisterInput) { in.AvatarURL = "" }},
	}

	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			service, users := newTestService(t)

			input := validRegisterInput()
			tt.mutate(&input)

			_, err := service.Register(context.Background(), input)
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus)
			assert.Empty(t, users.users, "no user record may be created")
		})
	}
}

/*
TestRegister_DuplicateIdentity verifies the Conflict mapping for both unique
identity fields.
*/
func TestRegister_DuplicateIdentity(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	_, err := service.Register(ctx, validRegisterInput())
	require.NoError(t, err)

	t.Run("duplicate_email", func(t *testing.T) {
		input := validRegisterInput()
		input.Username = "someone-else"

		_, err := service.Register(ctx, input)
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusConflict, ae.HTTPStatus)
		assert.Equal(t, "User with email already exists", ae.Message)
	})

	t.Run("duplicate_username", func(t *testing.T) {
		input := validRegisterInput()
		input.Email = "other@viewtube.app"
		input.Username = "SHIVA" // case-insensitive collision

		_, err := service.Register(ctx, input)
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusConflict, ae.HTTPStatus)
		assert.Equal(t, "Username is already taken", ae.Message)
	})
}

/*
TestRegister_PasswordIsHashed verifies that the stored credential is a bcrypt
hash, never the plain password.
*/
func TestRegister_PasswordIsHashed(t *testing.T) {
	service, users := newTestService(t)

	user, err := service.Register(context.Background(), validRegisterInput())
	require.NoError(t, err)

	stored := users.users[user.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "sup3r-secret", stored.PasswordHash)
	assert.True(t, sec.CheckPasswordHash("sup3r-secret", stored.PasswordHash))
}

/*
TestRegister_PasswordStoredAsTyped guards the register/login agreement on
whitespace: the password is hashed exactly as typed, so a whitespace-padded
password logs in with the identical string and nothing else.
*/
func TestRegister_PasswordStoredAsTyped(t *testing.T) {
	service, _ := newTestService(t)
	ctx := context.Background()

	input := validRegisterInput()
	input.Password = "  spaced secret  "
	_, err := service.Register(ctx, input)
	require.NoError(t, err)

	// The identical padded string authenticates.
	_, err = service.Login(ctx, auth.LoginInput{
		Email:    "shiva@viewtube.app",
		Password: "  spaced secret  ",
	})
	require.NoError(t, err)

	// The trimmed variant is a different password.
	_, err = service.Login(ctx, auth.LoginInput{
		Email:    "shiva@viewtube.app",
		Password: "spaced secret",
	})
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
}

// erroringUserRepository simulates an unreachable store for lookups.
type erroringUserRepository struct {
	*fakeUserRepository
	findErr error
}

func (repo *erroringUserRepository) FindByEmail(context.Context, string) (*auth.User, error) {
	return nil, repo.findErr
}

func (repo *erroringUserRepository) FindByUsername(context.Context, string) (*auth.User, error) {
	return nil, repo.findErr
}

/*
TestRegister_UniquenessCheckFailure verifies that an infrastructure failure
during the uniqueness pre-checks surfaces as a 500 instead of being mistaken
for an available identity.
*/
func TestRegister_UniquenessCheckFailure(t *testing.T) {
	users := &erroringUserRepository{
		fakeUserRepository: newFakeUserRepository(),
		findErr:            errors.New("pool closed"),
	}
	codec := sec.NewTokenCodec("viewtube.test",
		sec.KindPolicy{Secret: []byte("access-secret-for-tests-only"), TTL: 15 * time.Minute},
		sec.KindPolicy{Secret: []byte("refresh-secret-for-tests-only"), TTL: 240 * time.Hour},
	)
	service := auth.NewService(users, newFakeVerificationTokenRepository(), codec)

	_, err := service.Register(context.Background(), validRegisterInput())
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusInternalServerError, ae.HTTPStatus)
	assert.Empty(t, users.users, "no record may be created when the check could not run")
}

// ── Login ────────────────────────────────────────────────────────────────────

/*
TestLogin verifies identifier handling, credential checking, and that a
successful login persists the refresh token on the account.
*/
func TestLogin(t *testing.T) {
	t.Run("no_identifier", func(t *testing.T) {
		service, _ := newTestService(t)
		_, err := service.Login(context.Background(), auth.LoginInput{Password: "x"})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusBadRequest, ae.HTTPStatus)
	})

	t.Run("unknown_user", func(t *testing.T) {
		service, _ := newTestService(t)
		_, err := service.Login(context.Background(), auth.LoginInput{
			Email:    "nobody@viewtube.app",
			Password: "whatever",
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusNotFound, ae.HTTPStatus)
	})

	t.Run("wrong_password", func(t *testing.T) {
		service, _ := newTestService(t)
		_, err := service.Register(context.Background(), validRegisterInput())
		require.NoError(t, err)

		_, err = service.Login(context.Background(), auth.LoginInput{
			Email:    "shiva@viewtube.app",
			Password: "wrong",
		})
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
		assert.Equal(t, "Invalid user credentials", ae.Message)
	})

	t.Run("success_by_username", func(t *testing.T) {
		service, users := newTestService(t)
		user, err := service.Register(context.Background(), validRegisterInput())
		require.NoError(t, err)

		session, err := service.Login(context.Background(), auth.LoginInput{
			Username: "shiva",
			Password: "sup3r-secret",
		})
		require.NoError(t, err)

		assert.Equal(t, user.ID, session.User.ID)
		assert.NotEmpty(t, session.AccessToken)
		assert.NotEmpty(t, session.RefreshToken)
		assert.NotEqual(t, session.AccessToken, session.RefreshToken)

		// The refresh token handed to the client is the one on the record.
		assert.Equal(t, session.RefreshToken, users.storedToken(user.ID))
	})
}

// ── Refresh Rotation ─────────────────────────────────────────────────────────

/*
TestRefresh_Rotation is the anti-replay property: a rotated-away token must be
rejected even though its signature is still cryptographically valid.
*/
func TestRefresh_Rotation(t *testing.T) {
	service, users := newTestService(t)
	user, session := registerAndLogin(t, service)
	ctx := context.Background()

	firstToken := session.RefreshToken

	// First exchange succeeds and rotates the stored value.
	secondPair, err := service.Refresh(ctx, firstToken)
	require.NoError(t, err)
	assert.NotEqual(t, firstToken, secondPair.RefreshToken)
	assert.Equal(t, secondPair.RefreshToken, users.storedToken(user.ID))

	// Replaying the first token must now fail: it no longer matches storage.
	_, err = service.Refresh(ctx, firstToken)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
	assert.Equal(t, "Refresh token is expired or used", ae.Message)

	// The second token is still live.
	_, err = service.Refresh(ctx, secondPair.RefreshToken)
	require.NoError(t, err)
}

/*
TestRefresh_Concurrent races several exchanges of the same refresh token.
Exactly one goroutine may win the rotation; everyone else must see the
replay rejection, and storage must hold the winner's new token.
*/
func TestRefresh_Concurrent(t *testing.T) {
	service, users := newTestService(t)
	user, session := registerAndLogin(t, service)
	ctx := context.Background()

	const racers = 16
	pairs := make([]*auth.TokenPair, racers)
	failures := make([]error, racers)

	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			pairs[slot], failures[slot] = service.Refresh(ctx, session.RefreshToken)
		}(i)
	}
	wg.Wait()

	var winner *auth.TokenPair
	for i := 0; i < racers; i++ {
		if failures[i] == nil {
			require.Nil(t, winner, "only one exchange may succeed")
			winner = pairs[i]
			continue
		}
		ae := apperr.As(failures[i])
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
		assert.Equal(t, "Refresh token is expired or used", ae.Message)
	}

	require.NotNil(t, winner, "exactly one exchange must succeed")
	assert.Equal(t, winner.RefreshToken, users.storedToken(user.ID))
}

/*
TestRefresh_Invalid verifies the rejection matrix for bad refresh tokens.
*/
func TestRefresh_Invalid(t *testing.T) {
	service, _ := newTestService(t)
	_, session := registerAndLogin(t, service)
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		_, err := service.Refresh(ctx, "")
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := service.Refresh(ctx, "not-a-token")
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
	})

	t.Run("access_token_presented", func(t *testing.T) {
		// Signed under the access secret; fails refresh-kind verification.
		_, err := service.Refresh(ctx, session.AccessToken)
		ae := apperr.As(err)
		require.NotNil(t, ae)
		assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)
	})
}

// ── Logout ───────────────────────────────────────────────────────────────────

/*
TestLogout verifies revocation: after logout the previously issued refresh
token is unusable, and logging out twice is harmless.
*/
func TestLogout(t *testing.T) {
	service, users := newTestService(t)
	user, session := registerAndLogin(t, service)
	ctx := context.Background()

	require.NoError(t, service.Logout(ctx, user.ID))
	assert.Empty(t, users.storedToken(user.ID))

	// A still-signed, unexpired token must be rejected after logout.
	_, err := service.Refresh(ctx, session.RefreshToken)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusUnauthorized, ae.HTTPStatus)

	// Idempotent.
	require.NoError(t, service.Logout(ctx, user.ID))
}

// ── Account Queries ──────────────────────────────────────────────────────────

/*
TestCurrentUser verifies the sanitized account view.
*/
func TestCurrentUser(t *testing.T) {
	service, _ := newTestService(t)
	user, _ := registerAndLogin(t, service)

	current, err := service.CurrentUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.ID, current.ID)

	_, err = service.CurrentUser(context.Background(), "missing-id")
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusNotFound, ae.HTTPStatus)
}

/*
TestVerifyEmail verifies consumption of an email verification token.
*/
func TestVerifyEmail(t *testing.T) {
	users := newFakeUserRepository()
	verifyTokens := newFakeVerificationTokenRepository()
	codec := sec.NewTokenCodec("viewtube.test",
		sec.KindPolicy{Secret: []byte("access-secret-for-tests-only"), TTL: 15 * time.Minute},
		sec.KindPolicy{Secret: []byte("refresh-secret-for-tests-only"), TTL: 240 * time.Hour},
	)
	service := auth.NewService(users, verifyTokens, codec)
	ctx := context.Background()

	user, err := service.Register(ctx, validRegisterInput())
	require.NoError(t, err)

	// Registration seeded a hashed token; plant a known one for the test.
	rawToken, err := sec.GenerateSecureToken(32)
	require.NoError(t, err)
	require.NoError(t, verifyTokens.Set(ctx, sec.HashToken(rawToken), user.ID, time.Hour))

	require.NoError(t, service.VerifyEmail(ctx, rawToken))
	assert.True(t, users.users[user.ID].IsVerified)

	// Consumed tokens are single-use.
	err = service.VerifyEmail(ctx, rawToken)
	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, http.StatusNotFound, ae.HTTPStatus)
}
