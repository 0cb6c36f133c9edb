package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	pkgAuth "github.com/backstagehn/storefront-backend/pkg/auth"
	"github.com/backstagehn/storefront-backend/pkg/config"
	"github.com/backstagehn/storefront-backend/pkg/db/models"
	"github.com/backstagehn/storefront-backend/pkg/enums"
	pkgerrors "github.com/backstagehn/storefront-backend/pkg/errors"
)

type fakeUserRepo struct {
	byEmail map[string]*models.User
	nextID  int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]*models.User{}, nextID: 1}
}

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) (*models.User, error) {
	if _, exists := f.byEmail[user.Email]; exists {
		return nil, gorm.ErrDuplicatedKey
	}
	user.ID = f.nextID
	f.nextID++
	f.byEmail[user.Email] = user
	return user, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	user, ok := f.byEmail[email]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

type fakeSessionManager struct {
	active map[string]bool
}

func newFakeSessionManager() *fakeSessionManager {
	return &fakeSessionManager{active: map[string]bool{}}
}

func (f *fakeSessionManager) Generate(_ context.Context, accessID string) error {
	f.active[accessID] = true
	return nil
}

func (f *fakeSessionManager) Revoke(_ context.Context, accessID string) error {
	delete(f.active, accessID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "storefront-test",
		ExpirationMinutes: 60,
		SessionTTLMinutes: 1440,
	}
}

func newTestAuthService(t *testing.T) (Service, *fakeUserRepo, *fakeSessionManager) {
	t.Helper()
	userRepo := newFakeUserRepo()
	sessions := newFakeSessionManager()
	svc, err := NewService(ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessions,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{
			ArgonMemoryKB:    8,
			ArgonTime:        1,
			ArgonParallelism: 1,
			ArgonSaltLen:     8,
			ArgonKeyLen:      16,
		},
	})
	require.NoError(t, err)
	return svc, userRepo, sessions
}

func TestRegisterThenLogin(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		Name:     "Carlos Mejía",
		Email:    "Carlos@Example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, registered.AccessToken)
	assert.Equal(t, "carlos@example.com", registered.User.Email)
	assert.Equal(t, enums.UserRoleUser, registered.User.Role)
	assert.Len(t, sessions.active, 1)

	loggedIn, err := svc.Login(ctx, LoginRequest{
		Email:    "carlos@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, loggedIn.AccessToken)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), loggedIn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, claims.UserID)
	assert.Equal(t, enums.UserRoleUser, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name:     "Ana",
		Email:    "ana@example.com",
		Password: "the right password",
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "ana@example.com", Password: "the wrong password"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
}

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	_, err := svc.Login(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "whatever"})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	assert.Equal(t, invalidCredentialsMessage, typed.Message())
}

func TestRoleComesFromPersistedColumnOnly(t *testing.T) {
	svc, repo, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterRequest{
		Name:     "Admin Hopeful",
		Email:    "hopeful@example.com",
		Password: "long enough password",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleUser, repo.byEmail["hopeful@example.com"].Role)

	// promote in storage, then the next login carries the admin role
	repo.byEmail["hopeful@example.com"].Role = enums.UserRoleAdmin
	loggedIn, err := svc.Login(ctx, LoginRequest{Email: "hopeful@example.com", Password: "long enough password"})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), loggedIn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, enums.UserRoleAdmin, claims.Role)
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, _, sessions := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, RegisterRequest{
		Name:     "Luis",
		Email:    "luis@example.com",
		Password: "another fine password",
	})
	require.NoError(t, err)

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), registered.AccessToken)
	require.NoError(t, err)
	require.True(t, sessions.active[claims.ID])

	require.NoError(t, svc.Logout(ctx, claims.ID))
	assert.False(t, sessions.active[claims.ID])
}
