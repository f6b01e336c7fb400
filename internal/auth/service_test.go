package auth

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bennie10colado/JogoPOO-FORK/internal/auth/jwt"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) CreateUser(ctx context.Context, user User, passwordHash string) error {
	return m.Called(ctx, user, passwordHash).Error(0)
}

func (m *mockUserStore) UserByEmail(ctx context.Context, email string) (User, string, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(User), args.String(1), args.Error(2)
}

func (m *mockUserStore) UserByID(ctx context.Context, id uuid.UUID) (User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(User), args.Error(1)
}

func (m *mockUserStore) ListUsers(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]User), args.Error(1)
}

func (m *mockUserStore) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return m.Called(ctx, id, passwordHash).Error(0)
}

func newTestService(t *testing.T, store UserStore) *Service {
	t.Helper()
	return NewService(store, ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte("test-secret"),
			RefreshSecret: []byte("test-secret-refresh"),
			Issuer:        "test",
		},
	}, zerolog.Nop())
}

func TestRegisterPlayer(t *testing.T) {
	store := new(mockUserStore)
	svc := newTestService(t, store)

	store.On("UserByEmail", mock.Anything, "new@example.com").Return(User{}, "", assert.AnError)
	store.On("CreateUser", mock.Anything, mock.MatchedBy(func(u User) bool {
		return u.Email == "new@example.com" && u.Role == RolePlayer && u.ID != uuid.Nil
	}), mock.AnythingOfType("string")).Return(nil)

	user, tokens, err := svc.RegisterPlayer(context.Background(), RegisterRequest{
		Email:       "new@example.com",
		Password:    "password123",
		DisplayName: "Ace",
	})

	require.NoError(t, err)
	assert.Equal(t, RolePlayer, user.Role)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	store.AssertExpectations(t)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	store := new(mockUserStore)
	svc := newTestService(t, store)

	store.On("UserByEmail", mock.Anything, "taken@example.com").Return(User{ID: uuid.New()}, "hash", nil)

	_, _, err := svc.RegisterPlayer(context.Background(), RegisterRequest{
		Email:    "taken@example.com",
		Password: "password123",
	})
	assert.Error(t, err)
	store.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
}

func TestRegisterAdminSetsRole(t *testing.T) {
	store := new(mockUserStore)
	svc := newTestService(t, store)

	store.On("UserByEmail", mock.Anything, "root@example.com").Return(User{}, "", assert.AnError)
	store.On("CreateUser", mock.Anything, mock.MatchedBy(func(u User) bool {
		return u.Role == RoleAdmin
	}), mock.AnythingOfType("string")).Return(nil)

	user, _, err := svc.RegisterAdmin(context.Background(), RegisterRequest{
		Email:    "root@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, user.Role)
}

func TestLogin(t *testing.T) {
	store := new(mockUserStore)
	svc := newTestService(t, store)

	hash, err := HashPassword("password123")
	require.NoError(t, err)
	user := User{ID: uuid.New(), Email: "ace@example.com", Role: RolePlayer}
	store.On("UserByEmail", mock.Anything, "ace@example.com").Return(user, hash, nil)

	got, tokens, err := svc.Login(context.Background(), LoginRequest{
		Email:    "ace@example.com",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, tokens.AccessToken)

	claims, err := svc.ValidateToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, RolePlayer, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	store := new(mockUserStore)
	svc := newTestService(t, store)

	hash, err := HashPassword("password123")
	require.NoError(t, err)
	store.On("UserByEmail", mock.Anything, "ace@example.com").Return(User{ID: uuid.New()}, hash, nil)

	_, _, err = svc.Login(context.Background(), LoginRequest{
		Email:    "ace@example.com",
		Password: "not-the-password",
	})
	assert.Error(t, err)
}

func TestChangePasswordVerifiesCurrent(t *testing.T) {
	store := new(mockUserStore)
	svc := newTestService(t, store)

	hash, err := HashPassword("oldpassword")
	require.NoError(t, err)
	user := User{ID: uuid.New(), Email: "ace@example.com"}
	store.On("UserByID", mock.Anything, user.ID).Return(user, nil)
	store.On("UserByEmail", mock.Anything, user.Email).Return(user, hash, nil)

	err = svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: "wrong-password",
		NewPassword:     "newpassword1",
	})
	assert.ErrorIs(t, err, ErrInvalidPassword)
	store.AssertNotCalled(t, "UpdatePassword", mock.Anything, mock.Anything, mock.Anything)
}

func TestResetPasswordConsumesToken(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	store := new(mockUserStore)
	svc := NewService(store, ServiceOptions{
		TokenConfig: jwt.TokenConfig{
			AccessSecret:  []byte("test-secret"),
			RefreshSecret: []byte("test-secret-refresh"),
		},
		Redis:         client,
		ResetTokenTTL: time.Minute,
	}, zerolog.Nop())

	userID := uuid.New()
	require.NoError(t, mr.Set("auth:reset:tok123", userID.String()))
	store.On("UpdatePassword", mock.Anything, userID, mock.AnythingOfType("string")).Return(nil)

	req := ResetPasswordRequest{Token: "tok123", NewPassword: "newpassword1"}
	require.NoError(t, svc.ResetPassword(context.Background(), req))

	// Second attempt with the same token must fail.
	err = svc.ResetPassword(context.Background(), req)
	assert.ErrorIs(t, err, jwt.ErrInvalidToken)
	store.AssertNumberOfCalls(t, "UpdatePassword", 1)
}

func TestForgotPasswordHidesUnknownEmail(t *testing.T) {
	store := new(mockUserStore)
	svc := newTestService(t, store)

	store.On("UserByEmail", mock.Anything, "ghost@example.com").Return(User{}, "", assert.AnError)

	err := svc.ForgotPassword(context.Background(), "ghost@example.com")
	assert.NoError(t, err)
}

func TestRefreshRoundTrip(t *testing.T) {
	store := new(mockUserStore)
	svc := newTestService(t, store)

	user := User{ID: uuid.New(), Email: "ace@example.com", Role: RolePlayer}
	store.On("UserByEmail", mock.Anything, "new@example.com").Return(User{}, "", assert.AnError).Maybe()
	store.On("UserByID", mock.Anything, user.ID).Return(user, nil)

	hash, err := HashPassword("password123")
	require.NoError(t, err)
	store.On("UserByEmail", mock.Anything, user.Email).Return(user, hash, nil)

	_, tokens, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: "password123"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)

	_, err = svc.Refresh(context.Background(), tokens.AccessToken)
	assert.Error(t, err, "an access token must not pass refresh validation")
}
