package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/bennie10colado/JogoPOO-FORK/internal/auth/jwt"
)

// Roles recognized on accounts.
const (
	RolePlayer = "player"
	RoleAdmin  = "admin"
)

// UserStore persists accounts. The password hash travels separately from the
// User value so it never leaks into response payloads.
type UserStore interface {
	CreateUser(ctx context.Context, user User, passwordHash string) error
	UserByEmail(ctx context.Context, email string) (User, string, error)
	UserByID(ctx context.Context, id uuid.UUID) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// Service handles authentication and account management.
type Service struct {
	store    UserStore
	tokenMgr *jwt.Manager
	redis    *redis.Client
	emailSvc *EmailService
	resetTTL time.Duration
	resetURL string
	logger   zerolog.Logger
}

// ServiceOptions configures the auth service.
type ServiceOptions struct {
	TokenConfig   jwt.TokenConfig
	Redis         *redis.Client
	EmailSvc      *EmailService
	ResetTokenTTL time.Duration
	ResetURL      string
}

// NewService creates an authentication service.
func NewService(store UserStore, opts ServiceOptions, logger zerolog.Logger) *Service {
	resetTTL := opts.ResetTokenTTL
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &Service{
		store:    store,
		tokenMgr: jwt.NewManager(opts.TokenConfig),
		redis:    opts.Redis,
		emailSvc: opts.EmailSvc,
		resetTTL: resetTTL,
		resetURL: opts.ResetURL,
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

func (s *Service) register(ctx context.Context, req RegisterRequest, role string) (*User, *TokenPair, error) {
	if req.Email == "" {
		return nil, nil, fmt.Errorf("email required")
	}
	if _, _, err := s.store.UserByEmail(ctx, req.Email); err == nil {
		return nil, nil, fmt.Errorf("email already registered")
	}

	passwordHash, err := HashPassword(req.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		ID:          uuid.New(),
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Role:        role,
	}
	if err := s.store.CreateUser(ctx, user, passwordHash); err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Str("role", role).Msg("user registered")
	return &user, tokens, nil
}

// RegisterPlayer creates a player account.
func (s *Service) RegisterPlayer(ctx context.Context, req RegisterRequest) (*User, *TokenPair, error) {
	return s.register(ctx, req, RolePlayer)
}

// RegisterAdmin creates an admin account.
func (s *Service) RegisterAdmin(ctx context.Context, req RegisterRequest) (*User, *TokenPair, error) {
	return s.register(ctx, req, RoleAdmin)
}

// Login authenticates a user with email/password.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*User, *TokenPair, error) {
	user, hash, err := s.store.UserByEmail(ctx, req.Email)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid credentials")
	}
	if hash == "" || VerifyPassword(hash, req.Password) != nil {
		return nil, nil, fmt.Errorf("invalid credentials")
	}

	tokens, err := s.generateTokenPair(user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate tokens: %w", err)
	}

	s.logger.Info().Str("user_id", user.ID.String()).Msg("user logged in")
	return &user, tokens, nil
}

// Refresh exchanges a valid refresh token for a new token pair.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := s.tokenMgr.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}
	user, err := s.store.UserByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return s.generateTokenPair(user)
}

// Me fetches the caller's account.
func (s *Service) Me(ctx context.Context, id uuid.UUID) (*User, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListUsers returns every account.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.store.ListUsers(ctx)
}

// ChangePassword verifies the current password before storing the new hash.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, hash, err := s.userWithHash(ctx, userID)
	if err != nil {
		return err
	}
	if VerifyPassword(hash, req.CurrentPassword) != nil {
		return ErrInvalidPassword
	}
	newHash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, user.ID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info().Str("user_id", user.ID.String()).Msg("password changed")
	return nil
}

// ForgotPassword issues a single-use recovery token and emails the reset link.
// A missing account is not revealed to the caller.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, _, err := s.store.UserByEmail(ctx, email)
	if err != nil {
		s.logger.Warn().Str("email", email).Msg("password reset requested for unknown email")
		return nil
	}
	if s.redis == nil || s.emailSvc == nil {
		return fmt.Errorf("password recovery not configured")
	}

	token, err := newResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	key := resetTokenKey(token)
	if err := s.redis.Set(ctx, key, user.ID.String(), s.resetTTL).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s?token=%s", s.resetURL, token)
	if err := s.emailSvc.SendPasswordResetEmail(ctx, user.Email, resetURL); err != nil {
		return err
	}
	return nil
}

// ResetPassword consumes a recovery token. The token is deleted before the
// new hash is written, so it cannot be replayed.
func (s *Service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if s.redis == nil {
		return fmt.Errorf("password recovery not configured")
	}
	key := resetTokenKey(req.Token)
	idStr, err := s.redis.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return jwt.ErrInvalidToken
	}
	if err != nil {
		return fmt.Errorf("lookup reset token: %w", err)
	}
	userID, err := uuid.Parse(idStr)
	if err != nil {
		return jwt.ErrInvalidToken
	}

	newHash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdatePassword(ctx, userID, newHash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.logger.Info().Str("user_id", userID.String()).Msg("password reset")
	return nil
}

// ValidateToken verifies an access token.
func (s *Service) ValidateToken(token string) (*jwt.Claims, error) {
	return s.tokenMgr.ValidateAccessToken(token)
}

func (s *Service) userWithHash(ctx context.Context, id uuid.UUID) (User, string, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		return User{}, "", err
	}
	_, hash, err := s.store.UserByEmail(ctx, user.Email)
	if err != nil {
		return User{}, "", err
	}
	return user, hash, nil
}

func (s *Service) generateTokenPair(user User) (*TokenPair, error) {
	tokenUser := jwt.User{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        user.Role,
	}
	access, err := s.tokenMgr.GenerateAccessToken(tokenUser)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tokenMgr.GenerateRefreshToken(tokenUser)
	if err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tokenMgr.AccessTTL().Seconds()),
	}, nil
}

func newResetToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func resetTokenKey(token string) string {
	return "auth:reset:" + token
}
