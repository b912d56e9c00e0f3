// Package identity registers till operators and issues their access tokens.
package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stocklink/pos/internal/domain/identity"
	"github.com/stocklink/pos/internal/domain/shared"
	"github.com/stocklink/pos/internal/infrastructure/auth"
	"github.com/stocklink/pos/internal/infrastructure/logger"
)

// PasswordHasher hashes and verifies passwords
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// ErrWeakPassword is returned for passwords below the minimum length
var ErrWeakPassword = shared.NewDomainErrorf("VALIDATION_FAILED",
	"Password must be at least %d characters", identity.MinPasswordLength)

// AuthService handles authentication operations
type AuthService struct {
	users      identity.UserRepository
	hasher     PasswordHasher
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service. blacklist may be
// nil, in which case Logout only succeeds without revoking.
func NewAuthService(
	users identity.UserRepository,
	hasher PasswordHasher,
	jwtService *auth.JWTService,
	blacklist auth.TokenBlacklist,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		users:      users,
		hasher:     hasher,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// Register creates a user with a hashed password
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*UserResponse, error) {
	if len(input.Password) < identity.MinPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	user, err := identity.NewUser(input.Username, input.Email, hash, identity.Role(strings.ToLower(input.Role)))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			logger.Enrich(ctx, s.logger).Warn("Registration for existing user", zap.String("email", user.Email))
		}
		return nil, err
	}

	logger.Enrich(ctx, s.logger).Info("User registered",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)),
	)
	resp := ToUserResponse(user)
	return &resp, nil
}

// Login verifies credentials and issues an access token. Unknown emails and
// wrong passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	log := logger.Enrich(ctx, s.logger)
	email := strings.ToLower(strings.TrimSpace(input.Email))

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identity.ErrUserNotFound) {
			log.Warn("Login for unknown email", zap.String("email", email))
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := s.hasher.Compare(user.PasswordHash, input.Password); err != nil {
		log.Warn("Invalid password attempt", zap.String("email", email))
		return nil, identity.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateAccessToken(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     string(user.Role),
	})
	if err != nil {
		log.Error("Failed to generate access token", zap.Error(err))
		return nil, shared.NewDomainError("INTERNAL_ERROR", "Failed to generate authentication token")
	}

	log.Info("User logged in", zap.Int64("user_id", user.ID), zap.String("username", user.Username))
	return &LoginResult{
		AccessToken: token.Token,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User:        ToUserResponse(user),
	}, nil
}

// ResetPassword replaces the password of the user with the given email
func (s *AuthService) ResetPassword(ctx context.Context, input ResetPasswordInput) error {
	if len(input.NewPassword) < identity.MinPasswordLength {
		return ErrWeakPassword
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := s.users.FindByEmail(ctx, email); err != nil {
		return err
	}
	hash, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, email, hash); err != nil {
		return err
	}
	logger.Enrich(ctx, s.logger).Info("Password reset", zap.String("email", email))
	return nil
}

// Logout revokes the token with the given id until it would have expired
func (s *AuthService) Logout(ctx context.Context, jti string, expiresAt time.Time) error {
	if s.blacklist == nil || jti == "" {
		return nil
	}
	if err := s.blacklist.AddToBlacklist(ctx, jti, time.Until(expiresAt)); err != nil {
		logger.Enrich(ctx, s.logger).Error("Failed to revoke token", zap.Error(err))
		return err
	}
	return nil
}

// Me returns the user behind a token
func (s *AuthService) Me(ctx context.Context, userID int64) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}
