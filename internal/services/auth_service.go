package services

import (
	"context"
	"fmt"
	"time"

	"github.com/noneedcode-dev/fiscalist-api/config"
	"github.com/noneedcode-dev/fiscalist-api/internal/auth"
	"github.com/noneedcode-dev/fiscalist-api/internal/models"
	"github.com/noneedcode-dev/fiscalist-api/internal/repositories"
	"github.com/noneedcode-dev/fiscalist-api/pkg/errors"
	"github.com/noneedcode-dev/fiscalist-api/pkg/memorydb"
	"github.com/noneedcode-dev/fiscalist-api/pkg/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const passwordResetTTL = 30 * time.Minute

type AuthService struct {
	userRepo     *repositories.UserRepository
	tokenService *auth.TokenService
	redis        *memorydb.RedisClient
	log          *logrus.Logger
	config       *config.Config
}

func NewAuthService(
	userRepo *repositories.UserRepository,
	tokenService *auth.TokenService,
	redis *memorydb.RedisClient,
	log *logrus.Logger,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:     userRepo,
		tokenService: tokenService,
		redis:        redis,
		log:          log,
		config:       cfg,
	}
}

// Login verifies credentials and issues an access token
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		// Same response for unknown email and bad password
		return nil, errors.NewError("INVALID_CREDENTIALS", "Invalid email or password", errors.ErrUnauthorized.Status)
	}

	if user.Status != "active" {
		return nil, errors.NewError("ACCOUNT_INACTIVE", "Your account is not active. Please contact your advisor.", errors.ErrForbidden.Status)
	}

	if !utils.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, errors.NewError("INVALID_CREDENTIALS", "Invalid email or password", errors.ErrUnauthorized.Status)
	}

	token, err := s.tokenService.GenerateAccessToken(user)
	if err != nil {
		return nil, errors.WrapError(err, "INTERNAL_ERROR", "Failed to generate token", errors.ErrInternalServer.Status)
	}

	if err := s.userRepo.TouchLastLogin(ctx, user.ID); err != nil {
		s.log.WithError(err).WithField("user_id", user.ID).Warn("failed to record login time")
	}

	return &models.LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   s.config.JWT.AccessTokenTTL * 60,
		User:        user,
	}, nil
}

// RequestPasswordReset stores a one-time token in redis keyed by its
// hash. The response is identical whether or not the email exists, so
// the endpoint cannot be used to probe accounts.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		s.log.WithField("email", email).Info("password reset requested for unknown email")
		return "", nil
	}

	token, err := utils.GenerateToken(32)
	if err != nil {
		return "", errors.WrapError(err, "INTERNAL_ERROR", "Failed to generate reset token", errors.ErrInternalServer.Status)
	}

	key := fmt.Sprintf("pwreset:%s", utils.HashToken(token))
	if err := s.redis.Set(ctx, key, user.ID.String(), passwordResetTTL); err != nil {
		return "", errors.WrapError(err, "INTERNAL_ERROR", "Failed to store reset token", errors.ErrInternalServer.Status)
	}

	// TODO: hand the token to the mail delivery service once it exists;
	// until then the caller is responsible for delivering it.
	return token, nil
}

// ConfirmPasswordReset consumes a reset token and sets the new password
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, req *models.PasswordResetConfirmRequest) error {
	key := fmt.Sprintf("pwreset:%s", utils.HashToken(req.Token))
	userIDStr, err := s.redis.Get(ctx, key)
	if err != nil {
		return errors.NewError("INVALID_RESET_TOKEN", "Reset token is invalid or expired", errors.ErrUnauthorized.Status)
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		return errors.NewError("INVALID_RESET_TOKEN", "Reset token is invalid or expired", errors.ErrUnauthorized.Status)
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return errors.NewError("INVALID_RESET_TOKEN", "Reset token is invalid or expired", errors.ErrUnauthorized.Status)
	}

	hash, err := utils.HashPassword(req.NewPassword)
	if err != nil {
		return errors.WrapError(err, "INTERNAL_ERROR", "Failed to hash password", errors.ErrInternalServer.Status)
	}

	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	if err := s.redis.Del(ctx, key); err != nil {
		s.log.WithError(err).Warn("failed to delete consumed reset token")
	}
	return nil
}
