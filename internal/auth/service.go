package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/snapq/snapq-go/internal/apperror"
	"github.com/snapq/snapq-go/internal/config"
	"github.com/snapq/snapq-go/internal/database/models"
	"gorm.io/gorm"
)

// Service handles authentication business logic: token issuance and
// verification. It is carried as an ambient external collaborator rather
// than a core component in its own right.
type Service struct {
	db         *gorm.DB
	redis      *redis.Client
	jwtManager *JWTManager
	config     *config.Config
}

func NewService(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *Service {
	return &Service{
		db:         db,
		redis:      rdb,
		jwtManager: NewJWTManager(cfg),
		config:     cfg,
	}
}

func (s *Service) Register(req *RegisterRequest) (*AuthResponse, error) {
	if err := ValidatePasswordStrength(req.Password); err != nil {
		return nil, apperror.Validation(err.Error())
	}

	var existingUser models.User
	if err := s.db.Where("email = ?", req.Email).First(&existingUser).Error; err == nil {
		return nil, apperror.Conflict("user with this email already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Dependency("database error", err)
	}

	hashedPassword, err := HashPassword(req.Password)
	if err != nil {
		return nil, apperror.Internal("failed to hash password", err)
	}

	user := models.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: hashedPassword,
		Role:     "user",
		IsActive: true,
	}

	if err := s.db.Create(&user).Error; err != nil {
		return nil, apperror.Internal("failed to create user", err)
	}

	return s.issueTokens(&user)
}

func (s *Service) Login(req *LoginRequest) (*AuthResponse, error) {
	var user models.User
	if err := s.db.Where("email = ? AND is_active = ?", req.Email, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.Auth("invalid credentials")
		}
		return nil, apperror.Dependency("database error", err)
	}

	if err := CheckPassword(user.Password, req.Password); err != nil {
		return nil, apperror.Auth("invalid credentials")
	}

	now := time.Now()
	s.db.Model(&user).Update("last_login_at", &now)

	return s.issueTokens(&user)
}

func (s *Service) RefreshTokens(req *RefreshRequest) (*TokenPair, error) {
	claims, err := s.jwtManager.ValidateToken(req.RefreshToken)
	if err != nil {
		return nil, apperror.Auth("invalid refresh token")
	}

	refreshKey := refreshTokenKey(claims.UserID)
	storedToken, err := s.redis.Get(context.Background(), refreshKey).Result()
	if err != nil || storedToken != req.RefreshToken {
		return nil, apperror.Auth("refresh token not found or expired")
	}

	var user models.User
	if err := s.db.Where("id = ? AND is_active = ?", claims.UserID, true).First(&user).Error; err != nil {
		return nil, apperror.Auth("user not found or inactive")
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperror.Internal("failed to generate tokens", err)
	}

	s.redis.Set(context.Background(), refreshKey, tokens.RefreshToken, s.config.JWTRefreshExpiresIn())

	return tokens, nil
}

func (s *Service) Logout(userID uuid.UUID) error {
	return s.redis.Del(context.Background(), refreshTokenKey(userID)).Err()
}

func (s *Service) GetUserByID(userID uuid.UUID) (*UserResponse, error) {
	var user models.User
	if err := s.db.Where("id = ? AND is_active = ?", userID, true).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user not found")
		}
		return nil, apperror.Dependency("database error", err)
	}

	userResp := s.userToResponse(&user)
	return &userResp, nil
}

// ValidateToken validates a JWT token and returns user info.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	return s.jwtManager.ValidateToken(tokenString)
}

func (s *Service) issueTokens(user *models.User) (*AuthResponse, error) {
	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperror.Internal("failed to generate tokens", err)
	}

	s.redis.Set(context.Background(), refreshTokenKey(user.ID), tokens.RefreshToken, s.config.JWTRefreshExpiresIn())

	return &AuthResponse{
		User:   s.userToResponse(user),
		Tokens: *tokens,
	}, nil
}

func (s *Service) userToResponse(user *models.User) UserResponse {
	return UserResponse{
		ID:            user.ID,
		Name:          user.Name,
		Email:         user.Email,
		Role:          user.Role,
		IsActive:      user.IsActive,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
}

func refreshTokenKey(userID uuid.UUID) string {
	return fmt.Sprintf("refresh_token:%s", userID.String())
}
