package service

import (
	"context"
	"errors"
	"strings"

	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/utils"
	"go.uber.org/zap"
)

// AuthService handles authentication-related operations
type AuthService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	logger     *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(userRepo repository.UserRepository, jwtManager *utils.JWTManager, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// LoginInput represents the login input
type LoginInput struct {
	Email    string
	Password string
}

// LoginOutput represents the login output
type LoginOutput struct {
	User        *entity.User
	AccessToken string
}

// Login authenticates a user and returns an access token
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || !utils.CheckPasswordHash(input.Password, user.Password) {
		return nil, apperror.ErrInvalidCredentials
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Roles())
	if err != nil {
		return nil, err
	}
	return &LoginOutput{User: user, AccessToken: accessToken}, nil
}

// RegisterInput represents the registration input
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Register creates a new customer account
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*LoginOutput, error) {
	user, err := s.createUser(ctx, input, enum.RoleCustomer)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Roles())
	if err != nil {
		return nil, err
	}
	return &LoginOutput{User: user, AccessToken: accessToken}, nil
}

func (s *AuthService) createUser(ctx context.Context, input *RegisterInput, role string) (*entity.User, error) {
	email := normalizeEmail(input.Email)
	existing, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, apperror.NewConflictError("Email already registered")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	user := &entity.User{
		Name:     strings.TrimSpace(input.Name),
		Email:    email,
		Password: hashed,
		Role:     role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, apperror.NewConflictError("Email already registered")
		}
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID.String()), zap.String("role", role))
	return user, nil
}

// Me returns the caller's profile
func (s *AuthService) Me(ctx context.Context, actor Actor) (*entity.User, error) {
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewNotFoundError("User")
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
