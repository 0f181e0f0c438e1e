package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"go.uber.org/zap"
)

// UserService lets the super admin manage staff accounts
type UserService struct {
	userRepo repository.UserRepository
	auth     *AuthService
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo repository.UserRepository, auth *AuthService, logger *zap.Logger) *UserService {
	return &UserService{userRepo: userRepo, auth: auth, logger: logger}
}

// ListAdmins returns every admin account
func (s *UserService) ListAdmins(ctx context.Context, actor Actor) ([]entity.User, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperror.NewForbiddenError("Only the super admin can manage admins")
	}
	return s.userRepo.ListByRole(ctx, enum.RoleAdmin)
}

// CreateAdmin creates a new admin account, or promotes an existing customer
// with the same e-mail.
func (s *UserService) CreateAdmin(ctx context.Context, actor Actor, input *RegisterInput) (*entity.User, error) {
	if !actor.IsSuperAdmin() {
		return nil, apperror.NewForbiddenError("Only the super admin can manage admins")
	}

	existing, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.IsAdmin() {
			return nil, apperror.NewConflictError("User is already an admin")
		}
		existing.Role = enum.RoleAdmin
		if err := s.userRepo.Update(ctx, existing); err != nil {
			return nil, err
		}
		s.logger.Info("customer promoted to admin", zap.String("user_id", existing.ID.String()), zap.String("by", actor.UserID.String()))
		return existing, nil
	}

	if input.Password == "" {
		return nil, apperror.NewFieldError("password", "Password is required for a new account")
	}
	return s.auth.createUser(ctx, input, enum.RoleAdmin)
}

// RemoveAdmin demotes an admin back to a customer. The super admin cannot be
// removed.
func (s *UserService) RemoveAdmin(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsSuperAdmin() {
		return apperror.NewForbiddenError("Only the super admin can manage admins")
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if user == nil || user.Role != enum.RoleAdmin {
		return apperror.NewNotFoundError("Admin")
	}
	if user.IsSuperAdmin {
		return apperror.NewBadRequestError("The super admin cannot be removed")
	}

	user.Role = enum.RoleCustomer
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}
	s.logger.Info("admin removed", zap.String("user_id", id.String()), zap.String("by", actor.UserID.String()))
	return nil
}
