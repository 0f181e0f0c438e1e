package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/infrastructure/memory"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/utils"
	"go.uber.org/zap"
)

func newUserServices(t *testing.T) (*AuthService, *UserService) {
	t.Helper()
	users := memory.NewUserRepository(memory.NewStore())
	auth := NewAuthService(users, utils.NewJWTManager("test-secret", time.Hour), zap.NewNop())
	return auth, NewUserService(users, auth, zap.NewNop())
}

func TestAuthService_RegisterLoginMe(t *testing.T) {
	auth, _ := newUserServices(t)
	ctx := context.Background()

	out, err := auth.Register(ctx, &RegisterInput{Name: " Rahim ", Email: " Rahim@Example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if out.User.Email != "rahim@example.com" || out.User.Name != "Rahim" || out.User.Role != enum.RoleCustomer || out.AccessToken == "" {
		t.Fatalf("unexpected registration %+v", out.User)
	}

	if _, err := auth.Register(ctx, &RegisterInput{Name: "Other", Email: "RAHIM@example.com", Password: "secret123"}); !apperror.IsType(err, apperror.TypeConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}

	if _, err := auth.Login(ctx, &LoginInput{Email: "rahim@example.com", Password: "wrong-pass"}); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	login, err := auth.Login(ctx, &LoginInput{Email: "RAHIM@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	me, err := auth.Me(ctx, Actor{UserID: login.User.ID, Roles: login.User.Roles()})
	if err != nil || me.ID != out.User.ID {
		t.Fatalf("me: %+v %v", me, err)
	}
	if _, err := auth.Me(ctx, Actor{UserID: uuid.New()}); !apperror.IsType(err, apperror.TypeNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
}

func TestUserService_ManageAdmins(t *testing.T) {
	auth, users := newUserServices(t)
	ctx := context.Background()
	super := Actor{UserID: uuid.New(), Roles: []string{enum.RoleAdmin, enum.RoleSuperAdmin}}

	if _, err := users.ListAdmins(ctx, testAdmin); !apperror.IsType(err, apperror.TypeForbidden) {
		t.Fatalf("plain admin must not manage admins, got %v", err)
	}

	created, err := users.CreateAdmin(ctx, super, &RegisterInput{Name: "Karim", Email: "karim@example.com", Password: "secret123"})
	if err != nil || created.Role != enum.RoleAdmin {
		t.Fatalf("create admin: %+v %v", created, err)
	}
	if _, err := users.CreateAdmin(ctx, super, &RegisterInput{Email: "karim@example.com"}); !apperror.IsType(err, apperror.TypeConflict) {
		t.Fatalf("expected conflict for existing admin, got %v", err)
	}
	if _, err := users.CreateAdmin(ctx, super, &RegisterInput{Email: "new@example.com"}); !apperror.IsType(err, apperror.TypeValidation) {
		t.Fatalf("expected password requirement for new account, got %v", err)
	}

	// An existing customer is promoted in place
	customer, err := auth.Register(ctx, &RegisterInput{Name: "Rahim", Email: "rahim@example.com", Password: "secret123"})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	promoted, err := users.CreateAdmin(ctx, super, &RegisterInput{Email: "rahim@example.com"})
	if err != nil || promoted.ID != customer.User.ID || promoted.Role != enum.RoleAdmin {
		t.Fatalf("promote: %+v %v", promoted, err)
	}

	admins, err := users.ListAdmins(ctx, super)
	if err != nil || len(admins) != 2 {
		t.Fatalf("expected 2 admins, got %d %v", len(admins), err)
	}

	if err := users.RemoveAdmin(ctx, super, promoted.ID); err != nil {
		t.Fatalf("remove admin: %v", err)
	}
	if err := users.RemoveAdmin(ctx, super, promoted.ID); !apperror.IsType(err, apperror.TypeNotFound) {
		t.Fatalf("expected not found on second removal, got %v", err)
	}
	admins, _ = users.ListAdmins(ctx, super)
	if len(admins) != 1 {
		t.Fatalf("expected 1 admin after removal, got %d", len(admins))
	}
}
