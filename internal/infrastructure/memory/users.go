package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/repository"
)

type userRepository struct{ s *Store }

// NewUserRepository returns the user table of the store
func NewUserRepository(s *Store) repository.UserRepository {
	return &userRepository{s: s}
}

func (r *userRepository) Create(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return repository.ErrDuplicateKey
		}
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	r.s.stamp(&user.CreatedAt, &user.UpdatedAt)
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *userRepository) Update(ctx context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; !ok {
		return ErrNotFound
	}
	user.UpdatedAt = r.s.now()
	r.s.users[user.ID] = *user
	return nil
}

func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.users, id)
	return nil
}

func (r *userRepository) ListByRole(ctx context.Context, role string) ([]entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var users []entity.User
	for _, u := range r.s.users {
		if u.Role == role {
			users = append(users, u)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.Before(users[j].CreatedAt) })
	return users, nil
}

type idempotencyRepository struct{ s *Store }

// NewIdempotencyRepository returns the idempotency key table of the store
func NewIdempotencyRepository(s *Store) repository.IdempotencyRepository {
	return &idempotencyRepository{s: s}
}

func idempotencyID(key string, userID uuid.UUID) string {
	return userID.String() + "|" + key
}

func (r *idempotencyRepository) GetByKey(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	k, ok := r.s.idempotency[idempotencyID(key, userID)]
	if !ok {
		return nil, nil
	}
	return &k, nil
}

func (r *idempotencyRepository) Reserve(ctx context.Context, ikey *entity.IdempotencyKey) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := idempotencyID(ikey.Key, ikey.UserID)
	if _, exists := r.s.idempotency[id]; exists {
		return false, nil
	}
	if ikey.ID == uuid.Nil {
		ikey.ID = uuid.New()
	}
	r.s.stamp(&ikey.CreatedAt, nil)
	r.s.idempotency[id] = *ikey
	return true, nil
}

func (r *idempotencyRepository) Complete(ctx context.Context, ikey *entity.IdempotencyKey) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	id := idempotencyID(ikey.Key, ikey.UserID)
	k, ok := r.s.idempotency[id]
	if !ok {
		return nil
	}
	k.ResponseCode = ikey.ResponseCode
	k.ResponseBody = ikey.ResponseBody
	k.ExpiresAt = ikey.ExpiresAt
	r.s.idempotency[id] = k
	return nil
}

func (r *idempotencyRepository) Delete(ctx context.Context, key string, userID uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.idempotency, idempotencyID(key, userID))
	return nil
}

func (r *idempotencyRepository) DeleteExpired(ctx context.Context) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	for id, k := range r.s.idempotency {
		if now.After(k.ExpiresAt) {
			delete(r.s.idempotency, id)
		}
	}
	return nil
}

type settingsRepository struct{ s *Store }

// NewSettingsRepository returns the store settings row
func NewSettingsRepository(s *Store) repository.SettingsRepository {
	return &settingsRepository{s: s}
}

func (r *settingsRepository) Get(ctx context.Context) (*entity.StoreSettings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.settings == nil {
		return nil, nil
	}
	settings := *r.s.settings
	return &settings, nil
}

func (r *settingsRepository) Save(ctx context.Context, settings *entity.StoreSettings) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if settings.ID == 0 {
		settings.ID = 1
	}
	settings.UpdatedAt = r.s.now()
	saved := *settings
	r.s.settings = &saved
	return nil
}
