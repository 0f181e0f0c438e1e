package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
)

// IdempotencyRepository defines the interface for idempotency key operations
type IdempotencyRepository interface {
	// GetByKey retrieves an idempotency key by its key string and user ID
	GetByKey(ctx context.Context, key string, userID uuid.UUID) (*entity.IdempotencyKey, error)
	// Reserve inserts ikey as an in-flight placeholder. It returns false
	// when a record for the same key and user already exists.
	Reserve(ctx context.Context, ikey *entity.IdempotencyKey) (bool, error)
	// Complete stores the response of a reserved key
	Complete(ctx context.Context, ikey *entity.IdempotencyKey) error
	// Delete drops a key so the request can be retried
	Delete(ctx context.Context, key string, userID uuid.UUID) error
	// DeleteExpired removes expired idempotency keys (for cleanup)
	DeleteExpired(ctx context.Context) error
}
