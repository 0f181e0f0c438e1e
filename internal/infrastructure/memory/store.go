// Package memory is a process-local backend for every repository interface.
// It backs the test suite and DB_DRIVER=memory demo runs. One mutex guards
// all state, so batch operations are atomic with respect to each other.
package memory

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
)

// Store holds all in-memory tables
type Store struct {
	mu          sync.Mutex
	products    map[uuid.UUID]entity.Product
	orders      map[uuid.UUID]entity.Order
	receipts    map[uuid.UUID]entity.Receipt
	users       map[uuid.UUID]entity.User
	sequences   map[string]int64
	idempotency map[string]entity.IdempotencyKey
	settings    *entity.StoreSettings
	now         func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		products:    make(map[uuid.UUID]entity.Product),
		orders:      make(map[uuid.UUID]entity.Order),
		receipts:    make(map[uuid.UUID]entity.Receipt),
		users:       make(map[uuid.UUID]entity.User),
		sequences:   make(map[string]int64),
		idempotency: make(map[string]entity.IdempotencyKey),
		now:         time.Now,
	}
}

// stamp fills creation timestamps the way gorm's autoCreateTime would,
// keeping any value the caller already set.
func (s *Store) stamp(created, updated *time.Time) {
	now := s.now()
	if created.IsZero() {
		*created = now
	}
	if updated != nil {
		*updated = now
	}
}

func copyOrder(o entity.Order) entity.Order {
	o.Items = append([]entity.OrderItem(nil), o.Items...)
	return o
}

func copyReceipt(r entity.Receipt) entity.Receipt {
	r.Items = append([]entity.ReceiptItem(nil), r.Items...)
	return r
}

func copyProduct(p entity.Product) entity.Product {
	if p.DiscountPrice != nil {
		v := *p.DiscountPrice
		p.DiscountPrice = &v
	}
	return p
}
