package memory

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/repository"
)

// ErrNotFound is returned by updates addressed at a missing row.
var ErrNotFound = errors.New("record not found")

type productRepository struct{ s *Store }

// NewProductRepository returns the product table of the store
func NewProductRepository(s *Store) repository.ProductRepository {
	return &productRepository{s: s}
}

func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if product.ID == uuid.Nil {
		product.ID = uuid.New()
	}
	if _, exists := r.s.products[product.ID]; exists {
		return repository.ErrDuplicateKey
	}
	r.s.stamp(&product.CreatedAt, &product.UpdatedAt)
	r.s.products[product.ID] = copyProduct(*product)
	return nil
}

func (r *productRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	p = copyProduct(p)
	return &p, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]entity.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	products := make([]entity.Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			products = append(products, copyProduct(p))
		}
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, product *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[product.ID]; !ok {
		return ErrNotFound
	}
	product.UpdatedAt = r.s.now()
	r.s.products[product.ID] = copyProduct(*product)
	return nil
}

func (r *productRepository) List(ctx context.Context, params *repository.ProductFilterParams) ([]entity.Product, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []entity.Product
	search := strings.ToLower(params.Search)
	for _, p := range r.s.products {
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		if params.Category != "" && p.Category != params.Category {
			continue
		}
		if params.InStock && p.Stock <= 0 {
			continue
		}
		matched = append(matched, copyProduct(p))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	params.Validate()
	start, end := params.Bounds(len(matched))
	return matched[start:end], int64(len(matched)), nil
}

func (r *productRepository) SetStock(ctx context.Context, id uuid.UUID, stock int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock = stock
	p.UpdatedAt = r.s.now()
	r.s.products[id] = p
	return nil
}

func (r *productRepository) DecrementClamped(ctx context.Context, id uuid.UUID, amount int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return ErrNotFound
	}
	p.Stock -= amount
	if p.Stock < 0 {
		p.Stock = 0
	}
	r.s.products[id] = p
	return nil
}

func (r *productRepository) AtomicDecrementBatch(ctx context.Context, decrements map[uuid.UUID]int) ([]uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var failed []uuid.UUID
	for id, amount := range decrements {
		p, ok := r.s.products[id]
		if !ok || p.Stock < amount {
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return failed, nil
	}
	for id, amount := range decrements {
		p := r.s.products[id]
		p.Stock -= amount
		r.s.products[id] = p
	}
	return nil, nil
}

func (r *productRepository) AtomicIncrementBatch(ctx context.Context, increments map[uuid.UUID]int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, amount := range increments {
		if p, ok := r.s.products[id]; ok {
			p.Stock += amount
			r.s.products[id] = p
		}
	}
	return nil
}
