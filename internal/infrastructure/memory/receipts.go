package memory

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/repository"
)

type receiptRepository struct{ s *Store }

// NewReceiptRepository returns the receipt table of the store
func NewReceiptRepository(s *Store) repository.ReceiptRepository {
	return &receiptRepository{s: s}
}

func (r *receiptRepository) Create(ctx context.Context, receipt *entity.Receipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.receipts {
		if existing.ReceiptNumber == receipt.ReceiptNumber {
			return repository.ErrDuplicateKey
		}
		if receipt.OrderID != nil && existing.OrderID != nil && *existing.OrderID == *receipt.OrderID {
			return repository.ErrDuplicateKey
		}
	}
	if receipt.ID == uuid.Nil {
		receipt.ID = uuid.New()
	}
	for i := range receipt.Items {
		if receipt.Items[i].ID == uuid.Nil {
			receipt.Items[i].ID = uuid.New()
		}
		receipt.Items[i].ReceiptID = receipt.ID
	}
	r.s.stamp(&receipt.CreatedAt, nil)
	if receipt.GeneratedAt.IsZero() {
		receipt.GeneratedAt = receipt.CreatedAt
	}
	r.s.receipts[receipt.ID] = copyReceipt(*receipt)
	return nil
}

func (r *receiptRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Receipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	rc, ok := r.s.receipts[id]
	if !ok {
		return nil, nil
	}
	rc = copyReceipt(rc)
	return &rc, nil
}

func (r *receiptRepository) GetByOrderID(ctx context.Context, orderID uuid.UUID) (*entity.Receipt, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, rc := range r.s.receipts {
		if rc.OrderID != nil && *rc.OrderID == orderID {
			rc = copyReceipt(rc)
			return &rc, nil
		}
	}
	return nil, nil
}

func (r *receiptRepository) List(ctx context.Context, params *repository.ReceiptFilterParams) ([]entity.Receipt, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []entity.Receipt
	for _, rc := range r.s.receipts {
		if params.UserID != nil && (rc.UserID == nil || *rc.UserID != *params.UserID) {
			continue
		}
		matched = append(matched, copyReceipt(rc))
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].GeneratedAt.Equal(matched[j].GeneratedAt) {
			return matched[i].ReceiptNumber > matched[j].ReceiptNumber
		}
		return matched[i].GeneratedAt.After(matched[j].GeneratedAt)
	})

	params.Validate()
	start, end := params.Bounds(len(matched))
	return matched[start:end], int64(len(matched)), nil
}

func (r *receiptRepository) MaxReceiptNumber(ctx context.Context) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var max int64
	for _, rc := range r.s.receipts {
		n, err := strconv.ParseInt(strings.TrimPrefix(rc.ReceiptNumber, "RCP-"), 10, 64)
		if err == nil && n > max {
			max = n
		}
	}
	return max, nil
}

type sequenceRepository struct{ s *Store }

// NewSequenceRepository returns the named counters of the store
func NewSequenceRepository(s *Store) repository.SequenceRepository {
	return &sequenceRepository{s: s}
}

func (r *sequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.sequences[name]++
	return r.s.sequences[name], nil
}

func (r *sequenceRepository) EnsureAtLeast(ctx context.Context, name string, floor int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.sequences[name] < floor {
		r.s.sequences[name] = floor
	}
	return nil
}
