package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/domain/repository"
)

type orderRepository struct{ s *Store }

// NewOrderRepository returns the order table of the store
func NewOrderRepository(s *Store) repository.OrderRepository {
	return &orderRepository{s: s}
}

func (r *orderRepository) Create(ctx context.Context, order *entity.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.orders {
		if existing.TrackingID == order.TrackingID {
			return repository.ErrDuplicateKey
		}
		if order.PaymentID != nil && existing.PaymentID != nil && *existing.PaymentID == *order.PaymentID {
			return repository.ErrDuplicateKey
		}
	}
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	for i := range order.Items {
		if order.Items[i].ID == uuid.Nil {
			order.Items[i].ID = uuid.New()
		}
		order.Items[i].OrderID = order.ID
	}
	r.s.stamp(&order.CreatedAt, &order.UpdatedAt)
	r.s.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	o = copyOrder(o)
	return &o, nil
}

func (r *orderRepository) GetByTrackingID(ctx context.Context, trackingID string) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.TrackingID == trackingID {
			o = copyOrder(o)
			return &o, nil
		}
	}
	return nil, nil
}

func (r *orderRepository) List(ctx context.Context, params *repository.OrderFilterParams) ([]entity.Order, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []entity.Order
	for _, o := range r.s.orders {
		if params.UserID != nil && !o.IsOwnedBy(*params.UserID) {
			continue
		}
		if params.Status != "" && o.OrderStatus != params.Status {
			continue
		}
		if params.Source != "" && o.Source != params.Source {
			continue
		}
		matched = append(matched, copyOrder(o))
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	params.Validate()
	start, end := params.Bounds(len(matched))
	return matched[start:end], int64(len(matched)), nil
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enum.OrderStatus, paymentStatus enum.PaymentStatus) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok || o.OrderStatus.IsTerminal() {
		return false, nil
	}
	o.OrderStatus = status
	o.PaymentStatus = paymentStatus
	o.UpdatedAt = r.s.now()
	r.s.orders[id] = o
	return true, nil
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) (enum.OrderStatus, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return "", false, nil
	}
	delete(r.s.orders, id)
	return o.OrderStatus, true, nil
}

func (r *orderRepository) GetByPaymentID(ctx context.Context, paymentID string) (*entity.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if o.PaymentID != nil && *o.PaymentID == paymentID {
			o = copyOrder(o)
			return &o, nil
		}
	}
	return nil, nil
}

type analyticsRepository struct{ s *Store }

// NewAnalyticsRepository aggregates over the order table of the store
func NewAnalyticsRepository(s *Store) repository.AnalyticsRepository {
	return &analyticsRepository{s: s}
}

func (r *analyticsRepository) SalesBySource(ctx context.Context, from, to *time.Time) ([]repository.SourceTotals, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	bySource := make(map[string]*repository.SourceTotals)
	var order []string
	for _, o := range r.s.orders {
		if from != nil && o.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && o.CreatedAt.After(*to) {
			continue
		}
		key := string(o.Source)
		t, ok := bySource[key]
		if !ok {
			t = &repository.SourceTotals{Source: key}
			bySource[key] = t
			order = append(order, key)
		}
		t.OrderCount++
		t.Revenue += o.Total
		t.DeliveryCharges += o.DeliveryCharge
	}

	sort.Strings(order)
	totals := make([]repository.SourceTotals, 0, len(order))
	for _, key := range order {
		totals = append(totals, *bySource[key])
	}
	return totals, nil
}
