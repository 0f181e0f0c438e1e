package repository

import (
	"context"
	"time"
)

// SourceTotals aggregates orders sharing one source value
type SourceTotals struct {
	Source          string
	OrderCount      int64
	Revenue         int64
	DeliveryCharges int64
}

// AnalyticsRepository defines interface for aggregation queries over orders
type AnalyticsRepository interface {
	// SalesBySource groups orders created in [from, to] by their raw source
	// value. Nil bounds are open.
	SalesBySource(ctx context.Context, from, to *time.Time) ([]SourceTotals, error)
}
