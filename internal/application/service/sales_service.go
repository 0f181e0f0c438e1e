package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/money"
	"go.opentelemetry.io/otel/attribute"
)

// Sales report ranges
const (
	RangeToday = "today"
	RangeWeek  = "week"
	RangeMonth = "month"
	RangeAll   = "all"
)

// ChannelSales is the count and revenue of one channel
type ChannelSales struct {
	Count   int64 `json:"count"`
	Revenue int64 `json:"-"`
}

// MarshalJSON renders revenue as a decimal
func (c ChannelSales) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Count   int64   `json:"count"`
		Revenue float64 `json:"revenue"`
	}{c.Count, money.Float(c.Revenue)})
}

// SalesReport breaks down orders in a window by channel. The three channel
// buckets always add up to the totals.
type SalesReport struct {
	Range                string       `json:"range"`
	From                 *time.Time   `json:"from,omitempty"`
	To                   *time.Time   `json:"to,omitempty"`
	POS                  ChannelSales `json:"pos"`
	Manual               ChannelSales `json:"manual"`
	Online               ChannelSales `json:"online"`
	TotalOrders          int64        `json:"totalOrders"`
	TotalDeliveryCharges int64        `json:"-"`
	TotalRevenue         int64        `json:"-"`
}

// MarshalJSON renders money totals as decimals
func (r SalesReport) MarshalJSON() ([]byte, error) {
	type Alias SalesReport
	return json.Marshal(struct {
		Alias
		TotalDeliveryCharges float64 `json:"totalDeliveryCharges"`
		TotalRevenue         float64 `json:"totalRevenue"`
	}{Alias(r), money.Float(r.TotalDeliveryCharges), money.Float(r.TotalRevenue)})
}

// SalesService aggregates persisted orders
type SalesService struct {
	analyticsRepo repository.AnalyticsRepository
	location      *time.Location
	now           func() time.Time
}

// NewSalesService creates a sales service computing windows in loc
func NewSalesService(analyticsRepo repository.AnalyticsRepository, loc *time.Location) *SalesService {
	if loc == nil {
		loc = time.UTC
	}
	return &SalesService{analyticsRepo: analyticsRepo, location: loc, now: time.Now}
}

// GetSalesReport aggregates orders created within rangeName
func (s *SalesService) GetSalesReport(ctx context.Context, actor Actor, rangeName string) (*SalesReport, error) {
	ctx, span := tracer.Start(ctx, "SalesService.GetSalesReport")
	defer span.End()

	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Only admins can view sales")
	}

	rangeName = strings.ToLower(strings.TrimSpace(rangeName))
	if rangeName == "" {
		rangeName = RangeAll
	}
	from, to, err := ResolveRange(rangeName, s.now(), s.location)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("sales.range", rangeName))

	totals, err := s.analyticsRepo.SalesBySource(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("aggregate sales: %w", err)
	}

	report := &SalesReport{Range: rangeName, From: from, To: to}
	for _, t := range totals {
		var bucket *ChannelSales
		switch enum.SourceChannel(t.Source).Bucket() {
		case enum.SourcePOS:
			bucket = &report.POS
		case enum.SourceManual:
			bucket = &report.Manual
		default:
			bucket = &report.Online
		}
		bucket.Count += t.OrderCount
		bucket.Revenue += t.Revenue
		report.TotalDeliveryCharges += t.DeliveryCharges
	}
	report.TotalOrders = report.POS.Count + report.Manual.Count + report.Online.Count
	report.TotalRevenue = report.POS.Revenue + report.Manual.Revenue + report.Online.Revenue
	return report, nil
}

// ResolveRange returns the inclusive window for a named range in loc. The
// "all" range has no bounds. Weeks start on Monday.
func ResolveRange(rangeName string, now time.Time, loc *time.Location) (*time.Time, *time.Time, error) {
	now = now.In(loc)
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	var from, to time.Time
	switch rangeName {
	case RangeAll:
		return nil, nil, nil
	case RangeToday:
		from, to = startOfDay, now
	case RangeWeek:
		offset := (int(now.Weekday()) + 6) % 7
		from = startOfDay.AddDate(0, 0, -offset)
		to = from.AddDate(0, 0, 7).Add(-time.Millisecond)
	case RangeMonth:
		from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
		to = from.AddDate(0, 1, 0).Add(-time.Millisecond)
	default:
		return nil, nil, apperror.NewFieldError("range", "Range must be one of today, week, month, all")
	}
	return &from, &to, nil
}
