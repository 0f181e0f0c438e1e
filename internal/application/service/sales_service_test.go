package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/pkg/apperror"
)

func (e *testEnv) addOrder(t *testing.T, source enum.SourceChannel, total, delivery int64, createdAt time.Time) {
	t.Helper()
	o := &entity.Order{
		TrackingID:     "TRK-" + uuid.NewString()[:8],
		Source:         source,
		OrderStatus:    enum.OrderStatusPending,
		Total:          total,
		DeliveryCharge: delivery,
		CreatedAt:      createdAt,
	}
	if err := e.orders.Create(context.Background(), o); err != nil {
		t.Fatalf("create order: %v", err)
	}
}

func TestGetSalesReport_PartitionsByChannel(t *testing.T) {
	env := newTestEnv(t)
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, time.UTC)
	env.sales.now = func() time.Time { return now }

	env.addOrder(t, enum.SourcePOS, 4500, 0, now.Add(-time.Hour))
	env.addOrder(t, enum.SourceManual, 20000, 8000, now.Add(-2*time.Hour))
	env.addOrder(t, enum.SourceOnline, 28000, 8000, now.Add(-3*time.Hour))
	env.addOrder(t, "", 10000, 0, now.Add(-4*time.Hour))
	env.addOrder(t, "website", 5000, 0, now.Add(-5*time.Hour))
	env.addOrder(t, enum.SourceOnline, 99900, 12000, now.AddDate(0, -2, 0))

	report, err := env.sales.GetSalesReport(context.Background(), testAdmin, "today")
	if err != nil {
		t.Fatalf("sales report: %v", err)
	}
	if report.POS.Count != 1 || report.POS.Revenue != 4500 {
		t.Fatalf("unexpected pos bucket %+v", report.POS)
	}
	if report.Manual.Count != 1 || report.Manual.Revenue != 20000 {
		t.Fatalf("unexpected manual bucket %+v", report.Manual)
	}
	if report.Online.Count != 3 || report.Online.Revenue != 43000 {
		t.Fatalf("legacy sources must count as online, got %+v", report.Online)
	}
	if report.TotalOrders != 5 || report.TotalRevenue != 67500 || report.TotalDeliveryCharges != 16000 {
		t.Fatalf("unexpected totals %d/%d/%d", report.TotalOrders, report.TotalRevenue, report.TotalDeliveryCharges)
	}

	all, err := env.sales.GetSalesReport(context.Background(), testAdmin, "")
	if err != nil {
		t.Fatalf("all-time report: %v", err)
	}
	if all.Range != RangeAll || all.TotalOrders != 6 || all.From != nil {
		t.Fatalf("unexpected all-time report %+v", all)
	}
	if all.TotalOrders != all.POS.Count+all.Manual.Count+all.Online.Count {
		t.Fatalf("buckets do not add up")
	}
}

func TestGetSalesReport_Rejections(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.sales.GetSalesReport(context.Background(), testCustomer, "today"); !apperror.IsType(err, apperror.TypeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := env.sales.GetSalesReport(context.Background(), testAdmin, "decade"); !apperror.IsType(err, apperror.TypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSalesReport_JSON(t *testing.T) {
	report := SalesReport{
		Range:                RangeAll,
		POS:                  ChannelSales{Count: 1, Revenue: 4500},
		TotalOrders:          1,
		TotalRevenue:         4500,
		TotalDeliveryCharges: 0,
	}
	raw, err := json.Marshal(report)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["totalRevenue"] != 45.0 || decoded["totalOrders"] != 1.0 {
		t.Fatalf("unexpected json %s", raw)
	}
	pos := decoded["pos"].(map[string]interface{})
	if pos["revenue"] != 45.0 || pos["count"] != 1.0 {
		t.Fatalf("unexpected pos json %v", pos)
	}
}

func TestResolveRange(t *testing.T) {
	dhaka := time.FixedZone("Asia/Dhaka", 6*60*60)
	// Wednesday
	now := time.Date(2024, 5, 15, 1, 30, 0, 0, dhaka)

	tests := []struct {
		name     string
		wantFrom time.Time
		wantTo   time.Time
	}{
		{name: RangeToday, wantFrom: time.Date(2024, 5, 15, 0, 0, 0, 0, dhaka), wantTo: now},
		{name: RangeWeek, wantFrom: time.Date(2024, 5, 13, 0, 0, 0, 0, dhaka), wantTo: time.Date(2024, 5, 19, 23, 59, 59, 999000000, dhaka)},
		{name: RangeMonth, wantFrom: time.Date(2024, 5, 1, 0, 0, 0, 0, dhaka), wantTo: time.Date(2024, 5, 31, 23, 59, 59, 999000000, dhaka)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to, err := ResolveRange(tt.name, now.UTC(), dhaka)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if !from.Equal(tt.wantFrom) || !to.Equal(tt.wantTo) {
				t.Fatalf("got [%s, %s], want [%s, %s]", from, to, tt.wantFrom, tt.wantTo)
			}
		})
	}

	from, to, err := ResolveRange(RangeAll, now, dhaka)
	if err != nil || from != nil || to != nil {
		t.Fatalf("all range must be unbounded, got %v %v %v", from, to, err)
	}

	// Sunday belongs to the week that started the previous Monday
	sunday := time.Date(2024, 5, 19, 22, 0, 0, 0, dhaka)
	from, _, err = ResolveRange(RangeWeek, sunday, dhaka)
	if err != nil || !from.Equal(time.Date(2024, 5, 13, 0, 0, 0, 0, dhaka)) {
		t.Fatalf("unexpected week start for sunday: %v %v", from, err)
	}
}
