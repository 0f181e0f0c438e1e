package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"go.uber.org/zap"
)

var (
	trackingPattern = regexp.MustCompile(`^TRK-[A-Z0-9]{8}$`)
	receiptPattern  = regexp.MustCompile(`^RCP-\d{6}$`)
)

func onlineOrder(items ...LineItemInput) *PlaceOrderInput {
	return &PlaceOrderInput{
		Actor:    testCustomer,
		Source:   enum.SourceOnline,
		Items:    items,
		Shipping: dhakaShipping(),
	}
}

func newOrderFilter() *repository.OrderFilterParams {
	return &repository.OrderFilterParams{}
}

func TestPlaceOrder_OnlineCheckoutThenReceipt(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Clay Mug", 10000, 5)

	order, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 2}))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if order.SubTotal != 20000 || order.DeliveryCharge != 8000 || order.Total != 28000 {
		t.Fatalf("unexpected amounts: subtotal=%d delivery=%d total=%d", order.SubTotal, order.DeliveryCharge, order.Total)
	}
	if !trackingPattern.MatchString(order.TrackingID) {
		t.Fatalf("tracking id %q does not match %s", order.TrackingID, trackingPattern)
	}
	if order.OrderStatus != enum.OrderStatusPending || order.PaymentStatus != enum.PaymentStatusPending || order.PaymentMethod != enum.PaymentMethodCOD {
		t.Fatalf("unexpected status %s/%s/%s", order.OrderStatus, order.PaymentStatus, order.PaymentMethod)
	}
	if order.DeliveryZone != "inside_dhaka" {
		t.Fatalf("expected inside_dhaka zone, got %q", order.DeliveryZone)
	}
	if got := env.stockOf(t, product.ID); got != 3 {
		t.Fatalf("expected stock 3, got %d", got)
	}

	receipt, created, err := env.receipt.GenerateForOrder(ctx, testCustomer, order.ID)
	if err != nil {
		t.Fatalf("generate receipt: %v", err)
	}
	if !created {
		t.Fatalf("expected a new receipt")
	}
	if !receiptPattern.MatchString(receipt.ReceiptNumber) {
		t.Fatalf("receipt number %q does not match %s", receipt.ReceiptNumber, receiptPattern)
	}
	if receipt.Total != 28000 || receipt.TrackingID != order.TrackingID || receipt.ReceiptType != enum.SourceOnline {
		t.Fatalf("unexpected receipt: total=%d tracking=%s type=%s", receipt.Total, receipt.TrackingID, receipt.ReceiptType)
	}
	if len(env.mailer.sent) != 1 {
		t.Fatalf("expected receipt e-mail, got %v", env.mailer.sent)
	}

	types := env.publisher.types()
	if len(types) != 2 || types[0] != EventOrderPlaced || types[1] != EventReceiptGenerated {
		t.Fatalf("unexpected events %v", types)
	}
}

func TestPlaceOrder_AllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mug := env.addProduct(t, "Mug", 10000, 5)
	plate := env.addProduct(t, "Plate", 5000, 1)

	_, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(
		LineItemInput{ProductRef: mug.ID.String(), Quantity: 2},
		LineItemInput{ProductRef: plate.ID.String(), Quantity: 3},
	))
	if !apperror.IsType(err, apperror.TypeInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	appErr := apperror.GetAppError(err)
	if appErr.Message != "Insufficient stock for Plate. Available: 1, Requested: 3" {
		t.Fatalf("unexpected message %q", appErr.Message)
	}

	if n := env.orderCount(t); n != 0 {
		t.Fatalf("expected no orders, got %d", n)
	}
	if env.stockOf(t, mug.ID) != 5 || env.stockOf(t, plate.ID) != 1 {
		t.Fatalf("stock changed after rejected order")
	}
}

func TestPlaceOrder_ConcurrentLastUnit(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct(t, "Last One", 10000, 1)

	const buyers = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.orderSvc.PlaceOrder(context.Background(), onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 1}))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			if !apperror.IsType(err, apperror.TypeInsufficientStock) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 {
		t.Fatalf("expected exactly one successful order, got %d", succeeded)
	}
	if got := env.stockOf(t, product.ID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
	if n := env.orderCount(t); n != 1 {
		t.Fatalf("expected one persisted order, got %d", n)
	}
}

func TestPlaceOrder_ProductNotFound(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct(t, "Mug", 10000, 5)

	for _, ref := range []string{uuid.NewString(), "legacy-42"} {
		_, err := env.orderSvc.PlaceOrder(context.Background(), onlineOrder(
			LineItemInput{ProductRef: product.ID.String(), Quantity: 1},
			LineItemInput{ProductRef: ref, Quantity: 1},
		))
		if !apperror.IsType(err, apperror.TypeProductNotFound) {
			t.Fatalf("ref %q: expected product not found, got %v", ref, err)
		}
		if apperror.GetAppError(err).Message != "Product "+ref+" not found" {
			t.Fatalf("message does not name the reference: %q", err.Error())
		}
	}
	if env.stockOf(t, product.ID) != 5 || env.orderCount(t) != 0 {
		t.Fatalf("rejected order left side effects")
	}
}

func TestPlaceOrder_ValidatesInput(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct(t, "Mug", 10000, 5)
	ref := product.ID.String()

	tests := []struct {
		name     string
		input    *PlaceOrderInput
		wantType string
	}{
		{name: "empty cart", input: onlineOrder(), wantType: apperror.TypeValidation},
		{name: "zero quantity", input: onlineOrder(LineItemInput{ProductRef: ref, Quantity: 0}), wantType: apperror.TypeValidation},
		{name: "missing reference", input: onlineOrder(LineItemInput{Quantity: 1}), wantType: apperror.TypeValidation},
		{name: "customer discount", input: func() *PlaceOrderInput {
			in := onlineOrder(LineItemInput{ProductRef: ref, Quantity: 1})
			in.Discount = 500
			return in
		}(), wantType: apperror.TypeValidation},
		{name: "customer pos order", input: func() *PlaceOrderInput {
			in := onlineOrder(LineItemInput{ProductRef: ref, Quantity: 1})
			in.Source = enum.SourcePOS
			return in
		}(), wantType: apperror.TypeForbidden},
		{name: "anonymous checkout", input: func() *PlaceOrderInput {
			in := onlineOrder(LineItemInput{ProductRef: ref, Quantity: 1})
			in.Actor = Actor{}
			return in
		}(), wantType: apperror.TypeUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.orderSvc.PlaceOrder(context.Background(), tt.input)
			if !apperror.IsType(err, tt.wantType) {
				t.Fatalf("expected %s, got %v", tt.wantType, err)
			}
		})
	}
	if env.stockOf(t, product.ID) != 5 {
		t.Fatalf("validation failures must not touch stock")
	}
}

func TestPlaceOrder_CallerTotalsAreChecked(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct(t, "Mug", 10000, 5)

	in := onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 2})
	in.Total = int64Ptr(20000) // omits delivery
	_, err := env.orderSvc.PlaceOrder(context.Background(), in)
	if !apperror.IsType(err, apperror.TypeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if env.stockOf(t, product.ID) != 5 {
		t.Fatalf("mismatched totals must not touch stock")
	}

	in = onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 2})
	in.SubTotal = int64Ptr(20001)
	in.DeliveryCharge = int64Ptr(8000)
	in.Total = int64Ptr(27999)
	order, err := env.orderSvc.PlaceOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("totals within tolerance rejected: %v", err)
	}
	if order.Total != 28000 {
		t.Fatalf("server total must win, got %d", order.Total)
	}
}

func TestPlaceOrder_MergesDuplicateLinesAndUsesDiscountPrice(t *testing.T) {
	env := newTestEnv(t)
	product := &entity.Product{Name: "Sale Mug", Price: 10000, DiscountPrice: int64Ptr(8000), Stock: 5}
	if err := env.products.Create(context.Background(), product); err != nil {
		t.Fatalf("create product: %v", err)
	}

	in := onlineOrder(
		LineItemInput{ProductRef: product.ID.String(), Quantity: 1},
		LineItemInput{ProductRef: product.ID.String(), Quantity: 2},
	)
	in.Shipping.City = "Chattogram"
	in.Shipping.Address = "Agrabad"
	order, err := env.orderSvc.PlaceOrder(context.Background(), in)
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 3 || order.Items[0].UnitPrice != 8000 {
		t.Fatalf("unexpected items %+v", order.Items)
	}
	if order.DeliveryCharge != 12000 || order.Total != 24000+12000 {
		t.Fatalf("unexpected amounts delivery=%d total=%d", order.DeliveryCharge, order.Total)
	}
	if env.stockOf(t, product.ID) != 2 {
		t.Fatalf("expected stock 2, got %d", env.stockOf(t, product.ID))
	}
}

func TestPlaceOrder_POSAndManual(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Tea", 5000, 10)

	pos, err := env.orderSvc.PlaceOrder(ctx, &PlaceOrderInput{
		Actor:    testAdmin,
		Source:   enum.SourcePOS,
		Items:    []LineItemInput{{ProductRef: product.ID.String(), Quantity: 1}},
		Discount: 500,
		Total:    int64Ptr(4500),
	})
	if err != nil {
		t.Fatalf("pos order: %v", err)
	}
	if pos.OrderStatus != enum.OrderStatusDelivered || pos.PaymentStatus != enum.PaymentStatusPaid || pos.PaymentMethod != enum.PaymentMethodCash {
		t.Fatalf("unexpected pos status %s/%s/%s", pos.OrderStatus, pos.PaymentStatus, pos.PaymentMethod)
	}
	if pos.DeliveryCharge != 0 || pos.Total != 4500 || pos.UserID != nil || pos.CreatedBy == nil {
		t.Fatalf("unexpected pos order %+v", pos)
	}
	if !trackingPattern.MatchString(pos.TrackingID) {
		t.Fatalf("pos tracking id %q", pos.TrackingID)
	}

	manual, err := env.orderSvc.PlaceOrder(ctx, &PlaceOrderInput{
		Actor:    testAdmin,
		Source:   enum.SourceManual,
		Items:    []LineItemInput{{ProductRef: product.ID.String(), Quantity: 2}},
		Shipping: dhakaShipping(),
	})
	if err != nil {
		t.Fatalf("manual order: %v", err)
	}
	if !regexp.MustCompile(`^MAN-[0-9A-F]{8}$`).MatchString(manual.TrackingID) {
		t.Fatalf("manual tracking id %q", manual.TrackingID)
	}
	if manual.OrderStatus != enum.OrderStatusPending || manual.PaymentStatus != enum.PaymentStatusPending {
		t.Fatalf("unexpected manual status %s/%s", manual.OrderStatus, manual.PaymentStatus)
	}
	if env.stockOf(t, product.ID) != 7 {
		t.Fatalf("expected stock 7, got %d", env.stockOf(t, product.ID))
	}
}

func TestPlaceOrder_CardPaymentStatus(t *testing.T) {
	env := newTestEnv(t)
	product := env.addProduct(t, "Mug", 10000, 5)

	for intent, want := range map[string]enum.PaymentStatus{
		"pi_paid": enum.PaymentStatusPaid,
		"pi_open": enum.PaymentStatusPending,
	} {
		in := onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 1})
		in.PaymentMethod = enum.PaymentMethodStripe
		in.PaymentID = intent
		order, err := env.orderSvc.PlaceOrder(context.Background(), in)
		if err != nil {
			t.Fatalf("%s: %v", intent, err)
		}
		if order.PaymentStatus != want || order.PaymentID == nil || *order.PaymentID != intent {
			t.Fatalf("%s: expected %s, got %s", intent, want, order.PaymentStatus)
		}
	}

	in := onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 1})
	in.PaymentMethod = enum.PaymentMethodStripe
	if _, err := env.orderSvc.PlaceOrder(context.Background(), in); !apperror.IsType(err, apperror.TypeValidation) {
		t.Fatalf("expected validation error without payment id, got %v", err)
	}
}

func TestPlaceOrder_CardPaymentMustMatchOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)

	cardOrder := func(intent string) *PlaceOrderInput {
		in := onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 1})
		in.PaymentMethod = enum.PaymentMethodStripe
		in.PaymentID = intent
		return in
	}

	for _, intent := range []string{"pi_cheap", "pi_usd"} {
		_, err := env.orderSvc.PlaceOrder(ctx, cardOrder(intent))
		if !apperror.IsType(err, apperror.TypeValidation) {
			t.Fatalf("%s: expected validation error, got %v", intent, err)
		}
	}
	if _, err := env.orderSvc.PlaceOrder(ctx, cardOrder("pi_missing")); err != nil {
		t.Fatalf("an unreachable intent leaves the order pending, got %v", err)
	}

	if _, err := env.orderSvc.PlaceOrder(ctx, cardOrder("pi_paid")); err != nil {
		t.Fatalf("first order: %v", err)
	}
	_, err := env.orderSvc.PlaceOrder(ctx, cardOrder("pi_paid"))
	if !apperror.IsType(err, apperror.TypeConflict) {
		t.Fatalf("expected conflict for a reused intent, got %v", err)
	}
	if got := env.stockOf(t, product.ID); got != 3 {
		t.Fatalf("rejected orders must not take stock, got %d", got)
	}
	if got := env.orderCount(t); got != 2 {
		t.Fatalf("expected 2 orders, got %d", got)
	}
}

func TestPlaceOrder_PaymentIndexCollisionIsNotRetried(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)

	first := onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 1})
	first.PaymentMethod = enum.PaymentMethodStripe
	first.PaymentID = "pi_paid"
	placed, err := env.orderSvc.PlaceOrder(ctx, first)
	if err != nil {
		t.Fatalf("first order: %v", err)
	}

	// Simulate a concurrent order that passed the lookup before the first insert
	calls := 0
	order := &entity.Order{
		Source:    enum.SourceOnline,
		PaymentID: placed.PaymentID,
		Items:     []entity.OrderItem{{ProductID: product.ID, Name: "Mug", UnitPrice: 10000, Quantity: 1, Total: 10000}},
	}
	env.orderSvc.newTracking = func(prefix string) string {
		calls++
		return prefix + "CCCCCCCC"
	}
	err = env.orderSvc.createWithTrackingID(ctx, order)
	if !apperror.IsType(err, apperror.TypeConflict) || calls != 1 {
		t.Fatalf("expected conflict without retry, got %v after %d attempts", err, calls)
	}
}

func TestPlaceOrder_RetriesTrackingCollision(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)

	env.orderSvc.newTracking = func(prefix string) string { return prefix + "AAAAAAAA" }
	if _, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 1})); err != nil {
		t.Fatalf("first order: %v", err)
	}

	ids := []string{"AAAAAAAA", "AAAAAAAA", "BBBBBBBB"}
	calls := 0
	env.orderSvc.newTracking = func(prefix string) string {
		id := prefix + ids[calls]
		calls++
		return id
	}
	order, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 1}))
	if err != nil {
		t.Fatalf("second order: %v", err)
	}
	if order.TrackingID != "TRK-BBBBBBBB" || calls != 3 {
		t.Fatalf("expected third tracking id, got %s after %d calls", order.TrackingID, calls)
	}

	env.orderSvc.newTracking = func(prefix string) string { return prefix + "AAAAAAAA" }
	if _, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 2})); err == nil {
		t.Fatalf("expected failure once retries are exhausted")
	}
	if got := env.stockOf(t, product.ID); got != 3 {
		t.Fatalf("failed insert must release its reservation, stock=%d", got)
	}
}

func TestFindOrder_ByIDAndTrackingID(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)
	placed, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 1}))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	byID, err := env.orderSvc.FindOrder(ctx, placed.ID.String())
	if err != nil {
		t.Fatalf("find by id: %v", err)
	}
	byTracking, err := env.orderSvc.FindOrder(ctx, placed.TrackingID)
	if err != nil {
		t.Fatalf("find by tracking id: %v", err)
	}
	lower, err := env.orderSvc.FindOrder(ctx, " "+strings.ToLower(placed.TrackingID)+" ")
	if err != nil {
		t.Fatalf("find by lower-case tracking id: %v", err)
	}
	if byID.ID != byTracking.ID || byTracking.ID != lower.ID || byID.TrackingID != placed.TrackingID {
		t.Fatalf("lookups returned different orders")
	}

	if _, err := env.orderSvc.FindOrder(ctx, "TRK-00000000"); !apperror.IsType(err, apperror.TypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetAndListOrders_RespectOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)
	order, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 1}))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	stranger := Actor{UserID: uuid.New(), Roles: []string{enum.RoleCustomer}}
	if _, err := env.orderSvc.GetOrder(ctx, stranger, order.ID); !apperror.IsType(err, apperror.TypeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := env.orderSvc.GetOrder(ctx, testAdmin, order.ID); err != nil {
		t.Fatalf("admin get: %v", err)
	}

	page, err := env.orderSvc.ListOrders(ctx, stranger, newOrderFilter())
	if err != nil || page.Pagination.Total != 0 {
		t.Fatalf("stranger should see no orders, got %v %v", page, err)
	}
	page, err = env.orderSvc.ListOrders(ctx, testCustomer, newOrderFilter())
	if err != nil || page.Pagination.Total != 1 {
		t.Fatalf("owner should see one order, got %v %v", page, err)
	}
}

func TestUpdateOrderStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)
	order, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 2}))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if _, err := env.orderSvc.UpdateOrderStatus(ctx, testCustomer, order.ID, enum.OrderStatusShipped); !apperror.IsType(err, apperror.TypeForbidden) {
		t.Fatalf("expected forbidden for customer, got %v", err)
	}
	if _, err := env.orderSvc.UpdateOrderStatus(ctx, testAdmin, uuid.New(), enum.OrderStatusShipped); !apperror.IsType(err, apperror.TypeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	delivered, err := env.orderSvc.UpdateOrderStatus(ctx, testAdmin, order.ID, enum.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if delivered.PaymentStatus != enum.PaymentStatusPaid {
		t.Fatalf("delivered COD order should be paid, got %s", delivered.PaymentStatus)
	}

	if _, err := env.orderSvc.UpdateOrderStatus(ctx, testAdmin, order.ID, enum.OrderStatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got := env.stockOf(t, product.ID); got != 5 {
		t.Fatalf("cancel should restock, got %d", got)
	}

	if _, err := env.orderSvc.UpdateOrderStatus(ctx, testAdmin, order.ID, enum.OrderStatusCancelled); !apperror.IsType(err, apperror.TypeConflict) {
		t.Fatalf("expected conflict on cancelled order, got %v", err)
	}
	if got := env.stockOf(t, product.ID); got != 5 {
		t.Fatalf("second cancel must not restock again, got %d", got)
	}
}

func TestDeleteOrder_ReleasesStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)
	order, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 3}))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	if err := env.orderSvc.DeleteOrder(ctx, testCustomer, order.ID); !apperror.IsType(err, apperror.TypeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := env.orderSvc.DeleteOrder(ctx, testAdmin, order.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := env.stockOf(t, product.ID); got != 5 {
		t.Fatalf("expected stock 5 after delete, got %d", got)
	}
	if _, err := env.orderSvc.FindOrder(ctx, order.TrackingID); !apperror.IsType(err, apperror.TypeNotFound) {
		t.Fatalf("expected deleted order to be gone, got %v", err)
	}
}

// rendezvousOrders holds each GetByID caller until all expected callers have
// read the order, so racing requests act on the same snapshot.
type rendezvousOrders struct {
	repository.OrderRepository
	ready sync.WaitGroup
}

func (r *rendezvousOrders) GetByID(ctx context.Context, id uuid.UUID) (*entity.Order, error) {
	order, err := r.OrderRepository.GetByID(ctx, id)
	r.ready.Done()
	r.ready.Wait()
	return order, err
}

func racingOrderService(env *testEnv, callers int) *OrderService {
	orders := &rendezvousOrders{OrderRepository: env.orders}
	orders.ready.Add(callers)
	svc := *env.orderSvc
	svc.orderRepo = orders
	return &svc
}

func TestDeleteOrder_ConcurrentDeletesReleaseOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)
	order, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 2}))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	svc := racingOrderService(env, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.DeleteOrder(ctx, testAdmin, order.ID)
		}(i)
	}
	wg.Wait()

	var succeeded, notFound int
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case apperror.IsType(err, apperror.TypeNotFound):
			notFound++
		default:
			t.Fatalf("unexpected delete error: %v", err)
		}
	}
	if succeeded != 1 || notFound != 1 {
		t.Fatalf("expected one delete and one not found, got %v", errs)
	}
	if got := env.stockOf(t, product.ID); got != 5 {
		t.Fatalf("stock after two deletes of a 2-unit order = %d, want 5", got)
	}
}

func TestDeleteOrder_RacingCancelReleasesOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)
	order, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 2}))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	svc := racingOrderService(env, 2)
	var (
		wg        sync.WaitGroup
		cancelErr error
		deleteErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = svc.UpdateOrderStatus(ctx, testAdmin, order.ID, enum.OrderStatusCancelled)
	}()
	go func() {
		defer wg.Done()
		deleteErr = svc.DeleteOrder(ctx, testAdmin, order.ID)
	}()
	wg.Wait()

	if deleteErr != nil {
		t.Fatalf("delete: %v", deleteErr)
	}
	if cancelErr != nil && !apperror.IsType(cancelErr, apperror.TypeConflict) {
		t.Fatalf("cancel: %v", cancelErr)
	}
	if got := env.stockOf(t, product.ID); got != 5 {
		t.Fatalf("stock after cancel and delete = %d, want 5", got)
	}
}

type failingRelease struct {
	repository.ProductRepository
}

func (failingRelease) AtomicIncrementBatch(ctx context.Context, quantities map[uuid.UUID]int) error {
	return errors.New("connection reset")
}

func counterValue(t *testing.T, env *testEnv, name, label string) float64 {
	t.Helper()
	families, err := env.metrics.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			for _, pair := range m.GetLabel() {
				if pair.GetValue() == label {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestUpdateOrderStatus_CancelSurvivesReleaseFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 5)
	order, err := env.orderSvc.PlaceOrder(ctx, onlineOrder(LineItemInput{ProductRef: product.ID.String(), Quantity: 2}))
	if err != nil {
		t.Fatalf("place order: %v", err)
	}

	svc := *env.orderSvc
	svc.inventory = NewInventoryService(failingRelease{env.products}, env.metrics, zap.NewNop())

	cancelled, err := svc.UpdateOrderStatus(ctx, testAdmin, order.ID, enum.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("cancel should report the committed status change, got %v", err)
	}
	if cancelled.OrderStatus != enum.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.OrderStatus)
	}
	if got := counterValue(t, env, "storefront_stock_release_failures_total", "cancel"); got != 1 {
		t.Fatalf("release failure counter = %v, want 1", got)
	}
	if _, err := env.orderSvc.UpdateOrderStatus(ctx, testAdmin, order.ID, enum.OrderStatusCancelled); !apperror.IsType(err, apperror.TypeConflict) {
		t.Fatalf("a retried cancel must not release again, got %v", err)
	}
}

func TestInventory_CheckAvailabilityAndDecrement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	product := env.addProduct(t, "Mug", 10000, 2)

	a, err := env.inventory.CheckAvailability(ctx, product.ID, 3)
	if err != nil || a.Available || a.CurrentStock != 2 {
		t.Fatalf("unexpected availability %+v %v", a, err)
	}
	a, err = env.inventory.CheckAvailability(ctx, uuid.New(), 1)
	if err != nil || a.Available {
		t.Fatalf("missing product must be unavailable without error, got %+v %v", a, err)
	}

	if err := env.inventory.Decrement(ctx, product.ID, 5); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	if got := env.stockOf(t, product.ID); got != 0 {
		t.Fatalf("decrement must clamp at zero, got %d", got)
	}

	if _, err := env.inventory.SetStock(ctx, product.ID, -1); !apperror.IsType(err, apperror.TypeValidation) {
		t.Fatalf("expected validation error for negative stock, got %v", err)
	}
	if _, err := env.inventory.SetStock(ctx, product.ID, 9); err != nil || env.stockOf(t, product.ID) != 9 {
		t.Fatalf("set stock failed: %v", err)
	}
}
