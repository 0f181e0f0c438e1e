package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/metrics"
	"github.com/sangkips/storefront-api/pkg/money"
	"github.com/sangkips/storefront-api/pkg/pagination"
	"github.com/sangkips/storefront-api/pkg/utils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

const trackingIDAttempts = 3

var errPaymentAlreadyUsed = apperror.NewConflictError("Payment has already been used for another order")

var tracer = otel.Tracer("github.com/sangkips/storefront-api/internal/application/service")

// OrderService places orders and manages their lifecycle
type OrderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	inventory   *InventoryService
	delivery    *DeliveryCalculator
	payments    *PaymentService
	publisher   EventPublisher
	metrics     *metrics.Registry
	logger      *zap.Logger
	tolerance   int64
	newTracking func(prefix string) string
}

// NewOrderService creates a new order service
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	inventory *InventoryService,
	delivery *DeliveryCalculator,
	payments *PaymentService,
	publisher EventPublisher,
	m *metrics.Registry,
	logger *zap.Logger,
	tolerance int64,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		inventory:   inventory,
		delivery:    delivery,
		payments:    payments,
		publisher:   publisher,
		metrics:     m,
		logger:      logger,
		tolerance:   tolerance,
		newTracking: utils.GenerateTrackingID,
	}
}

// LineItemInput is one normalized cart line
type LineItemInput struct {
	ProductRef string
	Quantity   int
}

// PlaceOrderInput represents an order submitted by any channel. SubTotal,
// DeliveryCharge and Total are the caller's own figures and only checked.
type PlaceOrderInput struct {
	Actor          Actor
	Source         enum.SourceChannel
	Items          []LineItemInput
	Shipping       entity.ShippingAddress
	DeliveryZone   string
	PaymentMethod  string
	PaymentID      string
	Discount       int64
	SubTotal       *int64
	DeliveryCharge *int64
	Total          *int64
	Status         enum.OrderStatus
}

type resolvedLine struct {
	product  *entity.Product
	quantity int
}

// PlaceOrder validates the cart, reserves stock and persists the order.
// Either the order exists with its stock taken, or nothing changed.
func (s *OrderService) PlaceOrder(ctx context.Context, input *PlaceOrderInput) (*entity.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.PlaceOrder")
	defer span.End()
	span.SetAttributes(attribute.String("order.source", string(input.Source)), attribute.Int("order.lines", len(input.Items)))

	start := time.Now()
	order, err := s.placeOrder(ctx, input)
	if err != nil {
		s.metrics.OrdersRejected.WithLabelValues(rejectReason(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	s.metrics.OrdersPlaced.WithLabelValues(string(order.Source)).Inc()
	s.metrics.OrderRevenue.WithLabelValues(string(order.Source)).Add(float64(order.Total))
	s.metrics.PlacementLatency.Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.String("order.tracking_id", order.TrackingID))

	s.logger.Info("order placed",
		zap.String("order_id", order.ID.String()),
		zap.String("tracking_id", order.TrackingID),
		zap.String("source", string(order.Source)),
		zap.Int64("total", order.Total),
	)
	publishEvent(ctx, s.publisher, s.metrics, s.logger, EventOrderPlaced, order.TrackingID, order)
	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, input *PlaceOrderInput) (*entity.Order, error) {
	if err := s.validateInput(input); err != nil {
		return nil, err
	}

	lines, err := s.resolveLines(ctx, input.Items)
	if err != nil {
		return nil, err
	}

	// Pre-flight: fail before anything is written
	for _, line := range lines {
		availability, err := s.inventory.CheckAvailability(ctx, line.product.ID, line.quantity)
		if err != nil {
			return nil, err
		}
		if !availability.Available {
			return nil, apperror.NewInsufficientStockError(line.product.Name, availability.CurrentStock, line.quantity)
		}
	}

	order, err := s.buildOrder(input, lines)
	if err != nil {
		return nil, err
	}

	if err := s.resolvePayment(ctx, input, order); err != nil {
		return nil, err
	}

	quantities := order.Quantities()
	products := make(map[uuid.UUID]*entity.Product, len(lines))
	for _, line := range lines {
		products[line.product.ID] = line.product
	}
	if err := s.inventory.Reserve(ctx, quantities, products); err != nil {
		return nil, err
	}

	if err := s.createWithTrackingID(ctx, order); err != nil {
		// Compensate so stock never moves without an order
		if releaseErr := s.inventory.Release(ctx, quantities); releaseErr != nil {
			s.logger.Error("stock left reserved after failed order insert",
				zap.Error(releaseErr), zap.NamedError("insert_error", err))
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	return order, nil
}

func (s *OrderService) validateInput(input *PlaceOrderInput) error {
	if !input.Source.IsValid() {
		return apperror.NewFieldError("source", "Unknown order source")
	}
	if input.Source != enum.SourceOnline && !input.Actor.IsAdmin() {
		return apperror.NewForbiddenError("Only admins can record POS or manual orders")
	}
	if input.Source == enum.SourceOnline && input.Actor.UserID == uuid.Nil {
		return apperror.ErrUnauthorized
	}

	var fieldErrors []apperror.FieldError
	if len(input.Items) == 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "items", Message: "Cart is empty"})
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.ProductRef) == "" {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("items[%d].product_id", i), Message: "Product reference is required"})
		}
		if item.Quantity < 1 {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "Quantity must be at least 1"})
		}
	}
	if input.Discount < 0 {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "discount", Message: "Discount cannot be negative"})
	}
	if input.Discount > 0 && input.Source == enum.SourceOnline {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "discount", Message: "Discounts can only be applied by staff"})
	}
	if input.Source != enum.SourcePOS && strings.TrimSpace(input.Shipping.Name) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "shipping_address.name", Message: "Name is required"})
	}
	if input.Source != enum.SourcePOS && strings.TrimSpace(input.Shipping.Phone) == "" {
		fieldErrors = append(fieldErrors, apperror.FieldError{Field: "shipping_address.phone", Message: "Phone is required"})
	}
	if input.Status != "" {
		if input.Source == enum.SourceOnline {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "order_status", Message: "Initial status can only be set on staff orders"})
		} else if !input.Status.IsValid() || input.Status.IsTerminal() {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: "order_status", Message: "Invalid initial status"})
		}
	}

	if len(fieldErrors) > 0 {
		return apperror.NewValidationError(fieldErrors)
	}
	return nil
}

// resolveLines merges duplicate products and loads them in one query
func (s *OrderService) resolveLines(ctx context.Context, items []LineItemInput) ([]resolvedLine, error) {
	order := make([]uuid.UUID, 0, len(items))
	refs := make(map[uuid.UUID]string, len(items))
	quantities := make(map[uuid.UUID]int, len(items))

	for _, item := range items {
		ref := strings.TrimSpace(item.ProductRef)
		id, err := uuid.Parse(ref)
		if err != nil {
			return nil, apperror.NewProductNotFoundError(ref)
		}
		if _, seen := quantities[id]; !seen {
			order = append(order, id)
			refs[id] = ref
		}
		quantities[id] += item.Quantity
	}

	products, err := s.productRepo.GetByIDs(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("load products: %w", err)
	}
	productMap := make(map[uuid.UUID]*entity.Product, len(products))
	for i := range products {
		productMap[products[i].ID] = &products[i]
	}

	lines := make([]resolvedLine, 0, len(order))
	for _, id := range order {
		product, ok := productMap[id]
		if !ok {
			return nil, apperror.NewProductNotFoundError(refs[id])
		}
		lines = append(lines, resolvedLine{product: product, quantity: quantities[id]})
	}
	return lines, nil
}

// buildOrder prices the order from authoritative product prices and checks
// the caller's figures against them.
func (s *OrderService) buildOrder(input *PlaceOrderInput, lines []resolvedLine) (*entity.Order, error) {
	items := make([]entity.OrderItem, 0, len(lines))
	var subTotal int64
	for _, line := range lines {
		unitPrice := line.product.UnitPrice()
		lineTotal, ok := money.MulQty(unitPrice, line.quantity)
		if ok {
			subTotal, ok = money.Add(subTotal, lineTotal)
		}
		if !ok {
			return nil, apperror.NewFieldError("items", "Order amount is too large")
		}
		items = append(items, entity.OrderItem{
			ProductID: line.product.ID,
			Name:      line.product.Name,
			UnitPrice: unitPrice,
			Quantity:  line.quantity,
			Total:     lineTotal,
		})
	}

	var deliveryCharge int64
	var zone string
	if input.Source != enum.SourcePOS {
		quote := s.delivery.Quote(input.DeliveryZone, input.Shipping.City, input.Shipping.Address)
		deliveryCharge, zone = quote.Fee, quote.Zone
	}

	gross, ok := money.Add(subTotal, deliveryCharge)
	if !ok {
		return nil, apperror.NewFieldError("items", "Order amount is too large")
	}
	if input.Discount > gross {
		return nil, apperror.NewFieldError("discount", "Discount cannot exceed the order amount")
	}
	total := gross - input.Discount

	var mismatches []apperror.FieldError
	checkAmount(&mismatches, s.tolerance, "subtotal", input.SubTotal, subTotal)
	checkAmount(&mismatches, s.tolerance, "delivery_charge", input.DeliveryCharge, deliveryCharge)
	checkAmount(&mismatches, s.tolerance, "total_amount", input.Total, total)
	if len(mismatches) > 0 {
		return nil, apperror.NewValidationError(mismatches)
	}

	status := enum.OrderStatusPending
	if input.Source == enum.SourcePOS {
		status = enum.OrderStatusDelivered
	}
	if input.Status != "" {
		status = input.Status
	}

	order := &entity.Order{
		Source:          input.Source,
		OrderStatus:     status,
		SubTotal:        subTotal,
		DeliveryCharge:  deliveryCharge,
		DeliveryZone:    zone,
		Discount:        input.Discount,
		Total:           total,
		ShippingAddress: input.Shipping,
		Items:           items,
	}
	if input.Source == enum.SourceOnline {
		order.UserID = input.Actor.idPtr()
	} else {
		order.CreatedBy = input.Actor.idPtr()
	}
	return order, nil
}

// resolvePayment sets payment method and status for the channel
func (s *OrderService) resolvePayment(ctx context.Context, input *PlaceOrderInput, order *entity.Order) error {
	method := strings.ToLower(strings.TrimSpace(input.PaymentMethod))

	switch input.Source {
	case enum.SourcePOS:
		if method == "" {
			method = enum.PaymentMethodCash
		}
		order.PaymentMethod = method
		order.PaymentStatus = enum.PaymentStatusPaid
		return nil
	case enum.SourceManual:
		if method == "" {
			method = enum.PaymentMethodCOD
		}
		order.PaymentMethod = method
		order.PaymentStatus = enum.PaymentStatusPending
		return nil
	}

	if method == "" {
		method = enum.PaymentMethodCOD
	}
	order.PaymentMethod = method
	order.PaymentStatus = enum.PaymentStatusPending
	if method == enum.PaymentMethodCOD {
		return nil
	}
	if input.PaymentID == "" {
		return apperror.NewFieldError("payment_id", "Payment id is required for card payments")
	}

	paymentID := input.PaymentID
	order.PaymentID = &paymentID
	used, err := s.orderRepo.GetByPaymentID(ctx, paymentID)
	if err != nil {
		return fmt.Errorf("check payment id: %w", err)
	}
	if used != nil {
		return errPaymentAlreadyUsed
	}
	paid, err := s.payments.VerifyPayment(ctx, paymentID, order.Total)
	switch {
	case errors.Is(err, ErrPaymentsDisabled):
		return apperror.NewBadRequestError("Card payments are not available")
	case errors.Is(err, ErrPaymentMismatch):
		return apperror.NewFieldError("payment_id", "Payment does not match the order total")
	case err != nil:
		// Keep the order pending; an admin can reconcile against the gateway
		s.logger.Warn("could not confirm payment", zap.String("payment_id", paymentID), zap.Error(err))
		return nil
	}
	if paid {
		order.PaymentStatus = enum.PaymentStatusPaid
	}
	return nil
}

// createWithTrackingID inserts the order, drawing a new tracking id when the
// unique index reports a collision.
func (s *OrderService) createWithTrackingID(ctx context.Context, order *entity.Order) error {
	prefix := order.Source.TrackingPrefix()
	var err error
	for attempt := 0; attempt < trackingIDAttempts; attempt++ {
		order.TrackingID = s.newTracking(prefix)
		err = s.orderRepo.Create(ctx, order)
		if !errors.Is(err, repository.ErrDuplicateKey) {
			return err
		}
		if order.PaymentID != nil {
			// The payment id index may be the one that fired
			used, lookupErr := s.orderRepo.GetByPaymentID(ctx, *order.PaymentID)
			if lookupErr != nil {
				return lookupErr
			}
			if used != nil {
				return errPaymentAlreadyUsed
			}
		}
		s.logger.Warn("tracking id collision", zap.String("tracking_id", order.TrackingID), zap.Int("attempt", attempt+1))
		order.ID = uuid.Nil
		for i := range order.Items {
			order.Items[i].ID = uuid.Nil
		}
	}
	return err
}

// FindOrder resolves an order by internal id or tracking id
func (s *OrderService) FindOrder(ctx context.Context, ref string) (*entity.Order, error) {
	ref = strings.TrimSpace(ref)
	var (
		order *entity.Order
		err   error
	)
	if id, parseErr := uuid.Parse(ref); parseErr == nil {
		order, err = s.orderRepo.GetByID(ctx, id)
	} else {
		order, err = s.orderRepo.GetByTrackingID(ctx, strings.ToUpper(ref))
	}
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	return order, nil
}

// GetOrder returns an order visible to the actor
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*entity.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	if !actor.CanAccess(order.UserID) {
		return nil, apperror.NewForbiddenError("You do not have access to this order")
	}
	return order, nil
}

// ListOrders lists all orders for admins and the caller's own otherwise
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, params *repository.OrderFilterParams) (*pagination.PaginatedResult[entity.Order], error) {
	params.Validate()
	if !actor.IsAdmin() {
		params.UserID = actor.idPtr()
		if params.UserID == nil {
			return nil, apperror.ErrUnauthorized
		}
	}
	orders, total, err := s.orderRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return pagination.NewPaginatedResult(orders, &params.PaginationParams, total), nil
}

// UpdateOrderStatus moves an order to status. Cancelling returns the items
// to stock; cancelled orders cannot change again.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor Actor, id uuid.UUID, status enum.OrderStatus) (*entity.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.UpdateOrderStatus")
	defer span.End()

	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Only admins can update order status")
	}
	if !status.IsValid() {
		return nil, apperror.NewFieldError("order_status", "Invalid order status")
	}

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperror.NewNotFoundError("Order")
	}
	if order.OrderStatus.IsTerminal() {
		return nil, apperror.NewConflictError("Cancelled orders cannot change status")
	}
	if order.OrderStatus == status {
		return order, nil
	}

	paymentStatus := order.PaymentStatus
	if status == enum.OrderStatusDelivered && order.PaymentMethod == enum.PaymentMethodCOD {
		paymentStatus = enum.PaymentStatusPaid
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, id, status, paymentStatus)
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}
	if !updated {
		// Cancelled concurrently; that request owns the restock
		return nil, apperror.NewConflictError("Cancelled orders cannot change status")
	}

	if status == enum.OrderStatusCancelled {
		s.releaseStock(ctx, order, "cancel")
	}

	previous := order.OrderStatus
	order.OrderStatus = status
	order.PaymentStatus = paymentStatus
	s.metrics.OrderStatusChanges.WithLabelValues(string(status)).Inc()
	span.SetAttributes(attribute.String("order.status", string(status)))
	s.logger.Info("order status changed",
		zap.String("order_id", order.ID.String()),
		zap.String("from", string(previous)),
		zap.String("to", string(status)),
		zap.String("by", actor.UserID.String()),
	)
	publishEvent(ctx, s.publisher, s.metrics, s.logger, EventOrderStatusChanged, order.TrackingID, map[string]interface{}{
		"order_id":       order.ID,
		"tracking_id":    order.TrackingID,
		"from":           previous,
		"to":             status,
		"payment_status": paymentStatus,
	})
	return order, nil
}

// DeleteOrder removes an order, returning its items to stock unless it was
// already cancelled.
func (s *OrderService) DeleteOrder(ctx context.Context, actor Actor, id uuid.UUID) error {
	if !actor.IsAdmin() {
		return apperror.NewForbiddenError("Only admins can delete orders")
	}
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order == nil {
		return apperror.NewNotFoundError("Order")
	}

	status, removed, err := s.orderRepo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	if !removed {
		// Deleted concurrently; that request owns the restock
		return apperror.NewNotFoundError("Order")
	}
	if !status.IsTerminal() {
		s.releaseStock(ctx, order, "delete")
	}

	s.logger.Info("order deleted", zap.String("order_id", id.String()), zap.String("by", actor.UserID.String()))
	publishEvent(ctx, s.publisher, s.metrics, s.logger, EventOrderDeleted, order.TrackingID, map[string]interface{}{
		"order_id":    order.ID,
		"tracking_id": order.TrackingID,
	})
	return nil
}

// releaseStock returns the order's items to stock once the order row has
// left the active state. The row change is already committed, so a failure
// is logged and counted for reconciliation rather than returned.
func (s *OrderService) releaseStock(ctx context.Context, order *entity.Order, reason string) {
	if err := s.inventory.Release(ctx, order.Quantities()); err != nil {
		s.metrics.StockReleaseFailures.WithLabelValues(reason).Inc()
		s.logger.Error("stock release failed",
			zap.String("order_id", order.ID.String()),
			zap.String("tracking_id", order.TrackingID),
			zap.String("reason", reason),
			zap.Any("quantities", order.Quantities()),
			zap.Error(err),
		)
	}
}

func rejectReason(err error) string {
	if appErr := apperror.GetAppError(err); appErr.Type != apperror.TypeInternal {
		return appErr.Type
	}
	return "error"
}
