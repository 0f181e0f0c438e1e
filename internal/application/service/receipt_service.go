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
	"github.com/sangkips/storefront-api/pkg/email"
	"github.com/sangkips/storefront-api/pkg/metrics"
	"github.com/sangkips/storefront-api/pkg/money"
	"github.com/sangkips/storefront-api/pkg/pagination"
	"github.com/sangkips/storefront-api/pkg/utils"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// WalkInCustomer names POS buyers who gave no name
const WalkInCustomer = "Walk-in Customer"

// ReceiptMailer delivers receipts to customers
type ReceiptMailer interface {
	SendReceiptEmail(ctx context.Context, toEmail string, receipt email.ReceiptEmail) error
}

// ReceiptService issues receipts for orders and counter sales
type ReceiptService struct {
	receiptRepo  repository.ReceiptRepository
	orderRepo    repository.OrderRepository
	settingsRepo repository.SettingsRepository
	numberer     *ReceiptNumberer
	publisher    EventPublisher
	mailer       ReceiptMailer
	metrics      *metrics.Registry
	logger       *zap.Logger
	tolerance    int64
	now          func() time.Time
}

// NewReceiptService creates a new receipt service. mailer may be nil.
func NewReceiptService(
	receiptRepo repository.ReceiptRepository,
	orderRepo repository.OrderRepository,
	settingsRepo repository.SettingsRepository,
	numberer *ReceiptNumberer,
	publisher EventPublisher,
	mailer ReceiptMailer,
	m *metrics.Registry,
	logger *zap.Logger,
	tolerance int64,
) *ReceiptService {
	return &ReceiptService{
		receiptRepo:  receiptRepo,
		orderRepo:    orderRepo,
		settingsRepo: settingsRepo,
		numberer:     numberer,
		publisher:    publisher,
		mailer:       mailer,
		metrics:      m,
		logger:       logger,
		tolerance:    tolerance,
		now:          time.Now,
	}
}

// ReceiptLineInput is a receipt line supplied by staff
type ReceiptLineInput struct {
	ProductID *uuid.UUID
	Name      string
	Quantity  int
	UnitPrice int64
}

// POSReceiptInput is a counter sale
type POSReceiptInput struct {
	Items        []ReceiptLineInput
	SubTotal     *int64
	Discount     int64
	Total        *int64
	CashReceived *int64
	CustomerName string
}

// ManualReceiptInput is a phone or social-media order entered by staff
type ManualReceiptInput struct {
	Items          []ReceiptLineInput
	Customer       entity.ShippingAddress
	DeliveryCharge int64
	SubTotal       *int64
	Total          *int64
	TrackingID     string
}

// GenerateForOrder issues the receipt of an order. It is idempotent: a
// second call returns the first receipt with created=false.
func (s *ReceiptService) GenerateForOrder(ctx context.Context, actor Actor, orderID uuid.UUID) (receipt *entity.Receipt, created bool, err error) {
	ctx, span := tracer.Start(ctx, "ReceiptService.GenerateForOrder")
	defer span.End()

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if order == nil {
		return nil, false, apperror.NewNotFoundError("Order")
	}
	if !actor.CanAccess(order.UserID) {
		return nil, false, apperror.NewForbiddenError("You do not have access to this order")
	}

	existing, err := s.receiptRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	if order.OrderStatus == enum.OrderStatusCancelled {
		return nil, false, apperror.NewBadRequestError("Cannot issue a receipt for a cancelled order")
	}

	receipt = receiptFromOrder(order)
	if actor.IsAdmin() {
		receipt.GeneratedBy = actor.idPtr()
	}

	if err := s.issue(ctx, receipt); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			// Lost a race with another request for the same order
			existing, getErr := s.receiptRepo.GetByOrderID(ctx, orderID)
			if getErr == nil && existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}
	span.SetAttributes(attribute.String("receipt.number", receipt.ReceiptNumber))

	if receipt.ReceiptType == enum.SourceOnline {
		s.mailReceipt(ctx, receipt)
	}
	return receipt, true, nil
}

func receiptFromOrder(order *entity.Order) *entity.Receipt {
	orderID := order.ID
	receiptType := order.Source.Bucket()

	items := make([]entity.ReceiptItem, 0, len(order.Items))
	for _, item := range order.Items {
		productID := item.ProductID
		items = append(items, entity.ReceiptItem{
			ProductID: &productID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     item.Total,
		})
	}

	return &entity.Receipt{
		OrderID:         &orderID,
		UserID:          order.UserID,
		ReceiptType:     receiptType,
		TrackingID:      order.TrackingID,
		SubTotal:        order.SubTotal,
		DeliveryCharge:  order.DeliveryCharge,
		Discount:        order.Discount,
		Total:           order.Total,
		PaymentMethod:   order.PaymentMethod,
		PaymentStatus:   order.PaymentStatus,
		CustomerName:    order.ShippingAddress.Name,
		CustomerPhone:   order.ShippingAddress.Phone,
		CustomerAddress: joinAddress(order.ShippingAddress),
		CustomerEmail:   order.ShippingAddress.Email,
		Items:           items,
	}
}

func joinAddress(a entity.ShippingAddress) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{a.Address, a.City, a.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// GeneratePOS issues a cash receipt for a counter sale
func (s *ReceiptService) GeneratePOS(ctx context.Context, actor Actor, input *POSReceiptInput) (*entity.Receipt, error) {
	ctx, span := tracer.Start(ctx, "ReceiptService.GeneratePOS")
	defer span.End()

	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Only admins can issue POS receipts")
	}

	items, subTotal, err := buildReceiptItems(input.Items)
	if err != nil {
		return nil, err
	}
	if input.Discount < 0 || input.Discount > subTotal {
		return nil, apperror.NewFieldError("discount", "Discount must be between 0 and the subtotal")
	}
	total := subTotal - input.Discount

	var mismatches []apperror.FieldError
	checkAmount(&mismatches, s.tolerance, "subtotal", input.SubTotal, subTotal)
	checkAmount(&mismatches, s.tolerance, "total", input.Total, total)
	if input.CashReceived != nil && !money.InRange(*input.CashReceived) {
		mismatches = append(mismatches, apperror.FieldError{Field: "cash_received", Message: "Amount is too large"})
	} else if input.CashReceived != nil && *input.CashReceived < total {
		mismatches = append(mismatches, apperror.FieldError{Field: "cash_received", Message: "Cash received is less than the total"})
	}
	if len(mismatches) > 0 {
		return nil, apperror.NewValidationError(mismatches)
	}

	customer := strings.TrimSpace(input.CustomerName)
	if customer == "" {
		customer = WalkInCustomer
	}

	receipt := &entity.Receipt{
		ReceiptType:   enum.SourcePOS,
		SubTotal:      subTotal,
		Discount:      input.Discount,
		Total:         total,
		CashReceived:  input.CashReceived,
		PaymentMethod: enum.PaymentMethodCash,
		PaymentStatus: enum.PaymentStatusPaid,
		CustomerName:  customer,
		GeneratedBy:   actor.idPtr(),
		Items:         items,
	}
	if err := s.issue(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// GenerateManual issues a receipt for an order taken by phone. Unless an
// existing manual order's tracking id is given, a new MAN- id is minted.
func (s *ReceiptService) GenerateManual(ctx context.Context, actor Actor, input *ManualReceiptInput) (*entity.Receipt, error) {
	ctx, span := tracer.Start(ctx, "ReceiptService.GenerateManual")
	defer span.End()

	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Only admins can issue manual receipts")
	}
	if strings.TrimSpace(input.Customer.Name) == "" {
		return nil, apperror.NewFieldError("customer.name", "Customer name is required")
	}
	if input.DeliveryCharge < 0 {
		return nil, apperror.NewFieldError("delivery_charge", "Delivery charge cannot be negative")
	}

	items, subTotal, err := buildReceiptItems(input.Items)
	if err != nil {
		return nil, err
	}
	total, ok := money.Add(subTotal, input.DeliveryCharge)
	if !ok {
		return nil, apperror.NewFieldError("delivery_charge", "Amount is too large")
	}

	var mismatches []apperror.FieldError
	checkAmount(&mismatches, s.tolerance, "subtotal", input.SubTotal, subTotal)
	checkAmount(&mismatches, s.tolerance, "total", input.Total, total)
	if len(mismatches) > 0 {
		return nil, apperror.NewValidationError(mismatches)
	}

	trackingID := strings.ToUpper(strings.TrimSpace(input.TrackingID))
	if trackingID != "" {
		order, err := s.orderRepo.GetByTrackingID(ctx, trackingID)
		if err != nil {
			return nil, err
		}
		if order == nil || order.Source != enum.SourceManual {
			return nil, apperror.NewNotFoundError("Manual order")
		}
	} else {
		trackingID = utils.GenerateTrackingID(enum.SourceManual.TrackingPrefix())
	}

	receipt := &entity.Receipt{
		ReceiptType:     enum.SourceManual,
		TrackingID:      trackingID,
		SubTotal:        subTotal,
		DeliveryCharge:  input.DeliveryCharge,
		Total:           total,
		PaymentMethod:   enum.PaymentMethodOffline,
		PaymentStatus:   enum.PaymentStatusReceived,
		CustomerName:    strings.TrimSpace(input.Customer.Name),
		CustomerPhone:   input.Customer.Phone,
		CustomerAddress: joinAddress(input.Customer),
		CustomerEmail:   input.Customer.Email,
		GeneratedBy:     actor.idPtr(),
		Items:           items,
	}
	if err := s.issue(ctx, receipt); err != nil {
		return nil, err
	}
	return receipt, nil
}

// issue numbers and stores a receipt. A failed insert burns its number.
func (s *ReceiptService) issue(ctx context.Context, receipt *entity.Receipt) error {
	number, err := s.numberer.Next(ctx)
	if err != nil {
		return err
	}
	receipt.ReceiptNumber = number
	receipt.GeneratedAt = s.now()

	if err := s.receiptRepo.Create(ctx, receipt); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return err
		}
		return fmt.Errorf("create receipt: %w", err)
	}

	s.metrics.ReceiptsGenerated.WithLabelValues(string(receipt.ReceiptType)).Inc()
	s.logger.Info("receipt generated",
		zap.String("receipt_number", receipt.ReceiptNumber),
		zap.String("type", string(receipt.ReceiptType)),
		zap.String("tracking_id", receipt.TrackingID),
		zap.Int64("total", receipt.Total),
	)
	publishEvent(ctx, s.publisher, s.metrics, s.logger, EventReceiptGenerated, receipt.ReceiptNumber, receipt)
	return nil
}

func (s *ReceiptService) mailReceipt(ctx context.Context, receipt *entity.Receipt) {
	if s.mailer == nil || receipt.CustomerEmail == "" {
		return
	}
	storeName := "Storefront"
	if settings, err := s.settingsRepo.Get(ctx); err == nil && settings != nil && settings.StoreName != "" {
		storeName = settings.StoreName
	}

	lines := make([]email.ReceiptLine, 0, len(receipt.Items))
	for _, item := range receipt.Items {
		lines = append(lines, email.ReceiptLine{Name: item.Name, Quantity: item.Quantity, Total: money.Format(item.Total)})
	}
	err := s.mailer.SendReceiptEmail(ctx, receipt.CustomerEmail, email.ReceiptEmail{
		StoreName:      storeName,
		CustomerName:   receipt.CustomerName,
		ReceiptNumber:  receipt.ReceiptNumber,
		TrackingID:     receipt.TrackingID,
		IssuedAt:       receipt.GeneratedAt.Format("2006-01-02 15:04"),
		Lines:          lines,
		SubTotal:       money.Format(receipt.SubTotal),
		DeliveryCharge: money.Format(receipt.DeliveryCharge),
		Discount:       money.Format(receipt.Discount),
		Total:          money.Format(receipt.Total),
		PaymentMethod:  receipt.PaymentMethod,
		PaymentStatus:  string(receipt.PaymentStatus),
	})
	if err != nil {
		s.logger.Warn("failed to email receipt", zap.String("receipt_number", receipt.ReceiptNumber), zap.Error(err))
	}
}

// GetReceipt returns a receipt visible to the actor
func (s *ReceiptService) GetReceipt(ctx context.Context, actor Actor, id uuid.UUID) (*entity.Receipt, error) {
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}
	if !actor.CanAccess(receipt.UserID) {
		return nil, apperror.NewForbiddenError("You do not have access to this receipt")
	}
	return receipt, nil
}

// ListReceipts lists receipts newest first; customers only see their own
func (s *ReceiptService) ListReceipts(ctx context.Context, actor Actor, params *repository.ReceiptFilterParams) (*pagination.PaginatedResult[entity.Receipt], error) {
	params.Validate()
	if !actor.IsAdmin() {
		params.UserID = actor.idPtr()
		if params.UserID == nil {
			return nil, apperror.ErrUnauthorized
		}
	}
	receipts, total, err := s.receiptRepo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	return pagination.NewPaginatedResult(receipts, &params.PaginationParams, total), nil
}

func buildReceiptItems(lines []ReceiptLineInput) ([]entity.ReceiptItem, int64, error) {
	if len(lines) == 0 {
		return nil, 0, apperror.NewFieldError("items", "At least one item is required")
	}
	var fieldErrors []apperror.FieldError
	items := make([]entity.ReceiptItem, 0, len(lines))
	var subTotal int64
	for i, line := range lines {
		name := strings.TrimSpace(line.Name)
		if name == "" {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("items[%d].name", i), Message: "Name is required"})
		}
		if line.Quantity < 1 {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("items[%d].quantity", i), Message: "Quantity must be at least 1"})
		}
		if line.UnitPrice < 0 {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("items[%d].price", i), Message: "Price cannot be negative"})
		}
		lineTotal, ok := money.MulQty(line.UnitPrice, line.Quantity)
		if ok {
			subTotal, ok = money.Add(subTotal, lineTotal)
		}
		if !ok && line.UnitPrice >= 0 && line.Quantity >= 1 {
			fieldErrors = append(fieldErrors, apperror.FieldError{Field: fmt.Sprintf("items[%d].price", i), Message: "Amount is too large"})
		}
		items = append(items, entity.ReceiptItem{
			ProductID: line.ProductID,
			Name:      name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Total:     lineTotal,
		})
	}
	if len(fieldErrors) > 0 {
		return nil, 0, apperror.NewValidationError(fieldErrors)
	}
	return items, subTotal, nil
}

func checkAmount(errs *[]apperror.FieldError, tolerance int64, field string, hint *int64, actual int64) {
	if hint == nil {
		return
	}
	if money.Abs(*hint-actual) > tolerance {
		*errs = append(*errs, apperror.FieldError{
			Field:   field,
			Message: fmt.Sprintf("Expected %s, got %s", money.Format(actual), money.Format(*hint)),
		})
	}
}
