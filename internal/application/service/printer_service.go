package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/money"
	"github.com/sangkips/storefront-api/pkg/printer"
	"go.uber.org/zap"
)

// PrinterService handles receipt formatting and thermal printing.
type PrinterService struct {
	printer      printer.Printer
	receiptRepo  repository.ReceiptRepository
	settingsRepo repository.SettingsRepository
	printerType  string
	charWidth    int
	logger       *zap.Logger
}

// NewPrinterService creates a new printer service.
func NewPrinterService(
	p printer.Printer,
	receiptRepo repository.ReceiptRepository,
	settingsRepo repository.SettingsRepository,
	printerType string,
	charWidth int,
	logger *zap.Logger,
) *PrinterService {
	return &PrinterService{
		printer:      p,
		receiptRepo:  receiptRepo,
		settingsRepo: settingsRepo,
		printerType:  printerType,
		charWidth:    charWidth,
		logger:       logger,
	}
}

// PrinterStatus returns the current printer status information.
type PrinterStatus struct {
	Configured bool   `json:"configured"`
	Connected  bool   `json:"connected"`
	Type       string `json:"type"`
}

// GetStatus returns printer connection status.
func (s *PrinterService) GetStatus() *PrinterStatus {
	return &PrinterStatus{
		Configured: s.printerType != printer.TypeNone && s.printerType != "",
		Connected:  s.printer.IsConnected(),
		Type:       s.printerType,
	}
}

// PrintReceipt prints a stored receipt with the store header and QR link
func (s *PrinterService) PrintReceipt(ctx context.Context, actor Actor, id uuid.UUID) (*entity.Receipt, error) {
	if !actor.IsAdmin() {
		return nil, apperror.NewForbiddenError("Only admins can print receipts")
	}
	receipt, err := s.receiptRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if receipt == nil {
		return nil, apperror.NewNotFoundError("Receipt")
	}
	settings, err := s.settingsRepo.Get(ctx)
	if err != nil {
		return nil, err
	}

	data := FormatReceipt(receipt, settings, s.charWidth)
	if err := s.printer.Print(ctx, data); err != nil {
		s.logger.Error("printer error", zap.String("receipt_number", receipt.ReceiptNumber), zap.Error(err))
		return receipt, fmt.Errorf("failed to print receipt: %w", err)
	}
	return receipt, nil
}

// FormatReceipt converts a Receipt into ESC/POS bytes. settings may be nil.
func FormatReceipt(r *entity.Receipt, settings *entity.StoreSettings, charWidth int) []byte {
	doc := printer.NewDocument(charWidth)

	storeName := "Storefront"
	if settings != nil && settings.StoreName != "" {
		storeName = settings.StoreName
	}

	// Header
	doc.SetAlign(printer.AlignCenter).
		SetBold(true).
		SetFontSize(printer.FontDouble).
		Text(storeName).
		SetFontSize(printer.FontNormal).
		SetBold(false)
	if settings != nil && settings.StoreAddress != "" {
		doc.Text(settings.StoreAddress)
	}
	if settings != nil && settings.StorePhone != "" {
		doc.Text(settings.StorePhone)
	}

	doc.SetAlign(printer.AlignLeft).
		Separator('-').
		KeyValue("Receipt:", r.ReceiptNumber).
		KeyValue("Date:", r.GeneratedAt.Format("2006-01-02 15:04"))
	if r.TrackingID != "" {
		doc.KeyValue("Tracking:", r.TrackingID)
	}
	if r.CustomerName != "" {
		doc.KeyValue("Customer:", r.CustomerName)
	}
	if r.CustomerPhone != "" {
		doc.KeyValue("Phone:", r.CustomerPhone)
	}
	doc.Separator('-')

	for _, item := range r.Items {
		doc.ItemLine(item.Quantity, item.Name, money.Format(item.Total))
		if item.Quantity > 1 {
			doc.TextF("  @ %s each", money.Format(item.UnitPrice))
		}
	}
	doc.Separator('-')

	doc.KeyValue("Subtotal:", money.Format(r.SubTotal))
	if r.DeliveryCharge > 0 {
		doc.KeyValue("Delivery:", money.Format(r.DeliveryCharge))
	}
	if r.Discount > 0 {
		doc.KeyValue("Discount:", "-"+money.Format(r.Discount))
	}
	doc.SetBold(true).
		KeyValue("TOTAL:", money.Format(r.Total)).
		SetBold(false)
	if r.CashReceived != nil {
		doc.KeyValue("Cash:", money.Format(*r.CashReceived)).
			KeyValue("Change:", money.Format(r.ChangeDue()))
	}
	doc.KeyValue("Payment:", fmt.Sprintf("%s (%s)", r.PaymentMethod, r.PaymentStatus)).
		Separator('-')

	// Footer
	doc.SetAlign(printer.AlignCenter).
		LineFeed().
		QRCode(settings.QRURL(), 6, printer.QRCorrectionM).
		Text("Thank you for shopping with us!").
		SetAlign(printer.AlignLeft).
		FeedLines(3).
		PartialCut()

	return doc.Bytes()
}
