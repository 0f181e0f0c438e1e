package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/money"
	"go.uber.org/zap"
)

var (
	// ErrPaymentsDisabled is returned when no gateway is configured
	ErrPaymentsDisabled = errors.New("payments are not configured")
	// ErrPaymentMismatch is returned when an intent was created for a
	// different amount or currency than the order it is attached to
	ErrPaymentMismatch = errors.New("payment intent does not match order")
)

// PaymentIntent is the gateway's view of a card payment
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Status       string `json:"status"`
	Amount       int64  `json:"-"`
	Currency     string `json:"currency"`
}

// Succeeded reports whether the gateway captured the payment
func (p *PaymentIntent) Succeeded() bool {
	return p != nil && p.Status == "succeeded"
}

// PaymentGateway is the external card processor
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error)
	GetIntent(ctx context.Context, id string) (*PaymentIntent, error)
}

// PaymentService creates payment intents and checks their outcome
type PaymentService struct {
	gateway  PaymentGateway
	currency string
	logger   *zap.Logger
}

// NewPaymentService creates a payment service. gateway may be nil when card
// payments are disabled.
func NewPaymentService(gateway PaymentGateway, currency string, logger *zap.Logger) *PaymentService {
	return &PaymentService{gateway: gateway, currency: currency, logger: logger}
}

// CreateIntent starts a card payment for amount minor units
func (s *PaymentService) CreateIntent(ctx context.Context, actor Actor, amount int64) (*PaymentIntent, error) {
	if s.gateway == nil {
		return nil, apperror.NewBadRequestError("Card payments are not available")
	}
	if amount <= 0 || !money.InRange(amount) {
		return nil, apperror.NewFieldError("amount", "Amount must be greater than zero and within limits")
	}
	intent, err := s.gateway.CreateIntent(ctx, amount, s.currency, map[string]string{
		"user_id": actor.UserID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent: %w", err)
	}
	s.logger.Info("payment intent created", zap.String("intent_id", intent.ID), zap.Int64("amount", amount))
	return intent, nil
}

// VerifyPayment reports whether the gateway confirms the intent as captured
// for exactly amount minor units in the service currency.
func (s *PaymentService) VerifyPayment(ctx context.Context, intentID string, amount int64) (bool, error) {
	if s.gateway == nil {
		return false, ErrPaymentsDisabled
	}
	intent, err := s.gateway.GetIntent(ctx, intentID)
	if err != nil {
		return false, fmt.Errorf("get payment intent: %w", err)
	}
	if intent.Amount != amount || !strings.EqualFold(intent.Currency, s.currency) {
		s.logger.Warn("payment intent does not match order",
			zap.String("intent_id", intentID),
			zap.Int64("intent_amount", intent.Amount),
			zap.String("intent_currency", intent.Currency),
			zap.Int64("order_amount", amount),
		)
		return false, ErrPaymentMismatch
	}
	return intent.Succeeded(), nil
}
