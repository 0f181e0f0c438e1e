package payment

import (
	"context"
	"fmt"

	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// intentClient is the subset of the Stripe payment intents client in use
type intentClient interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
}

// StripeGateway creates and reads Stripe payment intents
type StripeGateway struct {
	intents intentClient
}

// NewStripeGateway creates a gateway authenticated with secretKey
func NewStripeGateway(secretKey string) *StripeGateway {
	sc := client.New(secretKey, nil)
	return &StripeGateway{intents: sc.PaymentIntents}
}

// CreateIntent starts a payment of amount minor units
func (g *StripeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*service.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amount),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: %w", err)
	}
	return toIntent(pi), nil
}

// GetIntent reads the current state of a payment intent
func (g *StripeGateway) GetIntent(ctx context.Context, id string) (*service.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := g.intents.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("stripe: %w", err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *service.PaymentIntent {
	return &service.PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
	}
}
