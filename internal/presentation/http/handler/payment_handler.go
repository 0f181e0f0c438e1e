package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/request"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/response"
	"github.com/sangkips/storefront-api/pkg/money"
)

// PaymentHandler handles card payment HTTP requests
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateIntent starts a card payment and returns its client secret
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req request.PaymentIntentRequest
	if !bindJSON(c, &req) {
		return
	}

	intent, err := h.paymentService.CreateIntent(c.Request.Context(), GetActor(c), money.FromDecimal(req.Amount))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Payment intent created", gin.H{
		"id":            intent.ID,
		"client_secret": intent.ClientSecret,
		"status":        intent.Status,
		"amount":        money.Float(intent.Amount),
		"currency":      intent.Currency,
	})
}
