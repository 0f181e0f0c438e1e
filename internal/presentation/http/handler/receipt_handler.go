package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/request"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/response"
	"github.com/sangkips/storefront-api/pkg/pagination"
)

// ReceiptHandler handles receipt-related HTTP requests
type ReceiptHandler struct {
	receiptService *service.ReceiptService
}

// NewReceiptHandler creates a new receipt handler
func NewReceiptHandler(receiptService *service.ReceiptService) *ReceiptHandler {
	return &ReceiptHandler{receiptService: receiptService}
}

// GenerateForOrder issues the receipt of an order. Repeating the call
// returns the same receipt with 200 instead of 201.
// @Summary Generate order receipt
// @Tags receipts
// @Security BearerAuth
// @Produce json
// @Param order_id path string true "Order ID"
// @Success 201 {object} response.APIResponse
// @Success 200 {object} response.APIResponse
// @Router /receipts/order/{order_id} [post]
func (h *ReceiptHandler) GenerateForOrder(c *gin.Context) {
	orderID, ok := parseIDParam(c, "order_id")
	if !ok {
		return
	}

	receipt, created, err := h.receiptService.GenerateForOrder(c.Request.Context(), GetActor(c), orderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	if !created {
		response.OK(c, "Receipt already generated", receipt)
		return
	}
	response.Created(c, "Receipt generated successfully", receipt)
}

// GeneratePOS issues a counter-sale receipt
func (h *ReceiptHandler) GeneratePOS(c *gin.Context) {
	var req request.POSReceiptRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.receiptService.GeneratePOS(c.Request.Context(), GetActor(c), req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Receipt generated successfully", receipt)
}

// GenerateManual issues a manual-order receipt
func (h *ReceiptHandler) GenerateManual(c *gin.Context) {
	var req request.ManualReceiptRequest
	if !bindJSON(c, &req) {
		return
	}

	receipt, err := h.receiptService.GenerateManual(c.Request.Context(), GetActor(c), req.ToInput())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Receipt generated successfully", receipt)
}

// List handles listing receipts, newest first
func (h *ReceiptHandler) List(c *gin.Context) {
	var page pagination.PaginationParams
	if err := c.ShouldBindQuery(&page); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.receiptService.ListReceipts(c.Request.Context(), GetActor(c), &repository.ReceiptFilterParams{PaginationParams: page})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, http.StatusOK, "Receipts retrieved successfully", result)
}

// Get handles getting a single receipt
func (h *ReceiptHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	receipt, err := h.receiptService.GetReceipt(c.Request.Context(), GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Receipt retrieved successfully", receipt)
}
