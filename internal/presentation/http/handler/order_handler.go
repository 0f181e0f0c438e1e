package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/request"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/response"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/money"
	"github.com/sangkips/storefront-api/pkg/pagination"
)

// OrderHandler handles order-related HTTP requests
type OrderHandler struct {
	orderService *service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// Create handles online checkout
// @Summary Place order
// @Description Reserve stock and create an online order for the caller
// @Tags orders
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replay protection key"
// @Param request body request.CreateOrderRequest true "Cart and shipping"
// @Success 201 {object} response.APIResponse
// @Failure 400 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /orders [post]
func (h *OrderHandler) Create(c *gin.Context) {
	h.place(c, enum.SourceOnline)
}

// CreatePOS records a counter sale as an order
func (h *OrderHandler) CreatePOS(c *gin.Context) {
	h.place(c, enum.SourcePOS)
}

// CreateManual records a phone or social-media order
func (h *OrderHandler) CreateManual(c *gin.Context) {
	h.place(c, enum.SourceManual)
}

func (h *OrderHandler) place(c *gin.Context, source enum.SourceChannel) {
	var req request.CreateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := h.orderService.PlaceOrder(c.Request.Context(), req.ToInput(GetActor(c), source))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "Order placed successfully", order)
}

// List handles listing orders. Customers only see their own.
func (h *OrderHandler) List(c *gin.Context) {
	var filter request.OrderFilterRequest
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	params := &repository.OrderFilterParams{
		PaginationParams: pagination.PaginationParams{Page: filter.Page, PerPage: filter.PerPage},
		Status:           enum.OrderStatus(filter.Status),
		Source:           enum.SourceChannel(filter.Source),
	}

	result, err := h.orderService.ListOrders(c.Request.Context(), GetActor(c), params)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.SuccessWithPagination(c, 200, "Orders retrieved successfully", result)
}

// Get handles getting a single order by ID
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(c.Request.Context(), GetActor(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order retrieved successfully", order)
}

// Track looks an order up by tracking id (or internal id) without login.
// Shipping details are left out of the public view.
// @Summary Track order
// @Tags orders
// @Produce json
// @Param tracking_id path string true "Tracking id or order id"
// @Success 200 {object} response.APIResponse
// @Failure 404 {object} response.APIResponse
// @Router /orders/track/{tracking_id} [get]
func (h *OrderHandler) Track(c *gin.Context) {
	order, err := h.orderService.FindOrder(c.Request.Context(), c.Param("tracking_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order retrieved successfully", gin.H{
		"tracking_id":    order.TrackingID,
		"order_status":   order.OrderStatus,
		"payment_status": order.PaymentStatus,
		"source":         order.Source,
		"created_at":     order.CreatedAt,
		"updated_at":     order.UpdatedAt,
		"items":          order.Items,
		"total_amount":   money.Float(order.Total),
	})
}

// UpdateStatus handles an admin moving an order through its lifecycle
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req request.UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	status, err := enum.ParseOrderStatus(req.OrderStatus)
	if err != nil {
		response.Error(c, apperror.NewFieldError("order_status", "Invalid order status"))
		return
	}

	order, err := h.orderService.UpdateOrderStatus(c.Request.Context(), GetActor(c), id, status)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order status updated successfully", order)
}

// Delete handles deleting an order
func (h *OrderHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.orderService.DeleteOrder(c.Request.Context(), GetActor(c), id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Order deleted successfully", nil)
}
