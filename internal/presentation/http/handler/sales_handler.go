package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/response"
)

// SalesHandler serves the sales dashboard figures
type SalesHandler struct {
	salesService *service.SalesService
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(salesService *service.SalesService) *SalesHandler {
	return &SalesHandler{salesService: salesService}
}

// GetSales returns sales by channel for today, week, month or all
// @Summary Sales report
// @Tags sales
// @Security BearerAuth
// @Produce json
// @Param range query string false "today, week, month or all" default(all)
// @Success 200 {object} response.APIResponse
// @Router /sales [get]
func (h *SalesHandler) GetSales(c *gin.Context) {
	report, err := h.salesService.GetSalesReport(c.Request.Context(), GetActor(c), c.Query("range"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "Sales retrieved successfully", report)
}
