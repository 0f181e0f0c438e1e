package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/presentation/http/dto/response"
	"github.com/sangkips/storefront-api/pkg/money"
)

// DeliveryHandler quotes delivery fees
type DeliveryHandler struct {
	calculator *service.DeliveryCalculator
}

// NewDeliveryHandler creates a new delivery handler
func NewDeliveryHandler(calculator *service.DeliveryCalculator) *DeliveryHandler {
	return &DeliveryHandler{calculator: calculator}
}

// Quote returns the fee for ?zone= or ?city=&address=
func (h *DeliveryHandler) Quote(c *gin.Context) {
	quote := h.calculator.Quote(c.Query("zone"), c.Query("city"), c.Query("address"))

	zones := make([]gin.H, 0, 2)
	for _, z := range h.calculator.Zones() {
		zones = append(zones, gin.H{"zone": z.Zone, "fee": money.Float(z.Fee)})
	}

	response.OK(c, "Delivery fee calculated", gin.H{
		"zone":  quote.Zone,
		"fee":   money.Float(quote.Fee),
		"zones": zones,
	})
}
