package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sergio-scardigno/ventas-productos/internal/service"
)

type OrderHandler struct {
	orders *service.OrderService
}

func NewOrderHandler(orders *service.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// List returns every recorded order. The ledger is small by design, so
// pagination is deliberately absent.
func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.orders.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "count": len(orders)})
}
