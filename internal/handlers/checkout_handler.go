package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/service"
)

type CheckoutHandler struct {
	checkout  *service.CheckoutService
	reconcile *service.ReconcileService
}

func NewCheckoutHandler(checkout *service.CheckoutService, reconcile *service.ReconcileService) *CheckoutHandler {
	return &CheckoutHandler{checkout: checkout, reconcile: reconcile}
}

// Create opens a checkout session and returns the provider redirect.
func (h *CheckoutHandler) Create(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	session, err := h.checkout.CreateSession(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// CapturePayPal captures an approved PayPal order and records it.
func (h *CheckoutHandler) CapturePayPal(c *gin.Context) {
	var req models.CaptureRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.OrderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "order_id is required"})
		return
	}

	order, err := h.reconcile.CapturePayment(c.Request.Context(), models.ProviderPayPal, req.OrderID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "order": order})
}
