package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sergio-scardigno/ventas-productos/internal/models"
	"github.com/sergio-scardigno/ventas-productos/internal/service"
	"github.com/sergio-scardigno/ventas-productos/pkg/logger"
)

type WebhookHandler struct {
	reconcile *service.ReconcileService
}

func NewWebhookHandler(reconcile *service.ReconcileService) *WebhookHandler {
	return &WebhookHandler{reconcile: reconcile}
}

// MercadoPago receives asynchronous payment notifications. It acknowledges
// with 200 no matter what happens: a non-2xx answer makes the provider retry
// aggressively and eventually disable the webhook, while a lost notification
// is recovered by the next redelivery. All processing errors are logged
// inside the reconcile service.
func (h *WebhookHandler) MercadoPago(c *gin.Context) {
	// Query-string notifications (?topic=payment&id=...) arrive with an
	// empty body, so a bind failure is expected there: continue with an
	// empty notification and let the parameters fill it in.
	var notification models.WebhookNotification
	if err := c.ShouldBindJSON(&notification); err != nil {
		logger.Debug("Webhook body not parseable as JSON", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if notification.Type == "" {
		notification.Type = c.Query("type")
		if notification.Type == "" {
			notification.Type = c.Query("topic")
		}
	}
	if notification.Data.ID == "" {
		notification.Data.ID = c.Query("data.id")
		if notification.Data.ID == "" {
			notification.Data.ID = c.Query("id")
		}
	}

	if notification.Type == "" && notification.Data.ID == "" {
		logger.Warn("Webhook notification carries no type or id", nil)
		c.JSON(http.StatusOK, gin.H{"success": true})
		return
	}

	h.reconcile.HandleNotification(c.Request.Context(), notification)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
