// Package handlers contains the Gin HTTP handlers. Handlers bind and
// validate input, delegate to services and translate the error taxonomy into
// status codes; they hold no business logic of their own.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sergio-scardigno/ventas-productos/internal/errs"
	"github.com/sergio-scardigno/ventas-productos/pkg/logger"
)

func writeError(c *gin.Context, err error) {
	var validationErr *errs.ValidationError
	var upstreamErr *errs.UpstreamError

	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})
	case errors.Is(err, errs.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service is not configured"})
	case errors.As(err, &upstreamErr):
		logger.Error(err, "Upstream call failed", map[string]interface{}{
			"service": upstreamErr.Service,
			"status":  upstreamErr.Status,
			"path":    c.Request.URL.Path,
		})
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream service error"})
	default:
		logger.Error(err, "Unhandled error", map[string]interface{}{
			"path": c.Request.URL.Path,
		})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
