package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/backoffice/pkg/database"
	"github.com/suteetoe/backoffice/pkg/logger"
	"go.uber.org/zap"
)

// HealthCheck handles the health check endpoint
func (h *Handler) HealthCheck(c echo.Context) error {
	response := map[string]interface{}{
		"status":  "healthy",
		"service": h.opts.ServiceName,
		"time":    h.now().Format(time.RFC3339),
	}

	if err := database.Ping(c.Request().Context(), h.db); err != nil {
		logger.FromEcho(c).Error("Database ping error", zap.Error(err))
		response["status"] = "unhealthy"
		response["db_status"] = "error"
		return c.JSON(http.StatusServiceUnavailable, response)
	}
	response["db_status"] = "ok"

	return c.JSON(http.StatusOK, response)
}

// Hello returns a simple welcome message
func (h *Handler) Hello(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to " + h.opts.ServiceName + " API",
		"version": "1.0.0",
	})
}
