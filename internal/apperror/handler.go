package apperror

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/suteetoe/backoffice/pkg/logger"
	"go.uber.org/zap"
)

// Response is the single error envelope used by every route
type Response struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// HTTPErrorHandler renders every error returned by a handler or middleware
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	log := logger.FromEcho(c)

	status, message := http.StatusInternalServerError, "internal server error"

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		status = httpErr.Code
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(status)
		}
	} else {
		appErr := Classify(err)
		status, message = appErr.Status, appErr.Message
		if appErr.Kind == KindStorage {
			log.Error("Unhandled error", zap.Error(err))
		} else {
			log.Warn("Request failed",
				zap.String("kind", string(appErr.Kind)),
				zap.Int("status", status),
				zap.String("message", message))
		}
	}

	resp := Response{Error: message}
	if status >= http.StatusInternalServerError {
		resp.RequestID = c.Response().Header().Get(echo.HeaderXRequestID)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, resp)
	}
	if writeErr != nil {
		log.Error("Failed to write error response", zap.Error(writeErr))
	}
}
