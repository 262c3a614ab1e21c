package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/apperror"
)

// ErrorResponse defines the JSON structure for error responses.
type ErrorResponse struct {
	Error  string `json:"error"`
	Reason string `json:"reason,omitempty"`
}

// Error sends a JSON error response.
// It checks if the error is an AppError to determine the status code.
// If it's not an AppError, it defaults to 500 Internal Server Error and logs the cause.
func Error(c *gin.Context, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		if appErr.Code >= http.StatusInternalServerError {
			slog.ErrorContext(c.Request.Context(), "request failed",
				"reason", appErr.Reason, "path", c.FullPath(), "error", err)
		}
		c.JSON(appErr.Code, ErrorResponse{Error: appErr.Message, Reason: appErr.Reason})
		return
	}

	slog.ErrorContext(c.Request.Context(), "unhandled error", "path", c.FullPath(), "error", err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:  "internal server error",
		Reason: apperror.ReasonInternalFault,
	})
}

// BadRequest sends a 400 response for malformed input that never reached a service.
func BadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: message, Reason: apperror.ReasonInvalidInput})
}
