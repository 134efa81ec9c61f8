package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"retailcore/internal/core/apperror"
	appctx "retailcore/internal/core/context"
	"retailcore/pkg/logger"
)

// ErrorHandler turns the last error recorded on the context into a JSON body
// {code, message, details}. Internal causes are logged, never returned.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		ctx := c.Request.Context()
		status := apperror.GetHTTPStatus(err)

		appErr, ok := apperror.AsAppError(err)
		if !ok {
			appErr = apperror.NewInternal(err)
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Error(ctx, "request failed", "code", appErr.Code, "error", err)
		case appErr.Err != nil:
			logger.Warn(ctx, "request rejected", "code", appErr.Code, "cause", appErr.Err)
		}

		details := appErr.Details
		if status >= http.StatusInternalServerError {
			details = map[string]any{"request_id": appctx.GetRequestID(ctx)}
		}
		c.JSON(status, gin.H{
			"code":    appErr.Code,
			"message": appErr.Message,
			"details": details,
		})
	}
}
