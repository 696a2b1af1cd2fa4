package middleware

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/pkg/logger"
)

// ErrorHandler renders the last error attached to the context as JSON.
// Register it after AuditMiddleware so the audit entry sees the rendered body.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		renderErrors(c)
	}
}

func renderErrors(c *gin.Context) {
	// Only handle if there are errors and nothing was written yet
	if len(c.Errors) == 0 || c.Writer.Written() {
		return
	}

	err := c.Errors.Last().Err
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) {
		// Unknown error, wrap as Internal
		appErr = apperrors.New(apperrors.ErrInternal, err.Error(), err)
	}

	logFields := []any{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"code", appErr.Type,
		"client_ip", c.ClientIP(),
	}
	if signerKey, ok := SignerFromContext(c); ok {
		logFields = append(logFields, "signer", signerKey.String())
	}

	if appErr.HTTPStatus >= 500 {
		logger.LogError(c.Request.Context(), appErr, "Internal Server Error", logFields...)
	} else {
		logger.Warn(appErr.Message, logFields...)
	}
	AddAuditContext(c, "error_code", appErr.Type)

	c.JSON(appErr.HTTPStatus, appErr)
}
