package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

func ReadOnlyMiddleware(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !enabled {
			c.Next()
			return
		}

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
		default:
			abortWith(c, apperrors.New(apperrors.ErrReadOnly, "read-only mode enabled", nil))
		}
	}
}
