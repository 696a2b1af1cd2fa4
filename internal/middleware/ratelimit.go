package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/manager"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

// RateLimitMiddleware applies the per-signer limiter. Must run after
// SignerAuthMiddleware.
func RateLimitMiddleware(limiters *manager.LimiterManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		signerKey, ok := SignerFromContext(c)
		if !ok {
			abortWith(c, apperrors.New(apperrors.ErrAuthFailed, "unauthorized", nil))
			return
		}

		if !limiters.GetLimiter(signerKey).Allow() {
			c.Header("Retry-After", "1")
			abortWith(c, apperrors.New(apperrors.ErrTooManyRequests, "rate limit exceeded", nil))
			return
		}

		c.Next()
	}
}
