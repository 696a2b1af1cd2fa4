package middleware

import (
	"crypto/subtle"

	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/config"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

const HeaderAdminKey = "X-Admin-Key"

// AdminMiddleware guards operator routes with the shared admin key.
func AdminMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg == nil || cfg.Auth.AdminKey == "" {
			abortWith(c, apperrors.NewForbidden("admin key not configured"))
			return
		}
		if subtle.ConstantTimeCompare([]byte(c.GetHeader(HeaderAdminKey)), []byte(cfg.Auth.AdminKey)) != 1 {
			abortWith(c, apperrors.New(apperrors.ErrAuthFailed, "invalid admin key", nil))
			return
		}
		c.Next()
	}
}
