package handler

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/middleware"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

func requireSigner(c *gin.Context) (model.Pubkey, bool) {
	signerKey, ok := middleware.SignerFromContext(c)
	if !ok {
		c.Error(apperrors.New(apperrors.ErrAuthFailed, "unauthorized: missing signer context", nil))
		return model.Pubkey{}, false
	}
	return signerKey, true
}

func pubkeyParam(c *gin.Context, name string) (model.Pubkey, bool) {
	pk, err := model.ParsePubkey(c.Param(name))
	if err != nil {
		c.Error(apperrors.NewInvalidRequest(fmt.Sprintf("invalid %s: %v", name, err)))
		return model.Pubkey{}, false
	}
	return pk, true
}

func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.Error(apperrors.NewInvalidRequest(err.Error()))
		return false
	}
	return true
}

func parseTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if unix, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("invalid time format")
}
