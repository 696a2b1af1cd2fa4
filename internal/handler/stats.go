package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/service"
)

type StatsHandler struct {
	stats  *service.StatsService
	config *service.ConfigService
}

func NewStatsHandler(stats *service.StatsService, config *service.ConfigService) *StatsHandler {
	return &StatsHandler{stats: stats, config: config}
}

// Daily serves GET /v1/ops/stats?mint=a,b. Without mints it reports every
// allowed payment token.
func (h *StatsHandler) Daily(c *gin.Context) {
	var mints []model.Pubkey
	if raw := c.Query("mint"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			mint, err := model.ParsePubkey(part)
			if err != nil {
				c.Error(apperrors.NewInvalidRequest("invalid mint: " + err.Error()))
				return
			}
			mints = append(mints, mint)
		}
	} else {
		cfg, err := h.config.GetConfig(c.Request.Context())
		if err != nil {
			c.Error(err)
			return
		}
		mints = cfg.AllowedPaymentTokens
	}

	out, err := h.stats.Daily(c.Request.Context(), mints)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": out})
}
