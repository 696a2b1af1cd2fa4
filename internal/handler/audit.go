package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/service"
)

type AuditHandler struct {
	svc *service.AuditService
}

func NewAuditHandler(svc *service.AuditService) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List serves GET /v1/ops/audit?signer=&limit=&from=&to=
func (h *AuditHandler) List(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	var fromPtr *time.Time
	var toPtr *time.Time
	if raw := c.Query("from"); raw != "" {
		if t, err := parseTime(raw); err == nil {
			fromPtr = &t
		} else {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
	}
	if raw := c.Query("to"); raw != "" {
		if t, err := parseTime(raw); err == nil {
			toPtr = &t
		} else {
			c.Error(apperrors.NewInvalidRequest(err.Error()))
			return
		}
	}

	records, err := h.svc.List(c.Request.Context(), c.Query("signer"), limit, fromPtr, toPtr)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrInternal, err.Error(), err))
		return
	}
	c.JSON(http.StatusOK, records)
}
