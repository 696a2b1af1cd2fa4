package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/middleware"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/service"
)

type TokenHandler struct {
	svc *service.TokenService
}

func NewTokenHandler(svc *service.TokenService) *TokenHandler {
	return &TokenHandler{svc: svc}
}

type mintBody struct {
	Owner  model.Pubkey `json:"owner"`
	Mint   model.Pubkey `json:"mint"`
	Amount uint64       `json:"amount,string"`
}

func (h *TokenHandler) Balance(c *gin.Context) {
	owner, ok := pubkeyParam(c, "owner")
	if !ok {
		return
	}
	mint, ok := pubkeyParam(c, "mint")
	if !ok {
		return
	}
	bal, err := h.svc.Balance(c.Request.Context(), owner, mint)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, bal)
}

// Mint serves POST /v1/ops/mint. Only registered when dev minting is enabled.
func (h *TokenHandler) Mint(c *gin.Context) {
	var body mintBody
	if !bindJSON(c, &body) {
		return
	}
	if body.Owner.IsZero() || body.Mint.IsZero() {
		c.Error(apperrors.NewInvalidRequest("owner and mint are required"))
		return
	}
	bal, err := h.svc.Mint(c.Request.Context(), body.Owner, body.Mint, body.Amount)
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "mint")
	middleware.AddAuditContext(c, "owner", body.Owner.String())
	c.JSON(http.StatusOK, bal)
}
