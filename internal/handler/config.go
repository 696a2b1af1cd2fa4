package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/nomadz/paygate/internal/middleware"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/service"
)

type ConfigHandler struct {
	svc *service.ConfigService
}

func NewConfigHandler(svc *service.ConfigService) *ConfigHandler {
	return &ConfigHandler{svc: svc}
}

type initializeConfigBody struct {
	Admin                model.Pubkey   `json:"admin"`
	FeeVault             model.Pubkey   `json:"fee_vault"`
	DestinationVault     model.Pubkey   `json:"destination_vault"`
	BookingFeeBps        uint16         `json:"booking_fee_bps"`
	AllowedPaymentTokens []model.Pubkey `json:"allowed_payment_tokens"`
}

type confirmBody struct {
	Admin            *model.Pubkey `json:"admin"`
	FeeVault         *model.Pubkey `json:"fee_vault"`
	DestinationVault *model.Pubkey `json:"destination_vault"`
}

type updateConfigBody struct {
	NewAdmin                *model.Pubkey   `json:"new_admin"`
	NewFeeVault             *model.Pubkey   `json:"new_fee_vault"`
	NewDestinationVault     *model.Pubkey   `json:"new_destination_vault"`
	NewBookingFeeBps        *uint16         `json:"new_booking_fee_bps"`
	NewAllowedPaymentTokens *[]model.Pubkey `json:"new_allowed_payment_tokens"`
	Confirm                 confirmBody     `json:"confirm"`
}

type configResponse struct {
	*model.Config
	Address    model.Pubkey    `json:"address"`
	FeePercent decimal.Decimal `json:"fee_percent"`
}

func newConfigResponse(cfg *model.Config) configResponse {
	return configResponse{Config: cfg, Address: service.ConfigAddress(), FeePercent: cfg.FeePercent()}
}

// Initialize serves POST /v1/config/initialize. The signer is the initializer.
func (h *ConfigHandler) Initialize(c *gin.Context) {
	signerKey, ok := requireSigner(c)
	if !ok {
		return
	}
	var body initializeConfigBody
	if !bindJSON(c, &body) {
		return
	}

	cfg, err := h.svc.Initialize(c.Request.Context(), service.InitializeConfigRequest{
		Initializer:          signerKey,
		Admin:                body.Admin,
		FeeVault:             body.FeeVault,
		DestinationVault:     body.DestinationVault,
		BookingFeeBps:        body.BookingFeeBps,
		AllowedPaymentTokens: body.AllowedPaymentTokens,
	})
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "initialize_config")
	c.JSON(http.StatusCreated, newConfigResponse(cfg))
}

// Update serves PATCH /v1/config. The signer must be the current admin.
func (h *ConfigHandler) Update(c *gin.Context) {
	signerKey, ok := requireSigner(c)
	if !ok {
		return
	}
	var body updateConfigBody
	if !bindJSON(c, &body) {
		return
	}

	cfg, err := h.svc.UpdateConfig(c.Request.Context(), signerKey,
		service.ConfigPatch{
			NewAdmin:                body.NewAdmin,
			NewFeeVault:             body.NewFeeVault,
			NewDestinationVault:     body.NewDestinationVault,
			NewBookingFeeBps:        body.NewBookingFeeBps,
			NewAllowedPaymentTokens: body.NewAllowedPaymentTokens,
		},
		service.ConfigConfirmations{
			Admin:            body.Confirm.Admin,
			FeeVault:         body.Confirm.FeeVault,
			DestinationVault: body.Confirm.DestinationVault,
		})
	if err != nil {
		c.Error(err)
		return
	}
	middleware.AddAuditContext(c, "action", "update_config")
	c.JSON(http.StatusOK, newConfigResponse(cfg))
}

func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.svc.GetConfig(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, newConfigResponse(cfg))
}
