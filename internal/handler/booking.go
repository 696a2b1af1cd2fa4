package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nomadz/paygate/internal/middleware"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/service"
	"github.com/nomadz/paygate/internal/signer"
)

type BookingHandler struct {
	svc *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type createBookingBody struct {
	TokenMint   model.Pubkey `json:"token_mint"`
	HotelID     string       `json:"hotel_id"`
	UserID      string       `json:"user_id"`
	TokenAmount uint64       `json:"token_amount,string"`
}

type settleBookingBody struct {
	Payer          model.Pubkey `json:"payer"`
	TokenMint      model.Pubkey `json:"token_mint"`
	PayerSignature string       `json:"payer_signature"`
}

type deriveResponse struct {
	Address model.Pubkey `json:"address"`
	Bump    uint8        `json:"bump"`
}

// Create serves POST /v1/bookings. The signer is the payer. Returns 201 for a
// new record and 200 when the same intent is already pending.
func (h *BookingHandler) Create(c *gin.Context) {
	payer, ok := requireSigner(c)
	if !ok {
		return
	}
	var body createBookingBody
	if !bindJSON(c, &body) {
		return
	}

	rec, created, err := h.svc.CreateBookingPayment(c.Request.Context(), service.CreateBookingPaymentRequest{
		Payer:       payer,
		TokenMint:   body.TokenMint,
		HotelID:     body.HotelID,
		UserID:      body.UserID,
		TokenAmount: body.TokenAmount,
	})
	if err != nil {
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "action", "create_booking_payment")
	middleware.AddAuditContext(c, "booking_payment", rec.Address.String())
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, rec)
}

// Settle serves POST /v1/bookings/:address/settle. The signer is the config
// admin; payer_signature carries the payer's approval of the transfer.
func (h *BookingHandler) Settle(c *gin.Context) {
	adminKey, ok := requireSigner(c)
	if !ok {
		return
	}
	addr, ok := pubkeyParam(c, "address")
	if !ok {
		return
	}
	var body settleBookingBody
	if !bindJSON(c, &body) {
		return
	}

	sig, err := signer.ParseSignature(body.PayerSignature)
	if err != nil {
		c.Error(apperrors.New(apperrors.ErrAuthFailed, "invalid payer_signature", err))
		return
	}
	if !signer.Verify(body.Payer, signer.SettlementDigest(addr), sig) {
		c.Error(apperrors.New(apperrors.ErrAuthFailed, "payer did not approve this settlement", nil))
		return
	}

	rec, err := h.svc.SettleBookingPayment(c.Request.Context(), service.SettleBookingPaymentRequest{
		Admin:     adminKey,
		Payer:     body.Payer,
		TokenMint: body.TokenMint,
		Address:   addr,
	})
	if err != nil {
		middleware.AddAuditContext(c, "booking_payment", addr.String())
		c.Error(err)
		return
	}

	middleware.AddAuditContext(c, "action", "settle_booking_payment")
	middleware.AddAuditContext(c, "booking_payment", addr.String())
	middleware.AddAuditContext(c, "fee_amount", rec.FeeAmount)
	middleware.AddAuditContext(c, "destination_amount", rec.DestinationAmount)
	c.JSON(http.StatusOK, rec)
}

func (h *BookingHandler) Get(c *gin.Context) {
	addr, ok := pubkeyParam(c, "address")
	if !ok {
		return
	}
	rec, err := h.svc.GetBookingPayment(c.Request.Context(), addr)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Derive serves GET /v1/bookings/derive?payer=&hotel_id=&user_id=
func (h *BookingHandler) Derive(c *gin.Context) {
	payer, err := model.ParsePubkey(c.Query("payer"))
	if err != nil {
		c.Error(apperrors.NewInvalidRequest("invalid payer: " + err.Error()))
		return
	}
	addr, bump, err := h.svc.DeriveBookingAddress(payer, c.Query("hotel_id"), c.Query("user_id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, deriveResponse{Address: addr, Bump: bump})
}
