package service

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/nomadz/paygate/internal/ledger"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/pkg/logger"
	"github.com/nomadz/paygate/internal/pkg/metrics"
	"github.com/nomadz/paygate/internal/token"
)

var bpsDenominator = uint256.NewInt(model.MaxFeeBps)

type CreateBookingPaymentRequest struct {
	Payer       model.Pubkey
	TokenMint   model.Pubkey
	HotelID     string
	UserID      string
	TokenAmount uint64
}

type SettleBookingPaymentRequest struct {
	Admin     model.Pubkey
	Payer     model.Pubkey
	TokenMint model.Pubkey
	Address   model.Pubkey
}

// BookingService drives booking payments from Pending to Settled.
type BookingService struct {
	ledger     ledger.Ledger
	delegation ledger.DelegationChecker
	emitter    Emitter
}

func NewBookingService(l ledger.Ledger, delegation ledger.DelegationChecker) *BookingService {
	if delegation == nil {
		delegation = ledger.NewOwnerDelegationChecker()
	}
	return &BookingService{
		ledger:     l,
		delegation: delegation,
		emitter:    NoopEmitter{},
	}
}

func (s *BookingService) SetEmitter(emitter Emitter) {
	if emitter == nil {
		s.emitter = NoopEmitter{}
		return
	}
	s.emitter = emitter
}

// ComputeAmounts returns floor(tokenAmount*feeBps/10000) and tokenAmount+fee.
func ComputeAmounts(tokenAmount uint64, feeBps uint16) (fee, total uint64, err error) {
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(tokenAmount), uint256.NewInt(uint64(feeBps)))
	if overflow || !product.IsUint64() {
		return 0, 0, apperrors.New(apperrors.ErrOverflow, "fee calculation overflows", nil)
	}
	fee = new(uint256.Int).Div(product, bpsDenominator).Uint64()
	sum := new(uint256.Int).Add(uint256.NewInt(tokenAmount), uint256.NewInt(fee))
	if !sum.IsUint64() {
		return 0, 0, apperrors.New(apperrors.ErrOverflow, "total amount overflows", nil)
	}
	return fee, sum.Uint64(), nil
}

// CreateBookingPayment records a payer's intent and freezes the split. No
// funds move. Re-sending the same intent returns the existing Pending record.
func (s *BookingService) CreateBookingPayment(ctx context.Context, req CreateBookingPaymentRequest) (*BookingPaymentRecord, bool, error) {
	rec, created, err := s.createBookingPayment(ctx, req)
	if err != nil {
		metrics.Rejects.WithLabelValues("create_booking_payment", errorCode(err)).Inc()
		return nil, false, err
	}

	if !created {
		metrics.BookingIntentsTotal.WithLabelValues("existing").Inc()
		logger.Info("Booking payment already pending", "address", rec.Address.String())
		return rec, false, nil
	}
	metrics.BookingIntentsTotal.WithLabelValues("created").Inc()
	logger.Info("Booking payment created",
		"address", rec.Address.String(),
		"payer", rec.Payer.String(),
		"token_mint", rec.TokenMint.String(),
		"hotel_id", rec.HotelID,
		"user_id", rec.UserID,
		"total_amount", rec.TotalAmount,
		"fee_amount", rec.FeeAmount,
		"destination_amount", rec.DestinationAmount,
	)
	evt := newEvent(EventBookingPaymentCreated)
	evt.Booking = rec
	s.emitter.Emit(ctx, evt)
	return rec, true, nil
}

func (s *BookingService) createBookingPayment(ctx context.Context, req CreateBookingPaymentRequest) (*BookingPaymentRecord, bool, error) {
	if err := validateBookingIDs(req.HotelID, req.UserID); err != nil {
		return nil, false, err
	}
	if req.Payer.IsZero() || req.TokenMint.IsZero() {
		return nil, false, apperrors.NewInvalidRequest("payer and token_mint are required")
	}

	addr, bump := BookingPaymentAddress(req.Payer, req.HotelID, req.UserID)
	var (
		out     *BookingPaymentRecord
		created bool
	)
	err := s.ledger.Execute(ctx, func(tx ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if !cfg.IsTokenAllowed(req.TokenMint) {
			return apperrors.New(apperrors.ErrTokenNotAllowed, fmt.Sprintf("token %s is not allowed", req.TokenMint), nil)
		}
		fee, total, err := ComputeAmounts(req.TokenAmount, cfg.BookingFeeBps)
		if err != nil {
			return err
		}

		_, existing, err := loadBookingPayment(tx, addr)
		switch {
		case err == nil:
			if existing.Status != model.BookingPaymentPending {
				return apperrors.New(apperrors.ErrAlreadySettled, "booking payment is already settled", nil)
			}
			if existing.TokenMint != req.TokenMint || existing.DestinationAmount != req.TokenAmount {
				return apperrors.New(apperrors.ErrBookingPaymentConflict,
					"a pending booking payment with different terms exists for this booking", nil)
			}
			out = &BookingPaymentRecord{Address: addr, BookingPayment: *existing}
			return nil
		case !apperrors.Is(err, apperrors.ErrNotFound):
			return err
		}

		rec := model.BookingPayment{
			Payer:             req.Payer,
			TokenMint:         req.TokenMint,
			HotelID:           req.HotelID,
			UserID:            req.UserID,
			TotalAmount:       total,
			FeeAmount:         fee,
			DestinationAmount: req.TokenAmount,
			Status:            model.BookingPaymentPending,
			Bump:              bump,
		}
		if err := storeBookingPayment(tx, addr, ledger.ProgramID, &rec); err != nil {
			return err
		}
		out = &BookingPaymentRecord{Address: addr, BookingPayment: rec}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// SettleBookingPayment moves the fee and destination legs out of the payer's
// token account and marks the record Settled, all in one unit of work.
// The payer's approval of both legs is checked by the caller.
func (s *BookingService) SettleBookingPayment(ctx context.Context, req SettleBookingPaymentRequest) (*BookingPaymentRecord, error) {
	out, err := s.settleBookingPayment(ctx, req)
	if err != nil {
		metrics.Rejects.WithLabelValues("settle_booking_payment", errorCode(err)).Inc()
		logger.Warn("Booking payment settlement rejected",
			"address", req.Address.String(), "code", errorCode(err), "error", err.Error())
		return nil, err
	}

	mint := out.TokenMint.String()
	metrics.SettlementsTotal.WithLabelValues(mint).Inc()
	metrics.SettledVolume.WithLabelValues(mint, "fee").Add(float64(out.FeeAmount))
	metrics.SettledVolume.WithLabelValues(mint, "destination").Add(float64(out.DestinationAmount))
	logger.Info("Booking payment settled",
		"address", out.Address.String(),
		"payer", out.Payer.String(),
		"token_mint", mint,
		"fee_amount", out.FeeAmount,
		"destination_amount", out.DestinationAmount,
	)
	evt := newEvent(EventBookingPaymentSettled)
	evt.Booking = out
	s.emitter.Emit(ctx, evt)
	return out, nil
}

func (s *BookingService) settleBookingPayment(ctx context.Context, req SettleBookingPaymentRequest) (*BookingPaymentRecord, error) {
	var out *BookingPaymentRecord
	err := s.ledger.Execute(ctx, func(tx ledger.Tx) error {
		cfg, err := loadConfig(tx)
		if err != nil {
			return err
		}
		if req.Admin != cfg.Admin {
			return apperrors.NewForbidden("caller is not the config admin")
		}
		acct, rec, err := loadBookingPayment(tx, req.Address)
		if err != nil {
			return err
		}
		if s.delegation.IsDelegated(acct) {
			return apperrors.NewForbidden("booking payment is delegated")
		}
		if rec.Payer != req.Payer {
			return apperrors.NewForbidden("payer does not match the booking payment")
		}
		if rec.TokenMint != req.TokenMint {
			return apperrors.NewForbidden("token mint does not match the booking payment")
		}
		if rec.Status != model.BookingPaymentPending {
			return apperrors.New(apperrors.ErrAlreadySettled, "booking payment is already settled", nil)
		}
		if !cfg.IsTokenAllowed(req.TokenMint) {
			return apperrors.New(apperrors.ErrTokenNotAllowed, fmt.Sprintf("token %s is no longer allowed", req.TokenMint), nil)
		}

		payerAccount := token.AssociatedAddress(rec.Payer, rec.TokenMint)
		feeAccount, err := token.EnsureAccount(tx, cfg.FeeVault, rec.TokenMint)
		if err != nil {
			return err
		}
		destinationAccount, err := token.EnsureAccount(tx, cfg.DestinationVault, rec.TokenMint)
		if err != nil {
			return err
		}
		if err := token.Transfer(tx, payerAccount, feeAccount, rec.Payer, rec.FeeAmount); err != nil {
			return fmt.Errorf("fee leg: %w", err)
		}
		if err := token.Transfer(tx, payerAccount, destinationAccount, rec.Payer, rec.DestinationAmount); err != nil {
			return fmt.Errorf("destination leg: %w", err)
		}

		rec.Status = model.BookingPaymentSettled
		if err := storeBookingPayment(tx, req.Address, acct.Owner, rec); err != nil {
			return err
		}
		out = &BookingPaymentRecord{Address: req.Address, BookingPayment: *rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *BookingService) GetBookingPayment(ctx context.Context, addr model.Pubkey) (*BookingPaymentRecord, error) {
	var out *BookingPaymentRecord
	err := s.ledger.Execute(ctx, func(tx ledger.Tx) error {
		_, rec, err := loadBookingPayment(tx, addr)
		if err != nil {
			return err
		}
		out = &BookingPaymentRecord{Address: addr, BookingPayment: *rec}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeriveBookingAddress returns where the booking payment for the tuple lives,
// whether or not it has been created.
func (s *BookingService) DeriveBookingAddress(payer model.Pubkey, hotelID, userID string) (model.Pubkey, uint8, error) {
	if err := validateBookingIDs(hotelID, userID); err != nil {
		return model.Pubkey{}, 0, err
	}
	addr, bump := BookingPaymentAddress(payer, hotelID, userID)
	return addr, bump, nil
}
