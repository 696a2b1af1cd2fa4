package service

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nomadz/paygate/internal/ledger"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

const (
	configSeed         = "config"
	bookingPaymentSeed = "booking_payment"
)

// BookingPaymentRecord is a booking payment together with its ledger address.
type BookingPaymentRecord struct {
	Address model.Pubkey `json:"address"`
	model.BookingPayment
}

func ConfigAddress() model.Pubkey {
	addr, _ := ledger.DeriveAddress(ledger.ProgramID, []byte(configSeed))
	return addr
}

// BookingSeed hashes the business tuple that identifies a booking.
func BookingSeed(hotelID, userID string) [32]byte {
	return crypto.Keccak256Hash([]byte("booking"), []byte(hotelID), []byte(":"), []byte(userID))
}

func BookingPaymentAddress(payer model.Pubkey, hotelID, userID string) (model.Pubkey, uint8) {
	seed := BookingSeed(hotelID, userID)
	return ledger.DeriveAddress(ledger.ProgramID, []byte(bookingPaymentSeed), payer[:], seed[:])
}

func validateBookingIDs(hotelID, userID string) error {
	switch {
	case hotelID == "":
		return apperrors.NewInvalidRequest("hotel_id is required")
	case len(hotelID) > model.HotelIDMax:
		return apperrors.NewInvalidRequest(fmt.Sprintf("hotel_id exceeds %d bytes", model.HotelIDMax))
	case userID == "":
		return apperrors.NewInvalidRequest("user_id is required")
	case len(userID) > model.UserIDMax:
		return apperrors.NewInvalidRequest(fmt.Sprintf("user_id exceeds %d bytes", model.UserIDMax))
	}
	return nil
}

func loadConfig(tx ledger.Tx) (*model.Config, error) {
	acct, err := tx.GetAccount(ConfigAddress())
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, apperrors.New(apperrors.ErrConfigNotInitialized, "config is not initialized", nil)
	}
	if err != nil {
		return nil, err
	}
	var cfg model.Config
	if err := cfg.UnmarshalBinary(acct.Data); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

func storeConfig(tx ledger.Tx, cfg *model.Config) error {
	data, err := cfg.MarshalBinary()
	if err != nil {
		return err
	}
	return tx.PutAccount(&ledger.Account{Address: ConfigAddress(), Owner: ledger.ProgramID, Data: data})
}

func loadBookingPayment(tx ledger.Tx, addr model.Pubkey) (*ledger.Account, *model.BookingPayment, error) {
	acct, err := tx.GetAccount(addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, nil, apperrors.New(apperrors.ErrNotFound, fmt.Sprintf("booking payment %s not found", addr), nil)
	}
	if err != nil {
		return nil, nil, err
	}
	var rec model.BookingPayment
	if err := rec.UnmarshalBinary(acct.Data); err != nil {
		return nil, nil, apperrors.NewInvalidRequest(fmt.Sprintf("account %s is not a booking payment", addr))
	}
	return acct, &rec, nil
}

func storeBookingPayment(tx ledger.Tx, addr, owner model.Pubkey, rec *model.BookingPayment) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	return tx.PutAccount(&ledger.Account{Address: addr, Owner: owner, Data: data})
}

// errorCode is the label used for rejected operations in metrics.
func errorCode(err error) string {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return string(appErr.Type)
	}
	return string(apperrors.ErrInternal)
}
