package model

import "fmt"

const (
	HotelIDMax = 64
	UserIDMax  = 64
)

type BookingPaymentStatus uint8

const (
	BookingPaymentPending BookingPaymentStatus = iota
	BookingPaymentSettled
)

func (s BookingPaymentStatus) Valid() bool {
	return s == BookingPaymentPending || s == BookingPaymentSettled
}

func (s BookingPaymentStatus) String() string {
	switch s {
	case BookingPaymentPending:
		return "pending"
	case BookingPaymentSettled:
		return "settled"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(s))
	}
}

func (s BookingPaymentStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid booking payment status %d", uint8(s))
	}
	return []byte(s.String()), nil
}

func (s *BookingPaymentStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "pending":
		*s = BookingPaymentPending
	case "settled":
		*s = BookingPaymentSettled
	default:
		return fmt.Errorf("invalid booking payment status %q", string(text))
	}
	return nil
}

// BookingPayment is the escrow record for one (payer, hotel_id, user_id) tuple.
// Amounts are computed at creation and never recomputed.
type BookingPayment struct {
	Payer             Pubkey               `json:"payer"`
	TokenMint         Pubkey               `json:"token_mint"`
	HotelID           string               `json:"hotel_id"`
	UserID            string               `json:"user_id"`
	TotalAmount       uint64               `json:"total_amount,string"`
	FeeAmount         uint64               `json:"fee_amount,string"`
	DestinationAmount uint64               `json:"destination_amount,string"`
	Status            BookingPaymentStatus `json:"status"`
	Bump              uint8                `json:"bump"`
}

func (b *BookingPayment) Clone() *BookingPayment {
	if b == nil {
		return nil
	}
	clone := *b
	return &clone
}
