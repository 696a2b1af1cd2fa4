package model

import "github.com/shopspring/decimal"

const (
	MaxAllowedTokens = 20
	MaxFeeBps        = 10_000
)

// Config holds the global settlement parameters. One instance per deployment.
type Config struct {
	BookingFeeBps        uint16   `json:"booking_fee_bps"` // 1 bps = 0.01%, 10000 bps = 100%
	Admin                Pubkey   `json:"admin"`
	FeeVault             Pubkey   `json:"fee_vault"`
	DestinationVault     Pubkey   `json:"destination_vault"`
	AllowedPaymentTokens []Pubkey `json:"allowed_payment_tokens"`
}

func (c *Config) IsTokenAllowed(mint Pubkey) bool {
	if c == nil {
		return false
	}
	return ContainsPubkey(c.AllowedPaymentTokens, mint)
}

// FeePercent renders BookingFeeBps as a percentage (250 -> 2.5).
func (c *Config) FeePercent() decimal.Decimal {
	if c == nil {
		return decimal.Zero
	}
	return decimal.New(int64(c.BookingFeeBps), -2)
}

func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	clone := *c
	clone.AllowedPaymentTokens = append([]Pubkey(nil), c.AllowedPaymentTokens...)
	return &clone
}
