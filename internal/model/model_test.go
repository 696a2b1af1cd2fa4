package model

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func key(b byte) Pubkey {
	var p Pubkey
	for i := range p {
		p[i] = b
	}
	return p
}

func TestPubkeyTextRoundTrip(t *testing.T) {
	k := key(7)
	parsed, err := ParsePubkey(k.String())
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = ParsePubkey("")
	assert.Error(t, err)
	_, err = ParsePubkey("3mJr7AoUXx2Wqd")
	assert.Error(t, err)
	_, err = ParsePubkey("0OIl")
	assert.Error(t, err)
}

func TestPubkeyJSON(t *testing.T) {
	type wrapper struct {
		Key Pubkey `json:"key"`
	}
	in := wrapper{Key: key(3)}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"`+key(3).String()+`"}`, string(raw))

	var out wrapper
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestConfigLayoutFixedLength(t *testing.T) {
	assert.Equal(t, 8+2+32*3+4+32*20+512, ConfigLen)

	cfg := &Config{
		BookingFeeBps:        250,
		Admin:                key(1),
		FeeVault:             key(2),
		DestinationVault:     key(3),
		AllowedPaymentTokens: []Pubkey{key(4), key(5)},
	}
	data, err := cfg.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, ConfigLen)

	var decoded Config
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, cfg, &decoded)
}

func TestConfigLayoutRejectsOversizedAllowlist(t *testing.T) {
	cfg := &Config{AllowedPaymentTokens: make([]Pubkey, MaxAllowedTokens+1)}
	_, err := cfg.MarshalBinary()
	assert.Error(t, err)

	full := &Config{AllowedPaymentTokens: make([]Pubkey, MaxAllowedTokens)}
	data, err := full.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, ConfigLen)
}

func TestConfigLayoutRejectsWrongDiscriminator(t *testing.T) {
	cfg := &Config{}
	data, err := cfg.MarshalBinary()
	require.NoError(t, err)
	data[0] ^= 0xff

	var decoded Config
	assert.Error(t, decoded.UnmarshalBinary(data))
	assert.Error(t, decoded.UnmarshalBinary(data[:10]))
}

func TestBookingPaymentLayoutFixedLength(t *testing.T) {
	assert.Equal(t, 8+32+32+(4+64)*2+8*3+1+1, BookingPaymentLen)

	rec := &BookingPayment{
		Payer:             key(1),
		TokenMint:         key(2),
		HotelID:           "hotel-42",
		UserID:            "user-7",
		TotalAmount:       102_500,
		FeeAmount:         2_500,
		DestinationAmount: 100_000,
		Status:            BookingPaymentSettled,
		Bump:              255,
	}
	data, err := rec.MarshalBinary()
	require.NoError(t, err)
	assert.Len(t, data, BookingPaymentLen)

	var decoded BookingPayment
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, rec, &decoded)

	// booking records never decode as config
	var cfg Config
	assert.Error(t, cfg.UnmarshalBinary(data))
}

func TestBookingPaymentLayoutBounds(t *testing.T) {
	long := make([]byte, HotelIDMax+1)
	for i := range long {
		long[i] = 'a'
	}
	rec := &BookingPayment{HotelID: string(long), UserID: "u"}
	_, err := rec.MarshalBinary()
	assert.Error(t, err)

	rec = &BookingPayment{HotelID: string(long[:HotelIDMax]), UserID: string(long[:UserIDMax])}
	data, err := rec.MarshalBinary()
	require.NoError(t, err)
	var decoded BookingPayment
	require.NoError(t, decoded.UnmarshalBinary(data))
	assert.Equal(t, rec.HotelID, decoded.HotelID)
	assert.Equal(t, rec.UserID, decoded.UserID)

	rec.Status = BookingPaymentStatus(9)
	_, err = rec.MarshalBinary()
	assert.Error(t, err)
}

func TestBookingPaymentJSON(t *testing.T) {
	rec := BookingPayment{TotalAmount: 18446744073709551615, Status: BookingPaymentPending}
	raw, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"total_amount":"18446744073709551615"`)
	assert.Contains(t, string(raw), `"status":"pending"`)

	var out BookingPayment
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, rec, out)
}

func TestConfigHelpers(t *testing.T) {
	cfg := &Config{BookingFeeBps: 250, AllowedPaymentTokens: []Pubkey{key(4)}}
	assert.True(t, cfg.IsTokenAllowed(key(4)))
	assert.False(t, cfg.IsTokenAllowed(key(5)))
	assert.True(t, decimal.RequireFromString("2.5").Equal(cfg.FeePercent()))

	clone := cfg.Clone()
	clone.AllowedPaymentTokens[0] = key(9)
	assert.Equal(t, key(4), cfg.AllowedPaymentTokens[0])
}
