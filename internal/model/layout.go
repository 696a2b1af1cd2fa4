package model

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"
)

const (
	DiscriminatorLen = 8
	ConfigPaddingLen = 512

	// ConfigLen reserves room for the full allowlist regardless of its current size.
	ConfigLen = DiscriminatorLen + 2 + PubkeyLen*3 + 4 + PubkeyLen*MaxAllowedTokens + ConfigPaddingLen

	BookingPaymentSpace = PubkeyLen + // payer
		PubkeyLen + // token_mint
		4 + HotelIDMax + // hotel_id string
		4 + UserIDMax + // user_id string
		8 + // total_amount
		8 + // fee_amount
		8 + // destination_amount
		1 + // status
		1 // bump
	BookingPaymentLen = DiscriminatorLen + BookingPaymentSpace
)

var (
	ConfigDiscriminator         = accountDiscriminator("Config")
	BookingPaymentDiscriminator = accountDiscriminator("BookingPayment")
)

func accountDiscriminator(name string) [DiscriminatorLen]byte {
	var d [DiscriminatorLen]byte
	copy(d[:], crypto.Keccak256([]byte("account:"+name)))
	return d
}

// MarshalBinary encodes the config into its fixed ConfigLen layout.
func (c *Config) MarshalBinary() ([]byte, error) {
	if len(c.AllowedPaymentTokens) > MaxAllowedTokens {
		return nil, fmt.Errorf("config: %d allowed tokens exceeds max %d", len(c.AllowedPaymentTokens), MaxAllowedTokens)
	}
	buf := make([]byte, ConfigLen)
	off := copy(buf, ConfigDiscriminator[:])
	binary.LittleEndian.PutUint16(buf[off:], c.BookingFeeBps)
	off += 2
	off += copy(buf[off:], c.Admin[:])
	off += copy(buf[off:], c.FeeVault[:])
	off += copy(buf[off:], c.DestinationVault[:])
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(c.AllowedPaymentTokens)))
	off += 4
	for _, token := range c.AllowedPaymentTokens {
		off += copy(buf[off:], token[:])
	}
	return buf, nil
}

func (c *Config) UnmarshalBinary(data []byte) error {
	if len(data) != ConfigLen {
		return fmt.Errorf("config: invalid data length %d, want %d", len(data), ConfigLen)
	}
	if !bytes.Equal(data[:DiscriminatorLen], ConfigDiscriminator[:]) {
		return fmt.Errorf("config: discriminator mismatch")
	}
	off := DiscriminatorLen
	c.BookingFeeBps = binary.LittleEndian.Uint16(data[off:])
	off += 2
	off += copy(c.Admin[:], data[off:])
	off += copy(c.FeeVault[:], data[off:])
	off += copy(c.DestinationVault[:], data[off:])
	n := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if n > MaxAllowedTokens {
		return fmt.Errorf("config: %d allowed tokens exceeds max %d", n, MaxAllowedTokens)
	}
	c.AllowedPaymentTokens = make([]Pubkey, n)
	for i := range c.AllowedPaymentTokens {
		off += copy(c.AllowedPaymentTokens[i][:], data[off:])
	}
	return nil
}

// MarshalBinary encodes the record into its fixed BookingPaymentLen layout.
// Strings are length-prefixed and zero padded to their maximum size.
func (b *BookingPayment) MarshalBinary() ([]byte, error) {
	if len(b.HotelID) > HotelIDMax {
		return nil, fmt.Errorf("booking payment: hotel_id exceeds %d bytes", HotelIDMax)
	}
	if len(b.UserID) > UserIDMax {
		return nil, fmt.Errorf("booking payment: user_id exceeds %d bytes", UserIDMax)
	}
	if !b.Status.Valid() {
		return nil, fmt.Errorf("booking payment: invalid status %d", b.Status)
	}
	buf := make([]byte, BookingPaymentLen)
	off := copy(buf, BookingPaymentDiscriminator[:])
	off += copy(buf[off:], b.Payer[:])
	off += copy(buf[off:], b.TokenMint[:])
	off = putBoundedString(buf, off, b.HotelID, HotelIDMax)
	off = putBoundedString(buf, off, b.UserID, UserIDMax)
	binary.LittleEndian.PutUint64(buf[off:], b.TotalAmount)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], b.FeeAmount)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], b.DestinationAmount)
	off += 8
	buf[off] = byte(b.Status)
	buf[off+1] = b.Bump
	return buf, nil
}

func (b *BookingPayment) UnmarshalBinary(data []byte) error {
	if len(data) != BookingPaymentLen {
		return fmt.Errorf("booking payment: invalid data length %d, want %d", len(data), BookingPaymentLen)
	}
	if !bytes.Equal(data[:DiscriminatorLen], BookingPaymentDiscriminator[:]) {
		return fmt.Errorf("booking payment: discriminator mismatch")
	}
	off := DiscriminatorLen
	off += copy(b.Payer[:], data[off:])
	off += copy(b.TokenMint[:], data[off:])
	var err error
	if b.HotelID, off, err = readBoundedString(data, off, HotelIDMax); err != nil {
		return fmt.Errorf("booking payment: hotel_id: %w", err)
	}
	if b.UserID, off, err = readBoundedString(data, off, UserIDMax); err != nil {
		return fmt.Errorf("booking payment: user_id: %w", err)
	}
	b.TotalAmount = binary.LittleEndian.Uint64(data[off:])
	off += 8
	b.FeeAmount = binary.LittleEndian.Uint64(data[off:])
	off += 8
	b.DestinationAmount = binary.LittleEndian.Uint64(data[off:])
	off += 8
	b.Status = BookingPaymentStatus(data[off])
	if !b.Status.Valid() {
		return fmt.Errorf("booking payment: invalid status %d", data[off])
	}
	b.Bump = data[off+1]
	return nil
}

func putBoundedString(buf []byte, off int, s string, max int) int {
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(s)))
	copy(buf[off+4:], s)
	return off + 4 + max
}

func readBoundedString(data []byte, off int, max int) (string, int, error) {
	n := int(binary.LittleEndian.Uint32(data[off:]))
	if n > max {
		return "", off, fmt.Errorf("length %d exceeds %d", n, max)
	}
	start := off + 4
	return string(data[start : start+n]), start + max, nil
}
