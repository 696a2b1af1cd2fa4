package model

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
)

const PubkeyLen = 32

// Pubkey is a 32-byte ledger identity (ed25519 public key or derived address).
type Pubkey [PubkeyLen]byte

func ParsePubkey(s string) (Pubkey, error) {
	var pk Pubkey
	s = strings.TrimSpace(s)
	if s == "" {
		return pk, fmt.Errorf("empty pubkey")
	}
	raw := base58.Decode(s)
	if len(raw) != PubkeyLen {
		return pk, fmt.Errorf("invalid pubkey %q: expected %d bytes, got %d", s, PubkeyLen, len(raw))
	}
	copy(pk[:], raw)
	return pk, nil
}

// MustPubkey is ParsePubkey for constants and tests.
func MustPubkey(s string) Pubkey {
	pk, err := ParsePubkey(s)
	if err != nil {
		panic(err)
	}
	return pk
}

func PubkeyFromBytes(b []byte) (Pubkey, error) {
	var pk Pubkey
	if len(b) != PubkeyLen {
		return pk, fmt.Errorf("invalid pubkey length %d", len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

func (p Pubkey) Bytes() []byte {
	return p[:]
}

func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := ParsePubkey(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ContainsPubkey reports whether list holds key.
func ContainsPubkey(list []Pubkey, key Pubkey) bool {
	for _, item := range list {
		if item == key {
			return true
		}
	}
	return false
}
