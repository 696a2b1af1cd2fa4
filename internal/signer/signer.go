package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nomadz/paygate/internal/model"
)

const (
	SignatureLen = ed25519.SignatureSize

	requestDomain    = "paygate/v1"
	settlementDomain = "settle_booking_payment"
)

type Signature [SignatureLen]byte

func ParseSignature(s string) (Signature, error) {
	var sig Signature
	s = strings.TrimSpace(s)
	if s == "" {
		return sig, fmt.Errorf("empty signature")
	}
	raw := base58.Decode(s)
	if len(raw) != SignatureLen {
		return sig, fmt.Errorf("invalid signature: expected %d bytes, got %d", SignatureLen, len(raw))
	}
	copy(sig[:], raw)
	return sig, nil
}

func (s Signature) String() string {
	return base58.Encode(s[:])
}

// Signer holds an ed25519 key used to authorize requests.
type Signer struct {
	key    ed25519.PrivateKey
	pubkey model.Pubkey
}

// NewSigner parses a base58 ed25519 seed (32 bytes) or private key (64 bytes).
func NewSigner(privateKey string) (*Signer, error) {
	if privateKey == "" {
		return nil, fmt.Errorf("private key is required")
	}
	raw := base58.Decode(privateKey)
	switch len(raw) {
	case ed25519.SeedSize:
		return FromPrivateKey(ed25519.NewKeyFromSeed(raw)), nil
	case ed25519.PrivateKeySize:
		return FromPrivateKey(ed25519.PrivateKey(raw)), nil
	default:
		return nil, fmt.Errorf("invalid private key length %d", len(raw))
	}
}

func FromPrivateKey(key ed25519.PrivateKey) *Signer {
	var pk model.Pubkey
	copy(pk[:], key.Public().(ed25519.PublicKey))
	return &Signer{key: key, pubkey: pk}
}

func Generate() (*Signer, error) {
	_, key, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return FromPrivateKey(key), nil
}

func (s *Signer) Pubkey() model.Pubkey {
	return s.pubkey
}

// PrivateKey returns the 64-byte ed25519 private key.
func (s *Signer) PrivateKey() []byte {
	return append([]byte(nil), s.key...)
}

func (s *Signer) Sign(digest []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(s.key, digest))
	return sig
}

// SignRequest signs the canonical digest of an HTTP request.
func (s *Signer) SignRequest(method, path string, nonce uint64, body []byte) Signature {
	return s.Sign(RequestDigest(method, path, nonce, body))
}

// ApproveSettlement produces the payer approval for settling record.
func (s *Signer) ApproveSettlement(record model.Pubkey) Signature {
	return s.Sign(SettlementDigest(record))
}

func Verify(pubkey model.Pubkey, digest []byte, sig Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pubkey[:]), digest, sig[:])
}

// RequestDigest is keccak256(domain || method || path || nonce_be || keccak256(body)).
func RequestDigest(method, path string, nonce uint64, body []byte) []byte {
	var nonceBytes [8]byte
	binary.BigEndian.PutUint64(nonceBytes[:], nonce)
	return crypto.Keccak256(
		[]byte(requestDomain),
		[]byte(strings.ToUpper(method)),
		[]byte(path),
		nonceBytes[:],
		crypto.Keccak256(body),
	)
}

// SettlementDigest is what a payer signs to approve the two transfer legs of
// the booking payment stored at record.
func SettlementDigest(record model.Pubkey) []byte {
	return crypto.Keccak256([]byte(settlementDomain), record[:])
}
