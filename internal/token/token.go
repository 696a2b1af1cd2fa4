// Package token implements token accounts on top of the ledger: balance
// records keyed by (owner, mint) and the transfer primitive settlement uses.
package token

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/nomadz/paygate/internal/ledger"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

const AccountLen = model.DiscriminatorLen + model.PubkeyLen*2 + 8

var accountDiscriminator = func() [model.DiscriminatorLen]byte {
	var d [model.DiscriminatorLen]byte
	copy(d[:], crypto.Keccak256([]byte("account:TokenAccount")))
	return d
}()

type Account struct {
	Mint   model.Pubkey `json:"mint"`
	Owner  model.Pubkey `json:"owner"`
	Amount uint64       `json:"amount,string"`
}

func (a *Account) MarshalBinary() ([]byte, error) {
	buf := make([]byte, AccountLen)
	off := copy(buf, accountDiscriminator[:])
	off += copy(buf[off:], a.Mint[:])
	off += copy(buf[off:], a.Owner[:])
	binary.LittleEndian.PutUint64(buf[off:], a.Amount)
	return buf, nil
}

func (a *Account) UnmarshalBinary(data []byte) error {
	if len(data) != AccountLen {
		return fmt.Errorf("token account: invalid data length %d, want %d", len(data), AccountLen)
	}
	if !bytes.Equal(data[:model.DiscriminatorLen], accountDiscriminator[:]) {
		return fmt.Errorf("token account: discriminator mismatch")
	}
	off := model.DiscriminatorLen
	off += copy(a.Mint[:], data[off:])
	off += copy(a.Owner[:], data[off:])
	a.Amount = binary.LittleEndian.Uint64(data[off:])
	return nil
}

// AssociatedAddress is the canonical token account address for (owner, mint).
func AssociatedAddress(owner, mint model.Pubkey) model.Pubkey {
	addr, _ := ledger.DeriveAddress(ledger.TokenProgramID, owner[:], mint[:])
	return addr
}

// Load reads the token account at addr.
func Load(tx ledger.Tx, addr model.Pubkey) (*Account, error) {
	acct, err := tx.GetAccount(addr)
	if errors.Is(err, ledger.ErrAccountNotFound) {
		return nil, apperrors.New(apperrors.ErrTokenAccountNotFound, fmt.Sprintf("token account %s not found", addr), err)
	}
	if err != nil {
		return nil, err
	}
	if acct.Owner != ledger.TokenProgramID {
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("account %s is not a token account", addr))
	}
	var ta Account
	if err := ta.UnmarshalBinary(acct.Data); err != nil {
		return nil, err
	}
	return &ta, nil
}

func store(tx ledger.Tx, addr model.Pubkey, ta *Account) error {
	data, err := ta.MarshalBinary()
	if err != nil {
		return err
	}
	return tx.PutAccount(&ledger.Account{Address: addr, Owner: ledger.TokenProgramID, Data: data})
}

// EnsureAccount returns the associated account address for (owner, mint),
// creating an empty account when none exists yet.
func EnsureAccount(tx ledger.Tx, owner, mint model.Pubkey) (model.Pubkey, error) {
	addr := AssociatedAddress(owner, mint)
	_, err := Load(tx, addr)
	if err == nil {
		return addr, nil
	}
	if !apperrors.Is(err, apperrors.ErrTokenAccountNotFound) {
		return addr, err
	}
	return addr, store(tx, addr, &Account{Mint: mint, Owner: owner})
}

// Balance returns the amount held by owner's associated account for mint.
// A missing account holds zero.
func Balance(tx ledger.Tx, owner, mint model.Pubkey) (uint64, error) {
	ta, err := Load(tx, AssociatedAddress(owner, mint))
	if apperrors.Is(err, apperrors.ErrTokenAccountNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return ta.Amount, nil
}

// MintTo credits amount to owner's associated account, creating it if needed.
func MintTo(tx ledger.Tx, owner, mint model.Pubkey, amount uint64) (*Account, error) {
	addr, err := EnsureAccount(tx, owner, mint)
	if err != nil {
		return nil, err
	}
	ta, err := Load(tx, addr)
	if err != nil {
		return nil, err
	}
	sum := ta.Amount + amount
	if sum < ta.Amount {
		return nil, apperrors.New(apperrors.ErrOverflow, "mint overflows token account balance", nil)
	}
	ta.Amount = sum
	if err := store(tx, addr, ta); err != nil {
		return nil, err
	}
	return ta, nil
}

// Transfer moves amount between two token accounts of the same mint.
// authority must own the source account.
func Transfer(tx ledger.Tx, from, to, authority model.Pubkey, amount uint64) error {
	src, err := Load(tx, from)
	if err != nil {
		return err
	}
	dst, err := Load(tx, to)
	if err != nil {
		return err
	}
	if src.Owner != authority {
		return apperrors.NewForbidden("transfer authority does not own the source account")
	}
	if src.Mint != dst.Mint {
		return apperrors.NewInvalidRequest("token accounts hold different mints")
	}
	if src.Amount < amount {
		return apperrors.New(apperrors.ErrInsufficientFunds,
			fmt.Sprintf("insufficient funds: balance %d, need %d", src.Amount, amount), nil)
	}
	if amount == 0 || from == to {
		return nil
	}
	if dst.Amount+amount < dst.Amount {
		return apperrors.New(apperrors.ErrOverflow, "transfer overflows recipient balance", nil)
	}
	src.Amount -= amount
	dst.Amount += amount
	if err := store(tx, from, src); err != nil {
		return err
	}
	return store(tx, to, dst)
}
