package token

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadz/paygate/internal/ledger"
	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

func key(b byte) model.Pubkey {
	var p model.Pubkey
	p[31] = b
	return p
}

var (
	alice = key(1)
	bob   = key(2)
	usdc  = key(10)
	eurc  = key(11)
)

func exec(t *testing.T, l ledger.Ledger, fn func(tx ledger.Tx) error) error {
	t.Helper()
	return l.Execute(context.Background(), fn)
}

func balance(t *testing.T, l ledger.Ledger, owner, mint model.Pubkey) uint64 {
	t.Helper()
	var out uint64
	require.NoError(t, exec(t, l, func(tx ledger.Tx) error {
		var err error
		out, err = Balance(tx, owner, mint)
		return err
	}))
	return out
}

func TestMintToCreatesAndCredits(t *testing.T) {
	l := ledger.NewMemLedger()
	assert.Equal(t, uint64(0), balance(t, l, alice, usdc))

	require.NoError(t, exec(t, l, func(tx ledger.Tx) error {
		_, err := MintTo(tx, alice, usdc, 100)
		return err
	}))
	require.NoError(t, exec(t, l, func(tx ledger.Tx) error {
		_, err := MintTo(tx, alice, usdc, 50)
		return err
	}))
	assert.Equal(t, uint64(150), balance(t, l, alice, usdc))

	err := exec(t, l, func(tx ledger.Tx) error {
		_, err := MintTo(tx, alice, usdc, math.MaxUint64)
		return err
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrOverflow))
	assert.Equal(t, uint64(150), balance(t, l, alice, usdc))
}

func TestTransfer(t *testing.T) {
	l := ledger.NewMemLedger()
	from := AssociatedAddress(alice, usdc)
	to := AssociatedAddress(bob, usdc)
	require.NoError(t, exec(t, l, func(tx ledger.Tx) error {
		if _, err := MintTo(tx, alice, usdc, 100); err != nil {
			return err
		}
		_, err := EnsureAccount(tx, bob, usdc)
		return err
	}))

	require.NoError(t, exec(t, l, func(tx ledger.Tx) error {
		return Transfer(tx, from, to, alice, 40)
	}))
	assert.Equal(t, uint64(60), balance(t, l, alice, usdc))
	assert.Equal(t, uint64(40), balance(t, l, bob, usdc))
}

func TestTransferFailures(t *testing.T) {
	l := ledger.NewMemLedger()
	from := AssociatedAddress(alice, usdc)
	to := AssociatedAddress(bob, usdc)
	otherMint := AssociatedAddress(bob, eurc)
	require.NoError(t, exec(t, l, func(tx ledger.Tx) error {
		if _, err := MintTo(tx, alice, usdc, 100); err != nil {
			return err
		}
		if _, err := MintTo(tx, bob, usdc, math.MaxUint64-10); err != nil {
			return err
		}
		_, err := EnsureAccount(tx, bob, eurc)
		return err
	}))

	cases := []struct {
		name      string
		from, to  model.Pubkey
		authority model.Pubkey
		amount    uint64
		want      apperrors.ErrorType
	}{
		{"wrong authority", from, to, bob, 1, apperrors.ErrForbidden},
		{"mint mismatch", from, otherMint, alice, 1, apperrors.ErrInvalidRequest},
		{"insufficient funds", from, to, alice, 101, apperrors.ErrInsufficientFunds},
		{"recipient overflow", from, to, alice, 11, apperrors.ErrOverflow},
		{"missing source", AssociatedAddress(key(99), usdc), to, key(99), 1, apperrors.ErrTokenAccountNotFound},
		{"missing recipient", from, AssociatedAddress(key(98), usdc), alice, 1, apperrors.ErrTokenAccountNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := exec(t, l, func(tx ledger.Tx) error {
				return Transfer(tx, tc.from, tc.to, tc.authority, tc.amount)
			})
			assert.True(t, apperrors.Is(err, tc.want), "got %v", err)
		})
	}
	assert.Equal(t, uint64(100), balance(t, l, alice, usdc))
}

func TestTransferZeroIsNoop(t *testing.T) {
	l := ledger.NewMemLedger()
	from := AssociatedAddress(alice, usdc)
	to := AssociatedAddress(bob, usdc)
	require.NoError(t, exec(t, l, func(tx ledger.Tx) error {
		if _, err := EnsureAccount(tx, alice, usdc); err != nil {
			return err
		}
		_, err := EnsureAccount(tx, bob, usdc)
		return err
	}))
	require.NoError(t, exec(t, l, func(tx ledger.Tx) error {
		return Transfer(tx, from, to, alice, 0)
	}))
	assert.Equal(t, uint64(0), balance(t, l, bob, usdc))
}

func TestLoadRejectsForeignAccounts(t *testing.T) {
	l := ledger.NewMemLedger()
	addr := AssociatedAddress(alice, usdc)
	require.NoError(t, exec(t, l, func(tx ledger.Tx) error {
		return tx.PutAccount(&ledger.Account{Address: addr, Owner: ledger.ProgramID, Data: []byte{1}})
	}))
	err := exec(t, l, func(tx ledger.Tx) error {
		_, err := Load(tx, addr)
		return err
	})
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))
}
