package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadz/paygate/internal/model"
)

func testAddr(b byte) model.Pubkey {
	var p model.Pubkey
	p[0] = b
	return p
}

func TestMemLedgerCommitsOnSuccess(t *testing.T) {
	l := NewMemLedger()
	ctx := context.Background()
	addr := testAddr(1)

	err := l.Execute(ctx, func(tx Tx) error {
		return tx.PutAccount(&Account{Address: addr, Owner: ProgramID, Data: []byte{1, 2, 3}})
	})
	require.NoError(t, err)

	err = l.Execute(ctx, func(tx Tx) error {
		acct, err := tx.GetAccount(addr)
		require.NoError(t, err)
		assert.Equal(t, ProgramID, acct.Owner)
		assert.Equal(t, []byte{1, 2, 3}, acct.Data)
		return nil
	})
	require.NoError(t, err)
}

func TestMemLedgerDiscardsOnError(t *testing.T) {
	l := NewMemLedger()
	ctx := context.Background()
	addr := testAddr(2)
	boom := errors.New("boom")

	err := l.Execute(ctx, func(tx Tx) error {
		require.NoError(t, tx.PutAccount(&Account{Address: addr, Owner: ProgramID}))
		// staged write is visible inside the unit
		_, err := tx.GetAccount(addr)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = l.Execute(ctx, func(tx Tx) error {
		_, err := tx.GetAccount(addr)
		return err
	})
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestMemLedgerReturnsCopies(t *testing.T) {
	l := NewMemLedger()
	ctx := context.Background()
	addr := testAddr(3)
	data := []byte{7}

	require.NoError(t, l.Execute(ctx, func(tx Tx) error {
		return tx.PutAccount(&Account{Address: addr, Owner: ProgramID, Data: data})
	}))
	data[0] = 9

	require.NoError(t, l.Execute(ctx, func(tx Tx) error {
		acct, err := tx.GetAccount(addr)
		require.NoError(t, err)
		assert.Equal(t, byte(7), acct.Data[0])
		acct.Data[0] = 8
		return nil
	}))

	require.NoError(t, l.Execute(ctx, func(tx Tx) error {
		acct, err := tx.GetAccount(addr)
		require.NoError(t, err)
		assert.Equal(t, byte(7), acct.Data[0])
		return nil
	}))
}

func TestMemLedgerRejectsCanceledContext(t *testing.T) {
	l := NewMemLedger()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := l.Execute(ctx, func(tx Tx) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDeriveAddressIsDeterministic(t *testing.T) {
	a1, bump := DeriveAddress(ProgramID, []byte("config"))
	a2, _ := DeriveAddress(ProgramID, []byte("config"))
	other, _ := DeriveAddress(ProgramID, []byte("config2"))
	otherProgram, _ := DeriveAddress(TokenProgramID, []byte("config"))

	assert.Equal(t, a1, a2)
	assert.Equal(t, CanonicalBump, bump)
	assert.NotEqual(t, a1, other)
	assert.NotEqual(t, a1, otherProgram)
	assert.False(t, a1.IsZero())
}

func TestOwnerDelegationChecker(t *testing.T) {
	l := NewMemLedger()
	ctx := context.Background()
	addr := testAddr(4)
	checker := NewOwnerDelegationChecker()

	require.NoError(t, l.Execute(ctx, func(tx Tx) error {
		return tx.PutAccount(&Account{Address: addr, Owner: ProgramID})
	}))
	require.NoError(t, l.Execute(ctx, func(tx Tx) error {
		acct, err := tx.GetAccount(addr)
		require.NoError(t, err)
		assert.False(t, checker.IsDelegated(acct))
		return Delegate(tx, addr)
	}))
	require.NoError(t, l.Execute(ctx, func(tx Tx) error {
		acct, err := tx.GetAccount(addr)
		require.NoError(t, err)
		assert.True(t, checker.IsDelegated(acct))
		return Undelegate(tx, addr, ProgramID)
	}))
	require.NoError(t, l.Execute(ctx, func(tx Tx) error {
		acct, err := tx.GetAccount(addr)
		require.NoError(t, err)
		assert.False(t, checker.IsDelegated(acct))
		return nil
	}))
	assert.False(t, checker.IsDelegated(nil))
}
