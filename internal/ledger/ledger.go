// Package ledger is the account substrate the settlement logic runs on.
// Accounts are addressed by 32-byte keys and carry an owning program and
// fixed-layout data. Every state change happens inside Execute, which either
// commits all staged writes or none of them.
package ledger

import (
	"context"
	"errors"

	"github.com/nomadz/paygate/internal/model"
)

var ErrAccountNotFound = errors.New("ledger: account not found")

type Account struct {
	Address model.Pubkey
	Owner   model.Pubkey
	Data    []byte
}

func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Data = append([]byte(nil), a.Data...)
	return &clone
}

// Tx is the view of the ledger inside one unit of work.
type Tx interface {
	GetAccount(addr model.Pubkey) (*Account, error)
	PutAccount(acct *Account) error
}

type Ledger interface {
	// Execute runs fn as one all-or-nothing unit. If fn returns an error
	// nothing it wrote is persisted.
	Execute(ctx context.Context, fn func(tx Tx) error) error
}
