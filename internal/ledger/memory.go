package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/nomadz/paygate/internal/model"
)

// MemLedger keeps accounts in memory. Units of work are serialized by one
// mutex and their writes are staged in an overlay until fn returns nil.
type MemLedger struct {
	mu       sync.Mutex
	accounts map[model.Pubkey]*Account
}

func NewMemLedger() *MemLedger {
	return &MemLedger{accounts: make(map[model.Pubkey]*Account)}
}

func (l *MemLedger) Execute(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := &memTx{base: l.accounts, staged: make(map[model.Pubkey]*Account)}
	if err := fn(tx); err != nil {
		return err
	}
	for addr, acct := range tx.staged {
		l.accounts[addr] = acct
	}
	return nil
}

type memTx struct {
	base   map[model.Pubkey]*Account
	staged map[model.Pubkey]*Account
}

func (t *memTx) GetAccount(addr model.Pubkey) (*Account, error) {
	if acct, ok := t.staged[addr]; ok {
		return acct.Clone(), nil
	}
	if acct, ok := t.base[addr]; ok {
		return acct.Clone(), nil
	}
	return nil, ErrAccountNotFound
}

func (t *memTx) PutAccount(acct *Account) error {
	if acct == nil {
		return fmt.Errorf("ledger: nil account")
	}
	if acct.Address.IsZero() {
		return fmt.Errorf("ledger: account address is required")
	}
	t.staged[acct.Address] = acct.Clone()
	return nil
}
