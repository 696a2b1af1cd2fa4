package manager

import (
	"context"
	"fmt"
	"sync"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
	"github.com/nomadz/paygate/internal/pkg/logger"
)

// NonceStore persists the highest accepted nonce per signer.
type NonceStore interface {
	// Advance stores nonce for signer only if it is greater than the stored
	// value. When ok is false, last is the stored nonce that blocked it.
	Advance(ctx context.Context, signer model.Pubkey, nonce uint64) (last uint64, ok bool, err error)
}

// MemNonceStore is used when neither Redis nor a database is configured.
type MemNonceStore struct {
	mu   sync.Mutex
	last map[model.Pubkey]uint64
}

func NewMemNonceStore() *MemNonceStore {
	return &MemNonceStore{
		last: make(map[model.Pubkey]uint64),
	}
}

func (s *MemNonceStore) Advance(_ context.Context, signer model.Pubkey, nonce uint64) (uint64, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	last, seen := s.last[signer]
	if seen && nonce <= last {
		return last, false, nil
	}
	s.last[signer] = nonce
	return last, true, nil
}

// NonceManager tracks the last accepted request nonce per signer.
// Nonces must strictly increase, so a captured request cannot be replayed.
type NonceManager struct {
	store NonceStore
}

func NewNonceManager(store NonceStore) *NonceManager {
	if store == nil {
		store = NewMemNonceStore()
	}
	return &NonceManager{store: store}
}

// Consume accepts nonce for signer if it is higher than every nonce seen so far.
func (m *NonceManager) Consume(ctx context.Context, signer model.Pubkey, nonce uint64) error {
	last, ok, err := m.store.Advance(ctx, signer, nonce)
	if err != nil {
		logger.Error("Nonce store failed", "signer", signer.String(), "error", err)
		return apperrors.New(apperrors.ErrInternal, "failed to record request nonce", err)
	}
	if !ok {
		logger.Debug("Rejected stale nonce", "signer", signer.String(), "nonce", nonce, "last", last)
		return apperrors.New(apperrors.ErrNonce, fmt.Sprintf("nonce %d is not greater than last accepted nonce %d", nonce, last), nil)
	}
	return nil
}
