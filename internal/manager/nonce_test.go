package manager

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/apperrors"
)

func TestNonceManagerStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	m := NewNonceManager(nil)
	var a, b model.Pubkey
	a[0], b[0] = 1, 2

	require.NoError(t, m.Consume(ctx, a, 5))
	err := m.Consume(ctx, a, 5)
	assert.True(t, apperrors.Is(err, apperrors.ErrNonce))
	err = m.Consume(ctx, a, 4)
	assert.True(t, apperrors.Is(err, apperrors.ErrNonce))
	require.NoError(t, m.Consume(ctx, a, 6))

	// signers are independent
	require.NoError(t, m.Consume(ctx, b, 1))
}

func TestNonceManagerFirstNonceMayBeZero(t *testing.T) {
	ctx := context.Background()
	m := NewNonceManager(NewMemNonceStore())
	var a model.Pubkey
	a[0] = 3

	require.NoError(t, m.Consume(ctx, a, 0))
	assert.True(t, apperrors.Is(m.Consume(ctx, a, 0), apperrors.ErrNonce))
}

func TestNonceManagerSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	store := NewMemNonceStore()
	var admin model.Pubkey
	admin[0] = 7

	first := NewNonceManager(store)
	require.NoError(t, first.Consume(ctx, admin, 10))
	require.NoError(t, first.Consume(ctx, admin, 11))

	restarted := NewNonceManager(store)
	err := restarted.Consume(ctx, admin, 10)
	assert.True(t, apperrors.Is(err, apperrors.ErrNonce))
	require.NoError(t, restarted.Consume(ctx, admin, 12))
}

type failingNonceStore struct{}

func (failingNonceStore) Advance(context.Context, model.Pubkey, uint64) (uint64, bool, error) {
	return 0, false, errors.New("connection refused")
}

func TestNonceManagerStoreFailureRejects(t *testing.T) {
	m := NewNonceManager(failingNonceStore{})
	err := m.Consume(context.Background(), model.Pubkey{1}, 1)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrInternal))
}

func TestNonceManagerConcurrentReplay(t *testing.T) {
	m := NewNonceManager(nil)
	var signer model.Pubkey
	signer[0] = 9

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Consume(context.Background(), signer, 42) == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, accepted)
}
