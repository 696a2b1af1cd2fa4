package manager

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/nomadz/paygate/internal/model"
)

// LimiterManager hands out one token-bucket limiter per signer.
type LimiterManager struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[model.Pubkey]*rate.Limiter
}

func NewLimiterManager(qps float64, burst int) *LimiterManager {
	// 如果配置为0，不限流
	limit := rate.Limit(qps)
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &LimiterManager{
		limit:    limit,
		burst:    burst,
		limiters: make(map[model.Pubkey]*rate.Limiter),
	}
}

func (m *LimiterManager) GetLimiter(signer model.Pubkey) *rate.Limiter {
	m.mu.Lock()
	defer m.mu.Unlock()
	limiter, ok := m.limiters[signer]
	if !ok {
		limiter = rate.NewLimiter(m.limit, m.burst)
		m.limiters[signer] = limiter
	}
	return limiter
}
