package service

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nomadz/paygate/internal/model"
)

// MemStatsStore tracks daily settlement totals in memory.
type MemStatsStore struct {
	mu    sync.RWMutex
	daily map[string]*SettlementUsage // Key: mint:YYYY-MM-DD
}

func NewMemStatsStore() *MemStatsStore {
	return &MemStatsStore{
		daily: make(map[string]*SettlementUsage),
	}
}

func (s *MemStatsStore) GetDailySettlement(ctx context.Context, mint model.Pubkey) (*SettlementUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	usage, ok := s.daily[s.makeKey(mint)]
	if !ok {
		return &SettlementUsage{FeeVolume: decimal.Zero, DestinationVolume: decimal.Zero}, nil
	}
	clone := *usage
	return &clone, nil
}

func (s *MemStatsStore) AddDailySettlement(ctx context.Context, mint model.Pubkey, fee, destination uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := s.makeKey(mint)
	usage, ok := s.daily[key]
	if !ok {
		usage = &SettlementUsage{FeeVolume: decimal.Zero, DestinationVolume: decimal.Zero}
		s.daily[key] = usage
	}
	usage.Settlements++
	usage.FeeVolume = usage.FeeVolume.Add(uintDecimal(fee))
	usage.DestinationVolume = usage.DestinationVolume.Add(uintDecimal(destination))
	return nil
}

func (s *MemStatsStore) makeKey(mint model.Pubkey) string {
	// 按 UTC 日期分割
	return mint.String() + ":" + time.Now().UTC().Format("2006-01-02")
}

func uintDecimal(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
