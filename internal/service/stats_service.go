package service

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/pkg/logger"
)

// SettlementUsage is one mint's settlement activity for the current UTC day.
type SettlementUsage struct {
	Settlements       int64           `json:"settlements"`
	FeeVolume         decimal.Decimal `json:"fee_volume"`
	DestinationVolume decimal.Decimal `json:"destination_volume"`
}

type StatsRepo interface {
	GetDailySettlement(ctx context.Context, mint model.Pubkey) (*SettlementUsage, error)
	AddDailySettlement(ctx context.Context, mint model.Pubkey, fee, destination uint64) error
}

// StatsService records settled volume. It listens for settlement events.
type StatsService struct {
	repo StatsRepo
}

func NewStatsService(repo StatsRepo) *StatsService {
	if repo == nil {
		repo = NewMemStatsStore()
	}
	return &StatsService{repo: repo}
}

func (s *StatsService) Emit(ctx context.Context, evt Event) {
	if evt.Type != EventBookingPaymentSettled || evt.Booking == nil {
		return
	}
	b := evt.Booking
	if err := s.repo.AddDailySettlement(ctx, b.TokenMint, b.FeeAmount, b.DestinationAmount); err != nil {
		logger.LogError(ctx, err, "Failed to record settlement stats", "address", b.Address.String())
	}
}

type MintStats struct {
	Mint model.Pubkey `json:"mint"`
	SettlementUsage
}

// Daily returns today's usage for each mint.
func (s *StatsService) Daily(ctx context.Context, mints []model.Pubkey) ([]MintStats, error) {
	out := make([]MintStats, 0, len(mints))
	for _, mint := range mints {
		usage, err := s.repo.GetDailySettlement(ctx, mint)
		if err != nil {
			return nil, err
		}
		out = append(out, MintStats{Mint: mint, SettlementUsage: *usage})
	}
	return out, nil
}
