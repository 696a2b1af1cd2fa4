package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nomadz/paygate/internal/model"
	"github.com/nomadz/paygate/internal/service"
)

type settlementDailyRow struct {
	Mint              string `gorm:"primaryKey;size:64"`
	Day               string `gorm:"primaryKey;size:10"`
	Settlements       int64  `gorm:"not null;default:0"`
	FeeVolume         int64  `gorm:"not null;default:0"`
	DestinationVolume int64  `gorm:"not null;default:0"`
}

func (settlementDailyRow) TableName() string {
	return "settlement_daily_stats"
}

// GormStatsRepo keeps per-mint daily settlement totals. Volumes are stored as
// BIGINT, so a single leg above MaxInt64 base units is rejected.
type GormStatsRepo struct {
	db *gorm.DB
}

func NewGormStatsRepo(db *gorm.DB) *GormStatsRepo {
	return &GormStatsRepo{db: db}
}

// GetDailySettlement 获取当日结算笔数与金额
func (r *GormStatsRepo) GetDailySettlement(ctx context.Context, mint model.Pubkey) (*service.SettlementUsage, error) {
	var row settlementDailyRow
	err := r.db.WithContext(ctx).First(&row, "mint = ? AND day = ?", mint.String(), today()).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 如果没找到，就是 0
			return &service.SettlementUsage{FeeVolume: decimal.Zero, DestinationVolume: decimal.Zero}, nil
		}
		return nil, err
	}
	return &service.SettlementUsage{
		Settlements:       row.Settlements,
		FeeVolume:         decimal.NewFromInt(row.FeeVolume),
		DestinationVolume: decimal.NewFromInt(row.DestinationVolume),
	}, nil
}

// AddDailySettlement 原子增加结算笔数与金额
func (r *GormStatsRepo) AddDailySettlement(ctx context.Context, mint model.Pubkey, fee, destination uint64) error {
	if fee > math.MaxInt64 || destination > math.MaxInt64 {
		return fmt.Errorf("settlement volume exceeds stats column range")
	}
	row := settlementDailyRow{
		Mint:              mint.String(),
		Day:               today(),
		Settlements:       1,
		FeeVolume:         int64(fee),
		DestinationVolume: int64(destination),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "mint"}, {Name: "day"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"settlements":        gorm.Expr("settlement_daily_stats.settlements + ?", 1),
			"fee_volume":         gorm.Expr("settlement_daily_stats.fee_volume + ?", int64(fee)),
			"destination_volume": gorm.Expr("settlement_daily_stats.destination_volume + ?", int64(destination)),
		}),
	}).Create(&row).Error
}

func (r *GormStatsRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan).Format("2006-01-02")
	return r.db.WithContext(ctx).Where("day < ?", cutoff).Delete(&settlementDailyRow{}).Error
}

func today() string {
	return time.Now().UTC().Format("2006-01-02")
}
