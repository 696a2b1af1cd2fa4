package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nomadz/paygate/internal/middleware"
	"github.com/nomadz/paygate/internal/pkg/logger"
)

type idempotencyRow struct {
	Key          string `gorm:"column:idem_key;primaryKey;size:191"`
	Fingerprint  string `gorm:"size:66"`
	StatusCode   int    `gorm:"not null;default:0"`
	ResponseBody []byte
	Processing   bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"index"`
}

func (idempotencyRow) TableName() string {
	return "idempotency_keys"
}

type GormIdempotencyStore struct {
	db *gorm.DB
}

func NewGormIdempotencyStore(db *gorm.DB) *GormIdempotencyStore {
	return &GormIdempotencyStore{db: db}
}

func (s *GormIdempotencyStore) GetOrLock(ctx context.Context, key, fingerprint string) (*middleware.IdempotencyRecord, bool) {
	row := idempotencyRow{Key: key, Fingerprint: fingerprint, Processing: true, CreatedAt: time.Now().UTC()}
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row)
	if result.Error != nil {
		logger.Warn("idempotency lock failed", "key", key, "error", result.Error)
		return nil, false
	}
	if result.RowsAffected > 0 {
		return nil, false
	}

	var existing idempotencyRow
	if err := s.db.WithContext(ctx).First(&existing, "idem_key = ?", key).Error; err != nil {
		return nil, false
	}
	return &middleware.IdempotencyRecord{
		Fingerprint: existing.Fingerprint,
		Status:      existing.StatusCode,
		Body:        existing.ResponseBody,
		CreatedAt:   existing.CreatedAt,
		Processing:  existing.Processing,
	}, true
}

func (s *GormIdempotencyStore) Save(ctx context.Context, key, fingerprint string, status int, body []byte) {
	err := s.db.WithContext(ctx).Model(&idempotencyRow{}).
		Where("idem_key = ?", key).
		Updates(map[string]interface{}{
			"fingerprint":   fingerprint,
			"status_code":   status,
			"response_body": body,
			"processing":    false,
		}).Error
	if err != nil {
		logger.Warn("idempotency save failed", "key", key, "error", err)
	}
}

func (s *GormIdempotencyStore) Unlock(ctx context.Context, key string) {
	_ = s.db.WithContext(ctx).Where("idem_key = ?", key).Delete(&idempotencyRow{}).Error
}

func (s *GormIdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&idempotencyRow{}).Error
}
