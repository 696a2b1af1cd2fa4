package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nomadz/paygate/internal/model"
)

type GormAuditRepo struct {
	db *gorm.DB
}

func NewGormAuditRepo(db *gorm.DB) *GormAuditRepo {
	return &GormAuditRepo{db: db}
}

func (r *GormAuditRepo) Insert(ctx context.Context, entry *model.AuditLog) error {
	if entry == nil {
		return nil
	}
	if entry.Context == nil {
		entry.Context = map[string]interface{}{}
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(entry).Error
}

func (r *GormAuditRepo) List(ctx context.Context, signer string, limit int, from, to *time.Time) ([]*model.AuditLog, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	q := r.db.WithContext(ctx).Model(&model.AuditLog{})
	if signer != "" {
		q = q.Where("signer = ?", signer)
	}
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at <= ?", *to)
	}

	records := make([]*model.AuditLog, 0, limit)
	if err := q.Order("created_at DESC").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *GormAuditRepo) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().UTC().Add(-olderThan)
	return r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&model.AuditLog{}).Error
}
