package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nomadz/paygate/internal/model"
)

// Nonces are stored zero-padded to 20 digits so string order is numeric order
// on every dialect, including values above MaxInt64.
const nonceWidth = 20

type signerNonceRow struct {
	Signer    string `gorm:"primaryKey;size:64"`
	LastNonce string `gorm:"size:20;not null"`
	UpdatedAt time.Time
}

func (signerNonceRow) TableName() string {
	return "signer_nonces"
}

type GormNonceStore struct {
	db *gorm.DB
}

func NewGormNonceStore(db *gorm.DB) *GormNonceStore {
	return &GormNonceStore{db: db}
}

func (s *GormNonceStore) Advance(ctx context.Context, signer model.Pubkey, nonce uint64) (uint64, bool, error) {
	key := signer.String()
	padded := padNonce(nonce)
	now := time.Now().UTC()

	created := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&signerNonceRow{Signer: key, LastNonce: padded, UpdatedAt: now})
	if created.Error != nil {
		return 0, false, created.Error
	}
	if created.RowsAffected > 0 {
		return 0, true, nil
	}

	// compare-and-set: only a strictly greater nonce moves the row
	updated := s.db.WithContext(ctx).Model(&signerNonceRow{}).
		Where("signer = ? AND last_nonce < ?", key, padded).
		Updates(map[string]interface{}{"last_nonce": padded, "updated_at": now})
	if updated.Error != nil {
		return 0, false, updated.Error
	}
	if updated.RowsAffected > 0 {
		return nonce, true, nil
	}

	var row signerNonceRow
	if err := s.db.WithContext(ctx).First(&row, "signer = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, false, fmt.Errorf("nonce row for %s disappeared", key)
		}
		return 0, false, err
	}
	last, err := strconv.ParseUint(row.LastNonce, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("corrupt nonce for %s: %w", key, err)
	}
	return last, false, nil
}

func padNonce(nonce uint64) string {
	return fmt.Sprintf("%0*d", nonceWidth, nonce)
}
