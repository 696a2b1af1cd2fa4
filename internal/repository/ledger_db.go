package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nomadz/paygate/internal/ledger"
	"github.com/nomadz/paygate/internal/model"
)

type ledgerAccountRow struct {
	Address   string `gorm:"primaryKey;size:66"`
	Owner     string `gorm:"size:66;index"`
	Data      []byte
	UpdatedAt time.Time
}

func (ledgerAccountRow) TableName() string {
	return "ledger_accounts"
}

// GormLedger stores ledger accounts in a SQL table. Each Execute call is one
// database transaction; reads take row locks so concurrent settlements of the
// same record serialize on postgres.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) Execute(ctx context.Context, fn func(tx ledger.Tx) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{db: tx, existing: make(map[model.Pubkey]bool)})
	})
}

type gormTx struct {
	db *gorm.DB
	// addresses known to have a row, so PutAccount updates instead of inserting
	existing map[model.Pubkey]bool
}

func (t *gormTx) GetAccount(addr model.Pubkey) (*ledger.Account, error) {
	var row ledgerAccountRow
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&row, "address = ?", hexutil.Encode(addr.Bytes())).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrAccountNotFound
		}
		return nil, err
	}
	owner, err := decodeAddress(row.Owner)
	if err != nil {
		return nil, fmt.Errorf("ledger row %s: owner: %w", row.Address, err)
	}
	t.existing[addr] = true
	return &ledger.Account{
		Address: addr,
		Owner:   owner,
		Data:    append([]byte(nil), row.Data...),
	}, nil
}

func (t *gormTx) PutAccount(acct *ledger.Account) error {
	if acct == nil {
		return fmt.Errorf("ledger: nil account")
	}
	if acct.Address.IsZero() {
		return fmt.Errorf("ledger: account address is required")
	}
	row := ledgerAccountRow{
		Address:   hexutil.Encode(acct.Address.Bytes()),
		Owner:     hexutil.Encode(acct.Owner.Bytes()),
		Data:      append([]byte(nil), acct.Data...),
		UpdatedAt: time.Now().UTC(),
	}
	if t.existing[acct.Address] {
		return t.db.Model(&ledgerAccountRow{}).
			Where("address = ?", row.Address).
			Updates(map[string]interface{}{
				"owner":      row.Owner,
				"data":       row.Data,
				"updated_at": row.UpdatedAt,
			}).Error
	}
	// a concurrent creator of the same address fails here on the primary key
	if err := t.db.Create(&row).Error; err != nil {
		return err
	}
	t.existing[acct.Address] = true
	return nil
}

func decodeAddress(s string) (model.Pubkey, error) {
	raw, err := hexutil.Decode(s)
	if err != nil {
		return model.Pubkey{}, err
	}
	return model.PubkeyFromBytes(raw)
}
