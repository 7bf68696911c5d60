package persistence

import (
	"context"
	"errors"

	"github.com/salonerp/backend/internal/domain/stock"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBalanceRepository implements stock.BalanceRepository using GORM
type GormBalanceRepository struct {
	db *gorm.DB
}

// NewGormBalanceRepository creates a new GormBalanceRepository
func NewGormBalanceRepository(db *gorm.DB) *GormBalanceRepository {
	return &GormBalanceRepository{db: db}
}

// QueryRunningBalance returns the balance for a key, zero-valued if none exists
func (r *GormBalanceRepository) QueryRunningBalance(ctx context.Context, itemCode, siteCode, uom string) (*stock.RunningBalance, error) {
	var balance stock.RunningBalance
	err := r.db.WithContext(ctx).
		Where("item_code = ? AND site_code = ? AND uom = ?", itemCode, siteCode, uom).
		First(&balance).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return stock.NewRunningBalance(itemCode, siteCode, uom), nil
	}
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

// SaveRunningBalance creates or updates a balance, keyed by (item, site, uom)
func (r *GormBalanceRepository) SaveRunningBalance(ctx context.Context, balance *stock.RunningBalance) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "item_code"},
				{Name: "site_code"},
				{Name: "uom"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"qty", "cost", "updated_at"}),
		}).
		Create(balance).Error
}

// Ensure GormBalanceRepository implements stock.BalanceRepository
var _ stock.BalanceRepository = (*GormBalanceRepository)(nil)
