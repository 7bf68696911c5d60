package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormBatchCatalog implements stock.BatchCatalog using GORM
type GormBatchCatalog struct {
	db *gorm.DB
}

// NewGormBatchCatalog creates a new GormBatchCatalog
func NewGormBatchCatalog(db *gorm.DB) *GormBatchCatalog {
	return &GormBatchCatalog{db: db}
}

// QueryBatches returns the batch snapshot for an item/site/uom. Rows come back
// earliest expiry first with missing expiry last and the no-batch bucket at
// the end, matching allocation order.
func (r *GormBatchCatalog) QueryBatches(ctx context.Context, itemCode, siteCode, uom string) ([]stock.BatchRecord, error) {
	var batches []stock.BatchRecord
	if err := r.db.WithContext(ctx).
		Where("item_code = ? AND site_code = ? AND uom = ?", itemCode, siteCode, uom).
		Order("CASE WHEN batch_no = '' THEN 1 ELSE 0 END ASC").
		Order("COALESCE(expiry_date, '9999-12-31') ASC, batch_no ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// UpdateBatchQty applies a signed quantity delta to a batch, creating the
// record when a positive delta names a batch that does not exist yet.
// Runs in a transaction so concurrent postings never lose a delta.
func (r *GormBatchCatalog) UpdateBatchQty(ctx context.Context, itemCode, siteCode, uom, batchNo string, deltaQty decimal.Decimal, expiryDate *time.Time) error {
	if deltaQty.IsZero() {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var batch stock.BatchRecord
		err := tx.
			Where("item_code = ? AND site_code = ? AND uom = ? AND batch_no = ?", itemCode, siteCode, uom, batchNo).
			First(&batch).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if deltaQty.IsNegative() {
				return shared.NewDomainError("BATCH_NOT_FOUND",
					"Cannot deduct from unknown batch "+batchNo+" for item "+itemCode)
			}
			created := stock.NewBatchRecord(itemCode, siteCode, uom, batchNo, deltaQty, decimal.Zero, expiryDate)
			return tx.Create(created).Error
		}
		if err != nil {
			return err
		}

		batch.Quantity = batch.Quantity.Add(deltaQty)
		if batch.ExpiryDate == nil && expiryDate != nil {
			batch.ExpiryDate = expiryDate
		}
		batch.Touch()
		return tx.Save(&batch).Error
	})
}

// FindExpiringBefore returns batches with stock expiring before the deadline
func (r *GormBatchCatalog) FindExpiringBefore(ctx context.Context, siteCode string, deadline time.Time) ([]stock.BatchRecord, error) {
	var batches []stock.BatchRecord
	if err := r.db.WithContext(ctx).
		Where("site_code = ? AND quantity > 0", siteCode).
		Where("expiry_date IS NOT NULL AND expiry_date < ?", deadline).
		Order("expiry_date ASC, item_code ASC, batch_no ASC").
		Find(&batches).Error; err != nil {
		return nil, err
	}
	return batches, nil
}

// Ensure GormBatchCatalog implements stock.BatchCatalog
var _ stock.BatchCatalog = (*GormBatchCatalog)(nil)
