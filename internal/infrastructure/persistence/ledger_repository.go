package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/salonerp/backend/internal/domain/stock"
	"gorm.io/gorm"
)

// GormLedgerRepository implements stock.LedgerRepository using GORM
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewGormLedgerRepository creates a new GormLedgerRepository
func NewGormLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// AppendTransaction creates a new ledger transaction
func (r *GormLedgerRepository) AppendTransaction(ctx context.Context, txn *stock.LedgerTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// UpdateTransaction updates a ledger transaction in place
func (r *GormLedgerRepository) UpdateTransaction(ctx context.Context, txn *stock.LedgerTransaction) error {
	result := r.db.WithContext(ctx).
		Model(&stock.LedgerTransaction{}).
		Where("id = ?", txn.ID).
		Updates(map[string]interface{}{
			"signed_qty":           txn.SignedQty,
			"signed_amount":        txn.SignedAmount,
			"balance_qty_after":    txn.BalanceQtyAfter,
			"balance_cost_after":   txn.BalanceCostAfter,
			"combined_batch_label": txn.CombinedBatchLabel,
			"transaction_date":     txn.TransactionDate,
			"updated_at":           txn.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// FindBySourceLine finds the transaction posted for a document line
func (r *GormLedgerRepository) FindBySourceLine(ctx context.Context, docNo, sourceLineID string) (*stock.LedgerTransaction, error) {
	var txn stock.LedgerTransaction
	if err := r.db.WithContext(ctx).
		Where("doc_no = ? AND source_line_id = ?", docNo, sourceLineID).
		First(&txn).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &txn, nil
}

// AppendBatchMovements creates the batch movements of a transaction
func (r *GormLedgerRepository) AppendBatchMovements(ctx context.Context, movements []stock.BatchMovement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&movements).Error
}

// FindBatchMovements returns the movements of a transaction in allocation order
func (r *GormLedgerRepository) FindBatchMovements(ctx context.Context, ledgerTransactionID uuid.UUID) ([]stock.BatchMovement, error) {
	var movements []stock.BatchMovement
	if err := r.db.WithContext(ctx).
		Where("ledger_transaction_id = ?", ledgerTransactionID).
		Order("created_at ASC, batch_no ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

// ReplaceBatchMovements updates a transaction's movements in place: rows for
// batches still allocated are updated, rows for dropped batches deleted, and
// rows for newly allocated batches inserted.
func (r *GormLedgerRepository) ReplaceBatchMovements(ctx context.Context, ledgerTransactionID uuid.UUID, movements []stock.BatchMovement) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []stock.BatchMovement
		if err := tx.
			Where("ledger_transaction_id = ?", ledgerTransactionID).
			Find(&existing).Error; err != nil {
			return err
		}

		existingByBatch := make(map[string]*stock.BatchMovement, len(existing))
		for i := range existing {
			existingByBatch[existing[i].BatchNo] = &existing[i]
		}

		kept := make(map[string]bool, len(movements))
		for i := range movements {
			m := &movements[i]
			kept[m.BatchNo] = true
			if prev, ok := existingByBatch[m.BatchNo]; ok {
				prev.SignedQty = m.SignedQty
				prev.ExpiryDate = m.ExpiryDate
				prev.Touch()
				if err := tx.Save(prev).Error; err != nil {
					return err
				}
				continue
			}
			m.LedgerTransactionID = ledgerTransactionID
			if err := tx.Create(m).Error; err != nil {
				return err
			}
		}

		for batchNo, prev := range existingByBatch {
			if kept[batchNo] {
				continue
			}
			if err := tx.Delete(&stock.BatchMovement{}, "id = ?", prev.ID).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Ensure GormLedgerRepository implements stock.LedgerRepository
var _ stock.LedgerRepository = (*GormLedgerRepository)(nil)
