package stock

import (
	"time"

	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// NoBatchLabel is the display placeholder for the empty batch number.
const NoBatchLabel = "No Batch"

// BatchRecord represents a batch/lot of stock for an item at a site.
// An empty BatchNo identifies the "no-batch" bucket holding un-lotted stock.
type BatchRecord struct {
	shared.BaseEntity
	ItemCode   string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_batch_key,priority:1"`
	SiteCode   string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_batch_key,priority:2"`
	UOM        string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_batch_key,priority:3"`
	BatchNo    string          `gorm:"type:varchar(50);not null;default:'';uniqueIndex:idx_batch_key,priority:4"`
	Quantity   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExpiryDate *time.Time      `gorm:"type:date"`
	BatchCost  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (BatchRecord) TableName() string {
	return "stock_batches"
}

// NewBatchRecord creates a new batch record
func NewBatchRecord(itemCode, siteCode, uom, batchNo string, quantity, batchCost decimal.Decimal, expiryDate *time.Time) *BatchRecord {
	return &BatchRecord{
		BaseEntity: shared.NewBaseEntity(),
		ItemCode:   itemCode,
		SiteCode:   siteCode,
		UOM:        uom,
		BatchNo:    batchNo,
		Quantity:   quantity,
		ExpiryDate: expiryDate,
		BatchCost:  batchCost,
	}
}

// IsNoBatch returns true if this record is the no-batch bucket
func (b *BatchRecord) IsNoBatch() bool {
	return b.BatchNo == ""
}

// HasStock returns true if the batch has available quantity
func (b *BatchRecord) HasStock() bool {
	return b.Quantity.GreaterThan(decimal.Zero)
}

// Label returns the batch number, or the no-batch placeholder for the empty key
func (b *BatchRecord) Label() string {
	if b.IsNoBatch() {
		return NoBatchLabel
	}
	return b.BatchNo
}

// Deduct reduces the batch quantity, bounded by what is available.
// Returns the quantity actually deducted.
func (b *BatchRecord) Deduct(quantity decimal.Decimal) decimal.Decimal {
	deducted := decimal.Min(quantity, b.Quantity)
	b.Quantity = b.Quantity.Sub(deducted)
	b.Touch()
	return deducted
}

// Add increases the batch quantity (receipts, returns into stock)
func (b *BatchRecord) Add(quantity decimal.Decimal) {
	b.Quantity = b.Quantity.Add(quantity)
	b.Touch()
}

// TotalBatchQuantity sums the available quantity across a batch snapshot
func TotalBatchQuantity(batches []BatchRecord) decimal.Decimal {
	total := decimal.Zero
	for _, b := range batches {
		if b.HasStock() {
			total = total.Add(b.Quantity)
		}
	}
	return total
}

// FindBatch returns the batch with the given number from a snapshot, or nil
func FindBatch(batches []BatchRecord, batchNo string) *BatchRecord {
	for i := range batches {
		if batches[i].BatchNo == batchNo {
			return &batches[i]
		}
	}
	return nil
}
