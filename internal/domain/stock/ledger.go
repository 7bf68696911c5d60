package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LedgerTransaction is one posted movement record per document line. Created
// once at post time; edits to posted documents update the row in place.
type LedgerTransaction struct {
	shared.BaseEntity
	DocNo              string          `gorm:"type:varchar(30);not null;index:idx_ledger_doc,priority:1"`
	SourceLineID       string          `gorm:"type:varchar(50);not null;index:idx_ledger_doc,priority:2"`
	ItemCode           string          `gorm:"type:varchar(50);not null;index:idx_ledger_item"`
	SiteCode           string          `gorm:"type:varchar(20);not null;index:idx_ledger_item"`
	UOM                string          `gorm:"type:varchar(20);not null"`
	MovementKind       MovementKind    `gorm:"type:varchar(20);not null"`
	SignedQty          decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	SignedAmount       decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceQtyAfter    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	BalanceCostAfter   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CombinedBatchLabel string          `gorm:"type:varchar(500)"`
	CounterpartySite   string          `gorm:"type:varchar(20)"`
	TransactionDate    time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (LedgerTransaction) TableName() string {
	return "ledger_transactions"
}

// BatchMovement is one record per (ledger transaction x allocated batch).
// The signed quantities of a transaction's movements always sum to the
// transaction's signed quantity.
type BatchMovement struct {
	shared.BaseEntity
	LedgerTransactionID uuid.UUID       `gorm:"type:uuid;not null;index:idx_batch_movement_txn"`
	BatchNo             string          `gorm:"type:varchar(50);not null;default:''"`
	SignedQty           decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	ExpiryDate          *time.Time      `gorm:"type:date"`
}

// TableName returns the table name for GORM
func (BatchMovement) TableName() string {
	return "batch_movements"
}

// DocumentInfo carries the document-level fields the expander needs
type DocumentInfo struct {
	DocNo            string
	SiteCode         string
	MovementKind     MovementKind
	CounterpartySite string
}

// ExpandLine expands one document line's allocation plan into a ledger
// transaction and one batch movement per allocated batch. The movement kind's
// sign convention is applied to the transaction and to every movement derived
// from it. When the plan is short (insufficient stock allocated without
// blocking), the transaction reflects the allocated quantity so the movement
// sum invariant holds against stock actually moved.
func ExpandLine(line *DocumentLine, doc DocumentInfo, plan *AllocationPlan) (*LedgerTransaction, []BatchMovement, error) {
	if !doc.MovementKind.IsValid() {
		return nil, nil, shared.NewDomainError("INVALID_MOVEMENT_KIND", "Unknown movement kind: "+doc.MovementKind.String())
	}
	if plan == nil {
		return nil, nil, shared.NewDomainError("INVALID_ALLOCATION", "Allocation plan cannot be nil")
	}

	magnitude := plan.AllocatedQty()
	if magnitude.IsZero() {
		return nil, nil, shared.NewDomainError("INVALID_ALLOCATION", "Allocation plan covers no quantity")
	}

	signedQty := doc.MovementKind.SignedQuantity(line.Quantity)
	if signedQty.Abs().GreaterThan(magnitude) {
		if signedQty.IsNegative() {
			signedQty = magnitude.Neg()
		} else {
			signedQty = magnitude
		}
	}
	sign := decimal.NewFromInt(1)
	if signedQty.IsNegative() {
		sign = decimal.NewFromInt(-1)
	}

	txn := &LedgerTransaction{
		BaseEntity:         shared.NewBaseEntity(),
		DocNo:              doc.DocNo,
		SourceLineID:       line.ID.String(),
		ItemCode:           line.ItemCode,
		SiteCode:           doc.SiteCode,
		UOM:                line.UOM,
		MovementKind:       doc.MovementKind,
		SignedQty:          signedQty,
		SignedAmount:       signedQty.Mul(line.Price),
		CombinedBatchLabel: plan.CombinedBatchLabel(),
		CounterpartySite:   doc.CounterpartySite,
		TransactionDate:    time.Now(),
	}

	movements := make([]BatchMovement, 0, len(plan.Lines)+1)
	for _, al := range plan.Lines {
		movements = append(movements, BatchMovement{
			BaseEntity:          shared.NewBaseEntity(),
			LedgerTransactionID: txn.ID,
			BatchNo:             al.BatchNo,
			SignedQty:           al.Quantity.Mul(sign),
			ExpiryDate:          al.ExpiryDate,
		})
	}
	if plan.NoBatchQty.GreaterThan(decimal.Zero) {
		movements = append(movements, BatchMovement{
			BaseEntity:          shared.NewBaseEntity(),
			LedgerTransactionID: txn.ID,
			BatchNo:             "",
			SignedQty:           plan.NoBatchQty.Mul(sign),
		})
	}

	return txn, movements, nil
}

// MovementQtyByBatch folds a movement list into signed quantity per batch number
func MovementQtyByBatch(movements []BatchMovement) map[string]decimal.Decimal {
	byBatch := make(map[string]decimal.Decimal, len(movements))
	for _, m := range movements {
		byBatch[m.BatchNo] = byBatch[m.BatchNo].Add(m.SignedQty)
	}
	return byBatch
}
