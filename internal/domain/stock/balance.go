package stock

import (
	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// RunningBalance is the accumulation point for all ledger transactions of an
// item at a site, keyed by (itemCode, siteCode, uom).
type RunningBalance struct {
	shared.BaseEntity
	ItemCode string          `gorm:"type:varchar(50);not null;uniqueIndex:idx_balance_key,priority:1"`
	SiteCode string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_balance_key,priority:2"`
	UOM      string          `gorm:"type:varchar(20);not null;uniqueIndex:idx_balance_key,priority:3"`
	Qty      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Cost     decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (RunningBalance) TableName() string {
	return "running_balances"
}

// NewRunningBalance creates a zero-valued balance for a key
func NewRunningBalance(itemCode, siteCode, uom string) *RunningBalance {
	return &RunningBalance{
		BaseEntity: shared.NewBaseEntity(),
		ItemCode:   itemCode,
		SiteCode:   siteCode,
		UOM:        uom,
		Qty:        decimal.Zero,
		Cost:       decimal.Zero,
	}
}

// ApplyNewPosting returns the balance after applying a newly posted
// transaction's signed quantity and amount.
func ApplyNewPosting(current RunningBalance, txn *LedgerTransaction) RunningBalance {
	current.Qty = current.Qty.Add(txn.SignedQty)
	current.Cost = current.Cost.Add(txn.SignedAmount)
	current.Touch()
	return current
}

// ApplyEditDelta returns the balance after an edit to an already-posted
// transaction: the original contribution is subtracted and the updated one
// added, so re-posting an unchanged line is a no-op. Adding the updated
// value without removing the original would double-count the posting.
func ApplyEditDelta(current RunningBalance, original, updated *LedgerTransaction) RunningBalance {
	current.Qty = current.Qty.Sub(original.SignedQty).Add(updated.SignedQty)
	current.Cost = current.Cost.Sub(original.SignedAmount).Add(updated.SignedAmount)
	current.Touch()
	return current
}
