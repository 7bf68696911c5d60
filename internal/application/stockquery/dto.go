package stockquery

import (
	"time"

	"github.com/shopspring/decimal"
)

// BatchResponse is the API view of one batch record
type BatchResponse struct {
	BatchNo    string          `json:"batch_no"`
	Label      string          `json:"label"`
	Quantity   decimal.Decimal `json:"quantity"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	BatchCost  decimal.Decimal `json:"batch_cost"`
}

// BatchSnapshotResponse is the batch view of an item at a site
type BatchSnapshotResponse struct {
	ItemCode string          `json:"item_code"`
	SiteCode string          `json:"site_code"`
	UOM      string          `json:"uom"`
	Batches  []BatchResponse `json:"batches"`
	TotalQty decimal.Decimal `json:"total_qty"`
}

// BalanceResponse is the API view of a running balance
type BalanceResponse struct {
	ItemCode string          `json:"item_code"`
	SiteCode string          `json:"site_code"`
	UOM      string          `json:"uom"`
	Qty      decimal.Decimal `json:"qty"`
	Cost     decimal.Decimal `json:"cost"`
	AvgCost  decimal.Decimal `json:"avg_cost"`
}

// ExpiringBatchResponse is one batch nearing or past its expiry date
type ExpiringBatchResponse struct {
	ItemCode       string          `json:"item_code"`
	SiteCode       string          `json:"site_code"`
	UOM            string          `json:"uom"`
	BatchNo        string          `json:"batch_no"`
	Label          string          `json:"label"`
	Quantity       decimal.Decimal `json:"quantity"`
	ExpiryDate     time.Time       `json:"expiry_date"`
	DaysToExpiry   int             `json:"days_to_expiry"`
	AlreadyExpired bool            `json:"already_expired"`
}
