package stockquery

import (
	"context"
	"time"

	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// QueryService serves read-only stock views for entry screens and reports
type QueryService struct {
	catalog         stock.BatchCatalog
	balanceRepo     stock.BalanceRepository
	alertWindowDays int
}

// NewQueryService creates a new QueryService
func NewQueryService(catalog stock.BatchCatalog, balanceRepo stock.BalanceRepository) *QueryService {
	return &QueryService{catalog: catalog, balanceRepo: balanceRepo, alertWindowDays: 30}
}

// SetExpiryAlertWindow overrides the default window used when callers do not
// pass one explicitly
func (s *QueryService) SetExpiryAlertWindow(days int) {
	if days > 0 {
		s.alertWindowDays = days
	}
}

// GetBatches returns the batch snapshot for an item at a site with display
// labels and the total available quantity
func (s *QueryService) GetBatches(ctx context.Context, itemCode, siteCode, uom string) (*BatchSnapshotResponse, error) {
	snapshot, err := s.catalog.QueryBatches(ctx, itemCode, siteCode, uom)
	if err != nil {
		return nil, err
	}

	batches := make([]BatchResponse, 0, len(snapshot))
	for i := range snapshot {
		b := &snapshot[i]
		batches = append(batches, BatchResponse{
			BatchNo:    b.BatchNo,
			Label:      b.Label(),
			Quantity:   b.Quantity,
			ExpiryDate: b.ExpiryDate,
			BatchCost:  b.BatchCost,
		})
	}

	return &BatchSnapshotResponse{
		ItemCode: itemCode,
		SiteCode: siteCode,
		UOM:      uom,
		Batches:  batches,
		TotalQty: stock.TotalBatchQuantity(snapshot),
	}, nil
}

// GetBalance returns the running balance for an item at a site, zero-valued
// when nothing has been posted yet
func (s *QueryService) GetBalance(ctx context.Context, itemCode, siteCode, uom string) (*BalanceResponse, error) {
	balance, err := s.balanceRepo.QueryRunningBalance(ctx, itemCode, siteCode, uom)
	if err != nil {
		return nil, err
	}
	avgCost := decimal.Zero
	if !balance.Qty.IsZero() {
		avgCost = balance.Cost.Div(balance.Qty).Round(4)
	}
	return &BalanceResponse{
		ItemCode: balance.ItemCode,
		SiteCode: balance.SiteCode,
		UOM:      balance.UOM,
		Qty:      balance.Qty,
		Cost:     balance.Cost,
		AvgCost:  avgCost,
	}, nil
}

// GetExpiringBatches returns batches with stock expiring within the window
func (s *QueryService) GetExpiringBatches(ctx context.Context, siteCode string, withinDays int) ([]ExpiringBatchResponse, error) {
	if withinDays <= 0 {
		withinDays = s.alertWindowDays
	}
	deadline := time.Now().AddDate(0, 0, withinDays)

	expiring, err := s.catalog.FindExpiringBefore(ctx, siteCode, deadline)
	if err != nil {
		return nil, err
	}

	responses := make([]ExpiringBatchResponse, 0, len(expiring))
	now := time.Now()
	for i := range expiring {
		b := &expiring[i]
		if b.ExpiryDate == nil {
			continue
		}
		days := int(b.ExpiryDate.Sub(now).Hours() / 24)
		responses = append(responses, ExpiringBatchResponse{
			ItemCode:       b.ItemCode,
			SiteCode:       b.SiteCode,
			UOM:            b.UOM,
			BatchNo:        b.BatchNo,
			Label:          b.Label(),
			Quantity:       b.Quantity,
			ExpiryDate:     *b.ExpiryDate,
			DaysToExpiry:   days,
			AlreadyExpired: b.ExpiryDate.Before(now),
		})
	}
	return responses, nil
}
