package posting

import (
	"context"
	"time"

	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// PreviewAllocationRequest asks the planner what a line's allocation would
// look like before the document is saved or posted
type PreviewAllocationRequest struct {
	ItemCode     string
	SiteCode     string
	UOM          string
	Quantity     decimal.Decimal
	MovementKind stock.MovementKind
	BatchNo      string
	ExpiryDate   *time.Time
	Manual       *ManualAllocationInput
}

// PreviewService runs the allocation planner for entry screens. Manual
// selections are clamped row by row instead of rejected, so the screen can
// show the user what their over-entry was reduced to.
type PreviewService struct {
	catalog  stock.BatchCatalog
	features Features
}

// NewPreviewService creates a new PreviewService
func NewPreviewService(catalog stock.BatchCatalog, features Features) *PreviewService {
	return &PreviewService{catalog: catalog, features: features}
}

// PreviewAllocation computes the allocation a line would get right now
func (s *PreviewService) PreviewAllocation(ctx context.Context, req PreviewAllocationRequest) (*AllocationPreview, error) {
	if !req.MovementKind.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_KIND", "Unknown movement kind: "+req.MovementKind.String())
	}
	magnitude := req.Quantity.Abs()
	if magnitude.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be non-zero")
	}

	if !s.features.BatchNoEnabled {
		return &AllocationPreview{
			Mode:         stock.AllocationModeSequential,
			RequestedQty: magnitude,
			Lines:        []AllocationPreviewLine{},
			NoBatchQty:   magnitude,
			Shortfall:    decimal.Zero,
		}, nil
	}

	if !req.MovementKind.AllocatesFromStock(req.Quantity) {
		plan, err := stock.PlanInbound(req.Quantity, req.BatchNo, req.ExpiryDate)
		if err != nil {
			return nil, err
		}
		return planToPreview(plan, nil), nil
	}

	snapshot, err := s.catalog.QueryBatches(ctx, req.ItemCode, req.SiteCode, req.UOM)
	if err != nil {
		return nil, shared.ErrCatalogUnavailable
	}

	if req.Manual != nil {
		if !s.features.ManualBatchSelectionEnabled {
			return nil, shared.NewDomainError("MANUAL_SELECTION_DISABLED", "Manual batch selection is not enabled")
		}
		return previewManual(magnitude, snapshot, req.Manual), nil
	}

	plan, err := stock.PlanSequential(req.Quantity, snapshot)
	if err != nil {
		return nil, err
	}
	return planToPreview(plan, snapshot), nil
}

// previewManual clamps each selection to what the catalog and the remaining
// quantity allow, without enforcing conservation. The screen submits the
// final split; conservation is checked at save.
func previewManual(magnitude decimal.Decimal, snapshot []stock.BatchRecord, manual *ManualAllocationInput) *AllocationPreview {
	available := make(map[string]decimal.Decimal, len(snapshot))
	expiry := make(map[string]*time.Time, len(snapshot))
	for _, b := range snapshot {
		available[b.BatchNo] = available[b.BatchNo].Add(b.Quantity)
		if b.ExpiryDate != nil {
			expiry[b.BatchNo] = b.ExpiryDate
		}
	}

	preview := &AllocationPreview{
		Mode:         stock.AllocationModeManual,
		RequestedQty: magnitude,
		Lines:        make([]AllocationPreviewLine, 0, len(manual.Selections)),
	}

	allocated := decimal.Zero
	for _, sel := range manual.Selections {
		remaining := magnitude.Sub(allocated)
		clamped := stock.ClampManualQuantity(sel.Quantity, available[sel.BatchNo], remaining, decimal.Zero)
		label := sel.BatchNo
		if label == "" {
			label = stock.NoBatchLabel
		}
		preview.Lines = append(preview.Lines, AllocationPreviewLine{
			BatchNo:     sel.BatchNo,
			Label:       label,
			Quantity:    clamped,
			ExpiryDate:  expiry[sel.BatchNo],
			MaxSettable: maxSettable(available[sel.BatchNo], remaining),
		})
		available[sel.BatchNo] = available[sel.BatchNo].Sub(clamped)
		allocated = allocated.Add(clamped)
	}

	if manual.NoBatchQty.GreaterThan(decimal.Zero) {
		remaining := magnitude.Sub(allocated)
		clamped := stock.ClampManualQuantity(manual.NoBatchQty, available[""], remaining, decimal.Zero)
		preview.NoBatchQty = clamped
		allocated = allocated.Add(clamped)
	}

	preview.Shortfall = magnitude.Sub(allocated)
	if preview.Shortfall.IsNegative() {
		preview.Shortfall = decimal.Zero
	}
	return preview
}

// planToPreview maps a computed plan to the preview shape. MaxSettable for a
// planned row is what the batch could still absorb if the user took over and
// edited the row manually.
func planToPreview(plan *stock.AllocationPlan, snapshot []stock.BatchRecord) *AllocationPreview {
	available := make(map[string]decimal.Decimal, len(snapshot))
	for _, b := range snapshot {
		available[b.BatchNo] = available[b.BatchNo].Add(b.Quantity)
	}

	preview := &AllocationPreview{
		Mode:         plan.Mode,
		RequestedQty: plan.RequestedQty.Abs(),
		Lines:        make([]AllocationPreviewLine, 0, len(plan.Lines)),
		NoBatchQty:   plan.NoBatchQty,
		Shortfall:    plan.Shortfall(),
	}

	remaining := plan.Shortfall()
	for _, l := range plan.Lines {
		label := l.BatchNo
		if label == "" {
			label = stock.NoBatchLabel
		}
		max := l.Quantity
		if avail, ok := available[l.BatchNo]; ok {
			max = stock.ClampManualQuantity(avail, avail, remaining, l.Quantity)
		}
		preview.Lines = append(preview.Lines, AllocationPreviewLine{
			BatchNo:     l.BatchNo,
			Label:       label,
			Quantity:    l.Quantity,
			ExpiryDate:  l.ExpiryDate,
			MaxSettable: max,
		})
	}
	return preview
}

// maxSettable bounds what a manual row can be raised to
func maxSettable(available, remaining decimal.Decimal) decimal.Decimal {
	limit := decimal.Min(available, remaining)
	if limit.IsNegative() {
		return decimal.Zero
	}
	return limit
}
