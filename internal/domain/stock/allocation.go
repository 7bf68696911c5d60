package stock

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationMode distinguishes automatic oldest-expiry-first allocation from
// a user-supplied manual batch split.
type AllocationMode string

const (
	// AllocationModeSequential allocates batches automatically, earliest expiry first
	AllocationModeSequential AllocationMode = "sequential"
	// AllocationModeManual uses a user-selected batch split
	AllocationModeManual AllocationMode = "manual"
)

// IsValid checks if the allocation mode is valid
func (m AllocationMode) IsValid() bool {
	return m == AllocationModeSequential || m == AllocationModeManual
}

// AllocationLine is one batch's share of an allocation plan.
// Quantities are magnitudes; direction comes from the document's movement kind.
type AllocationLine struct {
	BatchNo    string
	Quantity   decimal.Decimal
	ExpiryDate *time.Time
}

// AllocationPlan decides which batches absorb a requested quantity movement.
// The no-batch bucket is tracked separately from specific batch lines.
type AllocationPlan struct {
	Mode         AllocationMode
	RequestedQty decimal.Decimal
	Lines        []AllocationLine
	NoBatchQty   decimal.Decimal
}

// AllocatedQty returns the total quantity the plan covers
func (p *AllocationPlan) AllocatedQty() decimal.Decimal {
	total := p.NoBatchQty
	for _, l := range p.Lines {
		total = total.Add(l.Quantity)
	}
	return total
}

// Shortfall returns how much of the requested magnitude the plan could not
// cover. Zero for a fully allocated plan.
func (p *AllocationPlan) Shortfall() decimal.Decimal {
	short := p.RequestedQty.Abs().Sub(p.AllocatedQty())
	if short.IsNegative() {
		return decimal.Zero
	}
	return short
}

// IsFullyAllocated returns true if the plan covers the requested magnitude exactly
func (p *AllocationPlan) IsFullyAllocated() bool {
	return p.AllocatedQty().Equal(p.RequestedQty.Abs())
}

// CombinedBatchLabel joins every allocated batch number with commas, in
// allocation order, substituting the no-batch placeholder for the empty key.
// Used for display only; the authoritative breakdown is the batch movements.
func (p *AllocationPlan) CombinedBatchLabel() string {
	labels := make([]string, 0, len(p.Lines)+1)
	for _, l := range p.Lines {
		if l.BatchNo == "" {
			labels = append(labels, NoBatchLabel)
		} else {
			labels = append(labels, l.BatchNo)
		}
	}
	if p.NoBatchQty.GreaterThan(decimal.Zero) {
		labels = append(labels, NoBatchLabel)
	}
	return strings.Join(labels, ",")
}

// ManualSelection is one row of a user-supplied batch split
type ManualSelection struct {
	BatchNo  string
	Quantity decimal.Decimal
}

// PlanSequential builds an allocation plan by walking the batch snapshot in
// expiry order: specific batches sorted ascending by expiry date with missing
// expiry last, then the no-batch bucket. Insufficient stock yields a partial
// plan, never an error; the caller surfaces the shortfall.
func PlanSequential(requestedQty decimal.Decimal, catalog []BatchRecord) (*AllocationPlan, error) {
	magnitude := requestedQty.Abs()
	if magnitude.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be non-zero")
	}

	specific := make([]BatchRecord, 0, len(catalog))
	var noBatchAvailable decimal.Decimal
	for _, b := range catalog {
		if !b.HasStock() {
			continue
		}
		if b.IsNoBatch() {
			noBatchAvailable = noBatchAvailable.Add(b.Quantity)
			continue
		}
		specific = append(specific, b)
	}

	sort.SliceStable(specific, func(i, j int) bool {
		if specific[i].ExpiryDate != nil && specific[j].ExpiryDate != nil {
			if !specific[i].ExpiryDate.Equal(*specific[j].ExpiryDate) {
				return specific[i].ExpiryDate.Before(*specific[j].ExpiryDate)
			}
		} else if specific[i].ExpiryDate != nil {
			return true
		} else if specific[j].ExpiryDate != nil {
			return false
		}
		return specific[i].BatchNo < specific[j].BatchNo
	})

	plan := &AllocationPlan{
		Mode:         AllocationModeSequential,
		RequestedQty: requestedQty,
		Lines:        make([]AllocationLine, 0, len(specific)),
	}

	remaining := magnitude
	for _, b := range specific {
		if remaining.IsZero() {
			break
		}
		take := decimal.Min(remaining, b.Quantity)
		if take.LessThanOrEqual(decimal.Zero) {
			continue
		}
		plan.Lines = append(plan.Lines, AllocationLine{
			BatchNo:    b.BatchNo,
			Quantity:   take,
			ExpiryDate: b.ExpiryDate,
		})
		remaining = remaining.Sub(take)
	}

	if remaining.GreaterThan(decimal.Zero) {
		plan.NoBatchQty = decimal.Min(remaining, noBatchAvailable)
	}

	return plan, nil
}

// PlanManual validates a user-supplied batch split against the catalog
// snapshot. Individual selections are clamped to available stock; the final
// submission must conserve the requested magnitude exactly or the plan is
// rejected with an allocation mismatch naming the shortfall or excess.
func PlanManual(requestedQty decimal.Decimal, catalog []BatchRecord, selection []ManualSelection, noBatchQty decimal.Decimal) (*AllocationPlan, error) {
	magnitude := requestedQty.Abs()
	if magnitude.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be non-zero")
	}

	available := make(map[string]decimal.Decimal, len(catalog))
	expiry := make(map[string]*time.Time, len(catalog))
	for _, b := range catalog {
		available[b.BatchNo] = available[b.BatchNo].Add(b.Quantity)
		if b.ExpiryDate != nil {
			expiry[b.BatchNo] = b.ExpiryDate
		}
	}

	plan := &AllocationPlan{
		Mode:         AllocationModeManual,
		RequestedQty: requestedQty,
		Lines:        make([]AllocationLine, 0, len(selection)),
	}

	for _, sel := range selection {
		if sel.Quantity.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if sel.BatchNo == "" {
			noBatchQty = noBatchQty.Add(sel.Quantity)
			continue
		}
		take := decimal.Min(sel.Quantity, available[sel.BatchNo])
		if take.LessThanOrEqual(decimal.Zero) {
			continue
		}
		plan.Lines = append(plan.Lines, AllocationLine{
			BatchNo:    sel.BatchNo,
			Quantity:   take,
			ExpiryDate: expiry[sel.BatchNo],
		})
		available[sel.BatchNo] = available[sel.BatchNo].Sub(take)
	}

	if noBatchQty.GreaterThan(decimal.Zero) {
		plan.NoBatchQty = decimal.Min(noBatchQty, available[""])
	}

	allocated := plan.AllocatedQty()
	if !allocated.Equal(magnitude) {
		diff := magnitude.Sub(allocated)
		if diff.IsPositive() {
			return nil, shared.NewDomainError("ALLOCATION_MISMATCH",
				fmt.Sprintf("Selected batches cover %s of %s requested, short by %s", allocated, magnitude, diff))
		}
		return nil, shared.NewDomainError("ALLOCATION_MISMATCH",
			fmt.Sprintf("Selected batches cover %s of %s requested, exceeding by %s", allocated, magnitude, diff.Neg()))
	}

	return plan, nil
}

// PlanSingleBucket builds the degraded plan used when batch tracking is
// disabled: the entire quantity is one no-batch allocation.
func PlanSingleBucket(requestedQty decimal.Decimal) (*AllocationPlan, error) {
	magnitude := requestedQty.Abs()
	if magnitude.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be non-zero")
	}
	return &AllocationPlan{
		Mode:         AllocationModeSequential,
		RequestedQty: requestedQty,
		Lines:        make([]AllocationLine, 0),
		NoBatchQty:   magnitude,
	}, nil
}

// PlanInbound builds the plan for an inbound line: the whole quantity lands
// on the batch entered on the line (or the no-batch bucket when none given).
func PlanInbound(requestedQty decimal.Decimal, batchNo string, expiryDate *time.Time) (*AllocationPlan, error) {
	magnitude := requestedQty.Abs()
	if magnitude.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Requested quantity must be non-zero")
	}
	plan := &AllocationPlan{
		Mode:         AllocationModeSequential,
		RequestedQty: requestedQty,
		Lines:        make([]AllocationLine, 0, 1),
	}
	if batchNo == "" {
		plan.NoBatchQty = magnitude
		return plan, nil
	}
	plan.Lines = append(plan.Lines, AllocationLine{
		BatchNo:    batchNo,
		Quantity:   magnitude,
		ExpiryDate: expiryDate,
	})
	return plan, nil
}

// ClampManualQuantity bounds a single batch's editable quantity during manual
// selection to [0, min(available, remaining + currently assigned to this
// batch)]. Re-editing one batch's quantity can therefore never exceed
// available stock or the total requested; over-entry clamps, it does not error.
func ClampManualQuantity(proposed, available, remaining, currentlyAssigned decimal.Decimal) decimal.Decimal {
	limit := decimal.Min(available, remaining.Add(currentlyAssigned))
	if limit.IsNegative() {
		limit = decimal.Zero
	}
	if proposed.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(proposed, limit)
}
