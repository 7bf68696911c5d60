package stock

import (
	"fmt"
	"strings"
	"time"

	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// memoDateLayout is the canonical wire format for expiry dates in encoded
// allocations: ISO 8601 date, no time component.
const memoDateLayout = "2006-01-02"

// legacyMemoDateLayouts are accepted on decode for backward compatibility
// with data written by the previous system.
var legacyMemoDateLayouts = []string{
	"02/01/2006 15:04:05",
	"02/01/2006 15:04",
	"02/01/2006",
}

// EncodedAllocation is the persisted representation of an allocation plan:
// four parallel strings attached to a document line. BatchBreakdown and
// ExpiryBreakdown have equal cardinality and positional correspondence.
type EncodedAllocation struct {
	Mode            string `gorm:"type:varchar(10)"`
	BatchBreakdown  string `gorm:"type:text"`
	NoBatchQty      string `gorm:"type:varchar(30)"`
	ExpiryBreakdown string `gorm:"type:text"`
}

// IsEmpty returns true if no allocation has been encoded
func (e EncodedAllocation) IsEmpty() bool {
	return e.Mode == "" && e.BatchBreakdown == "" && e.NoBatchQty == "" && e.ExpiryBreakdown == ""
}

// EncodeAllocation serializes an allocation plan into its persisted form.
// Quantities and mode are lossless; expiry dates are carried in the encoding
// itself so decoding does not require a live catalog.
func EncodeAllocation(plan *AllocationPlan) EncodedAllocation {
	batchPairs := make([]string, 0, len(plan.Lines))
	expiryPairs := make([]string, 0, len(plan.Lines))
	for _, l := range plan.Lines {
		batchPairs = append(batchPairs, l.BatchNo+":"+l.Quantity.String())
		expDate := ""
		if l.ExpiryDate != nil {
			expDate = l.ExpiryDate.Format(memoDateLayout)
		}
		expiryPairs = append(expiryPairs, expDate+":"+l.Quantity.String())
	}

	noBatch := ""
	if !plan.NoBatchQty.IsZero() {
		noBatch = plan.NoBatchQty.String()
	}

	return EncodedAllocation{
		Mode:            string(plan.Mode),
		BatchBreakdown:  strings.Join(batchPairs, ","),
		NoBatchQty:      noBatch,
		ExpiryBreakdown: strings.Join(expiryPairs, ","),
	}
}

// DecodeAllocation reconstructs an allocation plan from its persisted form.
// When an expiry date is absent from the encoding (legacy data), the catalog
// lookup supplies it; lookup may be nil when no fallback is wanted.
//
// RequestedQty is rebuilt as the allocated sum, since the encoding carries
// only breakdown quantities. The original request is not recoverable from
// it: a decrease adjustment encodes unsigned breakdowns, and a plan that was
// short allocated requested more than it got. Callers needing the true
// direction or magnitude must take them from the document line.
func DecodeAllocation(encoded EncodedAllocation, lookup func(batchNo string) *BatchRecord) (*AllocationPlan, error) {
	mode := AllocationMode(encoded.Mode)
	if encoded.Mode == "" {
		mode = AllocationModeSequential
	}
	if !mode.IsValid() {
		return nil, shared.NewDomainError("ALLOCATION_DECODE", "Unknown allocation mode: "+encoded.Mode)
	}

	batchPairs := splitPairs(encoded.BatchBreakdown)
	expiryPairs := splitPairs(encoded.ExpiryBreakdown)
	if len(expiryPairs) > 0 && len(expiryPairs) != len(batchPairs) {
		return nil, shared.NewDomainError("ALLOCATION_DECODE",
			fmt.Sprintf("Batch breakdown has %d entries but expiry breakdown has %d", len(batchPairs), len(expiryPairs)))
	}

	plan := &AllocationPlan{
		Mode:  mode,
		Lines: make([]AllocationLine, 0, len(batchPairs)),
	}

	for i, pair := range batchPairs {
		batchNo, qtyStr, err := splitPair(pair)
		if err != nil {
			return nil, err
		}
		qty, err := decimal.NewFromString(qtyStr)
		if err != nil {
			return nil, shared.NewDomainError("ALLOCATION_DECODE", "Invalid batch quantity: "+qtyStr)
		}

		var expDate *time.Time
		if i < len(expiryPairs) {
			dateStr, _, err := splitPair(expiryPairs[i])
			if err != nil {
				return nil, err
			}
			if dateStr != "" {
				parsed, err := parseMemoDate(dateStr)
				if err != nil {
					return nil, err
				}
				expDate = &parsed
			}
		}
		if expDate == nil && lookup != nil {
			if b := lookup(batchNo); b != nil {
				expDate = b.ExpiryDate
			}
		}

		plan.Lines = append(plan.Lines, AllocationLine{
			BatchNo:    batchNo,
			Quantity:   qty,
			ExpiryDate: expDate,
		})
	}

	if encoded.NoBatchQty != "" {
		noBatch, err := decimal.NewFromString(encoded.NoBatchQty)
		if err != nil {
			return nil, shared.NewDomainError("ALLOCATION_DECODE", "Invalid no-batch quantity: "+encoded.NoBatchQty)
		}
		plan.NoBatchQty = noBatch
	}

	plan.RequestedQty = plan.AllocatedQty()
	return plan, nil
}

// splitPairs splits a breakdown string into its pairs, tolerating the empty string
func splitPairs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// splitPair splits at the last colon so legacy date values that carry a time
// component (DD/MM/YYYY hh:mm) keep their own colons intact.
func splitPair(pair string) (string, string, error) {
	idx := strings.LastIndex(pair, ":")
	if idx < 0 {
		return "", "", shared.NewDomainError("ALLOCATION_DECODE", "Malformed breakdown entry: "+pair)
	}
	return pair[:idx], pair[idx+1:], nil
}

// parseMemoDate accepts the canonical ISO form and the legacy slash-delimited
// forms, normalizing to a date-only value.
func parseMemoDate(s string) (time.Time, error) {
	if t, err := time.Parse(memoDateLayout, s); err == nil {
		return t, nil
	}
	for _, layout := range legacyMemoDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, shared.NewDomainError("ALLOCATION_DECODE", "Unparseable expiry date: "+s)
}
