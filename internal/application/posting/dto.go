package posting

import (
	"time"

	"github.com/google/uuid"
	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
)

// CreateDocumentRequest opens a new movement document
type CreateDocumentRequest struct {
	SiteCode         string
	CounterpartySite string
	MovementKind     stock.MovementKind
	Remarks          string
}

// ManualSelectionInput is one row of a user-entered batch split
type ManualSelectionInput struct {
	BatchNo  string
	Quantity decimal.Decimal
}

// ManualAllocationInput carries a manual batch split for a line
type ManualAllocationInput struct {
	Selections []ManualSelectionInput
	NoBatchQty decimal.Decimal
}

// LineInput is one line of a document's working set
type LineInput struct {
	ItemCode   string
	UOM        string
	Quantity   decimal.Decimal
	Price      decimal.Decimal
	BatchNo    string
	ExpiryDate *time.Time
	Remarks    string
	Manual     *ManualAllocationInput
}

// PostedLineEdit amends one line of an already-posted document
type PostedLineEdit struct {
	LineID   uuid.UUID
	Quantity *decimal.Decimal
	Price    *decimal.Decimal
	Remarks  *string
	Manual   *ManualAllocationInput
}

// LineFailure reports one line that could not be processed
type LineFailure struct {
	ItemCode string `json:"item_code"`
	Reason   string `json:"reason"`
}

// PostResult aggregates the outcome of posting a document. A result with
// failures means the document posted partially; callers must not treat the
// absence of an error as full success.
type PostResult struct {
	DocNo       string               `json:"doc_no"`
	Status      stock.DocumentStatus `json:"status"`
	LinesTotal  int                  `json:"lines_total"`
	LinesPosted int                  `json:"lines_posted"`
	Failures    []LineFailure        `json:"failures,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// FullySucceeded returns true only when every line posted
func (r *PostResult) FullySucceeded() bool {
	return len(r.Failures) == 0 && r.LinesPosted == r.LinesTotal
}

// EditResult aggregates the outcome of amending a posted document
type EditResult struct {
	DocNo       string               `json:"doc_no"`
	Status      stock.DocumentStatus `json:"status"`
	LinesEdited int                  `json:"lines_edited"`
	Failures    []LineFailure        `json:"failures,omitempty"`
	Warnings    []string             `json:"warnings,omitempty"`
}

// AllocationPreviewLine is one batch's share in a previewed plan
type AllocationPreviewLine struct {
	BatchNo     string          `json:"batch_no"`
	Label       string          `json:"label"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExpiryDate  *time.Time      `json:"expiry_date,omitempty"`
	MaxSettable decimal.Decimal `json:"max_settable"`
}

// AllocationPreview is the interactive planner response used by entry screens
type AllocationPreview struct {
	Mode         stock.AllocationMode    `json:"mode"`
	RequestedQty decimal.Decimal         `json:"requested_qty"`
	Lines        []AllocationPreviewLine `json:"lines"`
	NoBatchQty   decimal.Decimal         `json:"no_batch_qty"`
	Shortfall    decimal.Decimal         `json:"shortfall"`
}

// DocumentLineResponse is the API view of a document line
type DocumentLineResponse struct {
	LineID     string          `json:"line_id"`
	ItemCode   string          `json:"item_code"`
	UOM        string          `json:"uom"`
	Quantity   decimal.Decimal `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
	BatchNo    string          `json:"batch_no,omitempty"`
	ExpiryDate *time.Time      `json:"expiry_date,omitempty"`
	Remarks    string          `json:"remarks,omitempty"`
	Allocation string          `json:"allocation,omitempty"`
}

// DocumentResponse is the API view of a document
type DocumentResponse struct {
	ID               string                 `json:"id"`
	DocNo            string                 `json:"doc_no"`
	SiteCode         string                 `json:"site_code"`
	CounterpartySite string                 `json:"counterparty_site,omitempty"`
	MovementKind     stock.MovementKind     `json:"movement_kind"`
	Status           stock.DocumentStatus   `json:"status"`
	TotalQty         decimal.Decimal        `json:"total_qty"`
	TotalAmount      decimal.Decimal        `json:"total_amount"`
	Remarks          string                 `json:"remarks,omitempty"`
	PostedAt         *time.Time             `json:"posted_at,omitempty"`
	PostedBy         string                 `json:"posted_by,omitempty"`
	Lines            []DocumentLineResponse `json:"lines"`
}

// ToDocumentResponse maps a document aggregate to its API view
func ToDocumentResponse(doc *stock.Document) DocumentResponse {
	lines := make([]DocumentLineResponse, 0, len(doc.Lines))
	for i := range doc.Lines {
		l := &doc.Lines[i]
		lines = append(lines, DocumentLineResponse{
			LineID:     l.ID.String(),
			ItemCode:   l.ItemCode,
			UOM:        l.UOM,
			Quantity:   l.Quantity,
			Price:      l.Price,
			BatchNo:    l.BatchNo,
			ExpiryDate: l.ExpiryDate,
			Remarks:    l.Remarks,
			Allocation: l.Allocation.BatchBreakdown,
		})
	}
	return DocumentResponse{
		ID:               doc.ID.String(),
		DocNo:            doc.DocNo,
		SiteCode:         doc.SiteCode,
		CounterpartySite: doc.CounterpartySite,
		MovementKind:     doc.MovementKind,
		Status:           doc.Status,
		TotalQty:         doc.TotalQty,
		TotalAmount:      doc.TotalAmount,
		Remarks:          doc.Remarks,
		PostedAt:         doc.PostedAt,
		PostedBy:         doc.PostedBy,
		Lines:            lines,
	}
}
