package stock

import (
	"time"

	"github.com/google/uuid"
	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DocumentStatus tracks a movement document through its lifecycle
type DocumentStatus string

const (
	// DocumentStatusDraft is a document being entered, nothing persisted beyond the working set
	DocumentStatusDraft DocumentStatus = "DRAFT"
	// DocumentStatusSaved is a persisted document with no ledger or balance effects yet
	DocumentStatusSaved DocumentStatus = "SAVED"
	// DocumentStatusPosting is a document whose lines are being expanded into ledger records
	DocumentStatusPosting DocumentStatus = "POSTING"
	// DocumentStatusPosted is a fully posted document
	DocumentStatusPosted DocumentStatus = "POSTED"
	// DocumentStatusPostedEdited is a posted document amended after posting
	DocumentStatusPostedEdited DocumentStatus = "POSTED_EDITED"
)

// IsValid checks if the status is valid
func (s DocumentStatus) IsValid() bool {
	switch s {
	case DocumentStatusDraft, DocumentStatusSaved, DocumentStatusPosting, DocumentStatusPosted, DocumentStatusPostedEdited:
		return true
	}
	return false
}

// String returns the string representation
func (s DocumentStatus) String() string {
	return string(s)
}

// DocumentLine is one row of a movement document. Quantity is signed for
// adjustment documents; magnitude only for the other kinds, where direction
// is implied by the document type.
type DocumentLine struct {
	shared.BaseEntity
	DocumentID uuid.UUID         `gorm:"type:uuid;not null;index:idx_doc_line_doc"`
	ItemCode   string            `gorm:"type:varchar(50);not null"`
	UOM        string            `gorm:"type:varchar(20);not null"`
	Quantity   decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	Price      decimal.Decimal   `gorm:"type:decimal(18,4);not null"`
	BatchNo    string            `gorm:"type:varchar(50)"` // entered batch for inbound lines
	ExpiryDate *time.Time        `gorm:"type:date"`
	Remarks    string            `gorm:"type:varchar(255)"`
	Allocation EncodedAllocation `gorm:"embedded;embeddedPrefix:alloc_"`
}

// TableName returns the table name for GORM
func (DocumentLine) TableName() string {
	return "document_lines"
}

// Amount returns the line's quantity times price
func (l *DocumentLine) Amount() decimal.Decimal {
	return l.Quantity.Mul(l.Price)
}

// HasManualAllocation returns true if a manual batch split was fixed at entry
func (l *DocumentLine) HasManualAllocation() bool {
	return AllocationMode(l.Allocation.Mode) == AllocationModeManual && !l.Allocation.IsEmpty()
}

// Document is one movement document (receive, return, transfer, adjustment
// note). Lines are exclusively owned by the document.
type Document struct {
	shared.BaseEntity
	DocNo            string          `gorm:"type:varchar(30);not null;uniqueIndex"`
	SiteCode         string          `gorm:"type:varchar(20);not null;index"`
	CounterpartySite string          `gorm:"type:varchar(20)"`
	MovementKind     MovementKind    `gorm:"type:varchar(20);not null"`
	Status           DocumentStatus  `gorm:"type:varchar(20);not null"`
	TotalQty         decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalAmount      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Remarks          string          `gorm:"type:varchar(255)"`
	PostedAt         *time.Time
	PostedBy         string          `gorm:"type:varchar(50)"`
	Lines            []DocumentLine  `gorm:"foreignKey:DocumentID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a new draft document
func NewDocument(docNo, siteCode string, kind MovementKind) (*Document, error) {
	if !kind.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_KIND", "Unknown movement kind: "+kind.String())
	}
	if docNo == "" {
		return nil, shared.NewDomainError("INVALID_DOC_NO", "Document number cannot be empty")
	}
	if siteCode == "" {
		return nil, shared.NewDomainError("INVALID_SITE", "Site code cannot be empty")
	}
	return &Document{
		BaseEntity:   shared.NewBaseEntity(),
		DocNo:        docNo,
		SiteCode:     siteCode,
		MovementKind: kind,
		Status:       DocumentStatusDraft,
		TotalQty:     decimal.Zero,
		TotalAmount:  decimal.Zero,
		Lines:        make([]DocumentLine, 0),
	}, nil
}

// AddLine appends a line to the document's working set
func (d *Document) AddLine(itemCode, uom string, quantity, price decimal.Decimal) (*DocumentLine, error) {
	if d.Status != DocumentStatusDraft && d.Status != DocumentStatusSaved {
		return nil, shared.ErrInvalidState
	}
	if quantity.IsZero() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be non-zero")
	}
	if d.MovementKind != MovementAdjustment && quantity.IsNegative() {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be positive for "+d.MovementKind.String())
	}
	line := DocumentLine{
		BaseEntity: shared.NewBaseEntity(),
		DocumentID: d.ID,
		ItemCode:   itemCode,
		UOM:        uom,
		Quantity:   quantity,
		Price:      price,
	}
	d.Lines = append(d.Lines, line)
	d.RecomputeTotals()
	return &d.Lines[len(d.Lines)-1], nil
}

// RemoveLine deletes a line from the working set
func (d *Document) RemoveLine(lineID uuid.UUID) error {
	if d.Status != DocumentStatusDraft && d.Status != DocumentStatusSaved {
		return shared.ErrInvalidState
	}
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			d.Lines = append(d.Lines[:i], d.Lines[i+1:]...)
			d.RecomputeTotals()
			return nil
		}
	}
	return shared.ErrNotFound
}

// FindLine returns the line with the given id, or nil
func (d *Document) FindLine(lineID uuid.UUID) *DocumentLine {
	for i := range d.Lines {
		if d.Lines[i].ID == lineID {
			return &d.Lines[i]
		}
	}
	return nil
}

// RecomputeTotals refreshes the header totals from the current line set
func (d *Document) RecomputeTotals() {
	totalQty := decimal.Zero
	totalAmount := decimal.Zero
	for i := range d.Lines {
		totalQty = totalQty.Add(d.Lines[i].Quantity)
		totalAmount = totalAmount.Add(d.Lines[i].Amount())
	}
	d.TotalQty = totalQty
	d.TotalAmount = totalAmount
	d.Touch()
}

// MarkSaved transitions Draft -> Saved
func (d *Document) MarkSaved() error {
	if d.Status != DocumentStatusDraft && d.Status != DocumentStatusSaved {
		return shared.ErrInvalidState
	}
	d.Status = DocumentStatusSaved
	d.Touch()
	return nil
}

// BeginPosting transitions Draft/Saved -> Posting. A document that fails
// partway through stays visibly in Posting rather than falsely Posted.
func (d *Document) BeginPosting() error {
	if d.Status != DocumentStatusDraft && d.Status != DocumentStatusSaved {
		return shared.ErrInvalidState
	}
	if len(d.Lines) == 0 {
		return shared.NewDomainError("EMPTY_DOCUMENT", "Document has no lines to post")
	}
	d.Status = DocumentStatusPosting
	d.Touch()
	return nil
}

// MarkPosted transitions Posting -> Posted; the terminal step of posting,
// taken only after all line processing completed.
func (d *Document) MarkPosted(postedBy string) error {
	if d.Status != DocumentStatusPosting {
		return shared.ErrInvalidState
	}
	now := time.Now()
	d.Status = DocumentStatusPosted
	d.PostedAt = &now
	d.PostedBy = postedBy
	d.Touch()
	return nil
}

// AbortPosting reverts a Posting document whose lines all failed back to Saved
func (d *Document) AbortPosting() error {
	if d.Status != DocumentStatusPosting {
		return shared.ErrInvalidState
	}
	d.Status = DocumentStatusSaved
	d.Touch()
	return nil
}

// MarkPostedEdited transitions Posted/PostedEdited -> PostedEdited
func (d *Document) MarkPostedEdited() error {
	if d.Status != DocumentStatusPosted && d.Status != DocumentStatusPostedEdited {
		return shared.ErrInvalidState
	}
	d.Status = DocumentStatusPostedEdited
	d.Touch()
	return nil
}

// IsPosted returns true once the document has ledger effects
func (d *Document) IsPosted() bool {
	return d.Status == DocumentStatusPosted || d.Status == DocumentStatusPostedEdited
}

// Info returns the document-level fields the transaction expander needs
func (d *Document) Info() DocumentInfo {
	return DocumentInfo{
		DocNo:            d.DocNo,
		SiteCode:         d.SiteCode,
		MovementKind:     d.MovementKind,
		CounterpartySite: d.CounterpartySite,
	}
}
