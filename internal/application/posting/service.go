package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Features holds the runtime switches that change posting behavior
type Features struct {
	// BatchNoEnabled turns batch tracking on; off, every quantity lands in the no-batch bucket
	BatchNoEnabled bool
	// ManualBatchSelectionEnabled allows user-entered batch splits on outbound lines
	ManualBatchSelectionEnabled bool
	// ExpiryDateEnabled carries expiry dates through allocations and movements
	ExpiryDateEnabled bool
	// PostedDocumentEditEnabled allows amending documents after posting
	PostedDocumentEditEnabled bool
}

// PostingService turns saved movement documents into ledger transactions,
// batch movements and running balance updates. Line failures during posting
// are collected, not fatal: a document posts partially rather than aborting
// on the first bad line.
type PostingService struct {
	docRepo     stock.DocumentRepository
	catalog     stock.BatchCatalog
	ledgerRepo  stock.LedgerRepository
	balanceRepo stock.BalanceRepository
	registry    stock.SerialBatchRegistry
	idempotency shared.IdempotencyStore
	idemConfig  shared.IdempotencyConfig
	features    Features
	logger      *zap.Logger
}

// NewPostingService creates a new PostingService
func NewPostingService(
	docRepo stock.DocumentRepository,
	catalog stock.BatchCatalog,
	ledgerRepo stock.LedgerRepository,
	balanceRepo stock.BalanceRepository,
	features Features,
	logger *zap.Logger,
) *PostingService {
	return &PostingService{
		docRepo:     docRepo,
		catalog:     catalog,
		ledgerRepo:  ledgerRepo,
		balanceRepo: balanceRepo,
		features:    features,
		idemConfig:  shared.DefaultIdempotencyConfig(),
		logger:      logger,
	}
}

// SetIdempotencyStore enables the duplicate-posting guard
func (s *PostingService) SetIdempotencyStore(store shared.IdempotencyStore, config shared.IdempotencyConfig) {
	s.idempotency = store
	s.idemConfig = config
}

// SetSerialBatchRegistry sets the optional external registration side channel
func (s *PostingService) SetSerialBatchRegistry(registry stock.SerialBatchRegistry) {
	s.registry = registry
}

// CreateDocument opens a new draft document with a reserved document number
func (s *PostingService) CreateDocument(ctx context.Context, req CreateDocumentRequest) (*DocumentResponse, error) {
	if !req.MovementKind.IsValid() {
		return nil, shared.NewDomainError("INVALID_MOVEMENT_KIND", "Unknown movement kind: "+req.MovementKind.String())
	}

	docNo, err := s.docRepo.NextDocumentNumber(ctx, req.MovementKind)
	if err != nil {
		return nil, err
	}

	doc, err := stock.NewDocument(docNo, req.SiteCode, req.MovementKind)
	if err != nil {
		return nil, err
	}
	doc.CounterpartySite = req.CounterpartySite
	doc.Remarks = req.Remarks

	if err := s.docRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("Document created",
		zap.String("doc_no", doc.DocNo),
		zap.String("site_code", doc.SiteCode),
		zap.String("movement_kind", doc.MovementKind.String()))

	response := ToDocumentResponse(doc)
	return &response, nil
}

// GetDocument retrieves a document with its lines
func (s *PostingService) GetDocument(ctx context.Context, id uuid.UUID) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToDocumentResponse(doc)
	return &response, nil
}

// ListDocuments retrieves documents for a site, newest first
func (s *PostingService) ListDocuments(ctx context.Context, siteCode string, kind stock.MovementKind, limit int) ([]DocumentResponse, error) {
	if limit <= 0 {
		limit = 50
	}
	docs, err := s.docRepo.FindBySite(ctx, siteCode, kind, limit)
	if err != nil {
		return nil, err
	}
	responses := make([]DocumentResponse, 0, len(docs))
	for i := range docs {
		responses = append(responses, ToDocumentResponse(&docs[i]))
	}
	return responses, nil
}

// DeleteDocument removes a document that has not been posted
func (s *PostingService) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	doc, err := s.docRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if doc.IsPosted() {
		return shared.ErrInvalidState
	}
	return s.docRepo.Delete(ctx, id)
}

// SaveLines replaces a document's working set with the given lines and saves
// the document. Manual batch splits are validated and encoded now so a later
// post replays exactly what was entered.
func (s *PostingService) SaveLines(ctx context.Context, docID uuid.UUID, inputs []LineInput) (*DocumentResponse, error) {
	doc, err := s.docRepo.FindByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.IsPosted() || doc.Status == stock.DocumentStatusPosting {
		return nil, shared.ErrInvalidState
	}

	doc.Lines = doc.Lines[:0]
	for i := range inputs {
		in := &inputs[i]
		line, err := doc.AddLine(in.ItemCode, in.UOM, in.Quantity, in.Price)
		if err != nil {
			return nil, err
		}
		line.BatchNo = in.BatchNo
		line.Remarks = in.Remarks
		if s.features.ExpiryDateEnabled {
			line.ExpiryDate = in.ExpiryDate
		}

		if in.Manual != nil {
			if !s.features.ManualBatchSelectionEnabled {
				return nil, shared.NewDomainError("MANUAL_SELECTION_DISABLED", "Manual batch selection is not enabled")
			}
			plan, err := s.planManual(ctx, doc, line, in.Manual)
			if err != nil {
				return nil, err
			}
			line.Allocation = stock.EncodeAllocation(plan)
		}
	}

	if err := doc.MarkSaved(); err != nil {
		return nil, err
	}
	if err := s.docRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	response := ToDocumentResponse(doc)
	return &response, nil
}

// Post expands every line of a saved document into ledger records and applies
// balance and batch quantity effects. Returns the aggregate result; the
// document's status flips to Posted only after all lines were processed, and
// reverts to Saved when every line failed.
//
// Lines are processed sequentially in entry order, so lines sharing an
// (item, site, uom) key see each other's balance effects. Concurrent postings
// touching the same key must be serialized by the caller.
func (s *PostingService) Post(ctx context.Context, docID uuid.UUID, postedBy string) (*PostResult, error) {
	doc, err := s.docRepo.FindByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	if s.idempotency != nil && s.idemConfig.Enabled {
		marked, err := s.idempotency.MarkProcessed(ctx, postingKey(doc.DocNo), s.idemConfig.TTL)
		if err != nil {
			s.logger.Warn("Idempotency store unavailable, posting without duplicate guard",
				zap.String("doc_no", doc.DocNo), zap.Error(err))
		} else if !marked {
			return nil, shared.ErrDuplicatePosting
		}
	}

	if err := doc.BeginPosting(); err != nil {
		return nil, err
	}
	if err := s.docRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	result := &PostResult{
		DocNo:      doc.DocNo,
		LinesTotal: len(doc.Lines),
	}

	for i := range doc.Lines {
		line := &doc.Lines[i]
		warning, err := s.postLine(ctx, doc, line)
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		if err != nil {
			s.logger.Warn("Line failed during posting",
				zap.String("doc_no", doc.DocNo),
				zap.String("item_code", line.ItemCode),
				zap.Error(err))
			result.Failures = append(result.Failures, LineFailure{
				ItemCode: line.ItemCode,
				Reason:   err.Error(),
			})
			continue
		}
		result.LinesPosted++
	}

	if result.LinesPosted > 0 {
		if err := doc.MarkPosted(postedBy); err != nil {
			return nil, err
		}
	} else {
		if err := doc.AbortPosting(); err != nil {
			return nil, err
		}
	}
	if err := s.docRepo.Save(ctx, doc); err != nil {
		return nil, err
	}

	result.Status = doc.Status
	s.logger.Info("Document posting finished",
		zap.String("doc_no", doc.DocNo),
		zap.Int("lines_posted", result.LinesPosted),
		zap.Int("lines_failed", len(result.Failures)))
	return result, nil
}

// postLine plans, expands and applies one document line. The returned warning
// is non-fatal commentary (insufficient stock, registration failure).
func (s *PostingService) postLine(ctx context.Context, doc *stock.Document, line *stock.DocumentLine) (string, error) {
	plan, warning, err := s.planLine(ctx, doc, line)
	if err != nil {
		return warning, err
	}
	line.Allocation = stock.EncodeAllocation(plan)

	txn, movements, err := stock.ExpandLine(line, doc.Info(), plan)
	if err != nil {
		return warning, err
	}

	balance, err := s.balanceRepo.QueryRunningBalance(ctx, line.ItemCode, doc.SiteCode, line.UOM)
	if err != nil {
		return warning, err
	}
	updated := stock.ApplyNewPosting(*balance, txn)
	txn.BalanceQtyAfter = updated.Qty
	txn.BalanceCostAfter = updated.Cost

	if err := s.ledgerRepo.AppendTransaction(ctx, txn); err != nil {
		return warning, err
	}
	if err := s.ledgerRepo.AppendBatchMovements(ctx, movements); err != nil {
		return warning, err
	}
	if err := s.balanceRepo.SaveRunningBalance(ctx, &updated); err != nil {
		return warning, err
	}
	if err := s.applyBatchDeltas(ctx, line.ItemCode, doc.SiteCode, line.UOM, movements); err != nil {
		return warning, err
	}

	if s.registry != nil && doc.MovementKind.RegistersSerialBatch() {
		s.registerMovements(ctx, doc, line, movements)
	}

	return warning, nil
}

// planLine decides the allocation plan for a line at post time
func (s *PostingService) planLine(ctx context.Context, doc *stock.Document, line *stock.DocumentLine) (*stock.AllocationPlan, string, error) {
	if !s.features.BatchNoEnabled {
		plan, err := stock.PlanSingleBucket(line.Quantity)
		return plan, "", err
	}

	if !doc.MovementKind.AllocatesFromStock(line.Quantity) {
		plan, err := stock.PlanInbound(line.Quantity, line.BatchNo, line.ExpiryDate)
		return plan, "", err
	}

	snapshot, err := s.catalog.QueryBatches(ctx, line.ItemCode, doc.SiteCode, line.UOM)
	if err != nil {
		s.logger.Error("Batch catalog read failed",
			zap.String("item_code", line.ItemCode),
			zap.String("site_code", doc.SiteCode),
			zap.Error(err))
		return nil, "", shared.ErrCatalogUnavailable
	}

	if line.HasManualAllocation() {
		plan, err := stock.DecodeAllocation(line.Allocation, func(batchNo string) *stock.BatchRecord {
			return stock.FindBatch(snapshot, batchNo)
		})
		return plan, "", err
	}

	plan, err := stock.PlanSequential(line.Quantity, snapshot)
	if err != nil {
		return nil, "", err
	}
	warning := ""
	if short := plan.Shortfall(); short.GreaterThan(decimal.Zero) {
		warning = fmt.Sprintf("%s: insufficient stock, short by %s", line.ItemCode, short)
	}
	return plan, warning, nil
}

// planManual validates a user-entered batch split at save time
func (s *PostingService) planManual(ctx context.Context, doc *stock.Document, line *stock.DocumentLine, manual *ManualAllocationInput) (*stock.AllocationPlan, error) {
	snapshot, err := s.catalog.QueryBatches(ctx, line.ItemCode, doc.SiteCode, line.UOM)
	if err != nil {
		return nil, shared.ErrCatalogUnavailable
	}
	return stock.PlanManual(line.Quantity, snapshot, toManualSelections(manual.Selections), manual.NoBatchQty)
}

// applyBatchDeltas writes each movement's signed quantity back to the catalog
func (s *PostingService) applyBatchDeltas(ctx context.Context, itemCode, siteCode, uom string, movements []stock.BatchMovement) error {
	for _, m := range movements {
		expiry := m.ExpiryDate
		if !s.features.ExpiryDateEnabled {
			expiry = nil
		}
		if err := s.catalog.UpdateBatchQty(ctx, itemCode, siteCode, uom, m.BatchNo, m.SignedQty, expiry); err != nil {
			return err
		}
	}
	return nil
}

// registerMovements pushes inbound movements to the external serial/batch
// registry. Failures are logged, never escalated.
func (s *PostingService) registerMovements(ctx context.Context, doc *stock.Document, line *stock.DocumentLine, movements []stock.BatchMovement) {
	for _, m := range movements {
		err := s.registry.RegisterSerialBatch(ctx, stock.SerialBatchRegistration{
			DocNo:      doc.DocNo,
			ItemCode:   line.ItemCode,
			SiteCode:   doc.SiteCode,
			UOM:        line.UOM,
			BatchNo:    m.BatchNo,
			Quantity:   m.SignedQty.Abs(),
			ExpiryDate: m.ExpiryDate,
		})
		if err != nil {
			s.logger.Warn("Serial/batch registration failed",
				zap.String("doc_no", doc.DocNo),
				zap.String("item_code", line.ItemCode),
				zap.String("batch_no", m.BatchNo),
				zap.Error(err))
		}
	}
}

// EditPosted amends lines of an already-posted document. Each edit updates
// the line's ledger transaction in place and moves the running balance by the
// delta between the original and updated contributions, so the original
// posting is never double-counted.
func (s *PostingService) EditPosted(ctx context.Context, docID uuid.UUID, edits []PostedLineEdit) (*EditResult, error) {
	if !s.features.PostedDocumentEditEnabled {
		return nil, shared.NewDomainError("POSTED_EDIT_DISABLED", "Editing posted documents is not enabled")
	}

	doc, err := s.docRepo.FindByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if !doc.IsPosted() {
		return nil, shared.ErrInvalidState
	}

	result := &EditResult{DocNo: doc.DocNo}

	for _, edit := range edits {
		line := doc.FindLine(edit.LineID)
		if line == nil {
			result.Failures = append(result.Failures, LineFailure{
				ItemCode: edit.LineID.String(),
				Reason:   shared.ErrNotFound.Error(),
			})
			continue
		}

		warning, err := s.editLine(ctx, doc, line, edit)
		if warning != "" {
			result.Warnings = append(result.Warnings, warning)
		}
		if err != nil {
			s.logger.Warn("Line edit failed",
				zap.String("doc_no", doc.DocNo),
				zap.String("item_code", line.ItemCode),
				zap.Error(err))
			result.Failures = append(result.Failures, LineFailure{
				ItemCode: line.ItemCode,
				Reason:   err.Error(),
			})
			continue
		}
		result.LinesEdited++
	}

	if result.LinesEdited > 0 {
		doc.RecomputeTotals()
		if err := doc.MarkPostedEdited(); err != nil {
			return nil, err
		}
		if err := s.docRepo.Save(ctx, doc); err != nil {
			return nil, err
		}
	}

	result.Status = doc.Status
	return result, nil
}

// editLine applies one posted-line amendment
func (s *PostingService) editLine(ctx context.Context, doc *stock.Document, line *stock.DocumentLine, edit PostedLineEdit) (string, error) {
	qtyChanged := edit.Quantity != nil && !edit.Quantity.Equal(line.Quantity)
	if edit.Quantity != nil {
		if edit.Quantity.IsZero() {
			return "", shared.NewDomainError("INVALID_QUANTITY", "Line quantity must be non-zero")
		}
		line.Quantity = *edit.Quantity
	}
	if edit.Price != nil {
		line.Price = *edit.Price
	}
	if edit.Remarks != nil {
		line.Remarks = *edit.Remarks
	}

	original, err := s.ledgerRepo.FindBySourceLine(ctx, doc.DocNo, line.ID.String())
	if errors.Is(err, shared.ErrNotFound) {
		// No original transaction to move the balance from. Post the edited
		// line as if new and surface the inconsistency for review.
		warning := fmt.Sprintf("%s: %s, posting edited line as new", line.ItemCode, shared.ErrBalanceInconsistent.Message)
		if _, postErr := s.postLine(ctx, doc, line); postErr != nil {
			return warning, postErr
		}
		return warning, nil
	}
	if err != nil {
		// A failed read is not a missing original. Fail the line so nothing
		// is double-applied.
		return "", err
	}

	originalMovements, err := s.ledgerRepo.FindBatchMovements(ctx, original.ID)
	if err != nil {
		return "", err
	}

	var updated *stock.LedgerTransaction
	var newMovements []stock.BatchMovement
	if qtyChanged {
		plan, err := s.replanEditedLine(ctx, doc, line, edit.Manual, originalMovements)
		if err != nil {
			return "", err
		}
		line.Allocation = stock.EncodeAllocation(plan)

		updated, newMovements, err = stock.ExpandLine(line, doc.Info(), plan)
		if err != nil {
			return "", err
		}
		// The edited transaction replaces the original row.
		updated.BaseEntity = original.BaseEntity
		updated.Touch()
		for i := range newMovements {
			newMovements[i].LedgerTransactionID = original.ID
		}
	} else {
		copied := *original
		copied.SignedAmount = copied.SignedQty.Mul(line.Price)
		copied.Touch()
		updated = &copied
		newMovements = originalMovements
	}

	balance, err := s.balanceRepo.QueryRunningBalance(ctx, line.ItemCode, doc.SiteCode, line.UOM)
	if err != nil {
		return "", err
	}
	rebalanced := stock.ApplyEditDelta(*balance, original, updated)
	updated.BalanceQtyAfter = rebalanced.Qty
	updated.BalanceCostAfter = rebalanced.Cost

	if err := s.ledgerRepo.UpdateTransaction(ctx, updated); err != nil {
		return "", err
	}
	if err := s.balanceRepo.SaveRunningBalance(ctx, &rebalanced); err != nil {
		return "", err
	}

	if qtyChanged {
		if err := s.applyEditBatchDeltas(ctx, line.ItemCode, doc.SiteCode, line.UOM, originalMovements, newMovements); err != nil {
			return "", err
		}
		if err := s.ledgerRepo.ReplaceBatchMovements(ctx, original.ID, newMovements); err != nil {
			return "", err
		}
	}

	return "", nil
}

// replanEditedLine builds a fresh plan for a quantity-changed posted line. The
// catalog snapshot is adjusted by handing back the original allocation first,
// so the new plan competes for the stock the line itself is holding.
func (s *PostingService) replanEditedLine(ctx context.Context, doc *stock.Document, line *stock.DocumentLine, manual *ManualAllocationInput, originalMovements []stock.BatchMovement) (*stock.AllocationPlan, error) {
	if !s.features.BatchNoEnabled {
		return stock.PlanSingleBucket(line.Quantity)
	}
	if !doc.MovementKind.AllocatesFromStock(line.Quantity) {
		return stock.PlanInbound(line.Quantity, line.BatchNo, line.ExpiryDate)
	}

	snapshot, err := s.catalog.QueryBatches(ctx, line.ItemCode, doc.SiteCode, line.UOM)
	if err != nil {
		return nil, shared.ErrCatalogUnavailable
	}
	snapshot = handBackAllocation(snapshot, originalMovements)

	if manual != nil {
		if !s.features.ManualBatchSelectionEnabled {
			return nil, shared.NewDomainError("MANUAL_SELECTION_DISABLED", "Manual batch selection is not enabled")
		}
		return stock.PlanManual(line.Quantity, snapshot, toManualSelections(manual.Selections), manual.NoBatchQty)
	}
	return stock.PlanSequential(line.Quantity, snapshot)
}

// applyEditBatchDeltas writes per-batch quantity differences between the
// original and new movement sets back to the catalog
func (s *PostingService) applyEditBatchDeltas(ctx context.Context, itemCode, siteCode, uom string, original, updated []stock.BatchMovement) error {
	oldByBatch := stock.MovementQtyByBatch(original)
	newByBatch := stock.MovementQtyByBatch(updated)

	expiryByBatch := make(map[string]*time.Time, len(updated))
	for _, m := range updated {
		if m.ExpiryDate != nil {
			expiryByBatch[m.BatchNo] = m.ExpiryDate
		}
	}

	seen := make(map[string]bool, len(oldByBatch)+len(newByBatch))
	apply := func(batchNo string) error {
		if seen[batchNo] {
			return nil
		}
		seen[batchNo] = true
		delta := newByBatch[batchNo].Sub(oldByBatch[batchNo])
		if delta.IsZero() {
			return nil
		}
		return s.catalog.UpdateBatchQty(ctx, itemCode, siteCode, uom, batchNo, delta, expiryByBatch[batchNo])
	}

	for batchNo := range oldByBatch {
		if err := apply(batchNo); err != nil {
			return err
		}
	}
	for batchNo := range newByBatch {
		if err := apply(batchNo); err != nil {
			return err
		}
	}
	return nil
}

// handBackAllocation returns a snapshot copy with the movements' magnitudes
// credited back to their batches, creating entries for batches the snapshot
// no longer lists
func handBackAllocation(snapshot []stock.BatchRecord, movements []stock.BatchMovement) []stock.BatchRecord {
	adjusted := make([]stock.BatchRecord, len(snapshot))
	copy(adjusted, snapshot)
	for _, m := range movements {
		if b := stock.FindBatch(adjusted, m.BatchNo); b != nil {
			b.Quantity = b.Quantity.Sub(m.SignedQty)
			continue
		}
		adjusted = append(adjusted, stock.BatchRecord{
			BatchNo:    m.BatchNo,
			Quantity:   m.SignedQty.Neg(),
			ExpiryDate: m.ExpiryDate,
		})
	}
	return adjusted
}

// toManualSelections maps input rows to the domain selection type
func toManualSelections(inputs []ManualSelectionInput) []stock.ManualSelection {
	selections := make([]stock.ManualSelection, 0, len(inputs))
	for _, in := range inputs {
		selections = append(selections, stock.ManualSelection{
			BatchNo:  in.BatchNo,
			Quantity: in.Quantity,
		})
	}
	return selections
}

// postingKey builds the idempotency key for a document posting
func postingKey(docNo string) string {
	return "posting:" + docNo
}
