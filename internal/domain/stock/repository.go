package stock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchCatalog is the read/write view of batch records in the external
// inventory store. The core queries snapshots for planning and writes
// quantity deltas after allocation; it never caches across calls.
type BatchCatalog interface {
	// QueryBatches returns the batch snapshot for an item/site/uom
	QueryBatches(ctx context.Context, itemCode, siteCode, uom string) ([]BatchRecord, error)

	// UpdateBatchQty applies a signed quantity delta to a batch, creating the
	// record when a positive delta names a batch that does not exist yet.
	UpdateBatchQty(ctx context.Context, itemCode, siteCode, uom, batchNo string, deltaQty decimal.Decimal, expiryDate *time.Time) error

	// FindExpiringBefore returns batches with stock expiring before the deadline
	FindExpiringBefore(ctx context.Context, siteCode string, deadline time.Time) ([]BatchRecord, error)
}

// LedgerRepository persists ledger transactions and their batch movements
type LedgerRepository interface {
	// AppendTransaction creates a new ledger transaction
	AppendTransaction(ctx context.Context, txn *LedgerTransaction) error

	// UpdateTransaction updates a ledger transaction in place (posted-document edits)
	UpdateTransaction(ctx context.Context, txn *LedgerTransaction) error

	// FindBySourceLine finds the transaction posted for a document line
	FindBySourceLine(ctx context.Context, docNo, sourceLineID string) (*LedgerTransaction, error)

	// AppendBatchMovements creates the batch movements of a transaction
	AppendBatchMovements(ctx context.Context, movements []BatchMovement) error

	// FindBatchMovements returns the movements of a transaction in allocation order
	FindBatchMovements(ctx context.Context, ledgerTransactionID uuid.UUID) ([]BatchMovement, error)

	// ReplaceBatchMovements updates a transaction's movements in place,
	// inserting new batches and removing ones no longer allocated
	ReplaceBatchMovements(ctx context.Context, ledgerTransactionID uuid.UUID, movements []BatchMovement) error
}

// BalanceRepository persists running balances keyed by (itemCode, siteCode, uom)
type BalanceRepository interface {
	// QueryRunningBalance returns the balance for a key, zero-valued if none exists
	QueryRunningBalance(ctx context.Context, itemCode, siteCode, uom string) (*RunningBalance, error)

	// SaveRunningBalance creates or updates a balance
	SaveRunningBalance(ctx context.Context, balance *RunningBalance) error
}

// DocumentRepository persists movement documents and their lines
type DocumentRepository interface {
	// FindByID finds a document with its lines
	FindByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// FindByDocNo finds a document by its number
	FindByDocNo(ctx context.Context, docNo string) (*Document, error)

	// FindBySite lists documents for a site, newest first
	FindBySite(ctx context.Context, siteCode string, kind MovementKind, limit int) ([]Document, error)

	// Save creates or updates a document with its lines
	Save(ctx context.Context, doc *Document) error

	// Delete deletes a draft document
	Delete(ctx context.Context, id uuid.UUID) error

	// NextDocumentNumber reserves the next number in the kind's sequence
	NextDocumentNumber(ctx context.Context, kind MovementKind) (string, error)
}

// SerialBatchRegistration carries the parameters of the external
// serial/batch-number registration side channel.
type SerialBatchRegistration struct {
	DocNo      string
	ItemCode   string
	SiteCode   string
	UOM        string
	BatchNo    string
	Quantity   decimal.Decimal
	ExpiryDate *time.Time
}

// SerialBatchRegistry is the optional external registration side channel.
// Failures are logged by the caller, never escalated.
type SerialBatchRegistry interface {
	RegisterSerialBatch(ctx context.Context, reg SerialBatchRegistration) error
}
