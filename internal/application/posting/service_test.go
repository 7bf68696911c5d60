package posting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/salonerp/backend/internal/domain/shared"
	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockBatchCatalog is an in-memory implementation of stock.BatchCatalog
type MockBatchCatalog struct {
	mu       sync.Mutex
	batches  []stock.BatchRecord
	queryErr error
}

func (m *MockBatchCatalog) QueryBatches(ctx context.Context, itemCode, siteCode, uom string) ([]stock.BatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	result := make([]stock.BatchRecord, 0)
	for _, b := range m.batches {
		if b.ItemCode == itemCode && b.SiteCode == siteCode && b.UOM == uom {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *MockBatchCatalog) UpdateBatchQty(ctx context.Context, itemCode, siteCode, uom, batchNo string, deltaQty decimal.Decimal, expiryDate *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.batches {
		b := &m.batches[i]
		if b.ItemCode == itemCode && b.SiteCode == siteCode && b.UOM == uom && b.BatchNo == batchNo {
			b.Quantity = b.Quantity.Add(deltaQty)
			if expiryDate != nil {
				b.ExpiryDate = expiryDate
			}
			return nil
		}
	}
	m.batches = append(m.batches, stock.BatchRecord{
		BaseEntity: shared.NewBaseEntity(),
		ItemCode:   itemCode,
		SiteCode:   siteCode,
		UOM:        uom,
		BatchNo:    batchNo,
		Quantity:   deltaQty,
		ExpiryDate: expiryDate,
	})
	return nil
}

func (m *MockBatchCatalog) FindExpiringBefore(ctx context.Context, siteCode string, deadline time.Time) ([]stock.BatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]stock.BatchRecord, 0)
	for _, b := range m.batches {
		if b.SiteCode == siteCode && b.ExpiryDate != nil && b.ExpiryDate.Before(deadline) && b.HasStock() {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *MockBatchCatalog) quantityOf(itemCode, batchNo string) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.batches {
		if b.ItemCode == itemCode && b.BatchNo == batchNo {
			return b.Quantity
		}
	}
	return decimal.Zero
}

// MockLedgerRepository is an in-memory implementation of stock.LedgerRepository
type MockLedgerRepository struct {
	mu           sync.Mutex
	transactions []*stock.LedgerTransaction
	movements    map[uuid.UUID][]stock.BatchMovement
	findErr      error
}

func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{movements: make(map[uuid.UUID][]stock.BatchMovement)}
}

func (m *MockLedgerRepository) AppendTransaction(ctx context.Context, txn *stock.LedgerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *txn
	m.transactions = append(m.transactions, &copied)
	return nil
}

func (m *MockLedgerRepository) UpdateTransaction(ctx context.Context, txn *stock.LedgerTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, t := range m.transactions {
		if t.ID == txn.ID {
			copied := *txn
			m.transactions[i] = &copied
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *MockLedgerRepository) FindBySourceLine(ctx context.Context, docNo, sourceLineID string) (*stock.LedgerTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	for _, t := range m.transactions {
		if t.DocNo == docNo && t.SourceLineID == sourceLineID {
			copied := *t
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *MockLedgerRepository) AppendBatchMovements(ctx context.Context, movements []stock.BatchMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mv := range movements {
		m.movements[mv.LedgerTransactionID] = append(m.movements[mv.LedgerTransactionID], mv)
	}
	return nil
}

func (m *MockLedgerRepository) FindBatchMovements(ctx context.Context, ledgerTransactionID uuid.UUID) ([]stock.BatchMovement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]stock.BatchMovement, len(m.movements[ledgerTransactionID]))
	copy(result, m.movements[ledgerTransactionID])
	return result, nil
}

func (m *MockLedgerRepository) ReplaceBatchMovements(ctx context.Context, ledgerTransactionID uuid.UUID, movements []stock.BatchMovement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	replaced := make([]stock.BatchMovement, len(movements))
	copy(replaced, movements)
	m.movements[ledgerTransactionID] = replaced
	return nil
}

// MockBalanceRepository is an in-memory implementation of stock.BalanceRepository
type MockBalanceRepository struct {
	mu       sync.Mutex
	balances map[string]stock.RunningBalance
}

func NewMockBalanceRepository() *MockBalanceRepository {
	return &MockBalanceRepository{balances: make(map[string]stock.RunningBalance)}
}

func balanceKey(itemCode, siteCode, uom string) string {
	return itemCode + "|" + siteCode + "|" + uom
}

func (m *MockBalanceRepository) QueryRunningBalance(ctx context.Context, itemCode, siteCode, uom string) (*stock.RunningBalance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b, ok := m.balances[balanceKey(itemCode, siteCode, uom)]; ok {
		copied := b
		return &copied, nil
	}
	return stock.NewRunningBalance(itemCode, siteCode, uom), nil
}

func (m *MockBalanceRepository) SaveRunningBalance(ctx context.Context, balance *stock.RunningBalance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[balanceKey(balance.ItemCode, balance.SiteCode, balance.UOM)] = *balance
	return nil
}

// MockDocumentRepository is an in-memory implementation of stock.DocumentRepository
type MockDocumentRepository struct {
	mu        sync.Mutex
	documents map[uuid.UUID]*stock.Document
	sequences map[stock.MovementKind]int
}

func NewMockDocumentRepository() *MockDocumentRepository {
	return &MockDocumentRepository{
		documents: make(map[uuid.UUID]*stock.Document),
		sequences: make(map[stock.MovementKind]int),
	}
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*stock.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if doc, ok := m.documents[id]; ok {
		return doc, nil
	}
	return nil, shared.ErrNotFound
}

func (m *MockDocumentRepository) FindByDocNo(ctx context.Context, docNo string) (*stock.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range m.documents {
		if doc.DocNo == docNo {
			return doc, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (m *MockDocumentRepository) FindBySite(ctx context.Context, siteCode string, kind stock.MovementKind, limit int) ([]stock.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]stock.Document, 0)
	for _, doc := range m.documents {
		if doc.SiteCode == siteCode && (kind == "" || doc.MovementKind == kind) {
			result = append(result, *doc)
		}
		if len(result) >= limit {
			break
		}
	}
	return result, nil
}

func (m *MockDocumentRepository) Save(ctx context.Context, doc *stock.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.documents[doc.ID] = doc
	return nil
}

func (m *MockDocumentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.documents, id)
	return nil
}

func (m *MockDocumentRepository) NextDocumentNumber(ctx context.Context, kind stock.MovementKind) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sequences[kind]++
	return fmt.Sprintf("%s-%06d", kind.DocPrefix(), m.sequences[kind]), nil
}

// MockSerialBatchRegistry records registrations and can fail on demand
type MockSerialBatchRegistry struct {
	mu            sync.Mutex
	registrations []stock.SerialBatchRegistration
	err           error
}

func (m *MockSerialBatchRegistry) RegisterSerialBatch(ctx context.Context, reg stock.SerialBatchRegistration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.registrations = append(m.registrations, reg)
	return nil
}

// MockIdempotencyStore is an in-memory implementation of shared.IdempotencyStore
type MockIdempotencyStore struct {
	mu   sync.Mutex
	keys map[string]bool
}

func NewMockIdempotencyStore() *MockIdempotencyStore {
	return &MockIdempotencyStore{keys: make(map[string]bool)}
}

func (m *MockIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys[key] {
		return false, nil
	}
	m.keys[key] = true
	return true, nil
}

func (m *MockIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys[key], nil
}

func (m *MockIdempotencyStore) Close() error { return nil }

type testEnv struct {
	service  *PostingService
	docs     *MockDocumentRepository
	catalog  *MockBatchCatalog
	ledger   *MockLedgerRepository
	balances *MockBalanceRepository
}

func allFeatures() Features {
	return Features{
		BatchNoEnabled:              true,
		ManualBatchSelectionEnabled: true,
		ExpiryDateEnabled:           true,
		PostedDocumentEditEnabled:   true,
	}
}

func newTestEnv(features Features) *testEnv {
	docs := NewMockDocumentRepository()
	catalog := &MockBatchCatalog{}
	ledger := NewMockLedgerRepository()
	balances := NewMockBalanceRepository()
	service := NewPostingService(docs, catalog, ledger, balances, features, zap.NewNop())
	return &testEnv{service: service, docs: docs, catalog: catalog, ledger: ledger, balances: balances}
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return &d
}

func seedBatch(catalog *MockBatchCatalog, itemCode, batchNo string, qty int64, expiry *time.Time) {
	catalog.batches = append(catalog.batches, stock.BatchRecord{
		BaseEntity: shared.NewBaseEntity(),
		ItemCode:   itemCode,
		SiteCode:   "S01",
		UOM:        "PCS",
		BatchNo:    batchNo,
		Quantity:   decimal.NewFromInt(qty),
		ExpiryDate: expiry,
	})
}

func createSavedDocument(t *testing.T, env *testEnv, kind stock.MovementKind, lines []LineInput) *DocumentResponse {
	t.Helper()
	ctx := context.Background()
	created, err := env.service.CreateDocument(ctx, CreateDocumentRequest{
		SiteCode:     "S01",
		MovementKind: kind,
	})
	require.NoError(t, err)
	docID, err := uuid.Parse(created.ID)
	require.NoError(t, err)
	saved, err := env.service.SaveLines(ctx, docID, lines)
	require.NoError(t, err)
	return saved
}

func TestCreateDocument(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()

	t.Run("assigns sequential document numbers per kind", func(t *testing.T) {
		first, err := env.service.CreateDocument(ctx, CreateDocumentRequest{SiteCode: "S01", MovementKind: stock.MovementReceive})
		require.NoError(t, err)
		second, err := env.service.CreateDocument(ctx, CreateDocumentRequest{SiteCode: "S01", MovementKind: stock.MovementReceive})
		require.NoError(t, err)
		ret, err := env.service.CreateDocument(ctx, CreateDocumentRequest{SiteCode: "S01", MovementKind: stock.MovementReturn})
		require.NoError(t, err)

		assert.Equal(t, "GRN-000001", first.DocNo)
		assert.Equal(t, "GRN-000002", second.DocNo)
		assert.Equal(t, "GRT-000001", ret.DocNo)
		assert.Equal(t, stock.DocumentStatusDraft, first.Status)
	})

	t.Run("rejects unknown movement kind", func(t *testing.T) {
		_, err := env.service.CreateDocument(ctx, CreateDocumentRequest{SiteCode: "S01", MovementKind: "BOGUS"})
		require.Error(t, err)
	})
}

func TestPostReceive(t *testing.T) {
	env := newTestEnv(allFeatures())
	registry := &MockSerialBatchRegistry{}
	env.service.SetSerialBatchRegistry(registry)
	ctx := context.Background()

	doc := createSavedDocument(t, env, stock.MovementReceive, []LineInput{
		{
			ItemCode:   "SHAMPOO",
			UOM:        "PCS",
			Quantity:   decimal.NewFromInt(10),
			Price:      decimal.NewFromInt(25),
			BatchNo:    "B1",
			ExpiryDate: datePtr(2027, time.March, 1),
		},
	})
	docID, _ := uuid.Parse(doc.ID)

	result, err := env.service.Post(ctx, docID, "alice")
	require.NoError(t, err)

	assert.True(t, result.FullySucceeded())
	assert.Equal(t, stock.DocumentStatusPosted, result.Status)
	assert.Equal(t, 1, result.LinesPosted)

	txn := env.ledger.transactions[0]
	assert.True(t, txn.SignedQty.Equal(decimal.NewFromInt(10)))
	assert.True(t, txn.SignedAmount.Equal(decimal.NewFromInt(250)))
	assert.True(t, txn.BalanceQtyAfter.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, "B1", txn.CombinedBatchLabel)

	// receipt creates the batch in the catalog
	assert.True(t, env.catalog.quantityOf("SHAMPOO", "B1").Equal(decimal.NewFromInt(10)))

	balance, err := env.balances.QueryRunningBalance(ctx, "SHAMPOO", "S01", "PCS")
	require.NoError(t, err)
	assert.True(t, balance.Qty.Equal(decimal.NewFromInt(10)))
	assert.True(t, balance.Cost.Equal(decimal.NewFromInt(250)))

	require.Len(t, registry.registrations, 1)
	assert.Equal(t, "B1", registry.registrations[0].BatchNo)
	assert.True(t, registry.registrations[0].Quantity.Equal(decimal.NewFromInt(10)))
}

func TestPostReturnSequentialAllocation(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()

	// B2 expires first and must be consumed first
	seedBatch(env.catalog, "CONDITIONER", "B1", 5, datePtr(2027, time.March, 1))
	seedBatch(env.catalog, "CONDITIONER", "B2", 5, datePtr(2027, time.January, 1))

	doc := createSavedDocument(t, env, stock.MovementReturn, []LineInput{
		{ItemCode: "CONDITIONER", UOM: "PCS", Quantity: decimal.NewFromInt(7), Price: decimal.NewFromInt(10)},
	})
	docID, _ := uuid.Parse(doc.ID)

	result, err := env.service.Post(ctx, docID, "alice")
	require.NoError(t, err)
	assert.True(t, result.FullySucceeded())

	txn := env.ledger.transactions[0]
	assert.True(t, txn.SignedQty.Equal(decimal.NewFromInt(-7)))
	assert.Equal(t, "B2,B1", txn.CombinedBatchLabel)

	movements := env.ledger.movements[txn.ID]
	require.Len(t, movements, 2)
	assert.Equal(t, "B2", movements[0].BatchNo)
	assert.True(t, movements[0].SignedQty.Equal(decimal.NewFromInt(-5)))
	assert.Equal(t, "B1", movements[1].BatchNo)
	assert.True(t, movements[1].SignedQty.Equal(decimal.NewFromInt(-2)))

	assert.True(t, env.catalog.quantityOf("CONDITIONER", "B2").IsZero())
	assert.True(t, env.catalog.quantityOf("CONDITIONER", "B1").Equal(decimal.NewFromInt(3)))

	balance, err := env.balances.QueryRunningBalance(ctx, "CONDITIONER", "S01", "PCS")
	require.NoError(t, err)
	assert.True(t, balance.Qty.Equal(decimal.NewFromInt(-7)))
}

func TestPostInsufficientStock(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()

	seedBatch(env.catalog, "OIL", "B1", 3, nil)

	doc := createSavedDocument(t, env, stock.MovementReturn, []LineInput{
		{ItemCode: "OIL", UOM: "PCS", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(5)},
	})
	docID, _ := uuid.Parse(doc.ID)

	result, err := env.service.Post(ctx, docID, "alice")
	require.NoError(t, err)

	// insufficiency warns, it does not fail the line
	assert.Equal(t, 1, result.LinesPosted)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "short by 7")

	// ledger reflects the stock actually moved
	txn := env.ledger.transactions[0]
	assert.True(t, txn.SignedQty.Equal(decimal.NewFromInt(-3)))
	movements := env.ledger.movements[txn.ID]
	require.Len(t, movements, 1)
	assert.True(t, movements[0].SignedQty.Equal(decimal.NewFromInt(-3)))
}

func TestPostManualAllocation(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()

	seedBatch(env.catalog, "SERUM", "B1", 10, datePtr(2027, time.June, 1))
	seedBatch(env.catalog, "SERUM", "B2", 10, datePtr(2027, time.January, 1))
	seedBatch(env.catalog, "SERUM", "", 4, nil)

	doc := createSavedDocument(t, env, stock.MovementReturn, []LineInput{
		{
			ItemCode: "SERUM",
			UOM:      "PCS",
			Quantity: decimal.NewFromInt(9),
			Price:    decimal.NewFromInt(30),
			Manual: &ManualAllocationInput{
				Selections: []ManualSelectionInput{
					{BatchNo: "B1", Quantity: decimal.NewFromInt(5)},
					{BatchNo: "B2", Quantity: decimal.NewFromInt(2)},
				},
				NoBatchQty: decimal.NewFromInt(2),
			},
		},
	})

	// the manual split was encoded at save time
	require.Len(t, doc.Lines, 1)
	assert.Equal(t, "B1:5,B2:2", doc.Lines[0].Allocation)

	docID, _ := uuid.Parse(doc.ID)
	result, err := env.service.Post(ctx, docID, "alice")
	require.NoError(t, err)
	assert.True(t, result.FullySucceeded())

	// the posted movements replay the user's split, not expiry order
	txn := env.ledger.transactions[0]
	movements := env.ledger.movements[txn.ID]
	require.Len(t, movements, 3)
	assert.Equal(t, "B1", movements[0].BatchNo)
	assert.True(t, movements[0].SignedQty.Equal(decimal.NewFromInt(-5)))
	assert.Equal(t, "B2", movements[1].BatchNo)
	assert.Equal(t, "", movements[2].BatchNo)
	assert.True(t, movements[2].SignedQty.Equal(decimal.NewFromInt(-2)))

	assert.True(t, env.catalog.quantityOf("SERUM", "B1").Equal(decimal.NewFromInt(5)))
	assert.True(t, env.catalog.quantityOf("SERUM", "B2").Equal(decimal.NewFromInt(8)))
	assert.True(t, env.catalog.quantityOf("SERUM", "").Equal(decimal.NewFromInt(2)))
}

func TestSaveLinesManualMismatch(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()

	seedBatch(env.catalog, "MASK", "B1", 3, nil)

	created, err := env.service.CreateDocument(ctx, CreateDocumentRequest{SiteCode: "S01", MovementKind: stock.MovementReturn})
	require.NoError(t, err)
	docID, _ := uuid.Parse(created.ID)

	_, err = env.service.SaveLines(ctx, docID, []LineInput{
		{
			ItemCode: "MASK",
			UOM:      "PCS",
			Quantity: decimal.NewFromInt(7),
			Price:    decimal.NewFromInt(12),
			Manual: &ManualAllocationInput{
				Selections: []ManualSelectionInput{{BatchNo: "B1", Quantity: decimal.NewFromInt(7)}},
			},
		},
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "ALLOCATION_MISMATCH", domainErr.Code)
}

func TestPostDuplicateGuard(t *testing.T) {
	env := newTestEnv(allFeatures())
	env.service.SetIdempotencyStore(NewMockIdempotencyStore(), shared.DefaultIdempotencyConfig())
	ctx := context.Background()

	doc := createSavedDocument(t, env, stock.MovementReceive, []LineInput{
		{ItemCode: "WAX", UOM: "PCS", Quantity: decimal.NewFromInt(4), Price: decimal.NewFromInt(8), BatchNo: "B1"},
	})
	docID, _ := uuid.Parse(doc.ID)

	_, err := env.service.Post(ctx, docID, "alice")
	require.NoError(t, err)

	_, err = env.service.Post(ctx, docID, "alice")
	require.Error(t, err)
	assert.ErrorIs(t, err, shared.ErrDuplicatePosting)
	assert.Len(t, env.ledger.transactions, 1)
}

func TestPostAllLinesFail(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()

	doc := createSavedDocument(t, env, stock.MovementReturn, []LineInput{
		{ItemCode: "GEL", UOM: "PCS", Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(3)},
	})
	docID, _ := uuid.Parse(doc.ID)

	env.catalog.queryErr = errors.New("connection refused")

	result, err := env.service.Post(ctx, docID, "alice")
	require.NoError(t, err)

	assert.Equal(t, 0, result.LinesPosted)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "GEL", result.Failures[0].ItemCode)
	// the document reverts instead of staying stuck in Posting
	assert.Equal(t, stock.DocumentStatusSaved, result.Status)
	assert.Empty(t, env.ledger.transactions)
}

func TestPostBatchTrackingDisabled(t *testing.T) {
	features := allFeatures()
	features.BatchNoEnabled = false
	env := newTestEnv(features)
	ctx := context.Background()

	doc := createSavedDocument(t, env, stock.MovementReturn, []LineInput{
		{ItemCode: "SPRAY", UOM: "PCS", Quantity: decimal.NewFromInt(6), Price: decimal.NewFromInt(2)},
	})
	docID, _ := uuid.Parse(doc.ID)

	result, err := env.service.Post(ctx, docID, "alice")
	require.NoError(t, err)
	assert.True(t, result.FullySucceeded())

	// everything lands in the no-batch bucket, no catalog read needed
	txn := env.ledger.transactions[0]
	movements := env.ledger.movements[txn.ID]
	require.Len(t, movements, 1)
	assert.Equal(t, "", movements[0].BatchNo)
	assert.True(t, movements[0].SignedQty.Equal(decimal.NewFromInt(-6)))
}

func postReceiveForEdit(t *testing.T, env *testEnv) (uuid.UUID, uuid.UUID) {
	t.Helper()
	doc := createSavedDocument(t, env, stock.MovementReceive, []LineInput{
		{ItemCode: "TONER", UOM: "PCS", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(20), BatchNo: "B1"},
	})
	docID, err := uuid.Parse(doc.ID)
	require.NoError(t, err)
	_, err = env.service.Post(context.Background(), docID, "alice")
	require.NoError(t, err)
	lineID, err := uuid.Parse(doc.Lines[0].LineID)
	require.NoError(t, err)
	return docID, lineID
}

func TestEditPostedPriceOnly(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()
	docID, lineID := postReceiveForEdit(t, env)

	newPrice := decimal.NewFromInt(25)
	result, err := env.service.EditPosted(ctx, docID, []PostedLineEdit{
		{LineID: lineID, Price: &newPrice},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.LinesEdited)
	assert.Equal(t, stock.DocumentStatusPostedEdited, result.Status)

	// balance moves by the amount delta only, quantity untouched
	balance, err := env.balances.QueryRunningBalance(ctx, "TONER", "S01", "PCS")
	require.NoError(t, err)
	assert.True(t, balance.Qty.Equal(decimal.NewFromInt(10)))
	assert.True(t, balance.Cost.Equal(decimal.NewFromInt(250)))

	txn := env.ledger.transactions[0]
	assert.True(t, txn.SignedAmount.Equal(decimal.NewFromInt(250)))
	assert.True(t, env.catalog.quantityOf("TONER", "B1").Equal(decimal.NewFromInt(10)))
}

func TestEditPostedQuantityChange(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()
	docID, lineID := postReceiveForEdit(t, env)

	newQty := decimal.NewFromInt(15)
	result, err := env.service.EditPosted(ctx, docID, []PostedLineEdit{
		{LineID: lineID, Quantity: &newQty},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.LinesEdited)

	// delta reconciliation: 10 original, 15 updated, balance ends at 15 not 25
	balance, err := env.balances.QueryRunningBalance(ctx, "TONER", "S01", "PCS")
	require.NoError(t, err)
	assert.True(t, balance.Qty.Equal(decimal.NewFromInt(15)))
	assert.True(t, balance.Cost.Equal(decimal.NewFromInt(300)))

	txn := env.ledger.transactions[0]
	assert.True(t, txn.SignedQty.Equal(decimal.NewFromInt(15)))
	assert.True(t, txn.BalanceQtyAfter.Equal(decimal.NewFromInt(15)))

	// catalog got the +5 difference, not another +15
	assert.True(t, env.catalog.quantityOf("TONER", "B1").Equal(decimal.NewFromInt(15)))

	movements := env.ledger.movements[txn.ID]
	require.Len(t, movements, 1)
	assert.True(t, movements[0].SignedQty.Equal(decimal.NewFromInt(15)))
}

func TestEditPostedDisabled(t *testing.T) {
	features := allFeatures()
	env := newTestEnv(features)
	docID, lineID := postReceiveForEdit(t, env)

	disabled := features
	disabled.PostedDocumentEditEnabled = false
	env.service.features = disabled

	newPrice := decimal.NewFromInt(30)
	_, err := env.service.EditPosted(context.Background(), docID, []PostedLineEdit{
		{LineID: lineID, Price: &newPrice},
	})
	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "POSTED_EDIT_DISABLED", domainErr.Code)
}

func TestEditPostedMissingOriginal(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()
	docID, lineID := postReceiveForEdit(t, env)

	// simulate a line whose transaction was never written
	env.ledger.transactions = nil

	newQty := decimal.NewFromInt(12)
	result, err := env.service.EditPosted(ctx, docID, []PostedLineEdit{
		{LineID: lineID, Quantity: &newQty},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.LinesEdited)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "posting edited line as new")

	// the edited line was posted fresh
	require.Len(t, env.ledger.transactions, 1)
	assert.True(t, env.ledger.transactions[0].SignedQty.Equal(decimal.NewFromInt(12)))
}

func TestEditPostedLedgerReadFailure(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()
	docID, lineID := postReceiveForEdit(t, env)

	// the original transaction exists but cannot be read
	env.ledger.findErr = errors.New("driver: bad connection")

	newPrice := decimal.NewFromInt(25)
	result, err := env.service.EditPosted(ctx, docID, []PostedLineEdit{
		{LineID: lineID, Price: &newPrice},
	})
	require.NoError(t, err)

	// the line fails instead of being re-posted as new
	assert.Equal(t, 0, result.LinesEdited)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "TONER", result.Failures[0].ItemCode)
	assert.Contains(t, result.Failures[0].Reason, "bad connection")
	assert.Empty(t, result.Warnings)
	assert.Equal(t, stock.DocumentStatusPosted, result.Status)

	// nothing was double-applied
	balance, err := env.balances.QueryRunningBalance(ctx, "TONER", "S01", "PCS")
	require.NoError(t, err)
	assert.True(t, balance.Qty.Equal(decimal.NewFromInt(10)))
	assert.True(t, balance.Cost.Equal(decimal.NewFromInt(200)))
	require.Len(t, env.ledger.transactions, 1)
	assert.True(t, env.catalog.quantityOf("TONER", "B1").Equal(decimal.NewFromInt(10)))
}

func TestDeleteDocument(t *testing.T) {
	env := newTestEnv(allFeatures())
	ctx := context.Background()

	t.Run("deletes an unposted document", func(t *testing.T) {
		created, err := env.service.CreateDocument(ctx, CreateDocumentRequest{SiteCode: "S01", MovementKind: stock.MovementAdjustment})
		require.NoError(t, err)
		docID, _ := uuid.Parse(created.ID)

		require.NoError(t, env.service.DeleteDocument(ctx, docID))
		_, err = env.service.GetDocument(ctx, docID)
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("refuses to delete a posted document", func(t *testing.T) {
		docID, _ := postReceiveForEdit(t, env)
		err := env.service.DeleteDocument(ctx, docID)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}
