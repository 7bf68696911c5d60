package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupStockTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&stock.BatchRecord{},
		&stock.Document{},
		&stock.DocumentLine{},
		&stock.LedgerTransaction{},
		&stock.BatchMovement{},
		&stock.RunningBalance{},
	)
	require.NoError(t, err)

	return db
}

func seedBatchRecord(t *testing.T, db *gorm.DB, itemCode, batchNo string, qty int64, expiry *time.Time) *stock.BatchRecord {
	t.Helper()
	batch := stock.NewBatchRecord(itemCode, "S01", "PCS", batchNo, decimal.NewFromInt(qty), decimal.Zero, expiry)
	require.NoError(t, db.Create(batch).Error)
	return batch
}

func testDate(t *testing.T, value string) *time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	require.NoError(t, err)
	return &d
}

func TestGormBatchCatalog_QueryBatches(t *testing.T) {
	db := setupStockTestDB(t)
	catalog := NewGormBatchCatalog(db)
	ctx := context.Background()

	t.Run("returns snapshot in allocation order", func(t *testing.T) {
		seedBatchRecord(t, db, "SHMP-500", "", 20, nil)
		seedBatchRecord(t, db, "SHMP-500", "B-LATE", 10, testDate(t, "2027-06-30"))
		seedBatchRecord(t, db, "SHMP-500", "B-EARLY", 5, testDate(t, "2026-12-31"))
		seedBatchRecord(t, db, "SHMP-500", "B-NOEXP", 8, nil)

		batches, err := catalog.QueryBatches(ctx, "SHMP-500", "S01", "PCS")

		require.NoError(t, err)
		require.Len(t, batches, 4)
		assert.Equal(t, "B-EARLY", batches[0].BatchNo)
		assert.Equal(t, "B-LATE", batches[1].BatchNo)
		assert.Equal(t, "B-NOEXP", batches[2].BatchNo)
		assert.Equal(t, "", batches[3].BatchNo)
	})

	t.Run("filters by item, site and uom", func(t *testing.T) {
		seedBatchRecord(t, db, "COND-200", "B1", 3, nil)

		batches, err := catalog.QueryBatches(ctx, "COND-200", "S01", "PCS")
		require.NoError(t, err)
		require.Len(t, batches, 1)
		assert.Equal(t, "B1", batches[0].BatchNo)

		batches, err = catalog.QueryBatches(ctx, "COND-200", "S02", "PCS")
		require.NoError(t, err)
		assert.Empty(t, batches)
	})
}

func TestGormBatchCatalog_UpdateBatchQty(t *testing.T) {
	ctx := context.Background()

	t.Run("applies positive delta to existing batch", func(t *testing.T) {
		db := setupStockTestDB(t)
		catalog := NewGormBatchCatalog(db)
		seedBatchRecord(t, db, "SHMP-500", "B1", 10, nil)

		err := catalog.UpdateBatchQty(ctx, "SHMP-500", "S01", "PCS", "B1", decimal.NewFromInt(5), nil)
		require.NoError(t, err)

		var batch stock.BatchRecord
		require.NoError(t, db.First(&batch, "batch_no = ?", "B1").Error)
		assert.True(t, batch.Quantity.Equal(decimal.NewFromInt(15)), "got %s", batch.Quantity)
	})

	t.Run("applies negative delta", func(t *testing.T) {
		db := setupStockTestDB(t)
		catalog := NewGormBatchCatalog(db)
		seedBatchRecord(t, db, "SHMP-500", "B1", 10, nil)

		err := catalog.UpdateBatchQty(ctx, "SHMP-500", "S01", "PCS", "B1", decimal.NewFromInt(-7), nil)
		require.NoError(t, err)

		var batch stock.BatchRecord
		require.NoError(t, db.First(&batch, "batch_no = ?", "B1").Error)
		assert.True(t, batch.Quantity.Equal(decimal.NewFromInt(3)), "got %s", batch.Quantity)
	})

	t.Run("creates batch on positive delta for unknown batch", func(t *testing.T) {
		db := setupStockTestDB(t)
		catalog := NewGormBatchCatalog(db)
		expiry := testDate(t, "2027-01-31")

		err := catalog.UpdateBatchQty(ctx, "SHMP-500", "S01", "PCS", "B-NEW", decimal.NewFromInt(12), expiry)
		require.NoError(t, err)

		var batch stock.BatchRecord
		require.NoError(t, db.First(&batch, "batch_no = ?", "B-NEW").Error)
		assert.True(t, batch.Quantity.Equal(decimal.NewFromInt(12)))
		require.NotNil(t, batch.ExpiryDate)
		assert.Equal(t, "2027-01-31", batch.ExpiryDate.Format("2006-01-02"))
	})

	t.Run("rejects negative delta for unknown batch", func(t *testing.T) {
		db := setupStockTestDB(t)
		catalog := NewGormBatchCatalog(db)

		err := catalog.UpdateBatchQty(ctx, "SHMP-500", "S01", "PCS", "B-MISSING", decimal.NewFromInt(-1), nil)
		assert.ErrorContains(t, err, "B-MISSING")
	})

	t.Run("backfills missing expiry date", func(t *testing.T) {
		db := setupStockTestDB(t)
		catalog := NewGormBatchCatalog(db)
		seedBatchRecord(t, db, "SHMP-500", "B1", 10, nil)

		err := catalog.UpdateBatchQty(ctx, "SHMP-500", "S01", "PCS", "B1", decimal.NewFromInt(2), testDate(t, "2026-11-30"))
		require.NoError(t, err)

		var batch stock.BatchRecord
		require.NoError(t, db.First(&batch, "batch_no = ?", "B1").Error)
		require.NotNil(t, batch.ExpiryDate)
		assert.Equal(t, "2026-11-30", batch.ExpiryDate.Format("2006-01-02"))
	})

	t.Run("zero delta is a no-op", func(t *testing.T) {
		db := setupStockTestDB(t)
		catalog := NewGormBatchCatalog(db)

		err := catalog.UpdateBatchQty(ctx, "SHMP-500", "S01", "PCS", "B-NONE", decimal.Zero, nil)
		assert.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&stock.BatchRecord{}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestGormBatchCatalog_FindExpiringBefore(t *testing.T) {
	db := setupStockTestDB(t)
	catalog := NewGormBatchCatalog(db)
	ctx := context.Background()

	seedBatchRecord(t, db, "SHMP-500", "B-SOON", 10, testDate(t, "2026-09-10"))
	seedBatchRecord(t, db, "SHMP-500", "B-LATER", 10, testDate(t, "2027-03-01"))
	seedBatchRecord(t, db, "SHMP-500", "B-EMPTY", 0, testDate(t, "2026-09-01"))
	seedBatchRecord(t, db, "SHMP-500", "B-NOEXP", 10, nil)

	deadline, err := time.Parse("2006-01-02", "2026-10-01")
	require.NoError(t, err)

	batches, err := catalog.FindExpiringBefore(ctx, "S01", deadline)

	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.Equal(t, "B-SOON", batches[0].BatchNo)
}
