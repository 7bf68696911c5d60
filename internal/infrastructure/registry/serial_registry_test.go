package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/salonerp/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testRegistration() stock.SerialBatchRegistration {
	expiry := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	return stock.SerialBatchRegistration{
		DocNo:      "GRN-000001",
		ItemCode:   "SHMP-500",
		SiteCode:   "S01",
		UOM:        "PCS",
		BatchNo:    "B240115",
		Quantity:   decimal.NewFromInt(10),
		ExpiryDate: &expiry,
	}
}

func TestHTTPSerialBatchRegistry_RegisterSerialBatch(t *testing.T) {
	t.Run("posts registration payload", func(t *testing.T) {
		var received registrationPayload
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "/serial-batches", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		reg := NewHTTPSerialBatchRegistry(server.URL, 5*time.Second, zap.NewNop())
		err := reg.RegisterSerialBatch(context.Background(), testRegistration())

		require.NoError(t, err)
		assert.Equal(t, "GRN-000001", received.DocNo)
		assert.Equal(t, "B240115", received.BatchNo)
		assert.Equal(t, "10", received.Quantity)
		assert.Equal(t, "2026-12-31", received.ExpiryDate)
	})

	t.Run("omits expiry date when not set", func(t *testing.T) {
		var rawBody map[string]interface{}
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&rawBody))
			w.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		reg := NewHTTPSerialBatchRegistry(server.URL, 5*time.Second, zap.NewNop())
		registration := testRegistration()
		registration.ExpiryDate = nil

		require.NoError(t, reg.RegisterSerialBatch(context.Background(), registration))
		_, hasExpiry := rawBody["expiry_date"]
		assert.False(t, hasExpiry)
	})

	t.Run("returns error on non-2xx status", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "duplicate batch", http.StatusConflict)
		}))
		defer server.Close()

		reg := NewHTTPSerialBatchRegistry(server.URL, 5*time.Second, zap.NewNop())
		err := reg.RegisterSerialBatch(context.Background(), testRegistration())

		assert.ErrorContains(t, err, "status 409")
	})

	t.Run("returns error when endpoint unreachable", func(t *testing.T) {
		reg := NewHTTPSerialBatchRegistry("http://127.0.0.1:1", 100*time.Millisecond, zap.NewNop())
		err := reg.RegisterSerialBatch(context.Background(), testRegistration())

		assert.Error(t, err)
	})
}

func TestNoopSerialBatchRegistry(t *testing.T) {
	err := NoopSerialBatchRegistry{}.RegisterSerialBatch(context.Background(), testRegistration())
	assert.NoError(t, err)
}
