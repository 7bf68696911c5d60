package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/salonerp/backend/internal/domain/stock"
	"go.uber.org/zap"
)

// maxResponseSize is the maximum allowed response size from the registry (1MB)
const maxResponseSize = 1 * 1024 * 1024

// HTTPSerialBatchRegistry forwards serial/batch registrations to an external
// registry endpoint. Registration is fire-and-forget from the caller's point
// of view: errors are returned but postings never roll back over them.
type HTTPSerialBatchRegistry struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPSerialBatchRegistry creates a registry client for the given endpoint
func NewHTTPSerialBatchRegistry(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPSerialBatchRegistry {
	return &HTTPSerialBatchRegistry{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// registrationPayload is the wire format of one registration
type registrationPayload struct {
	DocNo      string `json:"doc_no"`
	ItemCode   string `json:"item_code"`
	SiteCode   string `json:"site_code"`
	UOM        string `json:"uom"`
	BatchNo    string `json:"batch_no"`
	Quantity   string `json:"quantity"`
	ExpiryDate string `json:"expiry_date,omitempty"`
}

// RegisterSerialBatch posts one registration to the external registry
func (r *HTTPSerialBatchRegistry) RegisterSerialBatch(ctx context.Context, reg stock.SerialBatchRegistration) error {
	payload := registrationPayload{
		DocNo:    reg.DocNo,
		ItemCode: reg.ItemCode,
		SiteCode: reg.SiteCode,
		UOM:      reg.UOM,
		BatchNo:  reg.BatchNo,
		Quantity: reg.Quantity.String(),
	}
	if reg.ExpiryDate != nil {
		payload.ExpiryDate = reg.ExpiryDate.Format("2006-01-02")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal registration: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/serial-batches", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build registration request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send registration: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
		r.logger.Warn("serial/batch registry rejected registration",
			zap.String("doc_no", reg.DocNo),
			zap.String("batch_no", reg.BatchNo),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("response", respBody))
		return fmt.Errorf("registry returned status %d", resp.StatusCode)
	}

	return nil
}

// NoopSerialBatchRegistry is used when no registry endpoint is configured
type NoopSerialBatchRegistry struct{}

// RegisterSerialBatch does nothing
func (NoopSerialBatchRegistry) RegisterSerialBatch(ctx context.Context, reg stock.SerialBatchRegistration) error {
	return nil
}

// Ensure both implementations satisfy the port
var (
	_ stock.SerialBatchRegistry = (*HTTPSerialBatchRegistry)(nil)
	_ stock.SerialBatchRegistry = NoopSerialBatchRegistry{}
)
