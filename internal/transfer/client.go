package transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/avelines/creator-ledger/internal"
)

// Gateway moves funds out of the platform. It is a black box with real
// latency and transient failures; callers must treat any error as "the
// transfer did not confirm", never as "the transfer did not happen".
type Gateway interface {
	Transfer(ctx context.Context, req *Request) (*Result, error)
}

type Request struct {
	Destination    string `json:"destination"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	IdempotencyKey string `json:"idempotency_key"`
}

type Result struct {
	TransferID string `json:"transfer_id"`
	Status     string `json:"status"`
}

// Client calls the external transfer gateway over HTTP. Each payout execution
// sends its payout id as the idempotency key, so a re-enqueued attempt for a
// still-pending payout cannot double-send funds on the gateway side.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewClient(cfg internal.TransferConfig, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (c *Client) Transfer(ctx context.Context, req *Request) (*Result, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, internal.NewInternalError("failed to encode transfer request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/transfers", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, internal.NewInternalError("failed to create transfer request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Idempotency-Key", req.IdempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("transfer request failed", "error", err, "destination", req.Destination)
		return nil, internal.NewExternalError("transfer gateway unreachable", internal.ErrCodeGatewayTransfer, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		c.logger.Error("transfer rejected by gateway", "status_code", resp.StatusCode, "destination", req.Destination)
		return nil, internal.NewExternalError(fmt.Sprintf("transfer gateway returned status %d", resp.StatusCode), internal.ErrCodeGatewayTransfer, nil)
	}

	var apiResponse struct {
		Data Result `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResponse); err != nil {
		return nil, internal.NewExternalError("failed to decode transfer response", internal.ErrCodeGatewayTransfer, err)
	}

	if apiResponse.Data.TransferID == "" {
		return nil, internal.NewExternalError("transfer response missing transfer id", internal.ErrCodeGatewayTransfer, nil)
	}

	c.logger.Info("transfer confirmed",
		"transfer_id", apiResponse.Data.TransferID,
		"status", apiResponse.Data.Status,
		"amount", req.Amount)

	return &apiResponse.Data, nil
}
