package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/beerhive/fulfillment/internal/application"
	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/resilience"
)

// inventoryRequest is the payload for availability checks and deductions
type inventoryRequest struct {
	OrderID string                 `json:"orderId"`
	Lines   []inventoryRequestLine `json:"lines"`
}

type inventoryRequestLine struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// InventoryServiceClient handles communication with the inventory service.
// Implements application.InventoryService.
type InventoryServiceClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

// NewInventoryServiceClient creates a new InventoryServiceClient
func NewInventoryServiceClient(baseURL string, logger *logging.Logger) *InventoryServiceClient {
	return &InventoryServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("inventory-service"), logger.Logger),
		logger:  logger,
	}
}

// CheckAvailability asks the inventory service whether all lines can be
// fulfilled
func (c *InventoryServiceClient) CheckAvailability(ctx context.Context, order *domain.ConfirmedOrder) (*application.AvailabilityResult, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.post(ctx, "/api/v1/stock/check", order, true)
	})
	if err != nil {
		return nil, err
	}
	return result.(*application.AvailabilityResult), nil
}

// Deduct commits the stock deduction for a confirmed order
func (c *InventoryServiceClient) Deduct(ctx context.Context, order *domain.ConfirmedOrder) error {
	_, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.post(ctx, "/api/v1/stock/deduct", order, false)
	})
	return err
}

func (c *InventoryServiceClient) post(ctx context.Context, path string, order *domain.ConfirmedOrder, decode bool) (*application.AvailabilityResult, error) {
	payload := inventoryRequest{OrderID: order.OrderID}
	for _, line := range order.Lines {
		if line.Removed {
			continue
		}
		payload.Lines = append(payload.Lines, inventoryRequestLine{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
		})
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inventory request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	setPropagationHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call inventory service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inventory service returned status %d", resp.StatusCode)
	}

	if !decode {
		return nil, nil
	}

	var result application.AvailabilityResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode inventory response: %w", err)
	}
	return &result, nil
}
