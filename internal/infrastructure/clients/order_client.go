package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/middleware"
	"github.com/beerhive/fulfillment/pkg/resilience"
)

// orderDTO is the order store's wire shape for a confirmed order
type orderDTO struct {
	OrderID string         `json:"orderId"`
	Lines   []orderLineDTO `json:"lines"`
}

type orderLineDTO struct {
	LineID   string `json:"lineId"`
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
	Notes    string `json:"notes,omitempty"`
	Removed  bool   `json:"removed"`
}

// OrderStoreClient handles communication with the sales order store.
// Implements application.OrderStore.
type OrderStoreClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

// NewOrderStoreClient creates a new OrderStoreClient
func NewOrderStoreClient(baseURL string, logger *logging.Logger) *OrderStoreClient {
	return &OrderStoreClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("order-store"), logger.Logger),
		logger:  logger,
	}
}

// GetConfirmedOrder fetches the order payload to route. Returns (nil, nil)
// when the order does not exist.
func (c *OrderStoreClient) GetConfirmedOrder(ctx context.Context, orderID string) (*domain.ConfirmedOrder, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.fetchOrder(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.(*domain.ConfirmedOrder), nil
}

// MarkConfirmed records the confirmation in the order store
func (c *OrderStoreClient) MarkConfirmed(ctx context.Context, orderID string) error {
	_, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		url := fmt.Sprintf("%s/api/v1/orders/%s/confirm", c.baseURL, orderID)

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		setPropagationHeaders(ctx, req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to confirm order: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
			return nil, fmt.Errorf("order store returned status %d", resp.StatusCode)
		}
		return nil, nil
	})
	return err
}

func (c *OrderStoreClient) fetchOrder(ctx context.Context, orderID string) (*domain.ConfirmedOrder, error) {
	url := fmt.Sprintf("%s/api/v1/orders/%s", c.baseURL, orderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	setPropagationHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch order: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("order store returned status %d", resp.StatusCode)
	}

	var dto orderDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}

	order := &domain.ConfirmedOrder{OrderID: dto.OrderID}
	for _, line := range dto.Lines {
		order.Lines = append(order.Lines, domain.OrderLine{
			LineID:   line.LineID,
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Notes:    line.Notes,
			Removed:  line.Removed,
		})
	}
	return order, nil
}

// setPropagationHeaders forwards request and correlation ids to downstream
// services when present on the context
func setPropagationHeaders(ctx context.Context, req *http.Request) {
	if id, ok := ctx.Value(logging.RequestIDKey).(string); ok && id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}
	if id, ok := ctx.Value(logging.CorrelationIDKey).(string); ok && id != "" {
		req.Header.Set(middleware.HeaderCorrelationID, id)
	}
}
