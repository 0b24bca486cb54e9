package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/beerhive/fulfillment/internal/domain"
	"github.com/beerhive/fulfillment/pkg/logging"
	"github.com/beerhive/fulfillment/pkg/resilience"
)

// catalogItemDTO is the catalog service's wire shape for an item
type catalogItemDTO struct {
	ID       string             `json:"id"`
	Name     string             `json:"name"`
	Category *catalogCategory   `json:"category,omitempty"`
	Bundle   []catalogComponent `json:"bundle,omitempty"`
}

type catalogCategory struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	PreferredStation string `json:"preferredStation,omitempty"`
}

type catalogComponent struct {
	Item     catalogItemDTO `json:"item"`
	Quantity int            `json:"quantity"`
}

// CatalogServiceClient handles communication with the catalog service.
// Implements application.CatalogLookup.
type CatalogServiceClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	logger     *logging.Logger
}

// NewCatalogServiceClient creates a new CatalogServiceClient
func NewCatalogServiceClient(baseURL string, logger *logging.Logger) *CatalogServiceClient {
	return &CatalogServiceClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("catalog-service"), logger.Logger),
		logger:  logger,
	}
}

// GetItem fetches a catalog item including its category and bundle
// constituents. Returns (nil, nil) when the item does not exist.
func (c *CatalogServiceClient) GetItem(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.fetchItem(ctx, itemID)
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}
	return result.(*domain.CatalogItem), nil
}

func (c *CatalogServiceClient) fetchItem(ctx context.Context, itemID string) (*domain.CatalogItem, error) {
	url := fmt.Sprintf("%s/api/v1/items/%s", c.baseURL, itemID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	setPropagationHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog item: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog service returned status %d", resp.StatusCode)
	}

	var dto catalogItemDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return nil, fmt.Errorf("failed to decode catalog response: %w", err)
	}

	return toDomainItem(dto), nil
}

func toDomainItem(dto catalogItemDTO) *domain.CatalogItem {
	item := &domain.CatalogItem{
		ID:   dto.ID,
		Name: dto.Name,
	}
	if dto.Category != nil {
		item.Category = &domain.Category{
			ID:               dto.Category.ID,
			Name:             dto.Category.Name,
			PreferredStation: domain.Station(dto.Category.PreferredStation),
		}
	}
	if dto.Bundle != nil {
		item.Bundle = make([]domain.BundleComponent, 0, len(dto.Bundle))
		for _, component := range dto.Bundle {
			item.Bundle = append(item.Bundle, domain.BundleComponent{
				Item:     *toDomainItem(component.Item),
				Quantity: component.Quantity,
			})
		}
	}
	return item
}
